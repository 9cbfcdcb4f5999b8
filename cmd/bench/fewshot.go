package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"nano2zit/internal/bench"
	"nano2zit/internal/prompt"
)

func newFewshotCmd() *cobra.Command {
	var (
		csvPath     string
		output      string
		maxExamples int
	)
	cmd := &cobra.Command{
		Use:   "fewshot",
		Short: "Select style primer examples from the dataset and write the few-shot YAML",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(csvPath)
			if err != nil {
				return fmt.Errorf("open dataset: %w", err)
			}
			rows, err := bench.ReadRows(file)
			file.Close()
			if err != nil {
				return fmt.Errorf("read dataset: %w", err)
			}

			fs, err := bench.SelectFewshot(filepath.Base(csvPath), rows, maxExamples)
			if err != nil {
				return err
			}
			data, err := prompt.MarshalFewshot(fs)
			if err != nil {
				return fmt.Errorf("encode few-shot examples: %w", err)
			}
			if err := os.MkdirAll(filepath.Dir(output), 0o755); err != nil {
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d few-shot examples to %s\n", len(fs.Examples), output)
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&csvPath, "csv", "prompts.csv", "Latin-1 CSV with prompt_json and prompt_zit columns")
	flags.StringVar(&output, "output", "internal/prompt/fewshot.yaml", "few-shot YAML output path")
	flags.IntVar(&maxExamples, "max-examples", bench.DefaultFewshotExamples, "number of examples to keep")
	return cmd
}

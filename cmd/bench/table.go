package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"nano2zit/internal/bench"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// renderSummary formats the best-scoring buckets as a console table.
func renderSummary(rows []bench.Summary, limit int) string {
	if len(rows) > limit {
		rows = rows[:limit]
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("TARGET", "PROFILE", "OK", "SCORE", "LATENCY MS", "PARSE %", "CONSTRAINTS %", "BANNED-CLEAN %", "ASPECT %").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	for _, s := range rows {
		t.Row(
			s.TargetID,
			s.ProfileID,
			fmt.Sprintf("%d/%d", s.OK, s.Total),
			fmt.Sprintf("%.2f", s.AvgScore),
			fmt.Sprintf("%.0f", s.AvgLatencyMs),
			fmt.Sprintf("%.2f", s.ParseSuccessPct),
			fmt.Sprintf("%.2f", s.ConstraintsOKPct),
			fmt.Sprintf("%.2f", s.BannedCleanPct),
			fmt.Sprintf("%.2f", s.AspectOKPct),
		)
	}
	return t.String()
}

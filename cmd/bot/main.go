package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nano2zit/internal/config"
	"nano2zit/internal/convert"
	"nano2zit/internal/handlers"
	"nano2zit/internal/httpclient"
	"nano2zit/internal/llm"
	"nano2zit/internal/logging"
	"nano2zit/internal/telegram"
	"nano2zit/internal/textgroup"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, os.Stdout)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		UserAgent:  "nano2zit-bot",
	})

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.TelegramToken,
		HTTPClient: httpClient,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	llmOpts := cfg.LLMOptions()
	llmOpts.HTTPClient = httpClient
	llmOpts.Logger = logger
	gen := llm.New(llmOpts)

	svc := convert.New(convert.Options{
		Generator:     gen,
		MaxInputChars: cfg.MaxInputJSONChars,
		Logger:        logger,
	})

	handler := handlers.New(handlers.Options{
		Telegram:  tg,
		Converter: svc,
		Logger:    logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sem := make(chan struct{}, cfg.MaxConcurrent)
	onFlush := func(batch textgroup.Batch) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
			defer cancel()

			handler.HandleBatch(reqCtx, batch)
		}()
	}

	aggregator := textgroup.New(textgroup.Options{
		Debounce: cfg.MessageDebounce,
		OnFlush:  onFlush,
	})
	defer aggregator.Close()
	handler.SetTextAggregator(aggregator)

	rt := gen.Runtime(llm.Runtime{})
	logger.Info("bot started", "username", tg.Username(), "provider", rt.Provider, "model", rt.Model)

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}

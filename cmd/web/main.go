package main

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"nano2zit/internal/config"
	"nano2zit/internal/convert"
	"nano2zit/internal/httpclient"
	"nano2zit/internal/llm"
	"nano2zit/internal/logging"
)

//go:embed static/*
var staticFS embed.FS

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, os.Stdout)

	httpClient := httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		UserAgent:  "nano2zit-web",
	})

	llmOpts := cfg.LLMOptions()
	llmOpts.HTTPClient = httpClient
	llmOpts.Logger = logger
	gen := llm.New(llmOpts)

	svc := convert.New(convert.Options{
		Generator:     gen,
		MaxInputChars: cfg.MaxInputJSONChars,
		Logger:        logger,
	})

	staticSub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}

	s := &server{
		conv:           svc,
		runtime:        gen.Runtime(llm.Runtime{}),
		requestTimeout: cfg.RequestTimeout,
		logger:         logger,
	}

	srv := &http.Server{
		Addr:              cfg.WebAddr,
		Handler:           s.routes(http.FileServer(http.FS(staticSub))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 30*time.Second,
		IdleTimeout:       90 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("web started",
		"addr", cfg.WebAddr,
		"provider", s.runtime.Provider,
		"model", s.runtime.Model,
	)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/pharmaqc/rx-ocr/config"
	"github.com/pharmaqc/rx-ocr/data"
	"github.com/pharmaqc/rx-ocr/handlers"
	"github.com/pharmaqc/rx-ocr/health"
	"github.com/pharmaqc/rx-ocr/logging"
	"github.com/pharmaqc/rx-ocr/scheduler"
	"github.com/pharmaqc/rx-ocr/server"
	"github.com/pharmaqc/rx-ocr/textsource"
	"github.com/pharmaqc/rx-ocr/validation"
)

// loadEnv reads .env from the working directory, then from the executable
// directory. A missing file is fine: the environment may be set already.
func loadEnv() {
	if err := godotenv.Load(); err == nil {
		return
	}
	ex, err := os.Executable()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(filepath.Dir(ex), ".env"))
}

func main() {
	loadEnv()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	logSvc := logging.InitLogger(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer logSvc.Close()

	source, err := textsource.New(textsource.Config{
		RemoteURL:     cfg.RemoteURL,
		TesseractPath: cfg.TesseractPath,
		Language:      cfg.TesseractLang,
		Timeout:       cfg.OCRTimeout,
	})
	if err != nil {
		logging.Error("Failed to create recognition backend", "error", err)
		os.Exit(1)
	}
	logging.Info("Recognition backend selected", "backend", source.Name(), "env", cfg.Env.String())

	store := data.NewStatusContainer(source.Name())
	store.SetServerStartTime(time.Now())

	probes := scheduler.NewScheduler(store, source, cfg.ProbeInterval)
	if err := probes.Start(); err != nil {
		logging.Error("Failed to start backend probes", "error", err)
		os.Exit(1)
	}
	defer probes.Stop()

	handler := handlers.NewHTTPHandler(handlers.Options{
		Store: store,
		Validator: validation.NewInputValidator(validation.Limits{
			MaxImageBytes: cfg.MaxRequestBody,
			MaxTextLength: cfg.MaxTextLength,
		}),
		Health:        health.NewHealthChecker(store, cfg.ProbeInterval),
		Source:        source,
		MaxImageBytes: cfg.MaxRequestBody,
	})

	srv := server.NewServer(cfg, handler)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-quit:
	case err := <-errCh:
		logging.Error("Server failed to start", "error", err)
		probes.Stop()
		_ = logSvc.Close()
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logging.Error("Server shutdown failed", "error", err)
	}
}

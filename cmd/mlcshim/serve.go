package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mlcshim/internal/bridge"
	"mlcshim/internal/config"
	"mlcshim/internal/httpapi"
)

const shutdownGrace = 5 * time.Second

func runServe(cmd *cobra.Command, configPath string) error {
	cfg, err := config.Resolve(config.Sources{
		File:   configPath,
		DotEnv: []string{".env"},
		Flags:  cmd.Flags(),
	})
	if err != nil {
		return err
	}
	logger, err := newLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}

	br := bridge.New(bridgeConfig(cfg))
	br.SetLogger(logger.With().Str("component", "bridge").Logger())
	br.SetEventPublisher(bridge.NewLogPublisher(logger.With().Str("component", "cli").Logger()))
	for _, c := range br.Preflight() {
		if !c.OK {
			logger.Warn().Str("check", c.Name).Str("detail", c.Detail).Msg("preflight check failed")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpapi.SetLogger(logger.With().Str("component", "http").Logger())
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.Origins, cfg.CORS.Methods, cfg.CORS.Headers)
	httpapi.SetBaseContext(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpapi.NewMux(br),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr).
			Str("cli", cfg.CLIPath).
			Str("model", cfg.ModelName).
			Str("device", cfg.Device).
			Int("timeout_s", cfg.TimeoutSeconds).
			Msg("mlcshim listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func bridgeConfig(cfg config.Config) bridge.Config {
	return bridge.Config{
		CLIPath:       cfg.CLIPath,
		ModelPath:     cfg.ModelPath,
		ModelLib:      cfg.ModelLib,
		Device:        cfg.Device,
		ModelName:     cfg.ModelName,
		Timeout:       cfg.Timeout(),
		Pace:          cfg.Pace(),
		ChunkSize:     cfg.ChunkSize,
		MaxConcurrent: cfg.MaxConcurrent,
		QueueWait:     cfg.QueueWait(),
	}
}

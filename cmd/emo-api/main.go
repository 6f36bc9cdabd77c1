// Proposal API server
// Serves the trade-synthesis pipeline and the staged-draft store over REST
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/HanzoRazer/emo-options-bot-sub000/internal/api"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/config"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/pipeline"
	"github.com/HanzoRazer/emo-options-bot-sub000/internal/portfolio"
)

var (
	configPath    = flag.String("config", "", "Path to config file (default: ./configs/config.yaml)")
	portfolioPath = flag.String("portfolio", "", "Path to a YAML portfolio snapshot, re-read per request")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	config.InitLogger(cfg.App.LogLevel, cfg.App.LogFormat)
	log.Info().Str("env", cfg.App.Environment).Msg("Starting proposal API server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if *portfolioPath == "" {
		log.Fatal().Msg("-portfolio is required, the server will not gate trades against an unknown book")
	}
	snapshots := portfolio.FileProvider{Path: *portfolioPath}

	pipe, store, cleanup, err := pipeline.FromConfig(ctx, cfg, snapshots)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble pipeline")
	}
	defer cleanup()

	server := api.NewServer(api.Config{
		Host:          cfg.API.Host,
		Port:          cfg.API.Port,
		Pipeline:      pipe,
		Store:         store,
		EnableMetrics: cfg.Monitoring.EnableMetrics,
	})

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- server.Start()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		log.Error().Err(err).Msg("Server error")
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to stop server gracefully")
		os.Exit(1)
	}
	log.Info().Msg("Server stopped")
}

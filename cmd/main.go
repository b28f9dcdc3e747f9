package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"speech-translate-service/internal/app"
	"speech-translate-service/internal/config"
)

func main() {
	cfg := config.Load()

	application := app.New(cfg)
	defer application.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := application.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to start service")
		application.Shutdown()
		os.Exit(1)
	}

	if err := application.Run(ctx); err != nil {
		log.Error().Err(err).Msg("Service stopped with error")
		application.Shutdown()
		os.Exit(1)
	}
}

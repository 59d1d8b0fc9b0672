package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alextreichler/shopfront/internal/config"
	"github.com/alextreichler/shopfront/internal/devapi"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)

	cfg, err := config.LoadDevAPIConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	var provider devapi.Provider
	if cfg.RazorpayKeyID != "" {
		provider = devapi.NewRazorpayProvider(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
		slog.Info("Using Razorpay provider", "key", cfg.RazorpayKeyID)
	} else {
		provider = devapi.NewFakeProvider("", "")
		slog.Warn("RAZORPAY_KEY_ID not set. Using the fake payment provider; pay orders through /dev/pay/{providerOrderId}.")
	}

	srv := devapi.New(devapi.Options{
		Provider:       provider,
		JWTSecret:      cfg.JWTSecret,
		FrontendOrigin: cfg.FrontendOrigin,
		Logger:         logger,
	})
	if err := srv.SeedDemo(); err != nil {
		slog.Error("Failed to seed demo data", "error", err)
		os.Exit(1)
	}

	app := srv.App()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-stop
		slog.Info("Shutting down devapi...")
		if err := app.Shutdown(); err != nil {
			slog.Error("Devapi shutdown failed", "error", err)
		}
	}()

	slog.Info("Devapi starting", "port", cfg.Port)
	if err := app.Listen(":" + cfg.Port); err != nil {
		slog.Error("Devapi failed to listen", "error", err)
		os.Exit(1)
	}
	slog.Info("Devapi exited.")
}

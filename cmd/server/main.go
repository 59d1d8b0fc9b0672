package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"

	"github.com/alextreichler/shopfront/internal/config"
	"github.com/alextreichler/shopfront/internal/handlers"
	"github.com/alextreichler/shopfront/internal/store"
)

func main() {
	handlerOpts := &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}
	logger := slog.New(slog.NewTextHandler(os.Stdout, handlerOpts))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Init DB
	db, err := store.NewStore(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	db.SessionTTL = cfg.SessionTTL

	if err := db.Migrate(); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}

	// 3. Session Setup
	cookieStore := sessions.NewCookieStore(cfg.SessionKey)
	cookieStore.Options.HttpOnly = true
	cookieStore.Options.Secure = cfg.CookieSecure
	cookieStore.Options.SameSite = http.SameSiteLaxMode
	cookieStore.Options.Path = "/"
	cookieStore.Options.MaxAge = int(cfg.SessionTTL.Seconds())
	if cfg.CookieDomain != "" {
		cookieStore.Options.Domain = cfg.CookieDomain
	}

	registry := handlers.NewRegistry(cookieStore, db, db, handlers.RegistryConfig{
		APIBaseURL:     cfg.APIBaseURL,
		RequestTimeout: cfg.RequestTimeout,
		ShopName:       cfg.ShopName,
		Policy:         cfg.SlicePolicy,
		IdleTimeout:    cfg.SessionTTL,
	})

	// 4. Init Templates
	templates := handlers.NewTemplateCache()
	if err := templates.Load(); err != nil {
		slog.Error("Failed to load templates", "error", err)
		os.Exit(1)
	}

	// 5. Setup Handlers
	shopHandler := &handlers.ShopHandler{Sessions: registry, Templates: templates}
	adminHandler := &handlers.AdminHandler{Sessions: registry, Templates: templates, Stats: db}

	rateLimiter := handlers.NewRateLimiter(2 * time.Second)
	defer rateLimiter.Stop()
	if err := rateLimiter.TrustProxies(cfg.TrustedProxies); err != nil {
		slog.Error("Invalid TRUSTED_PROXIES", "error", err)
		os.Exit(1)
	}

	mux := handlers.Routes(shopHandler, adminHandler, rateLimiter)
	handler := handlers.Chain(mux, handlers.ChainConfig{
		CSRFKey: cfg.CSRFKey,
		Secure:  cfg.CookieSecure,
		// Trust local development origins
		TrustedOrigins: []string{"localhost:" + cfg.Port, "127.0.0.1:" + cfg.Port, "localhost", "127.0.0.1"},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go registry.Run(ctx, 10*time.Minute)
	go purgeExpired(ctx, db, time.Hour)

	// 6. Start Server with Graceful Shutdown
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("Server starting", "port", cfg.Port, "api", cfg.APIBaseURL, "policy", cfg.SlicePolicy)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to listen and serve", "error", err)
			os.Exit(1)
		}
	}()

	<-stop

	slog.Info("Shutting down server gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server shutdown failed", "error", err)
		os.Exit(1)
	}

	slog.Info("Server exited gracefully.")
}

// purgeExpired drops expired correlation tokens every interval.
func purgeExpired(ctx context.Context, db *store.Store, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := db.PurgeExpiredSessionValues(ctx)
			if err != nil {
				slog.Error("Failed to purge expired session values", "error", err)
				continue
			}
			if n > 0 {
				slog.Info("Purged expired session values", "count", n)
			}
		}
	}
}

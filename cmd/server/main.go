package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"onestoppos/backend/internal/cache"
	"onestoppos/backend/internal/config"
	"onestoppos/backend/internal/httpapi"
	"onestoppos/backend/internal/notify"
	"onestoppos/backend/internal/service"
	"onestoppos/backend/internal/store"
	"onestoppos/backend/internal/store/memory"
	pgstore "onestoppos/backend/internal/store/postgres"
)

func main() {
	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		log.Fatalf("invalid TIMEZONE %q: %v", cfg.Timezone, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var repo store.Repository
	closers := make([]func() error, 0, 2)

	if cfg.DatabaseURL != "" {
		pg, err := pgstore.New(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("postgres unavailable (%v) and DATABASE_URL is set; refusing to start with in-memory fallback", err)
		}
		repo = pg
		closers = append(closers, pg.Close)
		log.Println("repository: postgres")
	} else {
		repo = memory.NewSeeded(loc)
		log.Println("repository: in-memory")
	}

	summaries := cache.SummaryCache(cache.NoopSummaryCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisSummaryCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			summaries = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	gateway := buildGateway(cfg)

	svc := service.New(
		repo,
		summaries,
		gateway,
		loc,
		cfg.CountryPrefix,
		time.Duration(cfg.NotifySendDelayMillis)*time.Millisecond,
		time.Duration(cfg.SummaryTTLSeconds)*time.Second,
	)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, repo)
	api := httpapi.New(svc, auth, cfg.AllowedOrigin)

	server := &http.Server{
		Addr:              cfg.Address(),
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("POS backend listening on %s", cfg.Address())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}

	for _, closeFn := range closers {
		if err := closeFn(); err != nil {
			log.Printf("close error: %v", err)
		}
	}

	log.Println("server stopped")
}

// buildGateway picks the reminder delivery channel. The mock gateway logs
// messages instead of sending them, so a shop can run the backend without
// WhatsApp Business credentials.
func buildGateway(cfg config.Config) notify.Gateway {
	switch cfg.NotifyProvider {
	case "whatsapp":
		if cfg.WhatsAppToken == "" || cfg.WhatsAppPhoneNumberID == "" {
			log.Fatal("NOTIFY_PROVIDER=whatsapp requires WHATSAPP_API_TOKEN and WHATSAPP_PHONE_NUMBER_ID")
		}
		log.Println("notify: whatsapp")
		return notify.NewWhatsAppGateway(cfg.WhatsAppToken, cfg.WhatsAppPhoneNumberID)
	case "", "mock":
		log.Println("notify: mock")
		return notify.MockGateway{}
	default:
		log.Fatalf("unknown NOTIFY_PROVIDER %q (want mock or whatsapp)", cfg.NotifyProvider)
		return nil
	}
}

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	return nil
}

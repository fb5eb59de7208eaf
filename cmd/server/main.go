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

	"github.com/joho/godotenv"

	"tbmpos/backend/internal/cache"
	"tbmpos/backend/internal/config"
	"tbmpos/backend/internal/httpapi"
	"tbmpos/backend/internal/service"
	"tbmpos/backend/internal/store/csvstore"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("WARN: loading .env: %v", err)
	}

	cfg := config.Load()
	if err := validateSecurityConfig(cfg); err != nil {
		log.Fatalf("invalid security configuration: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	fullInvent := cfg.FullInvent()
	if fullInvent {
		pre, err := csvstore.New(cfg.DataDir, cfg.ConfDir)
		if err != nil {
			log.Fatalf("store unavailable: %v", err)
		}
		if err := pre.ArchiveForFullInvent(cfg.BackupDir); err != nil {
			log.Fatalf("full inventory reset failed: %v", err)
		}
		log.Println("full inventory reset: data archived, starting fresh")
	}

	repo, err := csvstore.New(cfg.DataDir, cfg.ConfDir)
	if err != nil {
		log.Fatalf("store unavailable: %v", err)
	}
	log.Printf("repository: csv files under %s", cfg.DataDir)

	closers := make([]func() error, 0, 1)
	reportCache := cache.ReportCache(cache.NoopReportCache{})
	if cfg.RedisAddr != "" {
		redisCache := cache.NewRedisReportCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisCache.Ping(ctx); err != nil {
			log.Printf("redis unavailable (%v), using noop cache", err)
		} else {
			reportCache = redisCache
			closers = append(closers, redisCache.Close)
			log.Println("cache: redis")
		}
	} else {
		log.Println("cache: noop")
	}

	svc := service.New(repo, reportCache, cfg.ReportCacheTTLSeconds, fullInvent)
	auth := httpapi.NewAuthManager(cfg.AuthSecret, time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute, cfg.SeedAdminPassword, cfg.SeedCashierPassword)
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
		log.Printf("inventory backend listening on %s", cfg.Address())
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

func validateSecurityConfig(cfg config.Config) error {
	if len(cfg.AuthSecret) < 32 {
		return fmt.Errorf("AUTH_SECRET must be set and at least 32 characters")
	}
	if cfg.SeedAdminPassword == "" && cfg.SeedCashierPassword == "" {
		return fmt.Errorf("at least one of SEED_ADMIN_PASSWORD or SEED_CASHIER_PASSWORD must be set")
	}
	return nil
}

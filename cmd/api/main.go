package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/draftpilot/draftpilot-backend/config"
	"github.com/draftpilot/draftpilot-backend/internal/auth"
	"github.com/draftpilot/draftpilot-backend/internal/auth/middleware"
	"github.com/draftpilot/draftpilot-backend/internal/llm"
	projecthttp "github.com/draftpilot/draftpilot-backend/internal/projects/http"
	"github.com/draftpilot/draftpilot-backend/internal/projects/repository"
	"github.com/draftpilot/draftpilot-backend/internal/projects/service"
	cronjob "github.com/draftpilot/draftpilot-backend/internal/templates/cron"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	authClient, fsClient, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
	if err != nil {
		slog.Error("Failed to initialize Firebase", "error", err)
		os.Exit(1)
	}
	defer fsClient.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	var cache *repository.TemplateCache
	if err := rdb.Ping(ctx).Err(); err != nil {
		slog.Warn("Redis unavailable, template cache disabled", "addr", cfg.Redis.Addr, "error", err)
	} else {
		cache = repository.NewTemplateCache(rdb, cfg.Redis.TemplateTTL)
	}

	geminiClient, err := llm.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model)
	if err != nil {
		slog.Error("Failed to initialize Gemini client", "error", err)
		os.Exit(1)
	}

	repo := repository.NewRepo(fsClient, cache)
	artifacts := service.NewArtifactService(repo, geminiClient)
	examples := service.NewExampleService(repo, geminiClient, cfg.Generation.ExampleReplyCount)
	chat := service.NewChatService(repo, geminiClient, artifacts, examples, cfg.Generation.ArtifactThreshold)
	handler := projecthttp.New(chat, artifacts, examples, repo)

	if cache != nil {
		warmer := cronjob.NewWarmer(repo, cache)
		scheduler := warmer.Start()
		defer scheduler.Stop()
	}

	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: false,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "version": cfg.App.Version})
	})

	api := r.Group("/api")
	api.Use(middleware.FirebaseAuthMiddleware(authClient))
	handler.Register(api, middleware.ChatRateLimiter(cfg.Generation.ChatRatePerMinute))

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r,
	}

	go func() {
		slog.Info("Server listening", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Forced shutdown", "error", err)
	}
}

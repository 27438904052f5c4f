package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/caredraft/internal/answerbank"
	"github.com/caredraft/internal/audit"
	"github.com/caredraft/internal/cache"
	"github.com/caredraft/internal/collab"
	"github.com/caredraft/internal/config"
	"github.com/caredraft/internal/drafting"
	"github.com/caredraft/internal/httpapi"
	"github.com/caredraft/internal/llm"
	"github.com/caredraft/internal/ratelimit"
	"github.com/caredraft/internal/search"
	"github.com/caredraft/internal/supabase"
)

func main() {
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	logger.Info("Starting CareDraft API...")

	// Optional shared infrastructure. The service runs without either; Redis
	// adds a shared response cache, NATS adds durable audit delivery.
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis unreachable, continuing with in-memory cache only", zap.Error(err))
			redisClient = nil
		}
	}

	var natsConn *nats.Conn
	if cfg.NATSAddr != "" {
		natsConn, err = nats.Connect(cfg.NATSAddr)
		if err != nil {
			logger.Warn("NATS unreachable, audit trail degrades to logs", zap.Error(err))
			natsConn = nil
		} else {
			defer natsConn.Close()
		}
	}

	responseCache, err := cache.New(0, 15*time.Minute, redisClient, logger)
	if err != nil {
		logger.Fatal("Failed to initialize response cache", zap.Error(err))
	}
	defer responseCache.Close()

	trail := audit.New(natsConn, audit.Config{}, logger)
	defer trail.Close()

	store := supabase.NewClient(supabase.Config{
		ProjectURL: cfg.Supabase.ProjectURL,
		AnonKey:    cfg.Supabase.AnonKey,
		ServiceKey: cfg.Supabase.ServiceKey,
		JWTSecret:  cfg.Supabase.JWTSecret,
	}, logger)

	searchClient := search.New(search.Config{
		APIKey:  cfg.Search.APIKey,
		BaseURL: cfg.Search.BaseURL,
	}, responseCache, logger)

	// Case-study sources in preference order: the organization's own answer
	// bank first, the open web second.
	var sources []drafting.StudySource
	index, err := answerbank.New(answerbank.Config{IndexPath: cfg.IndexPath}, logger)
	if err != nil {
		logger.Warn("Answer-bank index unavailable", zap.Error(err))
	} else {
		defer index.Close()
		sources = append(sources, index)
		go syncAnswerBank(index, store, logger)
	}
	if cfg.Search.APIKey != "" {
		sources = append(sources, searchClient)
	}

	invoker := llm.New(llm.Config{
		OpenAIKey:        cfg.LLM.OpenAIKey,
		AnthropicKey:     cfg.LLM.AnthropicKey,
		OpenAIBaseURL:    cfg.LLM.OpenAIBaseURL,
		AnthropicBaseURL: cfg.LLM.AnthropicBase,
		RequestTimeout:   cfg.LLM.RequestTimeout,
	}, logger)

	limiter, err := ratelimit.New(ratelimit.Config{
		RequestsPerMinute: cfg.RateLimit.RequestsPerMinute,
		Burst:             cfg.RateLimit.Burst,
		MaxClients:        cfg.RateLimit.MaxClients,
	})
	if err != nil {
		logger.Fatal("Failed to initialize rate limiter", zap.Error(err))
	}

	hub := collab.NewHub(logger, originChecker(cfg.AllowedOrigins))

	server := httpapi.NewServer(httpapi.Deps{
		Drafting:     drafting.NewService(invoker, sources, logger),
		Search:       searchClient,
		Store:        store,
		Verifier:     supabase.NewVerifier(cfg.Supabase.JWTSecret, logger),
		Limiter:      limiter,
		Trail:        trail,
		Hub:          hub,
		MaxBodyBytes: cfg.MaxBodyBytes,
	}, logger)

	cors := handlers.CORS(
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)

	srv := &http.Server{
		Handler:      cors(server.Router()),
		Addr:         cfg.Addr,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	go func() {
		logger.Info("API listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server startup failed", zap.Error(err))
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", zap.Error(err))
	}
}

// syncAnswerBank seeds the case-study index at startup and refreshes it
// periodically.
func syncAnswerBank(index *answerbank.Index, store *supabase.Client, logger *zap.Logger) {
	sync := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		items, err := store.ListAnswerItems(ctx)
		if err != nil {
			logger.Warn("Answer-bank sync failed", zap.Error(err))
			return
		}
		if err := index.Sync(ctx, items); err != nil {
			logger.Warn("Answer-bank index update failed", zap.Error(err))
		}
	}

	sync()
	for range time.Tick(10 * time.Minute) {
		sync()
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

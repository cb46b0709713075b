package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	apihttp "github.com/daat21/lumiere/internal/api/http"
	"github.com/daat21/lumiere/internal/app"
	"github.com/daat21/lumiere/internal/auth"
	"github.com/daat21/lumiere/internal/chat"
	"github.com/daat21/lumiere/internal/metrics"
	"github.com/daat21/lumiere/internal/providers/tmdb"
	mongorepo "github.com/daat21/lumiere/internal/repository/mongo"
	"github.com/daat21/lumiere/internal/telemetry"
	"github.com/daat21/lumiere/internal/usecase"
)

const serviceName = "lumiere"

func main() {
	cfg := app.LoadConfig()
	logger := newLogger(cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics.Register(registry)

	shutdownTracer, err := telemetry.Init(context.Background(), telemetry.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.OTLPEndpoint,
		SampleRatio: cfg.TraceSampleRatio,
	})
	if err != nil {
		logger.Warn("otel init failed", slog.String("error", err.Error()))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	logger.Info("configuration loaded",
		slog.String("service", serviceName),
		slog.String("httpAddr", cfg.HTTPAddr),
		slog.String("logLevel", cfg.LogLevel),
		slog.String("logFormat", cfg.LogFormat),
		slog.Duration("requestTimeout", cfg.RequestTimeout),
		slog.Bool("hasTMDBKey", cfg.TMDBAPIKey != "" || cfg.TMDBAccessToken != ""),
		slog.Bool("hasRedis", strings.TrimSpace(cfg.RedisURL) != ""),
		slog.Bool("hasJWTSecret", cfg.JWTSecret != ""),
		slog.Bool("hasGeminiKey", cfg.GeminiAPIKey != ""),
		slog.String("mongoDatabase", cfg.MongoDatabase),
		slog.Duration("searchDebounce", cfg.SearchDebounce),
		slog.Any("corsOrigins", cfg.CORSOrigins),
	)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := connectRedis(rootCtx, cfg, logger)
	catalog := tmdb.NewClient(tmdb.Config{
		APIKey:      cfg.TMDBAPIKey,
		AccessToken: cfg.TMDBAccessToken,
		BaseURL:     cfg.TMDBBaseURL,
		Language:    cfg.TMDBLanguage,
		UserAgent:   cfg.UserAgent,
		Client:      &http.Client{Timeout: cfg.RequestTimeout, Transport: otelhttp.NewTransport(http.DefaultTransport)},
		Redis:       redisClient,
		CacheTTL:    cfg.TMDBCacheTTL,
		Logger:      logger,
	})
	if !catalog.Enabled() {
		logger.Warn("tmdb credentials not configured, movie endpoints disabled")
	}

	serverOpts := []apihttp.ServerOption{
		apihttp.WithLogger(logger),
		apihttp.WithGatherer(registry),
		apihttp.WithAllowedOrigins(cfg.CORSOrigins),
		apihttp.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
		apihttp.WithAuthRateLimit(float64(cfg.AuthRatePerMin), cfg.AuthRatePerMin),
		apihttp.WithSearchBox(cfg.SearchDebounce, cfg.TrendingLimit),
		apihttp.WithCookies(apihttp.CookieConfig{
			Secure:     cfg.CookieSecure,
			AccessTTL:  cfg.AccessTokenTTL,
			RefreshTTL: cfg.RefreshTokenTTL,
		}),
	}

	if completer := buildCompleter(rootCtx, cfg, logger); completer != nil {
		serverOpts = append(serverOpts, apihttp.WithCompleter(completer))
	}

	mongoClient := connectMongo(rootCtx, cfg, logger)
	if mongoClient != nil {
		serverOpts = append(serverOpts, buildAccountOptions(rootCtx, cfg, mongoClient, catalog, logger)...)
	}

	server := apihttp.NewServer(catalog, serverOpts...)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		// Chat replies stream over SSE and websockets stay open, so writes
		// are not bounded at the server level.
		WriteTimeout: 0,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("lumiere started", slog.String("addr", cfg.HTTPAddr))

	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	server.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", slog.String("error", err.Error()))
	}
	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			logger.Warn("mongo disconnect error", slog.String("error", err.Error()))
		}
	}
	if redisClient != nil {
		_ = redisClient.Close()
	}
	logger.Info("lumiere stopped")
}

func newLogger(levelRaw, formatRaw string) *slog.Logger {
	level := parseLogLevel(levelRaw)
	options := &slog.HandlerOptions{Level: level}
	format := strings.ToLower(strings.TrimSpace(formatRaw))
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, options))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, options))
}

func parseLogLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// connectRedis returns nil when no URL is configured or the server does not
// answer, in which case the TMDB client runs without a response cache.
func connectRedis(ctx context.Context, cfg app.Config, logger *slog.Logger) *redis.Client {
	redisURL := strings.TrimSpace(cfg.RedisURL)
	if redisURL == "" {
		return nil
	}
	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Warn("invalid redis url, tmdb cache disabled", slog.String("error", err.Error()))
		return nil
	}
	client := redis.NewClient(redisOpts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn("redis not reachable, tmdb cache disabled", slog.String("error", err.Error()))
		_ = client.Close()
		return nil
	}
	logger.Info("redis connected", slog.String("addr", redisOpts.Addr))
	return client
}

func buildCompleter(ctx context.Context, cfg app.Config, logger *slog.Logger) chat.Completer {
	if cfg.GeminiAPIKey == "" {
		logger.Info("gemini api key not configured, chat disabled")
		return nil
	}
	completer, err := chat.NewGeminiCompleter(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
	if err != nil {
		logger.Warn("gemini client init failed, chat disabled", slog.String("error", err.Error()))
		return nil
	}
	logger.Info("gemini completer initialized", slog.String("model", cfg.GeminiModel))
	return completer
}

// connectMongo returns nil when accounts cannot be served: no JWT secret to
// sign sessions with, or no reachable database.
func connectMongo(ctx context.Context, cfg app.Config, logger *slog.Logger) *mongo.Client {
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not configured, accounts disabled")
		return nil
	}
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongorepo.Connect(connectCtx, cfg.MongoURI, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Error("mongo connect failed, accounts disabled", slog.String("error", err.Error()))
		return nil
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Error("mongo ping failed, accounts disabled", slog.String("error", err.Error()))
		_ = client.Disconnect(context.Background())
		return nil
	}
	return client
}

func buildAccountOptions(ctx context.Context, cfg app.Config, client *mongo.Client, catalog *tmdb.Client, logger *slog.Logger) []apihttp.ServerOption {
	tokens, err := auth.NewTokens(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	if err != nil {
		logger.Error("token issuer init failed, accounts disabled", slog.String("error", err.Error()))
		return nil
	}

	store := mongorepo.NewStore(client, cfg.MongoDatabase)
	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := store.EnsureIndexes(indexCtx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}

	validate := auth.NewValidator()
	accounts := apihttp.Accounts{
		Register:       usecase.Register{Users: store.Users, Validate: validate},
		Login:          usecase.Login{Users: store.Users, Tokens: tokens},
		Refresh:        usecase.RefreshSession{Users: store.Users, Tokens: tokens},
		Authenticate:   usecase.Authenticate{Users: store.Users, Tokens: tokens},
		UpdateProfile:  usecase.UpdateProfile{Users: store.Users, Validate: validate},
		ChangePassword: usecase.ChangePassword{Users: store.Users, Validate: validate},
	}
	watchlists := apihttp.Watchlists{
		Get:      usecase.GetWatchlist{Repo: store.Watchlists},
		Contains: usecase.WatchlistContains{Repo: store.Watchlists},
		Add:      usecase.AddToWatchlist{Repo: store.Watchlists, Catalog: catalog},
		Remove:   usecase.RemoveFromWatchlist{Repo: store.Watchlists},
	}
	reviews := apihttp.Reviews{
		Create:      usecase.CreateReview{Reviews: store.Reviews, Catalog: catalog, Logger: logger},
		Update:      usecase.UpdateReview{Reviews: store.Reviews},
		Delete:      usecase.DeleteReview{Reviews: store.Reviews},
		ListByMovie: usecase.ListMovieReviews{Reviews: store.Reviews, Catalog: catalog, Logger: logger},
		ListByUser:  usecase.ListUserReviews{Reviews: store.Reviews},
	}
	logger.Info("accounts enabled", slog.String("database", cfg.MongoDatabase))
	return []apihttp.ServerOption{
		apihttp.WithAccounts(accounts),
		apihttp.WithWatchlists(watchlists),
		apihttp.WithReviews(reviews),
	}
}

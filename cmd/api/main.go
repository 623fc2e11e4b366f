package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"github.com/costnav/healthcare-cost-navigator/internal/adapters/cache"
	"github.com/costnav/healthcare-cost-navigator/internal/adapters/database"
	"github.com/costnav/healthcare-cost-navigator/internal/adapters/providers/geolocation"
	"github.com/costnav/healthcare-cost-navigator/internal/api/handlers"
	"github.com/costnav/healthcare-cost-navigator/internal/api/middleware"
	"github.com/costnav/healthcare-cost-navigator/internal/api/routes"
	"github.com/costnav/healthcare-cost-navigator/internal/application/services"
	"github.com/costnav/healthcare-cost-navigator/internal/domain/providers"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/openai"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/postgres"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/clients/redis"
	"github.com/costnav/healthcare-cost-navigator/internal/infrastructure/observability"
	"github.com/costnav/healthcare-cost-navigator/pkg/config"
)

func main() {
	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Server.Env)
	log := observability.GetLogger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("error shutting down OpenTelemetry")
				}
			}()
			log.Info().Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()
	log.Info().Msg("PostgreSQL client initialized")

	// Redis is optional; the application works without response caching.
	var cacheProvider providers.CacheProvider
	redisClient, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Warn().Err(err).Msg("failed to initialize Redis client, running without cache")
	} else {
		defer redisClient.Close()
		cacheProvider = cache.NewRedisAdapter(redisClient)
		log.Info().Msg("Redis client initialized")
	}

	providerAdapter := database.NewProviderAdapter(pgClient)
	ratingAdapter := database.NewRatingAdapter(pgClient)
	queryExecutor := database.NewReadOnlyQueryAdapter(pgClient)

	zipResolver := geolocation.NewZipResolver(providerAdapter)
	if cacheProvider != nil {
		zipResolver = cache.NewCachedZipResolver(zipResolver, cacheProvider)
	}

	// The matcher dictionary is built once from the dataset at startup.
	loadCtx, loadCancel := context.WithTimeout(ctx, 30*time.Second)
	definitions, err := providerAdapter.DRGDefinitions(loadCtx)
	loadCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load DRG definitions")
	}
	matcher := services.NewDRGMatcherService(definitions)
	log.Info().Int("definitions", matcher.DefinitionCount()).Msg("DRG dictionary loaded")

	var llmProvider providers.LLMProvider
	if cfg.OpenAI.APIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY is not set; ask pipeline will serve degraded answers")
	} else {
		openaiClient, err := openai.NewClient(&cfg.OpenAI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize OpenAI client")
		} else {
			llmProvider = openaiClient
			log.Info().Str("model", cfg.OpenAI.Model).Msg("OpenAI client initialized")
		}
	}

	rankingService := services.NewRankingService()
	intentService := services.NewIntentService()
	searchService := services.NewProviderSearchService(
		providerAdapter,
		ratingAdapter,
		zipResolver,
		matcher,
		rankingService,
		cfg.Search,
		metrics,
	)
	askService := services.NewAskService(
		llmProvider,
		services.NewSQLGuard(),
		queryExecutor,
		intentService,
		cacheProvider,
		metrics,
	)

	providerHandler := handlers.NewProviderHandler(searchService)
	askHandler := handlers.NewAskHandler(askService)
	statsHandler := handlers.NewStatsHandler(providerAdapter, ratingAdapter, pgClient)

	var cacheMiddleware *middleware.CacheMiddleware
	if cacheProvider != nil {
		cacheMiddleware = middleware.NewCacheMiddleware(cacheProvider, metrics)
	}

	router := routes.NewRouter(providerHandler, askHandler, statsHandler, cacheMiddleware, metrics)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins(),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	})
	handler := corsHandler.Handler(router.SetupRoutes())

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	log.Info().Msg("server stopped")
}

func allowedOrigins() []string {
	if raw := os.Getenv("ALLOWED_ORIGINS"); raw != "" {
		var origins []string
		for _, o := range strings.Split(raw, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		if len(origins) > 0 {
			return origins
		}
	}
	return []string{"*"}
}

package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"address-search-api/docs"
	"address-search-api/internal/config"
	"address-search-api/internal/handler"
	"address-search-api/internal/ingest"
	"address-search-api/internal/logging"
	"address-search-api/internal/metrics"
	"address-search-api/internal/ranking"
	"address-search-api/internal/repository"
	"address-search-api/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/panjf2000/ants/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	_ "go.uber.org/automaxprocs"
)

// store is everything the services need from a backend
type store interface {
	service.AddressReader
	service.AddressWriter
}

//	@title			Address Search API
//	@version		1.0
//	@description	Fuzzy address search ranked by popularity within a radius.
//	@BasePath		/
func main() {
	config, err := config.LoadConfig("./configs")
	if err != nil {
		log.Fatal().Err(err).Msg("cannot load config")
	}

	logger, err := logging.Setup(config.LogLevel, config.LogFormat)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot configure logging")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, closeStore, err := openStore(ctx, config, logger)
	if err != nil {
		log.Fatal().Err(err).Str("backend", config.StoreBackend).Msg("cannot open store")
	}
	defer closeStore()

	// Ranking pipeline
	opts := []ranking.Option{}
	if config.ScoringWorkers > 0 {
		pool, err := ants.NewPool(config.ScoringWorkers)
		if err != nil {
			log.Fatal().Err(err).Msg("cannot create scoring pool")
		}
		defer pool.Release()
		opts = append(opts, ranking.WithPool(pool))
	}
	pipeline, err := ranking.New(opts...)
	if err != nil {
		log.Fatal().Err(err).Msg("cannot create ranking pipeline")
	}

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	searchMetrics := metrics.NewMetrics()
	if err := searchMetrics.Register(registry); err != nil {
		log.Fatal().Err(err).Msg("cannot register metrics")
	}

	// Initialize layers
	searchService := service.NewSearchService(repo, pipeline, searchMetrics)
	registryService := service.NewRegistryService(repo)

	searchHandler := handler.NewSearchHandler(searchService)
	registryHandler := handler.NewRegistryHandler(registryService)

	if brokers := config.Brokers(); len(brokers) > 0 {
		reader := ingest.NewReader(brokers, config.KafkaTopic, config.KafkaGroupID)
		consumer := ingest.NewConsumer(reader, registryService, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil {
				logger.Error().Err(err).Msg("address ingest stopped")
			}
		}()
		logger.Info().Strs("brokers", brokers).Str("topic", config.KafkaTopic).Msg("address ingest started")
	}

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), handler.RequestLogger(logger))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	docs.SwaggerInfo.BasePath = "/"
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	r.POST("/add_customer", registryHandler.AddCustomer)
	r.POST("/add_address", registryHandler.AddAddress)
	r.GET("/get_addresses_by_customer", searchHandler.AddressesByCustomer)
	r.GET("/get_addresses_by_popularity", searchHandler.AddressesByPopularity)
	r.GET("/fuzzy_search_within_radius", searchHandler.FuzzySearchWithinRadius)
	r.GET("/get_top_popular_addresses", searchHandler.TopPopularAddresses)

	srv := &http.Server{
		Addr:              config.ServerAddress,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info().Str("address", config.ServerAddress).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func openStore(ctx context.Context, cfg config.Config, logger zerolog.Logger) (store, func(), error) {
	switch cfg.StoreBackend {
	case config.BackendBadger:
		badgerStore, err := repository.OpenBadgerStore(cfg.BadgerPath, logger)
		if err != nil {
			return nil, nil, err
		}
		return badgerStore, closer(badgerStore, logger), nil
	default:
		conn, err := pgxpool.New(ctx, cfg.DBSource)
		if err != nil {
			return nil, nil, err
		}
		if err := conn.Ping(ctx); err != nil {
			conn.Close()
			return nil, nil, err
		}
		return repository.NewPostgresStore(conn), conn.Close, nil
	}
}

func closer(c io.Closer, logger zerolog.Logger) func() {
	return func() {
		if err := c.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close store")
		}
	}
}

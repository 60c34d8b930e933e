package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/sync/errgroup"

	"courier/internal/broker"
	"courier/internal/config"
	"courier/internal/constants"
	"courier/internal/evidence"
	"courier/internal/logger"
	"courier/internal/processing"
	"courier/internal/routing"
	"courier/pkg/bootstrap"
	"courier/pkg/health"
	"courier/pkg/logging"
	"courier/pkg/metrics"
	"courier/pkg/migrations"
	"courier/pkg/tracing"
)

const migrationsPath = "migrations/postgres"

type App struct {
	*bootstrap.Base
	dbConnector    *bootstrap.DatabaseConnector
	db             *sql.DB
	redisClient    *redis.Client
	mongoClient    *mongo.Client
	router         *routing.Service
	processor      *processing.Processor
	scanner        *evidence.TimeoutScanner
	errorStore     processing.ErrorStore
	tracerProvider *tracing.TracerProvider
	server         *http.Server
}

func NewApp(cfg *config.Config, log logger.Logger) *App {
	if sugaredLogger, ok := log.(*logger.SugaredLogger); ok {
		sugaredLogger.SetServiceName(constants.ServiceNameConnector)
	}
	return &App{
		Base:        bootstrap.NewBase(cfg, log),
		dbConnector: bootstrap.NewDatabaseConnector(cfg, log),
	}
}

func (a *App) Initialize(ctx context.Context) error {
	if err := a.initDatabases(ctx); err != nil {
		return fmt.Errorf("failed to initialize databases: %w", err)
	}

	if err := a.initServices(ctx); err != nil {
		return fmt.Errorf("failed to initialize services: %w", err)
	}

	if err := a.InitBroker(constants.ServiceNameConnector); err != nil {
		return fmt.Errorf("failed to initialize broker: %w", err)
	}

	tp, err := tracing.Init(a.Config.Tracing, constants.ServiceNameConnector)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	a.tracerProvider = tp

	metrics.RegisterConnectorMetrics()
	metrics.RegisterBrokerMetrics()
	if a.Config.CircuitBreaker.Enabled {
		metrics.RegisterCircuitBreakerMetrics()
	}

	if err := a.initHTTPServer(ctx); err != nil {
		return fmt.Errorf("failed to initialize HTTP server: %w", err)
	}

	return nil
}

func (a *App) initDatabases(ctx context.Context) error {
	db, err := a.dbConnector.InitPostgreSQL(ctx)
	if err != nil {
		return err
	}
	if db == nil {
		return fmt.Errorf("postgresql configuration is required")
	}
	a.db = db

	if a.Config.Database.RunMigrations {
		if err := migrations.RunPostgres(a.db, migrationsPath); err != nil {
			return err
		}
		a.Logger.Info("Database migrations applied")
	}

	redisClient, err := a.dbConnector.InitRedis(ctx)
	if err != nil {
		return err
	}
	a.redisClient = redisClient

	mongoClient, err := a.dbConnector.InitMongoDB(ctx)
	if err != nil {
		initCtx := logging.WithServiceName(ctx, constants.ServiceNameConnector)
		a.Logger.WarnwCtx(initCtx, "MongoDB connection failed, evidence archival disabled",
			"error", err,
		)
	} else {
		a.mongoClient = mongoClient
	}

	return nil
}

func (a *App) initServices(ctx context.Context) error {
	routingRepo := routing.NewRepository(a.db)
	router, err := routing.NewService(routingRepo, a.Config.Routing, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create routing service: %w", err)
	}

	if err := router.ReloadRules(ctx, true); err != nil {
		initCtx := logging.WithServiceName(ctx, constants.ServiceNameConnector)
		a.Logger.WarnwCtx(initCtx, "Failed to load initial routing rules",
			"error", err,
		)
	}
	a.router = router

	var archive evidence.Archive
	if a.mongoClient != nil {
		dbName := a.Config.Database.MongoDB.Database
		if dbName == "" {
			dbName = constants.DefaultMongoDBName
		}
		mongoDB := a.mongoClient.Database(dbName)
		if err := migrations.EnsureMongoCollection(ctx, mongoDB); err != nil {
			return fmt.Errorf("failed to prepare evidence archive collection: %w", err)
		}
		archive = evidence.NewArchive(mongoDB)
	}

	store := evidence.NewStore(a.db)
	lifecycle := evidence.NewLifecycle(store, a.Logger)
	creator := evidence.NewCreator(evidence.NewXMLBuilder())

	guard := processing.NewIdempotencyGuard(
		processing.NewRedisCache(a.redisClient),
		a.Config.Processing.Idempotency,
		a.Logger,
	)
	dispatcher := processing.NewDispatcher(a.Producer, a.Config.Broker.Kafka, a.Config.CircuitBreaker, a.Logger)
	a.errorStore = processing.NewErrorStore(a.db)
	a.processor = processing.NewProcessor(store, lifecycle, creator, archive, router, dispatcher, guard, a.Logger)
	a.scanner = evidence.NewTimeoutScanner(store, creator, lifecycle, a.processor, a.Config.Evidence, a.Logger)

	return nil
}

func (a *App) initHTTPServer(ctx context.Context) error {
	mux := http.NewServeMux()

	healthRegistry := health.NewCheckerRegistry()
	healthRegistry.Register(health.NewPostgreSQLChecker(a.db))
	if a.redisClient != nil {
		healthRegistry.Register(health.NewRedisChecker(a.redisClient))
	}
	if a.mongoClient != nil {
		healthRegistry.Register(health.NewMongoDBChecker(a.mongoClient))
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		h := healthRegistry.Check(r.Context())
		statusCode := http.StatusOK
		if h.Status == health.StatusUnhealthy {
			statusCode = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(statusCode)
		fmt.Fprintf(w, `{"status":"%s","timestamp":"%s"}`, h.Status, h.Timestamp.Format(time.RFC3339))
	})

	mux.Handle("/metrics", promhttp.Handler())

	a.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", a.Config.Server.Port),
		Handler: mux,
	}

	return nil
}

func (a *App) Run(ctx context.Context) error {
	g, gCtx := errgroup.WithContext(ctx)

	if a.server != nil {
		g.Go(func() error {
			a.Logger.InfowCtx(ctx, "HTTP server starting", "port", a.Config.Server.Port)
			if err := a.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return fmt.Errorf("HTTP server error: %w", err)
			}
			return nil
		})
	}

	// The dedicated event consumer keeps routing rule pushes independent of
	// the message topics.
	configConsumer, err := broker.NewConsumer(a.Config.Broker, a.Logger)
	if err != nil {
		configCtx := logging.WithServiceName(ctx, constants.ServiceNameConnector)
		a.Logger.WarnwCtx(configCtx, "Failed to create config event consumer, event-driven reload disabled",
			"error", err,
		)
	} else {
		configConsumer.SetServiceName(constants.ServiceNameConnector)
		defer configConsumer.Close()
		configEventHandler := routing.NewHandler(a.router, a.Logger)

		g.Go(func() error {
			configCtx := logging.WithServiceName(gCtx, constants.ServiceNameConnector)
			a.Logger.InfowCtx(configCtx, "Starting config update event consumer",
				"topic", a.Config.Broker.Kafka.ConfigUpdateTopic,
			)
			return configConsumer.ConsumeEvents(gCtx, a.Config.Broker.Kafka.ConfigUpdateTopic, configEventHandler.HandleConfigUpdateEvent)
		})
	}

	g.Go(func() error {
		return a.router.StartReloader(gCtx)
	})

	g.Go(func() error {
		return a.scanner.Run(gCtx)
	})

	backendTopic := a.Config.Broker.Kafka.BackendSubmission
	g.Go(func() error {
		handler := processing.WithErrorPersistence(a.errorStore, backendTopic, a.Logger, a.processor.HandleBackendMessage)
		return a.Consumer.Consume(gCtx, backendTopic, handler)
	})

	gatewayConsumer, err := broker.NewConsumer(a.Config.Broker, a.Logger)
	if err != nil {
		return fmt.Errorf("failed to create gateway consumer: %w", err)
	}
	gatewayConsumer.SetServiceName(constants.ServiceNameConnector)
	defer gatewayConsumer.Close()

	gatewayTopic := a.Config.Broker.Kafka.GatewayInbound
	g.Go(func() error {
		handler := processing.WithErrorPersistence(a.errorStore, gatewayTopic, a.Logger, a.processor.HandleGatewayMessage)
		return gatewayConsumer.Consume(gCtx, gatewayTopic, handler)
	})

	return g.Wait()
}

func (a *App) Shutdown(ctx context.Context) error {
	shutdownCtx := logging.WithServiceName(ctx, constants.ServiceNameConnector)
	a.Logger.InfowCtx(shutdownCtx, "Shutting down connector service")

	additionalShutdown := func(ctx context.Context) []error {
		var errs []error

		if a.server != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("HTTP server shutdown error: %w", err))
			}
		}

		if a.tracerProvider != nil {
			if err := a.tracerProvider.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("tracer provider shutdown error: %w", err))
			}
		}

		errs = append(errs, a.dbConnector.ShutdownDatabases(ctx, a.redisClient, a.db, a.mongoClient)...)

		return errs
	}

	return a.Base.Shutdown(ctx, additionalShutdown)
}

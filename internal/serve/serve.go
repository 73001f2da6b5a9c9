package serve

import (
	"fmt"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	supporthttp "github.com/stellar/go-stellar-sdk/support/http"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/ledgerline/transfer-engine-backend/db"
	"github.com/ledgerline/transfer-engine-backend/internal/cache"
	"github.com/ledgerline/transfer-engine-backend/internal/data"
	"github.com/ledgerline/transfer-engine-backend/internal/events"
	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
	"github.com/ledgerline/transfer-engine-backend/internal/serve/httphandler"
	"github.com/ledgerline/transfer-engine-backend/internal/serve/middleware"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
)

const ServiceID = "serve"

type HTTPServerInterface interface {
	Run(conf supporthttp.Config)
}

type HTTPServer struct{}

func (h *HTTPServer) Run(conf supporthttp.Config) {
	supporthttp.Run(conf)
}

type ServeOptions struct {
	Environment        string
	GitCommit          string
	Port               int
	Version            string
	MonitorService     monitor.MonitorServiceInterface
	DatabaseDSN        string
	RedisURL           string
	BalanceCacheTTL    time.Duration
	KafkaBrokers       []string
	CorsAllowedOrigins []string

	dbConnectionPool db.DBConnectionPool
	models           *data.Models
	cacheStore       cache.Store
	producer         events.Producer
	orchestrator     *services.TransferOrchestrator
	userService      services.UserServiceInterface
	balanceService   services.BalanceServiceInterface
}

// SetupDependencies uses the serve options to setup the dependencies for the server.
func (opts *ServeOptions) SetupDependencies() error {
	dbConnectionPool, err := db.OpenDBConnectionPool(opts.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("error connecting to the database: %w", err)
	}
	opts.dbConnectionPool, err = db.NewDBConnectionPoolWithMetrics(dbConnectionPool, opts.MonitorService)
	if err != nil {
		return fmt.Errorf("error wrapping the database connection pool with metrics: %w", err)
	}

	opts.models, err = data.NewModels(opts.dbConnectionPool)
	if err != nil {
		return fmt.Errorf("error creating models for Serve: %w", err)
	}

	if opts.RedisURL != "" {
		redisOpts, parseErr := redis.ParseURL(opts.RedisURL)
		if parseErr != nil {
			return fmt.Errorf("error parsing redis URL: %w", parseErr)
		}
		opts.cacheStore = cache.NewRedisStore(redis.NewClient(redisOpts), opts.BalanceCacheTTL)
	} else {
		log.Warn("No redis URL configured, falling back to the in-process balance cache")
		opts.cacheStore = cache.NewMemoryStore(opts.BalanceCacheTTL)
	}

	opts.producer = events.NewKafkaProducer(opts.KafkaBrokers)

	dispatcher := services.NewEventDispatcher(opts.producer, opts.cacheStore, opts.MonitorService)
	opts.balanceService = services.NewBalanceService(opts.models, opts.cacheStore, dispatcher)
	transferService := services.NewTransferService(opts.models, dispatcher)
	opts.orchestrator = services.NewTransferOrchestrator(transferService, opts.balanceService, opts.producer, opts.MonitorService)
	opts.userService = services.NewUserService(opts.models)

	return nil
}

func Serve(opts ServeOptions, httpServer HTTPServerInterface) error {
	err := opts.SetupDependencies()
	if err != nil {
		return fmt.Errorf("error starting dependencies: %w", err)
	}

	listenAddr := fmt.Sprintf(":%d", opts.Port)
	serverConfig := supporthttp.Config{
		ListenAddr:          listenAddr,
		Handler:             handleHTTP(opts),
		TCPKeepAlive:        time.Minute * 3,
		ShutdownGracePeriod: time.Second * 50,
		ReadTimeout:         time.Second * 5,
		WriteTimeout:        time.Second * 35,
		IdleTimeout:         time.Minute * 2,
		OnStarting: func() {
			log.Info("Starting Transfer Engine API Server")
			log.Infof("Listening on %s", listenAddr)
		},
		OnStopping: func() {
			if closeErr := opts.producer.Close(); closeErr != nil {
				log.Errorf("error closing event producer: %s", closeErr.Error())
			}

			log.Info("Closing the database connection...")
			if closeErr := opts.dbConnectionPool.Close(); closeErr != nil {
				log.Errorf("error closing database connection: %s", closeErr.Error())
			}

			log.Info("Stopping Transfer Engine API Server")
		},
	}
	httpServer.Run(serverConfig)
	return nil
}

func handleHTTP(o ServeOptions) *chi.Mux {
	mux := chi.NewMux()

	// Middleware
	mux.Use(middleware.CorsMiddleware(o.CorsAllowedOrigins))
	mux.Use(chimiddleware.RequestID)
	mux.Use(chimiddleware.RealIP)
	mux.Use(supporthttp.LoggingMiddleware)
	mux.Use(middleware.RecoverHandler)
	mux.Use(middleware.MetricsRequestHandler(o.MonitorService))

	mux.Get("/health", httphandler.HealthHandler{
		Version:          o.Version,
		ServiceID:        ServiceID,
		ReleaseID:        o.GitCommit,
		DBConnectionPool: o.dbConnectionPool,
		CacheStore:       o.cacheStore,
	}.ServeHTTP)

	mux.Route("/users", func(r chi.Router) {
		userHandler := httphandler.UserHandler{
			UserService:    o.userService,
			BalanceService: o.balanceService,
		}
		r.Post("/", userHandler.CreateUser)
		r.Get("/{userId}/balance", userHandler.GetBalance)
	})

	mux.Route("/transfers", func(r chi.Router) {
		transferHandler := httphandler.TransferHandler{Orchestrator: o.orchestrator}
		r.Post("/", transferHandler.CreateTransfer)
		r.Get("/", transferHandler.GetTransfers)
		r.Get("/{transferId}", transferHandler.GetTransfer)
		r.Post("/{transferId}/cancel", transferHandler.CancelTransfer)
	})

	return mux
}

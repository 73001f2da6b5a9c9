package cmd

import (
	"go/types"
	"time"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/ledgerline/transfer-engine-backend/cmd/utils"
	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
	"github.com/ledgerline/transfer-engine-backend/internal/serve"
)

type ServeCommand struct{}

type ServerServiceInterface interface {
	StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface)
	StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface)
}

type ServerService struct{}

// Making sure that ServerService implements ServerServiceInterface
var _ ServerServiceInterface = (*ServerService)(nil)

func (s *ServerService) StartServe(opts serve.ServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.Serve(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting server: %s", err.Error())
	}
}

func (s *ServerService) StartMetricsServe(opts serve.MetricsServeOptions, httpServer serve.HTTPServerInterface) {
	err := serve.MetricsServe(opts, httpServer)
	if err != nil {
		log.Fatalf("Error starting metrics server: %s", err.Error())
	}
}

func (c *ServeCommand) Command(serverService ServerServiceInterface, monitorService monitor.MonitorServiceInterface) *cobra.Command {
	serveOpts := serve.ServeOptions{}
	metricsServeOpts := serve.MetricsServeOptions{}

	var balanceCacheTTLSeconds int

	configOpts := config.ConfigOptions{
		{
			Name:        "port",
			Usage:       "Port where the server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &serveOpts.Port,
			FlagDefault: 8000,
			Required:    true,
		},
		{
			Name:        "metrics-port",
			Usage:       "Port where the metrics server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &metricsServeOpts.Port,
			FlagDefault: 8002,
			Required:    true,
		},
		{
			Name:           "metrics-type",
			Usage:          `Metric monitor type. Options: "PROMETHEUS"`,
			OptType:        types.String,
			ConfigKey:      &metricsServeOpts.MetricType,
			CustomSetValue: cmdUtils.SetConfigOptionMetricType,
			FlagDefault:    "PROMETHEUS",
			Required:       true,
		},
		{
			Name:      "redis-url",
			Usage:     "Redis URL for the balance cache. When empty an in-process cache is used.",
			OptType:   types.String,
			ConfigKey: &serveOpts.RedisURL,
			Required:  false,
		},
		{
			Name:        "balance-cache-ttl-seconds",
			Usage:       "TTL in seconds for cached balances",
			OptType:     types.Int,
			ConfigKey:   &balanceCacheTTLSeconds,
			FlagDefault: 300,
			Required:    true,
		},
		{
			Name:           "kafka-brokers",
			Usage:          "Comma-separated list of Kafka broker addresses",
			OptType:        types.String,
			ConfigKey:      &serveOpts.KafkaBrokers,
			CustomSetValue: cmdUtils.SetConfigOptionStringList,
			FlagDefault:    "localhost:9092",
			Required:       true,
		},
		{
			Name:           "cors-allowed-origins",
			Usage:          `Comma-separated list of origins allowed to make cross-origin requests. "*" means all.`,
			OptType:        types.String,
			ConfigKey:      &serveOpts.CorsAllowedOrigins,
			CustomSetValue: cmdUtils.SetConfigOptionStringList,
			FlagDefault:    "*",
			Required:       true,
		},
	}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the Transfer Engine API",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)

			// Validate & ingest input parameters
			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}

			// Initializing monitor service
			metricOptions := monitor.MetricOptions{
				MetricType:  metricsServeOpts.MetricType,
				Environment: globalOptions.Environment,
			}
			err = monitorService.Start(metricOptions)
			if err != nil {
				log.Fatalf("Error creating monitor service: %s", err.Error())
			}

			// Inject server dependencies
			serveOpts.Environment = globalOptions.Environment
			serveOpts.GitCommit = globalOptions.GitCommit
			serveOpts.DatabaseDSN = globalOptions.DatabaseURL
			serveOpts.Version = globalOptions.Version
			serveOpts.MonitorService = monitorService
			serveOpts.BalanceCacheTTL = time.Duration(balanceCacheTTLSeconds) * time.Second

			// Inject metrics server dependencies
			metricsServeOpts.MonitorService = monitorService
			metricsServeOpts.Environment = globalOptions.Environment
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			// Starting Metrics Server (background job)
			log.Ctx(ctx).Info("Starting Metrics Server...")
			go serverService.StartMetricsServe(metricsServeOpts, &serve.HTTPServer{})

			// Starting Application Server
			log.Ctx(ctx).Info("Starting Application Server...")
			serverService.StartServe(serveOpts, &serve.HTTPServer{})
		},
	}
	err := configOpts.Init(cmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

package cmd

import (
	"fmt"
	"go/types"
	"time"

	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/ledgerline/transfer-engine-backend/cmd/utils"
	"github.com/ledgerline/transfer-engine-backend/db"
	"github.com/ledgerline/transfer-engine-backend/internal/cache"
	"github.com/ledgerline/transfer-engine-backend/internal/data"
	"github.com/ledgerline/transfer-engine-backend/internal/events"
	"github.com/ledgerline/transfer-engine-backend/internal/locker"
	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
	"github.com/ledgerline/transfer-engine-backend/internal/scheduler"
	"github.com/ledgerline/transfer-engine-backend/internal/scheduler/jobs"
	"github.com/ledgerline/transfer-engine-backend/internal/serve"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
)

type SchedulerCommand struct{}

// sweepJobConfigOptions builds the flag group of one sweep job. Every sweep carries the same
// five knobs under its own prefix.
func sweepJobConfigOptions(prefix string, opts *jobs.SweepJobOptions, defaults jobs.SweepJobOptions) config.ConfigOptions {
	return config.ConfigOptions{
		{
			Name:        fmt.Sprintf("%s-sweep-interval-seconds", prefix),
			Usage:       fmt.Sprintf("Interval in seconds between runs of the %s transfers sweep", prefix),
			OptType:     types.Int,
			ConfigKey:   &opts.IntervalSeconds,
			FlagDefault: defaults.IntervalSeconds,
			Required:    true,
		},
		{
			Name:        fmt.Sprintf("%s-sweep-delay-seconds", prefix),
			Usage:       fmt.Sprintf("Minimum age in seconds before the %s transfers sweep picks a row up", prefix),
			OptType:     types.Int,
			ConfigKey:   &opts.DelaySeconds,
			FlagDefault: defaults.DelaySeconds,
			Required:    true,
		},
		{
			Name:        fmt.Sprintf("%s-sweep-batch-size", prefix),
			Usage:       fmt.Sprintf("Maximum number of transfers driven per run of the %s transfers sweep", prefix),
			OptType:     types.Int,
			ConfigKey:   &opts.BatchSize,
			FlagDefault: defaults.BatchSize,
			Required:    true,
		},
		{
			Name:        fmt.Sprintf("%s-sweep-lock-at-most-seconds", prefix),
			Usage:       fmt.Sprintf("Upper bound in seconds on how long the %s sweep lease survives a dead holder", prefix),
			OptType:     types.Int,
			ConfigKey:   &opts.LockAtMostSeconds,
			FlagDefault: defaults.LockAtMostSeconds,
			Required:    true,
		},
		{
			Name:        fmt.Sprintf("%s-sweep-lock-at-least-seconds", prefix),
			Usage:       fmt.Sprintf("Minimum hold in seconds of the %s sweep lease, absorbing replica clock skew", prefix),
			OptType:     types.Int,
			ConfigKey:   &opts.LockAtLeastSeconds,
			FlagDefault: defaults.LockAtLeastSeconds,
			Required:    true,
		},
	}
}

func (c *SchedulerCommand) Command(monitorService monitor.MonitorServiceInterface) *cobra.Command {
	var pendingSweepOptions, debitSweepOptions, creditSweepOptions jobs.SweepJobOptions
	var kafkaBrokers []string
	var metricType monitor.MetricType
	var metricsPort int

	staleSweepDefaults := jobs.SweepJobOptions{
		IntervalSeconds:    jobs.StaleTransfersSweepJobIntervalSeconds,
		DelaySeconds:       int(jobs.StaleTransfersSweepDelay / time.Second),
		BatchSize:          jobs.StaleTransfersBatchSize,
		LockAtMostSeconds:  int(jobs.DefaultLockAtMostFor / time.Second),
		LockAtLeastSeconds: int(jobs.DefaultLockAtLeastFor / time.Second),
	}

	configOpts := config.ConfigOptions{
		{
			Name:           "kafka-brokers",
			Usage:          "Comma-separated list of Kafka broker addresses",
			OptType:        types.String,
			ConfigKey:      &kafkaBrokers,
			CustomSetValue: cmdUtils.SetConfigOptionStringList,
			FlagDefault:    "localhost:9092",
			Required:       true,
		},
		{
			Name:        "metrics-port",
			Usage:       "Port where the metrics server will be listening on",
			OptType:     types.Int,
			ConfigKey:   &metricsPort,
			FlagDefault: 8003,
			Required:    true,
		},
		{
			Name:           "metrics-type",
			Usage:          `Metric monitor type. Options: "PROMETHEUS"`,
			OptType:        types.String,
			ConfigKey:      &metricType,
			CustomSetValue: cmdUtils.SetConfigOptionMetricType,
			FlagDefault:    "PROMETHEUS",
			Required:       true,
		},
	}
	configOpts = append(configOpts, sweepJobConfigOptions("pending", &pendingSweepOptions, jobs.SweepJobOptions{
		IntervalSeconds:    jobs.PendingTransfersSweepJobIntervalSeconds,
		DelaySeconds:       int(jobs.PendingTransfersSweepDelay / time.Second),
		BatchSize:          jobs.PendingTransfersBatchSize,
		LockAtMostSeconds:  int(jobs.DefaultLockAtMostFor / time.Second),
		LockAtLeastSeconds: int(jobs.DefaultLockAtLeastFor / time.Second),
	})...)
	configOpts = append(configOpts, sweepJobConfigOptions("debit-processing", &debitSweepOptions, staleSweepDefaults)...)
	configOpts = append(configOpts, sweepJobConfigOptions("credit-processing", &creditSweepOptions, staleSweepDefaults)...)

	cmd := &cobra.Command{
		Use:   "scheduler",
		Short: "Run the lease-gated transfer sweeps",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cmd.Parent().PersistentPreRun(cmd.Parent(), args)

			configOpts.Require()
			err := configOpts.SetValues()
			if err != nil {
				log.Fatalf("Error setting values of config options: %s", err.Error())
			}

			err = monitorService.Start(monitor.MetricOptions{
				MetricType:  metricType,
				Environment: globalOptions.Environment,
			})
			if err != nil {
				log.Fatalf("Error creating monitor service: %s", err.Error())
			}
		},
		Run: func(cmd *cobra.Command, _ []string) {
			ctx := cmd.Context()

			dbConnectionPool, err := db.OpenDBConnectionPool(globalOptions.DatabaseURL)
			if err != nil {
				log.Ctx(ctx).Fatalf("error getting DB connection in Job Scheduler: %s", err.Error())
			}
			defer dbConnectionPool.Close()

			models, err := data.NewModels(dbConnectionPool)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating models in Job Scheduler: %s", err.Error())
			}

			producer := events.NewKafkaProducer(kafkaBrokers)
			defer producer.Close()

			// The scheduler never reads balances, so the in-process cache is enough to back
			// the dispatcher's invalidations.
			cacheStore := cache.NewMemoryStore(0)
			dispatcher := services.NewEventDispatcher(producer, cacheStore, monitorService)
			balanceService := services.NewBalanceService(models, cacheStore, dispatcher)
			transferService := services.NewTransferService(models, dispatcher)
			orchestrator := services.NewTransferOrchestrator(transferService, balanceService, producer, monitorService)
			pgLocker := locker.NewPGLocker(dbConnectionPool)

			go func() {
				log.Ctx(ctx).Info("Starting Metrics Server...")
				err := serve.MetricsServe(serve.MetricsServeOptions{
					Port:           metricsPort,
					Environment:    globalOptions.Environment,
					MonitorService: monitorService,
					MetricType:     metricType,
				}, &serve.HTTPServer{})
				if err != nil {
					log.Ctx(ctx).Fatalf("Error starting metrics server: %s", err.Error())
				}
			}()

			scheduler.StartScheduler(
				scheduler.WithPendingTransfersSweepJobOption(orchestrator, pgLocker, monitorService, pendingSweepOptions),
				scheduler.WithStaleTransfersSweepJobOption(orchestrator, pgLocker, monitorService, data.DebitProcessingTransferStatus, debitSweepOptions),
				scheduler.WithStaleTransfersSweepJobOption(orchestrator, pgLocker, monitorService, data.CreditProcessingTransferStatus, creditSweepOptions),
			)
		},
	}
	err := configOpts.Init(cmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

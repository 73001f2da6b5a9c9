package cmd

import (
	"go/types"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/stellar/go-stellar-sdk/support/config"
	"github.com/stellar/go-stellar-sdk/support/log"

	cmdUtils "github.com/ledgerline/transfer-engine-backend/cmd/utils"
	"github.com/ledgerline/transfer-engine-backend/db"
	"github.com/ledgerline/transfer-engine-backend/internal/cache"
	"github.com/ledgerline/transfer-engine-backend/internal/data"
	"github.com/ledgerline/transfer-engine-backend/internal/events"
	"github.com/ledgerline/transfer-engine-backend/internal/events/eventhandlers"
	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
	"github.com/ledgerline/transfer-engine-backend/internal/services"
)

type ConsumerCommand struct{}

func (c *ConsumerCommand) Command(monitorService monitor.MonitorServiceInterface) *cobra.Command {
	var kafkaBrokers []string
	var consumerGroupID string
	var redisURL string
	var balanceCacheTTLSeconds int
	var maxBackoffExponent int
	var metricType monitor.MetricType

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
			Name:        "consumer-group-id",
			Usage:       "Kafka consumer group id shared by the replicas of this process",
			OptType:     types.String,
			ConfigKey:   &consumerGroupID,
			FlagDefault: "transfer-engine-consumers",
			Required:    true,
		},
		{
			Name:      "redis-url",
			Usage:     "Redis URL for the balance cache. When empty an in-process cache is used.",
			OptType:   types.String,
			ConfigKey: &redisURL,
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
			Name:        "max-backoff-exponent",
			Usage:       "Maximum number of in-process retries (with exponential backoff) before a message is dead-lettered",
			OptType:     types.Int,
			ConfigKey:   &maxBackoffExponent,
			FlagDefault: events.DefaultMaxBackoffExponent,
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

	cmd := &cobra.Command{
		Use:   "consumer",
		Short: "Run the balance-change request and result consumers",
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
				log.Ctx(ctx).Fatalf("error getting DB connection in Consumer: %s", err.Error())
			}
			defer dbConnectionPool.Close()

			models, err := data.NewModels(dbConnectionPool)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating models in Consumer: %s", err.Error())
			}

			var cacheStore cache.Store
			if redisURL != "" {
				redisOpts, parseErr := redis.ParseURL(redisURL)
				if parseErr != nil {
					log.Ctx(ctx).Fatalf("error parsing redis URL in Consumer: %s", parseErr.Error())
				}
				cacheStore = cache.NewRedisStore(redis.NewClient(redisOpts), time.Duration(balanceCacheTTLSeconds)*time.Second)
			} else {
				log.Ctx(ctx).Warn("No redis URL configured, falling back to the in-process balance cache")
				cacheStore = cache.NewMemoryStore(time.Duration(balanceCacheTTLSeconds) * time.Second)
			}

			producer := events.NewKafkaProducer(kafkaBrokers)
			defer producer.Close()

			dispatcher := services.NewEventDispatcher(producer, cacheStore, monitorService)
			balanceService := services.NewBalanceService(models, cacheStore, dispatcher)
			transferService := services.NewTransferService(models, dispatcher)
			orchestrator := services.NewTransferOrchestrator(transferService, balanceService, producer, monitorService)

			requestConsumer, err := events.NewKafkaConsumer(
				kafkaBrokers,
				events.BalanceChangeRequestTopic,
				consumerGroupID,
				&eventhandlers.BalanceChangeRequestEventHandler{Orchestrator: orchestrator},
			)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating balance change request consumer: %s", err.Error())
			}
			defer requestConsumer.Close()

			resultConsumer, err := events.NewKafkaConsumer(
				kafkaBrokers,
				events.BalanceChangeResultTopic,
				consumerGroupID,
				&eventhandlers.BalanceChangeResultEventHandler{Orchestrator: orchestrator},
			)
			if err != nil {
				log.Ctx(ctx).Fatalf("error creating balance change result consumer: %s", err.Error())
			}
			defer resultConsumer.Close()

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				events.NewEventConsumer(requestConsumer, producer, monitorService, maxBackoffExponent).Consume(ctx)
			}()
			go func() {
				defer wg.Done()
				events.NewEventConsumer(resultConsumer, producer, monitorService, maxBackoffExponent).Consume(ctx)
			}()
			wg.Wait()
		},
	}
	err := configOpts.Init(cmd)
	if err != nil {
		log.Fatalf("Error initializing a config option: %s", err.Error())
	}

	return cmd
}

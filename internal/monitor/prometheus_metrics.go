package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

func PrometheusMetrics() map[MetricTag]prometheus.Collector {
	metrics := make(map[MetricTag]prometheus.Collector)

	for tag, summaryVec := range SummaryVecMetrics {
		metrics[tag] = summaryVec
	}

	for tag, counterVec := range CounterVecMetrics {
		metrics[tag] = counterVec
	}

	return metrics
}

var SummaryVecMetrics = map[MetricTag]*prometheus.SummaryVec{
	HttpRequestDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "transfer_engine", Subsystem: "http", Name: string(HttpRequestDurationTag),
		Help: "HTTP requests durations, sliding window = 10m",
	},
		[]string{"status", "route", "method"},
	),
	SuccessfulQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "transfer_engine", Subsystem: "db", Name: string(SuccessfulQueryDurationTag),
		Help: "Successful DB query durations",
	},
		[]string{"query_type"},
	),
	FailureQueryDurationTag: prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Namespace: "transfer_engine", Subsystem: "db", Name: string(FailureQueryDurationTag),
		Help: "Failure DB query durations",
	},
		[]string{"query_type"},
	),
}

var CounterVecMetrics = map[MetricTag]*prometheus.CounterVec{
	SweepRunsCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transfer_engine", Subsystem: "sweep", Name: string(SweepRunsCounterTag),
		Help: "A counter of sweep executions per job",
	},
		[]string{"job"},
	),
	SweepLeaseSkippedCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transfer_engine", Subsystem: "sweep", Name: string(SweepLeaseSkippedCounterTag),
		Help: "A counter of sweep ticks skipped because the lease was held elsewhere",
	},
		[]string{"job"},
	),
	SweepTransfersDrivenCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transfer_engine", Subsystem: "sweep", Name: string(SweepTransfersDrivenCounterTag),
		Help: "A counter of transfers advanced or re-driven by sweeps",
	},
		[]string{"job"},
	),
	BalanceMutationsCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transfer_engine", Subsystem: "ledger", Name: string(BalanceMutationsCounterTag),
		Help: "A counter of balance mutations by type and outcome",
	},
		[]string{"type", "outcome"},
	),
	ConsumerMessagesHandledCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transfer_engine", Subsystem: "consumer", Name: string(ConsumerMessagesHandledCounterTag),
		Help: "A counter of consumed messages by topic and outcome",
	},
		[]string{"topic", "outcome"},
	),
	ConsumerDLQCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transfer_engine", Subsystem: "consumer", Name: string(ConsumerDLQCounterTag),
		Help: "A counter of messages dead-lettered after the redelivery ceiling",
	},
		[]string{"topic", "outcome"},
	),
	TransfersCounterTag: prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "transfer_engine", Subsystem: "business", Name: string(TransfersCounterTag),
		Help: "A counter of transfer status transitions",
	},
		[]string{"status"},
	),
}

package monitor

type MetricTag string

const (
	SuccessfulQueryDurationTag MetricTag = "successful_queries_duration"
	FailureQueryDurationTag    MetricTag = "failure_queries_duration"
	HttpRequestDurationTag     MetricTag = "requests_duration_seconds"
	// Sweeps:
	SweepRunsCounterTag            MetricTag = "sweep_runs_counter"
	SweepLeaseSkippedCounterTag    MetricTag = "sweep_lease_skipped_counter"
	SweepTransfersDrivenCounterTag MetricTag = "sweep_transfers_driven_counter"
	// Balance mutations:
	BalanceMutationsCounterTag MetricTag = "balance_mutations_counter"
	// Consumers:
	ConsumerMessagesHandledCounterTag MetricTag = "consumer_messages_handled_counter"
	ConsumerDLQCounterTag             MetricTag = "consumer_dlq_counter"
	// Transfers:
	TransfersCounterTag MetricTag = "transfers_counter"
)

func (m MetricTag) ListAll() []MetricTag {
	return []MetricTag{
		SuccessfulQueryDurationTag,
		FailureQueryDurationTag,
		HttpRequestDurationTag,
		SweepRunsCounterTag,
		SweepLeaseSkippedCounterTag,
		SweepTransfersDrivenCounterTag,
		BalanceMutationsCounterTag,
		ConsumerMessagesHandledCounterTag,
		ConsumerDLQCounterTag,
		TransfersCounterTag,
	}
}

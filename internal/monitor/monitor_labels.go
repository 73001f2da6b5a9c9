package monitor

type HttpRequestLabels struct {
	Status string
	Route  string
	Method string
}

type DBQueryLabels struct {
	QueryType string
}

type SweepLabels struct {
	Job string
}

func (s SweepLabels) ToMap() map[string]string {
	return map[string]string{
		"job": s.Job,
	}
}

type MutationLabels struct {
	Type    string
	Outcome string
}

func (m MutationLabels) ToMap() map[string]string {
	return map[string]string{
		"type":    m.Type,
		"outcome": m.Outcome,
	}
}

type ConsumerLabels struct {
	Topic   string
	Outcome string
}

func (c ConsumerLabels) ToMap() map[string]string {
	return map[string]string{
		"topic":   c.Topic,
		"outcome": c.Outcome,
	}
}

type TransferLabels struct {
	Status string
}

func (t TransferLabels) ToMap() map[string]string {
	return map[string]string{
		"status": t.Status,
	}
}

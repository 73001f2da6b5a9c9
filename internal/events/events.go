// Package events carries messages between the orchestration pipeline and the balance
// workers over two logical topics: balance-change requests (per-key ordered) and
// balance-change results (concurrent).
package events

import (
	"context"
)

// Topic names.
const (
	BalanceChangeRequestTopic = "transfers.balance-change-requests"
	BalanceChangeResultTopic  = "transfers.balance-change-results"
)

// Message type names.
const (
	BalanceChangeRequestType = "balance-change-request"
	BalanceChangeResultType  = "balance-change-result"
)

// DLQTopicSuffix is appended to a topic name to form its dead-letter topic.
const DLQTopicSuffix = ".dlq"

type Producer interface {
	WriteMessages(ctx context.Context, messages ...Message) error
	Close() error
}

type Consumer interface {
	ReadMessage(ctx context.Context) (*Message, error)
	Topic() string
	Handlers() []EventHandler
	RegisterEventHandler(ctx context.Context, handlers ...EventHandler) error
	Close() error
}

type EventHandler interface {
	Name() string
	CanHandleMessage(ctx context.Context, message *Message) bool
	Handle(ctx context.Context, message *Message) error
}

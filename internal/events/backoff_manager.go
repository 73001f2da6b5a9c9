package events

import (
	"time"

	"github.com/ledgerline/transfer-engine-backend/internal/utils"
)

const DefaultMaxBackoffExponent = 8

// ConsumerBackoffManager drives the consumer's in-process redelivery: a failed message is
// retained and retried under exponential backoff until the ceiling, after which the consumer
// dead-letters it.
type ConsumerBackoffManager struct {
	backoffCounter     int
	maxBackoffExponent int
	backoff            time.Duration
	backoffChan        chan<- struct{}
	message            *Message
}

func NewBackoffManager(backoffChan chan<- struct{}, maxBackoffExponent int) *ConsumerBackoffManager {
	if maxBackoffExponent <= 0 {
		maxBackoffExponent = DefaultMaxBackoffExponent
	}
	return &ConsumerBackoffManager{
		backoffChan:        backoffChan,
		maxBackoffExponent: maxBackoffExponent,
	}
}

func (bm *ConsumerBackoffManager) TriggerBackoff() {
	bm.backoffCounter++
	if bm.backoffCounter > bm.maxBackoffExponent {
		bm.backoffCounter = bm.maxBackoffExponent
	}
	// No need to handle this error since it only returns error when retry > 32, < 0
	bm.backoff, _ = utils.ExponentialBackoffInSeconds(bm.backoffCounter)
	bm.backoffChan <- struct{}{}
}

// TriggerBackoffWithMessage retains the message being retried so the next iteration handles
// it again instead of reading a new one.
func (bm *ConsumerBackoffManager) TriggerBackoffWithMessage(message *Message) {
	bm.message = message
	bm.TriggerBackoff()
}

func (bm *ConsumerBackoffManager) GetBackoffDuration() time.Duration {
	return bm.backoff
}

func (bm *ConsumerBackoffManager) GetMessage() *Message {
	return bm.message
}

func (bm *ConsumerBackoffManager) IsMaxBackoffReached() bool {
	return bm.backoffCounter >= bm.maxBackoffExponent
}

func (bm *ConsumerBackoffManager) ResetBackoff() {
	bm.backoffCounter = 0
	bm.backoff = 0
	bm.message = nil
}

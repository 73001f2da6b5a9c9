package events

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/ledgerline/transfer-engine-backend/internal/monitor"
)

// EventConsumer runs a single topic's read-handle-commit loop. A message whose handlers fail
// is retried in process under exponential backoff; once the backoff ceiling is reached it is
// dead-lettered to <topic>.dlq where operators can see it. On shutdown a message caught
// mid-retry is replayed to its original topic so another replica picks it up.
type EventConsumer struct {
	consumer       Consumer
	producer       Producer
	monitorService monitor.MonitorServiceInterface
	maxBackoff     int
}

func NewEventConsumer(consumer Consumer, producer Producer, monitorService monitor.MonitorServiceInterface, maxBackoff int) *EventConsumer {
	if maxBackoff <= 0 {
		maxBackoff = DefaultMaxBackoffExponent
	}
	return &EventConsumer{
		consumer:       consumer,
		producer:       producer,
		monitorService: monitorService,
		maxBackoff:     maxBackoff,
	}
}

func (ec *EventConsumer) Consume(ctx context.Context) {
	log.Ctx(ctx).Infof("Starting consuming messages for topic %s...", ec.consumer.Topic())

	signalChan := make(chan os.Signal, 1)
	signal.Notify(signalChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT)

	backoffChan := make(chan struct{}, 1)
	defer close(backoffChan)
	backoffManager := NewBackoffManager(backoffChan, ec.maxBackoff)

	for {
		select {
		case <-ctx.Done():
			log.Ctx(ctx).Infof("Stopping consuming messages for topic %s due to context cancellation...", ec.consumer.Topic())
			ec.finalizeConsumer(ctx, backoffManager.GetMessage())
			return

		case sig := <-signalChan:
			log.Ctx(ctx).Infof("Stopping consuming messages for topic %s due to OS signal '%+v'", ec.consumer.Topic(), sig)
			ec.finalizeConsumer(ctx, backoffManager.GetMessage())
			return

		case <-backoffChan:
			backoff := backoffManager.GetBackoffDuration()
			if backoffManager.GetMessage() != nil {
				log.Ctx(ctx).Warnf("Waiting %s before retrying handling message with key %s", backoff, backoffManager.GetMessage().Key)
			} else {
				log.Ctx(ctx).Warnf("Waiting %s before retrying reading new messages", backoff)
			}
			time.Sleep(backoff)

		default:
			// 1. Attempt fetching msg from backoff manager in case it was already read.
			msg := backoffManager.GetMessage()

			// 2. If backoff max reached, send message to DLQ and reset backoff.
			if backoffManager.IsMaxBackoffReached() {
				log.Ctx(ctx).Warnf("Max backoff reached for topic %s.", ec.consumer.Topic())
				if msg != nil {
					if err := ec.sendMessageToDLQ(ctx, *msg); err != nil {
						log.Ctx(ctx).Errorf("sending message to DLQ for topic %s: %s", ec.consumer.Topic(), err.Error())
					}
				}
				backoffManager.ResetBackoff()
				continue
			}

			// 3. If no message in backoff manager, read a new message from the broker.
			if msg == nil {
				var readErr error
				msg, readErr = ec.consumer.ReadMessage(ctx)
				if readErr != nil {
					log.Ctx(ctx).Errorf("consuming messages for topic %s: %s", ec.consumer.Topic(), readErr.Error())
					backoffManager.TriggerBackoff()
					continue
				}
			} else {
				log.Ctx(ctx).Warnf("Retrying handling message with key %s", msg.Key)
			}

			// 4. Run the message through the handler chain.
			if handledOk := ec.handleMessage(ctx, msg); !handledOk {
				ec.monitorCounter(monitor.ConsumerMessagesHandledCounterTag, "error")
				backoffManager.TriggerBackoffWithMessage(msg)
				continue
			}

			// 5. Message handled successfully, reset backoff.
			ec.monitorCounter(monitor.ConsumerMessagesHandledCounterTag, "success")
			backoffManager.ResetBackoff()
		}
	}
}

// finalizeConsumer replays the message back to the original topic in case of a failure.
func (ec *EventConsumer) finalizeConsumer(ctx context.Context, msg *Message) {
	if msg == nil {
		return
	}
	log.Ctx(ctx).Warnf("Replaying message with key %s to topic %s", msg.Key, msg.Topic)
	if err := ec.producer.WriteMessages(ctx, *msg); err != nil {
		log.Ctx(ctx).Errorf("replaying message to topic %s: %s", msg.Topic, err.Error())
	}
}

// sendMessageToDLQ sends the message to the DLQ.
func (ec *EventConsumer) sendMessageToDLQ(ctx context.Context, msg Message) error {
	log.Ctx(ctx).Errorf("Sending message with key %s to DLQ for topic %s", msg.Key, msg.Topic)
	ec.monitorCounter(monitor.ConsumerDLQCounterTag, "dead_lettered")

	msg.Topic += DLQTopicSuffix
	if err := ec.producer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("sending message %s to DLQ for topic %s: %w", msg, msg.Topic, err)
	}
	return nil
}

// handleMessage handles the message by the handler chain of the consumer.
func (ec *EventConsumer) handleMessage(ctx context.Context, msg *Message) bool {
	allHandlersSuccessful := true
	for _, handler := range ec.consumer.Handlers() {
		if ShouldHandleMessage(ctx, handler, msg) {
			if handleErr := handler.Handle(ctx, msg); handleErr != nil {
				log.Ctx(ctx).Errorf("handling message for topic %s: %s", ec.consumer.Topic(), handleErr.Error())
				msg.RecordError(handler.Name(), handleErr)
				allHandlersSuccessful = false
			} else {
				msg.RecordSuccess(handler.Name())
			}
		}
	}
	return allHandlersSuccessful
}

func (ec *EventConsumer) monitorCounter(tag monitor.MetricTag, outcome string) {
	if ec.monitorService == nil {
		return
	}
	labels := monitor.ConsumerLabels{Topic: ec.consumer.Topic(), Outcome: outcome}
	if err := ec.monitorService.MonitorCounters(tag, labels.ToMap()); err != nil {
		log.Errorf("monitoring counter %s: %s", tag, err.Error())
	}
}

// ShouldHandleMessage returns true if the message should be handled by the handler passed by
// parameter. A message should be handled by a handler if the handler can handle the message
// and the handler has not been executed before.
func ShouldHandleMessage(ctx context.Context, handler EventHandler, msg *Message) bool {
	if handler.CanHandleMessage(ctx, msg) {
		for _, execution := range msg.SuccessfulExecutions {
			if execution.HandlerName == handler.Name() {
				log.Ctx(ctx).Infof("Handler %s has already been executed for message with key %s. Skipping...", handler.Name(), msg.Key)
				return false
			}
		}
		return true
	}
	return false
}

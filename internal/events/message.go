package events

import (
	"errors"
	"fmt"
	"time"
)

type Message struct {
	Topic                string            `json:"topic"`
	Key                  string            `json:"key"`
	Type                 string            `json:"type"`
	Data                 any               `json:"data"`
	Errors               []*HandlerError   `json:"errors,omitempty"`
	SuccessfulExecutions []*HandlerSuccess `json:"successful_executions,omitempty"`
}

type HandlerError struct {
	// FailedAt timestamp for the time of failure.
	FailedAt time.Time `json:"failed_at"`
	// ErrorMessage detailed error message. Used for displaying.
	ErrorMessage string `json:"error_message"`
	// HandlerName name of the handler where the error occurred.
	HandlerName string `json:"handler_name"`
	// Err full handler error.
	Err error `json:"-"`
}

// HandlerSuccess represents a successful handling of a message
type HandlerSuccess struct {
	// ExecutedAt timestamp for the time of successful handling
	ExecutedAt time.Time `json:"executed_at"`
	// HandlerName name of the handler that succeeded
	HandlerName string `json:"handler_name"`
}

// NewMessage returns a new message with the values passed by parameters.
func NewMessage(topic, key, messageType string, data any) (*Message, error) {
	msg := &Message{
		Topic: topic,
		Key:   key,
		Type:  messageType,
		Data:  data,
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("validating message: %w", err)
	}
	return msg, nil
}

func (m Message) String() string {
	return fmt.Sprintf("Message{Topic: %s, Key: %s, Type: %s, Data: %v}", m.Topic, m.Key, m.Type, m.Data)
}

func (m Message) Validate() error {
	if m.Topic == "" {
		return errors.New("message topic is required")
	}

	if m.Key == "" {
		return errors.New("message key is required")
	}

	if m.Type == "" {
		return errors.New("message type is required")
	}

	if m.Data == nil {
		return errors.New("message data is required")
	}

	return nil
}

func (m *Message) RecordError(handlerName string, hErr error) {
	m.Errors = append(m.Errors, &HandlerError{
		FailedAt:     time.Now(),
		ErrorMessage: hErr.Error(),
		HandlerName:  handlerName,
		Err:          hErr,
	})
}

func (m *Message) RecordSuccess(handlerName string) {
	m.SuccessfulExecutions = append(m.SuccessfulExecutions, &HandlerSuccess{
		ExecutedAt:  time.Now(),
		HandlerName: handlerName,
	})
}

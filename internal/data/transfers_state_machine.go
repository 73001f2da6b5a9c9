package data

import (
	"fmt"
	"strings"
)

type TransferStatus string

const (
	PendingTransferStatus          TransferStatus = "PENDING"
	DebitProcessingTransferStatus  TransferStatus = "DEBIT_PROCESSING"
	CreditProcessingTransferStatus TransferStatus = "CREDIT_PROCESSING"
	CompletedTransferStatus        TransferStatus = "COMPLETED"
	DebitFailedTransferStatus      TransferStatus = "DEBIT_FAILED"
	CancelledTransferStatus        TransferStatus = "CANCELLED"
)

// transferStatusTransitions is the full edge set of the transfer lifecycle. A status with no
// entry is terminal.
var transferStatusTransitions = map[TransferStatus][]TransferStatus{
	PendingTransferStatus:          {DebitProcessingTransferStatus, CancelledTransferStatus},
	DebitProcessingTransferStatus:  {CreditProcessingTransferStatus, DebitFailedTransferStatus},
	CreditProcessingTransferStatus: {CompletedTransferStatus},
}

// Validate validates the transfer status
func (status TransferStatus) Validate() error {
	switch TransferStatus(strings.ToUpper(string(status))) {
	case PendingTransferStatus, DebitProcessingTransferStatus, CreditProcessingTransferStatus,
		CompletedTransferStatus, DebitFailedTransferStatus, CancelledTransferStatus:
		return nil
	default:
		return fmt.Errorf("invalid transfer status: %s", status)
	}
}

// CanTransitionTo reports whether the edge status -> targetState exists.
func (status TransferStatus) CanTransitionTo(targetState TransferStatus) bool {
	for _, next := range transferStatusTransitions[status] {
		if next == targetState {
			return true
		}
	}
	return false
}

// TransitionTo validates the edge status -> targetState.
func (status TransferStatus) TransitionTo(targetState TransferStatus) error {
	if status.CanTransitionTo(targetState) {
		return nil
	}
	return fmt.Errorf("cannot transition from %s to %s", status, targetState)
}

// IsTerminal reports whether the status admits no further transitions.
func (status TransferStatus) IsTerminal() bool {
	switch status {
	case CompletedTransferStatus, DebitFailedTransferStatus, CancelledTransferStatus:
		return true
	default:
		return false
	}
}

// IsInFlight reports whether the status is neither PENDING nor terminal.
func (status TransferStatus) IsInFlight() bool {
	return status == DebitProcessingTransferStatus || status == CreditProcessingTransferStatus
}

// TransferStatuses returns a list of all possible transfer statuses
func TransferStatuses() []TransferStatus {
	return []TransferStatus{PendingTransferStatus, DebitProcessingTransferStatus, CreditProcessingTransferStatus, CompletedTransferStatus, DebitFailedTransferStatus, CancelledTransferStatus}
}

// ToTransferStatus converts a string to a TransferStatus
func ToTransferStatus(s string) (TransferStatus, error) {
	err := TransferStatus(s).Validate()
	if err != nil {
		return "", err
	}

	return TransferStatus(strings.ToUpper(s)), nil
}

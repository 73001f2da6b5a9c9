package data

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_TransferStatus_TransitionTo(t *testing.T) {
	testCases := []struct {
		from    TransferStatus
		to      TransferStatus
		wantErr bool
	}{
		{from: PendingTransferStatus, to: DebitProcessingTransferStatus, wantErr: false},
		{from: PendingTransferStatus, to: CancelledTransferStatus, wantErr: false},
		{from: DebitProcessingTransferStatus, to: CreditProcessingTransferStatus, wantErr: false},
		{from: DebitProcessingTransferStatus, to: DebitFailedTransferStatus, wantErr: false},
		{from: CreditProcessingTransferStatus, to: CompletedTransferStatus, wantErr: false},

		{from: PendingTransferStatus, to: CreditProcessingTransferStatus, wantErr: true},
		{from: PendingTransferStatus, to: CompletedTransferStatus, wantErr: true},
		{from: PendingTransferStatus, to: DebitFailedTransferStatus, wantErr: true},
		{from: DebitProcessingTransferStatus, to: PendingTransferStatus, wantErr: true},
		{from: DebitProcessingTransferStatus, to: CancelledTransferStatus, wantErr: true},
		{from: DebitProcessingTransferStatus, to: CompletedTransferStatus, wantErr: true},
		{from: CreditProcessingTransferStatus, to: DebitFailedTransferStatus, wantErr: true},
		{from: CreditProcessingTransferStatus, to: CancelledTransferStatus, wantErr: true},
		{from: CompletedTransferStatus, to: PendingTransferStatus, wantErr: true},
		{from: CompletedTransferStatus, to: DebitProcessingTransferStatus, wantErr: true},
		{from: DebitFailedTransferStatus, to: DebitProcessingTransferStatus, wantErr: true},
		{from: CancelledTransferStatus, to: DebitProcessingTransferStatus, wantErr: true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"-to-"+string(tc.to), func(t *testing.T) {
			err := tc.from.TransitionTo(tc.to)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func Test_TransferStatus_Validate(t *testing.T) {
	for _, status := range TransferStatuses() {
		assert.NoError(t, status.Validate())
	}

	// case-insensitive
	assert.NoError(t, TransferStatus("pending").Validate())
	assert.NoError(t, TransferStatus("debit_processing").Validate())

	assert.Error(t, TransferStatus("NOT_A_STATUS").Validate())
	assert.Error(t, TransferStatus("").Validate())
}

func Test_ToTransferStatus(t *testing.T) {
	status, err := ToTransferStatus("completed")
	require.NoError(t, err)
	assert.Equal(t, CompletedTransferStatus, status)

	_, err = ToTransferStatus("bogus")
	assert.EqualError(t, err, "invalid transfer status: bogus")
}

func Test_TransferStatus_IsTerminal(t *testing.T) {
	assert.True(t, CompletedTransferStatus.IsTerminal())
	assert.True(t, DebitFailedTransferStatus.IsTerminal())
	assert.True(t, CancelledTransferStatus.IsTerminal())

	assert.False(t, PendingTransferStatus.IsTerminal())
	assert.False(t, DebitProcessingTransferStatus.IsTerminal())
	assert.False(t, CreditProcessingTransferStatus.IsTerminal())
}

func Test_TransferStatus_IsInFlight(t *testing.T) {
	assert.True(t, DebitProcessingTransferStatus.IsInFlight())
	assert.True(t, CreditProcessingTransferStatus.IsInFlight())

	assert.False(t, PendingTransferStatus.IsInFlight())
	assert.False(t, CompletedTransferStatus.IsInFlight())
	assert.False(t, DebitFailedTransferStatus.IsInFlight())
	assert.False(t, CancelledTransferStatus.IsInFlight())
}

func Test_TransferStatus_terminalStatusesHaveNoOutgoingTransitions(t *testing.T) {
	for _, status := range TransferStatuses() {
		if !status.IsTerminal() {
			continue
		}
		for _, target := range TransferStatuses() {
			assert.Falsef(t, status.CanTransitionTo(target), "%s should not transition to %s", status, target)
		}
	}
}

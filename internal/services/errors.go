package services

import "errors"

var (
	// ErrAccountNotFound indicates the referenced user account does not exist.
	ErrAccountNotFound = errors.New("account not found")
	// ErrAccountAlreadyExists indicates a creation attempt for a taken user id.
	ErrAccountAlreadyExists = errors.New("account already exists")
	// ErrInsufficientBalance indicates the sender cannot cover the transfer amount.
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrTransferNotFound indicates the referenced transfer does not exist.
	ErrTransferNotFound = errors.New("transfer not found")
	// ErrInvalidTransferState indicates a transition outside the transfer state graph.
	ErrInvalidTransferState = errors.New("invalid transfer state")
	// ErrCancellationWindowExpired indicates a cancel attempt past the 10-minute window.
	ErrCancellationWindowExpired = errors.New("cancellation window expired")
	// ErrSameAccountTransfer indicates sender and receiver are the same account.
	ErrSameAccountTransfer = errors.New("sender and receiver must be different accounts")
)

package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ledgerline/transfer-engine-backend/internal/data"
)

// UserServiceInterface covers account provisioning. Balance reads live on
// BalanceServiceInterface because they go through the cache.
type UserServiceInterface interface {
	CreateAccount(ctx context.Context, userID string, initialBalance decimal.Decimal) (*data.Account, error)
	GetAccount(ctx context.Context, userID string) (*data.Account, error)
}

type UserService struct {
	models *data.Models
}

var _ UserServiceInterface = (*UserService)(nil)

func NewUserService(models *data.Models) *UserService {
	return &UserService{models: models}
}

// CreateAccount provisions a new account with the given opening balance.
func (s *UserService) CreateAccount(ctx context.Context, userID string, initialBalance decimal.Decimal) (*data.Account, error) {
	if initialBalance.IsNegative() {
		return nil, fmt.Errorf("initial balance cannot be negative, got %s", initialBalance)
	}

	account, err := s.models.Accounts.Insert(ctx, s.models.DBConnectionPool, userID, initialBalance)
	if err != nil {
		if errors.Is(err, data.ErrRecordAlreadyExists) {
			return nil, ErrAccountAlreadyExists
		}
		return nil, fmt.Errorf("creating account %s: %w", userID, err)
	}

	return account, nil
}

func (s *UserService) GetAccount(ctx context.Context, userID string) (*data.Account, error) {
	account, err := s.models.Accounts.Get(ctx, s.models.DBConnectionPool, userID)
	if err != nil {
		if errors.Is(err, data.ErrRecordNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("getting account %s: %w", userID, err)
	}
	return account, nil
}

package locker

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

type MockLocker struct {
	mock.Mock
}

var _ Locker = (*MockLocker)(nil)

func (m *MockLocker) Acquire(ctx context.Context, name string, atMostFor, atLeastFor time.Duration) (*Lease, error) {
	args := m.Called(ctx, name, atMostFor, atLeastFor)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Lease), args.Error(1)
}

func (m *MockLocker) Release(ctx context.Context, lease *Lease) error {
	return m.Called(ctx, lease).Error(0)
}

package partition

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Name() string { return "mock" }

func (m *MockStore) Get(ctx context.Context, path string) (Object, error) {
	args := m.Called(ctx, path)
	return args.Get(0).(Object), args.Error(1)
}

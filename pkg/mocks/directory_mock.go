package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockUserDirectory is a mock implementation of directory.UserDirectory interface.
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) ResolveApprovers(ctx context.Context, designationID string) ([]string, error) {
	args := m.Called(ctx, designationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

// MockAddressBook is a mock implementation of notification.AddressBook interface.
type MockAddressBook struct {
	mock.Mock
}

func (m *MockAddressBook) EmailOf(ctx context.Context, userID string) (string, error) {
	args := m.Called(ctx, userID)

	return args.String(0), args.Error(1)
}

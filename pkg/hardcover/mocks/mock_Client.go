// Package mocks provides test doubles for the hardcover client.
package mocks

import (
	"context"

	hardcover "github.com/sells-group/bookmeta/pkg/hardcover"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Search provides a mock function with given fields: ctx, query, perPage
func (_m *MockClient) Search(ctx context.Context, query string, perPage int) ([]hardcover.Document, error) {
	ret := _m.Called(ctx, query, perPage)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 []hardcover.Document
	if rf, ok := ret.Get(0).(func(context.Context, string, int) ([]hardcover.Document, error)); ok {
		return rf(ctx, query, perPage)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]hardcover.Document)
	}
	return r0, ret.Error(1)
}

// Token provides a mock function with no fields
func (_m *MockClient) Token() string {
	ret := _m.Called()

	if len(ret) == 0 {
		panic("no return value specified for Token")
	}

	return ret.String(0)
}

// NewMockClient creates a new instance of MockClient.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	mock := &MockClient{}
	mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

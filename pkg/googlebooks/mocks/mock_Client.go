// Package mocks provides test doubles for the googlebooks client.
package mocks

import (
	"context"

	googlebooks "github.com/sells-group/bookmeta/pkg/googlebooks"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// SearchISBN provides a mock function with given fields: ctx, isbn
func (_m *MockClient) SearchISBN(ctx context.Context, isbn string) (*googlebooks.Volume, error) {
	ret := _m.Called(ctx, isbn)

	if len(ret) == 0 {
		panic("no return value specified for SearchISBN")
	}

	var r0 *googlebooks.Volume
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string) (*googlebooks.Volume, error)); ok {
		return rf(ctx, isbn)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*googlebooks.Volume)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Search provides a mock function with given fields: ctx, query, maxResults
func (_m *MockClient) Search(ctx context.Context, query string, maxResults int) ([]googlebooks.Volume, error) {
	ret := _m.Called(ctx, query, maxResults)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 []googlebooks.Volume
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, int) ([]googlebooks.Volume, error)); ok {
		return rf(ctx, query, maxResults)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]googlebooks.Volume)
	}
	r1 = ret.Error(1)

	return r0, r1
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

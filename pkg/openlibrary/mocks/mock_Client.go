// Package mocks provides test doubles for the openlibrary client.
package mocks

import (
	"context"

	openlibrary "github.com/sells-group/bookmeta/pkg/openlibrary"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// BookByISBN provides a mock function with given fields: ctx, isbn
func (_m *MockClient) BookByISBN(ctx context.Context, isbn string) (*openlibrary.Edition, error) {
	ret := _m.Called(ctx, isbn)

	if len(ret) == 0 {
		panic("no return value specified for BookByISBN")
	}

	var r0 *openlibrary.Edition
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*openlibrary.Edition)
	}
	return r0, ret.Error(1)
}

// Search provides a mock function with given fields: ctx, query, limit
func (_m *MockClient) Search(ctx context.Context, query string, limit int) ([]openlibrary.Doc, error) {
	ret := _m.Called(ctx, query, limit)

	if len(ret) == 0 {
		panic("no return value specified for Search")
	}

	var r0 []openlibrary.Doc
	if ret.Get(0) != nil {
		r0 = ret.Get(0).([]openlibrary.Doc)
	}
	return r0, ret.Error(1)
}

// Work provides a mock function with given fields: ctx, key
func (_m *MockClient) Work(ctx context.Context, key string) (*openlibrary.Work, error) {
	ret := _m.Called(ctx, key)

	if len(ret) == 0 {
		panic("no return value specified for Work")
	}

	var r0 *openlibrary.Work
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*openlibrary.Work)
	}
	return r0, ret.Error(1)
}

// CoverURL provides a mock function with given fields: ctx, isbn
func (_m *MockClient) CoverURL(ctx context.Context, isbn string) (string, error) {
	ret := _m.Called(ctx, isbn)

	if len(ret) == 0 {
		panic("no return value specified for CoverURL")
	}

	return ret.String(0), ret.Error(1)
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

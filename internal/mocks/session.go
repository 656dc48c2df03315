package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockSession is a mock implementation of a browser session
type MockSession struct {
	mock.Mock
}

// Navigate mocks the Navigate method
func (m *MockSession) Navigate(ctx context.Context, url string) error {
	args := m.Called(ctx, url)
	return args.Error(0)
}

// Content mocks the Content method
func (m *MockSession) Content(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// BodyText mocks the BodyText method
func (m *MockSession) BodyText(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// LinkHrefs mocks the LinkHrefs method
func (m *MockSession) LinkHrefs(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

// Close mocks the Close method
func (m *MockSession) Close() {
	m.Called()
}

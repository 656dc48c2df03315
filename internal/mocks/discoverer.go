package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/oxleyhq/forager/internal/crawler"
)

// MockDiscoverer is a mock implementation of sitemap URL discovery
type MockDiscoverer struct {
	mock.Mock
}

// Discover mocks the Discover method
func (m *MockDiscoverer) Discover(ctx context.Context, fetcher crawler.PageFetcher, baseURL string) ([]string, error) {
	args := m.Called(ctx, fetcher, baseURL)

	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).([]string), args.Error(1)
}

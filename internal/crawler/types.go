package crawler

import "context"

// PageFetcher is the subset of a browser session that sitemap discovery needs.
// Pages are fetched through a real browser so sites that block plain HTTP
// clients still serve their sitemaps.
type PageFetcher interface {
	Navigate(ctx context.Context, url string) error
	Content(ctx context.Context) (string, error)
}

package crawler

// Config holds the configuration for sitemap discovery
type Config struct {
	MaxDepth      int      // Maximum sitemap-index nesting depth to follow
	SitemapLimit  int      // Maximum child sitemaps to follow per nesting level
	FallbackPaths []string // Conventional sitemap paths probed alongside robots.txt declarations
}

// DefaultConfig returns a Config instance with default values
func DefaultConfig() *Config {
	return &Config{
		MaxDepth:     2,
		SitemapLimit: 10,
		FallbackPaths: []string{
			"/sitemap_index.xml",
			"/sitemap.xml",
			"/sitemapindex.xml",
		},
	}
}

package crawler

import (
	"context"
	"encoding/xml"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rs/zerolog/log"

	"github.com/oxleyhq/forager/internal/metrics"
	"github.com/oxleyhq/forager/internal/util"
)

// Resolver discovers the page URLs of a site by walking its sitemaps.
type Resolver struct {
	config *Config
}

// NewResolver creates a Resolver with the given config, falling back to
// defaults when config is nil.
func NewResolver(config *Config) *Resolver {
	if config == nil {
		config = DefaultConfig()
	}
	return &Resolver{config: config}
}

// Discover returns the page URLs listed in a site's sitemaps.
//
// Sitemap locations are taken from robots.txt, and the conventional paths
// are probed as well regardless of what robots.txt declares: some sites
// serve pages under /sitemap.xml that their robots entry never mentions.
// Results from every entry point are concatenated; the shared visited set
// keeps any document from being fetched twice. An empty result with a nil
// error means the site exposes no usable sitemap, and the caller decides
// what to visit.
func (r *Resolver) Discover(ctx context.Context, fetcher PageFetcher, baseURL string) ([]string, error) {
	sitemaps, err := SitemapsFromRobots(ctx, fetcher, baseURL)
	if err != nil {
		log.Debug().Err(err).Str("base_url", baseURL).Msg("robots.txt unavailable")
	}
	base := strings.TrimSuffix(baseURL, "/")
	for _, path := range r.config.FallbackPaths {
		sitemaps = append(sitemaps, base+path)
	}

	visited := make(map[string]bool)
	var pageURLs []string
	for _, sitemapURL := range sitemaps {
		pageURLs = append(pageURLs, r.resolve(ctx, fetcher, sitemapURL, 0, visited)...)
	}

	log.Info().
		Str("base_url", baseURL).
		Int("sitemap_count", len(sitemaps)).
		Int("url_count", len(pageURLs)).
		Msg("Sitemap discovery complete")

	return pageURLs, nil
}

// resolve fetches one sitemap document and returns the page URLs it reaches.
// Child sitemaps are followed up to MaxDepth levels deep, at most
// SitemapLimit children per level. Fetch and parse failures skip the
// document rather than aborting discovery.
func (r *Resolver) resolve(ctx context.Context, fetcher PageFetcher, sitemapURL string, depth int, visited map[string]bool) []string {
	if depth > r.config.MaxDepth {
		log.Debug().Str("url", sitemapURL).Int("depth", depth).Msg("Sitemap depth limit reached")
		return nil
	}
	if visited[sitemapURL] {
		return nil
	}
	visited[sitemapURL] = true

	if err := fetcher.Navigate(ctx, sitemapURL); err != nil {
		log.Debug().Err(err).Str("url", sitemapURL).Msg("Failed to fetch sitemap")
		return nil
	}
	content, err := fetcher.Content(ctx)
	if err != nil {
		log.Debug().Err(err).Str("url", sitemapURL).Msg("Failed to read sitemap content")
		return nil
	}
	metrics.SitemapsFetched.Inc()

	// Chrome renders XML documents through its viewer and keeps the original
	// markup in a hidden div. Recover it before parsing.
	source := extractXMLSource(content)

	if childSitemaps, ok := parseSitemapIndex(source); ok {
		return r.resolveChildren(ctx, fetcher, childSitemaps, depth, visited)
	}
	if pageURLs, ok := parseURLSet(source); ok {
		return validURLs(pageURLs)
	}

	// Not parseable as XML. Some sites publish their sitemap as an HTML
	// table of links instead.
	childSitemaps, pageURLs := parseHTMLSitemap(sitemapURL, content)
	urls := validURLs(pageURLs)
	if len(childSitemaps) > 0 {
		urls = append(urls, r.resolveChildren(ctx, fetcher, childSitemaps, depth, visited)...)
	}
	if len(urls) == 0 && len(childSitemaps) == 0 {
		log.Debug().Str("url", sitemapURL).Msg("Document is not a recognisable sitemap")
	}
	return urls
}

func (r *Resolver) resolveChildren(ctx context.Context, fetcher PageFetcher, childSitemaps []string, depth int, visited map[string]bool) []string {
	if len(childSitemaps) > r.config.SitemapLimit {
		log.Debug().
			Int("total", len(childSitemaps)).
			Int("limit", r.config.SitemapLimit).
			Msg("Truncating child sitemaps to per-level limit")
		childSitemaps = childSitemaps[:r.config.SitemapLimit]
	}

	var urls []string
	for _, child := range childSitemaps {
		child = util.NormaliseURL(child)
		if child == "" {
			continue
		}
		urls = append(urls, r.resolve(ctx, fetcher, child, depth+1, visited)...)
	}
	return urls
}

type sitemapIndex struct {
	XMLName  xml.Name `xml:"sitemapindex"`
	Sitemaps []struct {
		Loc string `xml:"loc"`
	} `xml:"sitemap"`
}

type urlSet struct {
	XMLName xml.Name `xml:"urlset"`
	URLs    []struct {
		Loc string `xml:"loc"`
	} `xml:"url"`
}

func parseSitemapIndex(source string) ([]string, bool) {
	var index sitemapIndex
	if err := xml.Unmarshal([]byte(source), &index); err != nil {
		return nil, false
	}
	var locs []string
	for _, sm := range index.Sitemaps {
		if loc := strings.TrimSpace(sm.Loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, true
}

func parseURLSet(source string) ([]string, bool) {
	var set urlSet
	if err := xml.Unmarshal([]byte(source), &set); err != nil {
		return nil, false
	}
	var locs []string
	for _, u := range set.URLs {
		if loc := strings.TrimSpace(u.Loc); loc != "" {
			locs = append(locs, loc)
		}
	}
	return locs, true
}

// extractXMLSource recovers the original XML markup from a Chrome XML-viewer
// page. Returns content unchanged when no embedded source is present.
func extractXMLSource(content string) string {
	if !strings.Contains(content, "webkit-xml-viewer-source-xml") {
		return content
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return content
	}
	source, err := doc.Find("#webkit-xml-viewer-source-xml").Html()
	if err != nil || strings.TrimSpace(source) == "" {
		return content
	}
	return source
}

// parseHTMLSitemap extracts links from an HTML sitemap page. The table with
// id="sitemap" is preferred, then the first table inside the div with
// id="content", then any table whose links look like sitemap entries.
// Relative hrefs are resolved against the sitemap document's own URL. Links
// ending in .xml are treated as child sitemaps, everything else as page URLs.
func parseHTMLSitemap(sitemapURL, content string) (childSitemaps, pageURLs []string) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, nil
	}

	table := doc.Find("table#sitemap").First()
	if table.Length() == 0 {
		table = doc.Find("div#content table").First()
	}
	if table.Length() == 0 {
		doc.Find("table").EachWithBreak(func(_ int, candidate *goquery.Selection) bool {
			if hasSitemapLinks(candidate) {
				table = candidate
				return false
			}
			return true
		})
	}
	if table.Length() == 0 {
		return nil, nil
	}

	base, _ := url.Parse(sitemapURL)

	table.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		href = resolveHref(base, strings.TrimSpace(href))
		if href == "" {
			return
		}
		if strings.HasSuffix(strings.ToLower(href), ".xml") {
			childSitemaps = append(childSitemaps, href)
		} else {
			pageURLs = append(pageURLs, href)
		}
	})

	return childSitemaps, pageURLs
}

// resolveHref makes href absolute against the sitemap document's URL.
func resolveHref(base *url.URL, href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

// hasSitemapLinks reports whether a table carries at least one link ending in
// .xml or with a URL path.
func hasSitemapLinks(table *goquery.Selection) bool {
	found := false
	table.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if href == "" {
			return true
		}
		if strings.HasSuffix(strings.ToLower(href), ".xml") {
			found = true
			return false
		}
		if parsed, err := url.Parse(href); err == nil && parsed.Path != "" {
			found = true
			return false
		}
		return true
	})
	return found
}

func validURLs(urls []string) []string {
	var valid []string
	for _, raw := range urls {
		if normalised := util.NormaliseURL(raw); normalised != "" {
			valid = append(valid, normalised)
		} else {
			log.Debug().Str("url", raw).Msg("Skipping invalid URL from sitemap")
		}
	}
	return valid
}

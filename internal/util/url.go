package util

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"
)

// NormaliseDomain removes http/https prefix and www. from a domain string.
func NormaliseDomain(domain string) string {
	domain = strings.TrimPrefix(domain, "http://")
	domain = strings.TrimPrefix(domain, "https://")
	domain = strings.TrimPrefix(domain, "www.")
	domain = strings.TrimSuffix(domain, "/")
	return domain
}

// NormaliseURL ensures a URL has an http(s) scheme and a parseable host.
// Returns "" if the URL cannot be normalised into something fetchable.
func NormaliseURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		log.Debug().Str("url", rawURL).Err(err).Msg("Invalid URL format")
		return ""
	}

	return rawURL
}

// BaseDomain extracts the host of a URL for same-site comparison:
// lowercased, with any leading www. stripped. Returns "" for unparseable input.
func BaseDomain(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	host := strings.ToLower(parsed.Hostname())
	return strings.TrimPrefix(host, "www.")
}

// nonBusinessDomains are marketplace/social/CDN hosts that never belong to the
// business being researched. A seed pointing at one of these is rejected up front.
var nonBusinessDomains = []string{
	"airbnb.co.uk",
	"airbnb.co.za",
	"airbnb.com",
	"airbnb.mx",
	"airbnb.net",
	"airbnbmail.com",
	"booking.com",
	"facebook.com",
	"instagram.com",
	"jscache.com",
	"linkedin.com",
	"muscache.com",
	"pinterest.com",
	"snapchat.com",
	"tacdn.com",
	"tamgrt.com",
	"tiktok.com",
	"tripadvisor.cn",
	"tripadvisor.co.uk",
	"tripadvisor.com",
	"tripadvisor.de",
	"twitter.com",
	"x.com",
	"youtube.com",
}

// IsNonBusinessDomain reports whether a domain (or any of its subdomains)
// belongs to a known non-business site.
func IsNonBusinessDomain(domain string) bool {
	domain = strings.ToLower(domain)
	for _, blocked := range nonBusinessDomains {
		if domain == blocked || strings.HasSuffix(domain, "."+blocked) {
			return true
		}
	}
	return false
}

// SeedURL normalises a caller-supplied website into a lowercased scheme://host
// base URL, rejecting non-business domains and unparseable input.
func SeedURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return "", fmt.Errorf("seed URL cannot be empty")
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}

	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return "", fmt.Errorf("invalid seed URL %q", rawURL)
	}

	if IsNonBusinessDomain(parsed.Hostname()) {
		return "", fmt.Errorf("%s is not a business domain", parsed.Hostname())
	}

	return strings.ToLower(parsed.Scheme + "://" + parsed.Host), nil
}

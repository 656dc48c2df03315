package emails

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Page is the subset of a browser session needed for email extraction.
type Page interface {
	Navigate(ctx context.Context, url string) error
	BodyText(ctx context.Context) (string, error)
	LinkHrefs(ctx context.Context) ([]string, error)
}

// ExtractFromPage navigates to url and collects email addresses from the
// rendered body text and from mailto: links. A navigation failure yields no
// results; a failure in either extraction channel is logged and the other
// channel's results are still returned.
func (m *Matcher) ExtractFromPage(ctx context.Context, page Page, url string) []string {
	if err := page.Navigate(ctx, url); err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to load page for email extraction")
		return nil
	}

	var found []string
	seen := make(map[string]bool)
	add := func(addresses ...string) {
		for _, addr := range addresses {
			if seen[addr] {
				continue
			}
			seen[addr] = true
			found = append(found, addr)
		}
	}

	text, err := page.BodyText(ctx)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to read page text")
	} else {
		add(m.ExtractFromText(text)...)
	}

	hrefs, err := page.LinkHrefs(ctx)
	if err != nil {
		log.Warn().Err(err).Str("url", url).Msg("Failed to read page links")
	} else {
		for _, href := range hrefs {
			if addr := m.ExtractFromMailto(href); addr != "" {
				add(addr)
			}
		}
	}

	return found
}

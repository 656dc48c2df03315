package emails

import (
	"regexp"
	"strings"

	emailverifier "github.com/AfterShip/email-verifier"
	"github.com/rs/zerolog/log"
)

// emailPattern matches addresses embedded in free text. The local part allows
// dots, underscores, percent, plus and hyphen; the domain requires at least
// one dot and a two-letter-minimum TLD.
var emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9\-]+(?:\.[a-zA-Z0-9\-]+)*\.[a-zA-Z]{2,}`)

// placeholderDomains are documentation/sample domains that appear in page
// templates but never identify a real mailbox.
var placeholderDomains = []string{
	"example.com",
	"example.org",
	"example.net",
	"example.me",
	"test.com",
	"sample.com",
}

// Matcher finds and validates email addresses in page content.
type Matcher struct {
	verifier *emailverifier.Verifier
}

// NewMatcher creates a Matcher with syntax-only verification. No network
// checks (SMTP, gravatar) are performed.
func NewMatcher() *Matcher {
	return &Matcher{
		verifier: emailverifier.NewVerifier(),
	}
}

// ExtractFromText returns every valid email address found in text,
// deduplicated by exact string match, in first-seen order.
func (m *Matcher) ExtractFromText(text string) []string {
	var found []string
	seen := make(map[string]bool)

	for _, candidate := range emailPattern.FindAllString(text, -1) {
		if !m.IsValid(candidate) {
			continue
		}
		if seen[candidate] {
			continue
		}
		seen[candidate] = true
		found = append(found, candidate)
	}

	return found
}

// ExtractFromMailto extracts a validated address from a mailto: href. Anything
// after a '?' (subject/body parameters) is discarded, and the remainder must be
// exactly one well-formed address. Returns "" when nothing valid remains.
func (m *Matcher) ExtractFromMailto(href string) string {
	if !strings.HasPrefix(strings.ToLower(href), "mailto:") {
		return ""
	}
	address := href[len("mailto:"):]
	if idx := strings.Index(address, "?"); idx >= 0 {
		address = address[:idx]
	}
	address = strings.TrimSpace(address)

	// The whole string must be a single address, not contain one.
	if loc := emailPattern.FindStringIndex(address); loc == nil || loc[0] != 0 || loc[1] != len(address) {
		return ""
	}
	if !m.IsValid(address) {
		return ""
	}
	return address
}

// IsValid reports whether an address is syntactically valid and does not
// belong to a placeholder domain.
func (m *Matcher) IsValid(address string) bool {
	syntax := m.verifier.ParseAddress(address)
	if !syntax.Valid {
		return false
	}
	domain := strings.ToLower(syntax.Domain)
	for _, placeholder := range placeholderDomains {
		if domain == placeholder || strings.HasSuffix(domain, "."+placeholder) {
			log.Debug().Str("email", address).Msg("Skipping placeholder address")
			return false
		}
	}
	return true
}

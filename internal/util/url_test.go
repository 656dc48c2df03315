package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormaliseDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "with_https",
			input:    "https://example.com",
			expected: "example.com",
		},
		{
			name:     "with_http",
			input:    "http://example.com",
			expected: "example.com",
		},
		{
			name:     "with_www",
			input:    "www.example.com",
			expected: "example.com",
		},
		{
			name:     "with_https_and_www",
			input:    "https://www.example.com/",
			expected: "example.com",
		},
		{
			name:     "subdomain",
			input:    "https://api.example.com",
			expected: "api.example.com",
		},
		{
			name:     "plain_domain",
			input:    "example.com",
			expected: "example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormaliseDomain(tt.input))
		})
	}
}

func TestNormaliseURL(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "already_valid",
			input:    "https://example.com/about",
			expected: "https://example.com/about",
		},
		{
			name:     "missing_scheme",
			input:    "example.com/about",
			expected: "https://example.com/about",
		},
		{
			name:     "whitespace_trimmed",
			input:    "  https://example.com  ",
			expected: "https://example.com",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "no_host",
			input:    "https://",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NormaliseURL(tt.input))
		})
	}
}

func TestBaseDomain(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "strips_www",
			input:    "https://www.example.com/contact",
			expected: "example.com",
		},
		{
			name:     "lowercases_host",
			input:    "https://Example.COM",
			expected: "example.com",
		},
		{
			name:     "keeps_subdomain",
			input:    "https://shop.example.com",
			expected: "shop.example.com",
		},
		{
			name:     "ignores_port",
			input:    "http://example.com:8080/path",
			expected: "example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, BaseDomain(tt.input))
		})
	}
}

func TestIsNonBusinessDomain(t *testing.T) {
	tests := []struct {
		name     string
		domain   string
		expected bool
	}{
		{
			name:     "facebook",
			domain:   "facebook.com",
			expected: true,
		},
		{
			name:     "facebook_subdomain",
			domain:   "en-gb.facebook.com",
			expected: true,
		},
		{
			name:     "case_insensitive",
			domain:   "Twitter.COM",
			expected: true,
		},
		{
			name:     "regular_business",
			domain:   "acme-widgets.com",
			expected: false,
		},
		{
			name:     "suffix_but_not_subdomain",
			domain:   "notfacebook.com",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsNonBusinessDomain(tt.domain))
		})
	}
}

func TestSeedURL(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expected    string
		expectError bool
	}{
		{
			name:     "bare_domain",
			input:    "example.com",
			expected: "https://example.com",
		},
		{
			name:     "path_stripped",
			input:    "https://example.com/some/page?q=1",
			expected: "https://example.com",
		},
		{
			name:     "host_lowercased",
			input:    "https://Example.COM/About",
			expected: "https://example.com",
		},
		{
			name:     "http_preserved",
			input:    "http://example.com",
			expected: "http://example.com",
		},
		{
			name:        "empty",
			input:       "",
			expectError: true,
		},
		{
			name:        "non_business",
			input:       "https://www.facebook.com/acmewidgets",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SeedURL(tt.input)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

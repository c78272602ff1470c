package common

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL is returned when input cannot be turned into an absolute http(s) URL.
var ErrInvalidURL = errors.New("invalid URL format")

var markdownLinkPattern = regexp.MustCompile(`^\[.*?\]\((https?://[^\)]+)\)$`)

// SanitizeURL performs basic cleanup on URLs to handle common copy-paste issues.
// Removes whitespace, trailing punctuation and markdown link wrappers.
func SanitizeURL(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)

	// [text](url) -> url
	if matches := markdownLinkPattern.FindStringSubmatch(cleaned); len(matches) > 1 {
		cleaned = matches[1]
	}

	trailingChars := []string{",", ")", "}", "]", "\"", "'", ">", ";"}
	for _, char := range trailingChars {
		cleaned = strings.TrimSuffix(cleaned, char)
	}
	leadingChars := []string{"(", "[", "<", "\"", "'"}
	for _, char := range leadingChars {
		cleaned = strings.TrimPrefix(cleaned, char)
	}

	return strings.TrimSpace(cleaned)
}

// NormalizeURL sanitizes input and prepends https:// when no scheme is present.
// Already-schemed URLs are returned unchanged, so the call is idempotent.
func NormalizeURL(rawURL string) (string, error) {
	cleaned := SanitizeURL(rawURL)
	if cleaned == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidURL)
	}
	lower := strings.ToLower(cleaned)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		cleaned = "https://" + cleaned
	}
	if strings.Contains(cleaned, " ") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}

	parsed, err := url.Parse(cleaned)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if parsed.Host == "" || strings.ContainsAny(parsed.Host, "{}<>\"'") {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	// brackets are only valid around an IPv6 literal
	if strings.ContainsAny(parsed.Host, "[]") && net.ParseIP(parsed.Hostname()) == nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
	}
	return cleaned, nil
}

// TrimTrailingSlash drops a single trailing slash.
func TrimTrailingSlash(u string) string {
	return strings.TrimSuffix(u, "/")
}

// SameURL compares two URLs ignoring one trailing slash.
func SameURL(a, b string) bool {
	return TrimTrailingSlash(a) == TrimTrailingSlash(b)
}

// Origin returns scheme://host of u, or u without a trailing slash if it does not parse.
func Origin(u string) string {
	parsed, err := url.Parse(u)
	if err != nil || parsed.Host == "" {
		return TrimTrailingSlash(u)
	}
	return parsed.Scheme + "://" + parsed.Host
}

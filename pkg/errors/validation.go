package errors

import (
	"net/url"
	"strings"
	"unicode"
)

// maxLabelLength bounds dataset labels so they stay renderable.
const maxLabelLength = 256

// ValidateLabel checks a dataset node label.
//
// Rules:
//   - not empty (after trimming whitespace)
//   - at most 256 bytes
//   - no control characters (labels are drawn verbatim into SVG and terminals)
func ValidateLabel(label string) error {
	if strings.TrimSpace(label) == "" {
		return New(ErrCodeInvalidDataset, "label cannot be empty")
	}
	if len(label) > maxLabelLength {
		return New(ErrCodeInvalidDataset, "label too long (max %d characters)", maxLabelLength)
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidDataset, "label %q contains control characters", label)
		}
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL parses, has a host, and uses the http or https scheme.
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidInput, "URL cannot be empty")
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return Wrap(ErrCodeInvalidInput, err, "malformed URL %q", rawURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return New(ErrCodeInvalidInput, "URL must use http or https scheme")
	}
	if u.Host == "" {
		return New(ErrCodeInvalidInput, "URL %q has no host", rawURL)
	}

	return nil
}

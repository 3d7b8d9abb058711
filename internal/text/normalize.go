// Package text splits raw corpus text into sentences and words.
package text

import (
	"errors"
	"strings"
)

// ErrEmptyText is returned when the input text is empty or whitespace-only.
var ErrEmptyText = errors.New("text is empty")

// NormalizeLineEndings rewrites CRLF and bare CR as LF.
func NormalizeLineEndings(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

// Normalize prepares request text for encoding or decoding.
// It normalizes line endings, trims surrounding whitespace and
// rejects empty or whitespace-only input.
func Normalize(s string) (string, error) {
	s = strings.TrimSpace(NormalizeLineEndings(s))
	if s == "" {
		return "", ErrEmptyText
	}

	return s, nil
}

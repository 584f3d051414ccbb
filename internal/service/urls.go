package service

import (
	"net/url"
	"strings"

	"github.com/timmy/mediafetch/internal/domain"
)

// ParseURLs splits free-form input on newlines and whitespace, dropping empty tokens.
func ParseURLs(raw string) []string {
	var tokens []string
	for _, line := range strings.Split(raw, "\n") {
		tokens = append(tokens, strings.Fields(line)...)
	}
	return tokens
}

// NormalizeURL reduces video-sharing URLs to their id-only form so equivalent
// inputs are tracked consistently:
//
//	https://www.youtube.com/watch?v=ID&list=PL&t=42 -> https://www.youtube.com/watch?v=ID
//
// Anything without a v parameter, or on another host, is returned unchanged.
func NormalizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	host := strings.ToLower(u.Host)
	if !strings.Contains(host, "youtube") && !strings.Contains(host, "youtu.be") {
		return raw
	}

	id := u.Query().Get("v")
	if id == "" {
		return raw
	}
	clean := &url.URL{Scheme: u.Scheme, User: u.User, Host: u.Host, Path: u.Path, RawPath: u.RawPath}
	clean.RawQuery = url.Values{"v": []string{id}}.Encode()
	return clean.String()
}

// ValidateSubmission rejects empty batches, unknown formats and oversized batches.
// maxURLs <= 0 disables the size check.
func ValidateSubmission(urls []string, format domain.Format, maxURLs int) error {
	if len(urls) == 0 {
		return domain.NewValidationError("please provide at least one valid URL")
	}
	if !format.Valid() {
		return domain.NewValidationError("unsupported format, choose mp3 or mp4")
	}
	if maxURLs > 0 && len(urls) > maxURLs {
		return domain.NewValidationError("too many URLs: %d given, at most %d allowed", len(urls), maxURLs)
	}
	return nil
}

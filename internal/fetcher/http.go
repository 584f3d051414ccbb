package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/timmy/mediafetch/internal/domain"
)

// HTTPFetcher downloads direct media links (a URL ending in .mp3 or .mp4) without
// going through yt-dlp.
type HTTPFetcher struct {
	client    *resty.Client
	userAgent string
}

// HTTPConfig configures the direct download backend.
type HTTPConfig struct {
	Timeout   time.Duration
	UserAgent string
}

// NewHTTPFetcher creates a direct-link fetcher.
func NewHTTPFetcher(cfg HTTPConfig) *HTTPFetcher {
	client := resty.New().
		SetTimeout(cfg.Timeout).
		SetRetryCount(0)
	return &HTTPFetcher{client: client, userAgent: cfg.UserAgent}
}

// Supports reports whether rawURL is an http(s) link to a file that already has
// the target format's extension.
func (h *HTTPFetcher) Supports(rawURL string, format domain.Format) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return strings.EqualFold(path.Ext(u.Path), "."+format.Ext())
}

// Fetch streams req.URL into req.OutputDir, reporting progress from Content-Length.
func (h *HTTPFetcher) Fetch(ctx context.Context, req Request, progress ProgressFunc) ([]string, error) {
	progress = ensureProgress(progress)

	fail := func(err error) ([]string, error) {
		fetchErr := &domain.FetchError{URL: req.URL, Err: err}
		progress(req.Index, domain.ItemStatusError, ProgressInfo{Err: fetchErr})
		return nil, fetchErr
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return fail(fmt.Errorf("failed to create output directory: %w", err))
	}

	r := h.client.R().
		SetContext(ctx).
		SetDoNotParseResponse(true)
	if h.userAgent != "" {
		r.SetHeader("User-Agent", h.userAgent)
	}

	resp, err := r.Get(req.URL)
	if err != nil {
		return fail(fmt.Errorf("failed to request %s: %w", req.URL, err))
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		return fail(fmt.Errorf("unexpected status %d from %s", resp.StatusCode(), req.URL))
	}

	target := uniquePath(req.OutputDir, SafeFilename(remoteBasename(req.URL)))
	tmp, err := os.CreateTemp(req.OutputDir, ".part-*")
	if err != nil {
		return fail(fmt.Errorf("failed to create temp file: %w", err))
	}
	tmpName := tmp.Name()

	counter := &progressWriter{
		total: resp.RawResponse.ContentLength,
		onProgress: func(downloaded, total int64) {
			info := ProgressInfo{Filename: filepath.Base(target)}
			if pct, ok := PercentFromBytes(downloaded, total); ok {
				info.Percent = Percent(pct)
			}
			progress(req.Index, domain.ItemStatusDownloading, info)
		},
	}

	_, copyErr := io.Copy(io.MultiWriter(tmp, counter), body)
	closeErr := tmp.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(tmpName)
		if copyErr == nil {
			copyErr = closeErr
		}
		return fail(fmt.Errorf("failed to download %s: %w", req.URL, copyErr))
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return fail(fmt.Errorf("failed to store download: %w", err))
	}

	progress(req.Index, domain.ItemStatusCompleted, ProgressInfo{
		Percent:  Percent(100),
		Filename: filepath.Base(target),
	})
	return []string{target}, nil
}

func remoteBasename(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	base := path.Base(u.Path)
	if base == "/" || base == "." {
		return ""
	}
	if unescaped, err := url.PathUnescape(base); err == nil {
		return unescaped
	}
	return base
}

// uniquePath appends -1, -2, ... before the extension until name is free in dir.
func uniquePath(dir, name string) string {
	candidate := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)
	for i := 1; ; i++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
		candidate = filepath.Join(dir, fmt.Sprintf("%s-%d%s", stem, i, ext))
	}
}

const unknownSizeReportEvery = 1 << 20

// progressWriter counts bytes and reports once per percent step, or once per
// MiB when the server sent no Content-Length.
type progressWriter struct {
	total        int64
	written      int64
	lastPct      float64
	lastReported int64
	onProgress   func(downloaded, total int64)
}

func (w *progressWriter) Write(p []byte) (int, error) {
	w.written += int64(len(p))

	pct, ok := PercentFromBytes(w.written, w.total)
	switch {
	case ok && (pct-w.lastPct >= 1 || (pct == 100 && w.lastPct < 100)):
		w.lastPct = pct
	case !ok && w.written-w.lastReported >= unknownSizeReportEvery:
	default:
		return len(p), nil
	}

	w.lastReported = w.written
	w.onProgress(w.written, w.total)
	return len(p), nil
}

package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/timmy/mediafetch/internal/domain"
)

func TestHTTPFetcherSupports(t *testing.T) {
	h := NewHTTPFetcher(HTTPConfig{})

	tests := []struct {
		url    string
		format domain.Format
		want   bool
	}{
		{url: "https://cdn.example.com/a/song.mp3", format: domain.FormatMP3, want: true},
		{url: "https://cdn.example.com/a/SONG.MP3?sig=1", format: domain.FormatMP3, want: true},
		{url: "https://cdn.example.com/a/clip.mp4", format: domain.FormatMP3, want: false},
		{url: "https://www.youtube.com/watch?v=abc", format: domain.FormatMP4, want: false},
		{url: "ftp://example.com/a.mp4", format: domain.FormatMP4, want: false},
	}

	for _, tt := range tests {
		if got := h.Supports(tt.url, tt.format); got != tt.want {
			t.Errorf("Supports(%q, %s) = %v, want %v", tt.url, tt.format, got, tt.want)
		}
	}
}

func TestHTTPFetcherFetch(t *testing.T) {
	payload := strings.Repeat("a", 4096)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/media/My%20Song.mp3" && r.URL.Path != "/media/My Song.mp3" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = w.Write([]byte(payload))
	}))
	defer srv.Close()

	outDir := t.TempDir()
	var statuses []domain.ItemStatus
	var lastPercent float64
	files, err := NewHTTPFetcher(HTTPConfig{}).Fetch(context.Background(),
		Request{Index: 0, URL: srv.URL + "/media/My%20Song.mp3", Format: domain.FormatMP3, OutputDir: outDir},
		func(_ int, status domain.ItemStatus, info ProgressInfo) {
			statuses = append(statuses, status)
			if info.Percent != nil {
				if *info.Percent < lastPercent {
					t.Errorf("percent decreased: %v -> %v", lastPercent, *info.Percent)
				}
				lastPercent = *info.Percent
			}
		})
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	want := filepath.Join(outDir, "My_Song.mp3")
	if len(files) != 1 || files[0] != want {
		t.Fatalf("files = %v, want [%s]", files, want)
	}
	data, err := os.ReadFile(want)
	if err != nil || string(data) != payload {
		t.Errorf("file content mismatch: err=%v len=%d", err, len(data))
	}
	if statuses[len(statuses)-1] != domain.ItemStatusCompleted {
		t.Errorf("last status = %s", statuses[len(statuses)-1])
	}
	if lastPercent != 100 {
		t.Errorf("last percent = %v", lastPercent)
	}

	again, err := NewHTTPFetcher(HTTPConfig{}).Fetch(context.Background(),
		Request{URL: srv.URL + "/media/My%20Song.mp3", Format: domain.FormatMP3, OutputDir: outDir}, nil)
	if err != nil {
		t.Fatalf("second Fetch: %v", err)
	}
	if filepath.Base(again[0]) != "My_Song-1.mp3" {
		t.Errorf("second download should not overwrite, got %s", again[0])
	}
}

func TestHTTPFetcherErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	var terminal domain.ItemStatus
	_, err := NewHTTPFetcher(HTTPConfig{}).Fetch(context.Background(),
		Request{URL: srv.URL + "/missing.mp3", Format: domain.FormatMP3, OutputDir: t.TempDir()},
		func(_ int, status domain.ItemStatus, _ ProgressInfo) { terminal = status })

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("err = %v, want FetchError", err)
	}
	if terminal != domain.ItemStatusError {
		t.Errorf("terminal = %s", terminal)
	}
}

package fetcher

import (
	"context"
	"fmt"
	"math"

	"github.com/timmy/mediafetch/internal/domain"
)

// Request describes one URL to fetch on behalf of a job item.
type Request struct {
	Index     int
	URL       string
	Format    domain.Format
	OutputDir string
}

// ProgressInfo carries the optional details of a progress signal.
type ProgressInfo struct {
	Percent  *float64
	Filename string
	Err      error
}

// ProgressFunc receives progress for the item at index. It is called zero or more
// times with ItemStatusDownloading and then exactly once with ItemStatusCompleted
// or ItemStatusError.
type ProgressFunc func(index int, status domain.ItemStatus, info ProgressInfo)

// Fetcher retrieves a single URL into req.OutputDir and returns the produced paths.
type Fetcher interface {
	Fetch(ctx context.Context, req Request, progress ProgressFunc) ([]string, error)
}

// PercentFromBytes returns downloaded/total as a percentage rounded to two decimals.
// ok is false unless both values are positive.
func PercentFromBytes(downloaded, total int64) (percent float64, ok bool) {
	if downloaded <= 0 || total <= 0 {
		return 0, false
	}
	p := math.Round(float64(downloaded)/float64(total)*100*100) / 100
	return domain.ClampPercent(p), true
}

// Percent is a helper for building ProgressInfo values.
func Percent(p float64) *float64 {
	return &p
}

// FetchAll fetches urls in order into dir, stopping at the first failure.
// Files produced before the failure are returned along with the error.
func FetchAll(ctx context.Context, f Fetcher, urls []string, format domain.Format, dir string, progress ProgressFunc) ([]string, error) {
	progress = ensureProgress(progress)

	var files []string
	for i, u := range urls {
		if err := ctx.Err(); err != nil {
			return files, fmt.Errorf("fetch interrupted before %s: %w", u, err)
		}
		produced, err := f.Fetch(ctx, Request{Index: i, URL: u, Format: format, OutputDir: dir}, progress)
		if err != nil {
			return files, err
		}
		files = append(files, produced...)
	}
	return files, nil
}

func noopProgress(int, domain.ItemStatus, ProgressInfo) {}

func ensureProgress(p ProgressFunc) ProgressFunc {
	if p == nil {
		return noopProgress
	}
	return p
}

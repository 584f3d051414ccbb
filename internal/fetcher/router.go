package fetcher

import (
	"context"

	"github.com/timmy/mediafetch/internal/domain"
)

// DirectFetcher is a backend that only handles some URLs.
type DirectFetcher interface {
	Fetcher
	Supports(rawURL string, format domain.Format) bool
}

// Router sends direct media links to a DirectFetcher and everything else to
// the fallback backend.
type Router struct {
	direct   DirectFetcher
	fallback Fetcher
}

// NewRouter creates a Router. direct may be nil to disable direct downloads.
func NewRouter(direct DirectFetcher, fallback Fetcher) *Router {
	return &Router{direct: direct, fallback: fallback}
}

// Fetch implements Fetcher.
func (r *Router) Fetch(ctx context.Context, req Request, progress ProgressFunc) ([]string, error) {
	if r.direct != nil && r.direct.Supports(req.URL, req.Format) {
		return r.direct.Fetch(ctx, req, progress)
	}
	return r.fallback.Fetch(ctx, req, progress)
}

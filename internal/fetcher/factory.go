package fetcher

import (
	"github.com/timmy/mediafetch/internal/config"
)

// New builds the configured fetch backend: yt-dlp, fronted by the direct
// HTTP downloader when fetcher.direct_http is enabled.
// Parameters:
//   - cfg: fetcher section of the application config.
// Returns:
//   - Fetcher: ready to use backend.
func New(cfg config.FetcherConfig) Fetcher {
	ytdlp := NewYtDlp(YtDlpConfig{
		Binary:         cfg.YtDlpBin,
		CookiesFile:    cfg.CookiesFile,
		CookiesText:    cfg.CookiesText,
		UserAgent:      cfg.UserAgent,
		AcceptLanguage: cfg.AcceptLanguage,
		AudioQuality:   cfg.AudioQuality,
	})
	if !cfg.DirectHTTP {
		return ytdlp
	}

	direct := NewHTTPFetcher(HTTPConfig{
		Timeout:   cfg.HTTPTimeout,
		UserAgent: cfg.UserAgent,
	})
	return NewRouter(direct, ytdlp)
}

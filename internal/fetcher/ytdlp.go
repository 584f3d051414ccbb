package fetcher

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/timmy/mediafetch/internal/domain"
	"github.com/timmy/mediafetch/internal/logger"
)

const mp4FormatSelector = "bestvideo[ext=mp4]+bestaudio[ext=m4a]/best[ext=mp4]/best"

const defaultWaitDelay = 5 * time.Second

// YtDlpConfig configures the yt-dlp backend.
type YtDlpConfig struct {
	Binary         string
	CookiesFile    string
	CookiesText    string
	UserAgent      string
	AcceptLanguage string
	AudioQuality   string
	// WaitDelay bounds how long a killed yt-dlp may keep its output open
	// through child processes such as ffmpeg.
	WaitDelay time.Duration
}

// YtDlp fetches media by running the yt-dlp binary.
type YtDlp struct {
	cfg YtDlpConfig
}

// NewYtDlp creates a yt-dlp backed fetcher.
// Parameters:
//   - cfg: binary path, cookies and request headers.
// Returns:
//   - *YtDlp: fetcher instance.
func NewYtDlp(cfg YtDlpConfig) *YtDlp {
	if cfg.Binary == "" {
		cfg.Binary = "yt-dlp"
	}
	if cfg.AudioQuality == "" {
		cfg.AudioQuality = "320K"
	}
	if cfg.WaitDelay <= 0 {
		cfg.WaitDelay = defaultWaitDelay
	}
	return &YtDlp{cfg: cfg}
}

// Fetch downloads req.URL into req.OutputDir in the requested format.
func (y *YtDlp) Fetch(ctx context.Context, req Request, progress ProgressFunc) ([]string, error) {
	progress = ensureProgress(progress)
	start := time.Now()

	fail := func(err error) ([]string, error) {
		fetchErr := &domain.FetchError{URL: req.URL, Err: err}
		progress(req.Index, domain.ItemStatusError, ProgressInfo{Err: fetchErr})
		return nil, fetchErr
	}

	if err := os.MkdirAll(req.OutputDir, 0o755); err != nil {
		return fail(fmt.Errorf("failed to create output directory: %w", err))
	}

	cookies, cleanup, err := resolveCookies(y.cfg.CookiesFile, y.cfg.CookiesText)
	if err != nil {
		return fail(err)
	}
	defer cleanup()

	before := snapshotFiles(req.OutputDir, req.Format.Ext())

	cmd := exec.CommandContext(ctx, y.cfg.Binary, y.buildArgs(req, cookies)...)
	cmd.WaitDelay = y.cfg.WaitDelay
	pr, pw := io.Pipe()
	cmd.Stdout = pw
	cmd.Stderr = pw

	if err := cmd.Start(); err != nil {
		pw.Close()
		return fail(fmt.Errorf("failed to start %s: %w", y.cfg.Binary, err))
	}

	done := make(chan scanResult, 1)
	go func() {
		done <- scanOutput(pr, req.Index, progress)
	}()

	waitErr := cmd.Wait()
	pw.Close()
	out := <-done

	if waitErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fail(fmt.Errorf("fetch interrupted: %w", ctxErr))
		}
		if out.lastError != "" {
			return fail(errors.New(out.lastError))
		}
		return fail(fmt.Errorf("%s exited: %w", y.cfg.Binary, waitErr))
	}

	files := existingFiles(out.files)
	if len(files) == 0 {
		if newest := newestNewFile(req.OutputDir, req.Format.Ext(), before); newest != "" {
			files = []string{newest}
		}
	}

	info := ProgressInfo{Percent: Percent(100)}
	if len(files) > 0 {
		info.Filename = filepath.Base(files[len(files)-1])
	}
	progress(req.Index, domain.ItemStatusCompleted, info)

	logger.With(logger.Fields{
		logger.FieldURL:   req.URL,
		logger.FieldCount: len(files),
	}).WithDuration(time.Since(start)).Debug(ctx, "yt-dlp fetch completed")

	return files, nil
}

func (y *YtDlp) buildArgs(req Request, cookies string) []string {
	args := []string{
		"--newline",
		"--no-playlist",
		"--no-warnings",
		"--progress",
		"--no-simulate",
		"--progress-template", progressTemplate,
		"--print", filePrintTemplate,
		"-o", filepath.Join(req.OutputDir, "%(title)s.%(ext)s"),
	}

	if y.cfg.UserAgent != "" {
		args = append(args, "--user-agent", y.cfg.UserAgent)
	}
	if y.cfg.AcceptLanguage != "" {
		args = append(args, "--add-header", "Accept-Language:"+y.cfg.AcceptLanguage)
	}
	if cookies != "" {
		args = append(args, "--cookies", cookies)
	}

	switch req.Format {
	case domain.FormatMP3:
		args = append(args,
			"-f", "bestaudio/best",
			"-x", "--audio-format", "mp3",
			"--audio-quality", y.cfg.AudioQuality,
		)
	default:
		args = append(args,
			"-f", mp4FormatSelector,
			"--merge-output-format", "mp4",
		)
	}

	return append(args, "--", req.URL)
}

type scanResult struct {
	files     []string
	lastError string
}

// scanOutput turns the merged yt-dlp output into progress signals. It always
// drains r so the child process never blocks on a full pipe.
func scanOutput(r io.Reader, index int, progress ProgressFunc) scanResult {
	var res scanResult
	var lastLine string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if p, ok := parseProgressLine(line); ok {
			if status, info, ok := p.toSignal(); ok {
				progress(index, status, info)
			}
			continue
		}
		if path, ok := parseFileLine(line); ok {
			res.files = append(res.files, path)
			continue
		}
		if strings.HasPrefix(line, "ERROR:") {
			res.lastError = strings.TrimSpace(strings.TrimPrefix(line, "ERROR:"))
		}
		lastLine = line
	}
	_, _ = io.Copy(io.Discard, r)

	if res.lastError == "" {
		res.lastError = lastLine
	}
	return res
}

func existingFiles(paths []string) []string {
	var out []string
	for _, p := range paths {
		if fi, err := os.Stat(p); err == nil && fi.Mode().IsRegular() {
			out = append(out, p)
		}
	}
	return out
}

func snapshotFiles(dir, ext string) map[string]struct{} {
	matches, _ := filepath.Glob(filepath.Join(dir, "*."+ext))
	set := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		set[m] = struct{}{}
	}
	return set
}

// newestNewFile returns the most recently modified *.ext file in dir that was
// not present in before.
func newestNewFile(dir, ext string, before map[string]struct{}) string {
	matches, _ := filepath.Glob(filepath.Join(dir, "*."+ext))

	var newest string
	var newestMod time.Time
	for _, m := range matches {
		if _, seen := before[m]; seen {
			continue
		}
		fi, err := os.Stat(m)
		if err != nil || !fi.Mode().IsRegular() {
			continue
		}
		if newest == "" || fi.ModTime().After(newestMod) {
			newest, newestMod = m, fi.ModTime()
		}
	}
	return newest
}

package fetcher

import (
	"path/filepath"
	"strconv"
	"strings"

	"github.com/timmy/mediafetch/internal/domain"
)

const (
	progressMarker = "[mf-progress]"
	fileMarker     = "[mf-file]"
)

// progressTemplate makes yt-dlp print one machine-readable line per progress tick:
// status|downloaded_bytes|total_bytes|total_bytes_estimate|filename
const progressTemplate = "download:" + progressMarker +
	"%(progress.status)s|%(progress.downloaded_bytes)s|%(progress.total_bytes)s|" +
	"%(progress.total_bytes_estimate)s|%(progress.filename)s"

// filePrintTemplate prints the final path once post-processing has moved the file.
const filePrintTemplate = "after_move:" + fileMarker + "%(filepath)s"

type progressLine struct {
	status     string
	downloaded int64
	total      int64
	estimate   int64
	filename   string
}

// percent uses total_bytes and falls back to the estimate.
func (p progressLine) percent() (float64, bool) {
	total := p.total
	if total <= 0 {
		total = p.estimate
	}
	return PercentFromBytes(p.downloaded, total)
}

// toSignal maps a yt-dlp progress tick onto an item progress signal.
// yt-dlp's own "finished" means the transfer ended but post-processing may
// still run, so it stays a downloading signal.
func (p progressLine) toSignal() (domain.ItemStatus, ProgressInfo, bool) {
	switch p.status {
	case "downloading", "finished":
	default:
		return "", ProgressInfo{}, false
	}

	var info ProgressInfo
	if pct, ok := p.percent(); ok {
		info.Percent = Percent(pct)
	}
	if p.filename != "" {
		info.Filename = filepath.Base(p.filename)
	}
	return domain.ItemStatusDownloading, info, true
}

func parseProgressLine(line string) (progressLine, bool) {
	idx := strings.Index(line, progressMarker)
	if idx < 0 {
		return progressLine{}, false
	}
	parts := strings.SplitN(line[idx+len(progressMarker):], "|", 5)
	if len(parts) < 4 {
		return progressLine{}, false
	}

	p := progressLine{
		status:     strings.TrimSpace(parts[0]),
		downloaded: parseBytes(parts[1]),
		total:      parseBytes(parts[2]),
		estimate:   parseBytes(parts[3]),
	}
	if len(parts) == 5 {
		p.filename = strings.TrimSpace(parts[4])
		if p.filename == "NA" {
			p.filename = ""
		}
	}
	return p, true
}

func parseFileLine(line string) (string, bool) {
	idx := strings.Index(line, fileMarker)
	if idx < 0 {
		return "", false
	}
	path := strings.TrimSpace(line[idx+len(fileMarker):])
	return path, path != ""
}

// parseBytes accepts yt-dlp's integer or float renderings; "NA" and junk yield 0.
func parseBytes(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "NA" || s == "None" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f)
	}
	return 0
}

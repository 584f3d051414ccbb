package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

// ErrNoFiles is returned when none of the job's files could be archived.
var ErrNoFiles = errors.New("no files to zip")

// Path returns where the archive for jobID lives.
func Path(dataDir, jobID string) string {
	return filepath.Join(dataDir, jobID+".zip")
}

// Builder creates one zip archive per job and reuses it afterwards.
type Builder struct {
	dataDir string
	mu      sync.Mutex
}

// NewBuilder creates a Builder writing archives into dataDir.
func NewBuilder(dataDir string) *Builder {
	return &Builder{dataDir: dataDir}
}

// Build returns the archive for jobID, creating it from files on first use.
// Entries are named by basename; files that no longer exist are skipped.
func (b *Builder) Build(jobID string, files []string) (string, error) {
	target := Path(b.dataDir, jobID)

	b.mu.Lock()
	defer b.mu.Unlock()

	if fi, err := os.Stat(target); err == nil && fi.Mode().IsRegular() {
		return target, nil
	}

	if err := os.MkdirAll(b.dataDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	tmp, err := os.CreateTemp(b.dataDir, "."+jobID+"-*.zip")
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	tmpName := tmp.Name()

	written, err := writeZip(tmp, files)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written == 0 {
		err = ErrNoFiles
	}
	if err != nil {
		os.Remove(tmpName)
		return "", err
	}

	if err := os.Rename(tmpName, target); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("failed to finalize archive: %w", err)
	}
	return target, nil
}

func writeZip(w io.Writer, files []string) (int, error) {
	zw := zip.NewWriter(w)
	written := 0
	seen := make(map[string]int)

	for _, path := range files {
		ok, err := addFile(zw, path, seen)
		if err != nil {
			zw.Close()
			return written, err
		}
		if ok {
			written++
		}
	}

	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("failed to finalize zip: %w", err)
	}
	return written, nil
}

func addFile(zw *zip.Writer, path string, seen map[string]int) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil || !fi.Mode().IsRegular() {
		return false, nil
	}

	header, err := zip.FileInfoHeader(fi)
	if err != nil {
		return false, fmt.Errorf("failed to build zip header for %s: %w", path, err)
	}
	header.Name = entryName(filepath.Base(path), seen)
	header.Method = zip.Deflate

	entry, err := zw.CreateHeader(header)
	if err != nil {
		return false, fmt.Errorf("failed to add %s: %w", path, err)
	}
	if _, err := io.Copy(entry, f); err != nil {
		return false, fmt.Errorf("failed to compress %s: %w", path, err)
	}
	return true, nil
}

// entryName disambiguates duplicate basenames as name (1).ext, name (2).ext, ...
func entryName(base string, seen map[string]int) string {
	n := seen[base]
	seen[base] = n + 1
	if n == 0 {
		return base
	}
	ext := filepath.Ext(base)
	return fmt.Sprintf("%s (%d)%s", base[:len(base)-len(ext)], n, ext)
}

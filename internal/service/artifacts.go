package service

import (
	"context"
	"os"
	"path/filepath"

	"github.com/timmy/mediafetch/internal/archive"
	"github.com/timmy/mediafetch/internal/domain"
)

// ArchiveRemover deletes a job archive that was mirrored outside the data dir.
type ArchiveRemover interface {
	Remove(ctx context.Context, jobID string) error
}

// Artifacts locates and removes the on-disk footprint of a job:
// <data_dir>/<id>/ with its produced files and <data_dir>/<id>.zip.
type Artifacts struct {
	dataDir string
	mirror  ArchiveRemover
}

// NewArtifacts creates an Artifacts helper. mirror may be nil.
func NewArtifacts(dataDir string, mirror ArchiveRemover) *Artifacts {
	return &Artifacts{dataDir: dataDir, mirror: mirror}
}

// Dir returns the output directory of a job.
func (a *Artifacts) Dir(jobID string) string {
	return filepath.Join(a.dataDir, jobID)
}

// ArchivePath returns the cached archive path of a job.
func (a *Artifacts) ArchivePath(jobID string) string {
	return archive.Path(a.dataDir, jobID)
}

// Remove deletes every file in the job directory, the directory itself, the
// cached archive and its mirrored copy. It keeps going after failures and
// returns them as HousekeepingErrors. Already missing paths are not failures.
func (a *Artifacts) Remove(ctx context.Context, jobID string) []error {
	var errs []error
	record := func(op, path string, err error) {
		if err != nil && !os.IsNotExist(err) {
			errs = append(errs, &domain.HousekeepingError{Op: op, Path: path, Err: err})
		}
	}

	dir := a.Dir(jobID)
	entries, err := os.ReadDir(dir)
	record("read dir", dir, err)
	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		record("remove file", p, os.Remove(p))
	}
	if err == nil {
		record("remove dir", dir, os.Remove(dir))
	}

	zipPath := a.ArchivePath(jobID)
	record("remove archive", zipPath, os.Remove(zipPath))

	if a.mirror != nil {
		if err := a.mirror.Remove(ctx, jobID); err != nil {
			errs = append(errs, &domain.HousekeepingError{Op: "remove mirrored archive", Path: jobID, Err: err})
		}
	}
	return errs
}

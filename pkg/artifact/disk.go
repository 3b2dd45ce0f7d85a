package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const diskExt = ".mp3"

// DiskDriver implements Driver on a flat directory of uuid-named files.
// Creation timestamps are the files' modification times.
type DiskDriver struct {
	dir    string
	logger *zap.Logger
}

// NewDiskDriver creates the directory if needed and returns a driver over it.
func NewDiskDriver(dir string, logger *zap.Logger) (*DiskDriver, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact dir: %w", err)
	}
	return &DiskDriver{dir: dir, logger: logger}, nil
}

// Put writes data to a temp file, syncs it, and renames it into place so the
// returned id never refers to a partially written payload.
func (d *DiskDriver) Put(data []byte) (string, error) {
	tmp, err := os.CreateTemp(d.dir, ".pending-*")
	if err != nil {
		return "", fmt.Errorf("creating artifact: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("syncing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("closing artifact: %w", err)
	}

	id := uuid.NewString()
	if err := os.Rename(tmpName, d.path(id)); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("publishing artifact: %w", err)
	}
	return id, nil
}

// Get retrieves the payload for id. Ids that don't parse as uuids are
// reported as not found rather than touching the filesystem.
func (d *DiskDriver) Get(id string) ([]byte, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound{ID: id}
	}

	data, err := os.ReadFile(d.path(id))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound{ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", id, err)
	}
	return data, nil
}

// Reap removes artifact files whose modification time is before cutoff.
// Entries that cannot be inspected or removed are logged and skipped; the
// sweep always runs to the end of the directory.
func (d *DiskDriver) Reap(cutoff time.Time) (int, error) {
	entries, err := os.ReadDir(d.dir)
	if err != nil {
		return 0, fmt.Errorf("listing artifact dir: %w", err)
	}

	removed := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, diskExt) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			d.logger.Warn("skipping unreadable artifact",
				zap.String("name", name),
				zap.Error(err),
			)
			continue
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(d.dir, name)); err != nil {
			d.logger.Warn("failed to remove expired artifact",
				zap.String("name", name),
				zap.Error(err),
			)
			continue
		}
		removed++
	}
	return removed, nil
}

// Close is a no-op for the disk driver.
func (d *DiskDriver) Close() error {
	return nil
}

func (d *DiskDriver) path(id string) string {
	return filepath.Join(d.dir, id+diskExt)
}

package store

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
)

// AnchorsDir returns the on-disk directory of the anchor archive:
//
//	datadir/anchors/
func AnchorsDir(datadir string) string {
	return filepath.Join(datadir, "anchors")
}

func DBPath(datadir string) string {
	return filepath.Join(AnchorsDir(datadir), "db", "kv.db")
}

func ensureDir(path string) error {
	if err := os.MkdirAll(path, 0o750); err != nil {
		return errors.Wrapf(err, "mkdir %s", path)
	}
	return nil
}

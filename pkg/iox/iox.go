package iox

import (
	"io"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes src to dstFilename.tmp, and then renames it to dstFilename, so that
// dstFilename is either absent or complete. Parent directories are created if necessary.
// Returns the number of bytes written.
func WriteFileAtomic(dstFilename string, src io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dstFilename), 0755); err != nil {
		return 0, err
	}
	tempFilename := dstFilename + ".tmp"
	dstFile, err := os.Create(tempFilename)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dstFile, src)
	if cerr := dstFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tempFilename)
		return 0, err
	}
	if err := os.Rename(tempFilename, dstFilename); err != nil {
		os.Remove(tempFilename)
		return 0, err
	}
	return n, nil
}

// filepath: internal/storage/file.go
// Package storage lays out snapshot generations on disk and writes files
// so that a reader never sees a partial one at its final path.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// SaveFile streams data into path. The content is written to a temporary
// file in the same directory and renamed into place once complete; on any
// failure the temporary file is removed and path is left untouched.
// A limit > 0 rejects content larger than limit bytes.
func SaveFile(data io.Reader, path string, limit int64) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("could not create file: %w", err)
	}
	tmpPath := tmp.Name()

	src := data
	if limit > 0 {
		src = io.LimitReader(data, limit+1)
	}

	size, err := io.Copy(tmp, src)
	closeErr := tmp.Close()
	if err == nil && limit > 0 && size > limit {
		err = fmt.Errorf("exceeds the limit of %d bytes", limit)
	}
	if err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("could not write file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("could not move file into place: %w", err)
	}
	return size, nil
}

// Exists reports whether a regular file is present at path.
func Exists(path string) (bool, error) {
	info, err := os.Stat(path)
	if err == nil {
		return info.Mode().IsRegular(), nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

// internal/storage/paths.go
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// GenerationLayout names the dated directory of one snapshot generation.
const GenerationLayout = "2006-01-02"

// GenerationDir returns <root>/<YYYY-MM-DD> for the UTC date of modified.
// The directory is created if it does not exist.
func GenerationDir(root string, modified time.Time) (string, error) {
	return subDir(root, modified.UTC().Format(GenerationLayout))
}

// GetSnapshotPath returns the full path of a snapshot file inside its
// generation directory, creating the directory if needed.
func GetSnapshotPath(root, name string, modified time.Time) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid snapshot name: %q", name)
	}
	dir, err := GenerationDir(root, modified)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// subDir is an internal helper to create and validate storage paths.
func subDir(root string, parts ...string) (string, error) {
	dir := filepath.Join(root, filepath.Join(parts...))

	// --- SECURITY: Prevent Path Traversal ---
	cleanedDir := filepath.Clean(dir)
	cleanedRoot := filepath.Clean(root)
	if !strings.HasPrefix(cleanedDir, cleanedRoot) || cleanedDir == cleanedRoot {
		return "", fmt.Errorf("invalid path: potential path traversal")
	}

	if err := os.MkdirAll(cleanedDir, 0755); err != nil {
		return "", fmt.Errorf("could not create directory structure: %w", err)
	}
	return cleanedDir, nil
}

// Generation is one dated snapshot directory below the download root.
type Generation struct {
	Date  time.Time
	Path  string
	Files []string // snapshot file names, markers and partial downloads excluded
}

// bookkeepingSuffixes mark files that are not snapshots themselves.
var bookkeepingSuffixes = []string{".loaded", ".tmp", ".part"}

// ListGenerations returns the dated directories under root, newest first,
// each with the snapshot files it holds. Entries whose names are not dates
// are ignored. A missing root yields none.
func ListGenerations(root string) ([]Generation, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("could not list generations: %w", err)
	}

	var generations []Generation
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		date, err := time.Parse(GenerationLayout, entry.Name())
		if err != nil {
			continue
		}
		path := filepath.Join(root, entry.Name())
		files, err := snapshotFiles(path)
		if err != nil {
			return nil, err
		}
		generations = append(generations, Generation{Date: date, Path: path, Files: files})
	}

	sort.Slice(generations, func(i, j int) bool {
		return generations[i].Date.After(generations[j].Date)
	})
	return generations, nil
}

func snapshotFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("could not list generation %s: %w", dir, err)
	}
	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() || isBookkeeping(entry.Name()) {
			continue
		}
		files = append(files, entry.Name())
	}
	return files, nil
}

func isBookkeeping(name string) bool {
	for _, suffix := range bookkeepingSuffixes {
		if strings.HasSuffix(name, suffix) {
			return true
		}
	}
	return false
}

package extractor

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// markerSuffix names the completion marker kept next to a snapshot file.
const markerSuffix = ".loaded"

// basisPrefix starts the marker line naming the input a load was derived from.
const basisPrefix = "basis "

// MarkerPath returns the checkpoint marker location for a snapshot file.
func MarkerPath(snapshotPath string) string {
	return snapshotPath + markerSuffix
}

// Done reports whether the generation at snapshotPath was fully loaded before.
func Done(snapshotPath string) (bool, error) {
	return DoneFor(snapshotPath, "")
}

// DoneFor reports whether the generation at snapshotPath was fully loaded
// against basis. An empty basis accepts any marker.
func DoneFor(snapshotPath, basis string) (bool, error) {
	content, err := os.ReadFile(MarkerPath(snapshotPath))
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checkpoint %s: %w", snapshotPath, err)
	}
	if basis == "" {
		return true, nil
	}
	for _, line := range strings.Split(string(content), "\n") {
		if recorded, ok := strings.CutPrefix(line, basisPrefix); ok {
			return recorded == basis, nil
		}
	}
	return false, nil
}

// Reset removes the marker so the next Run repeats the full pass.
func Reset(snapshotPath string) error {
	if err := os.Remove(MarkerPath(snapshotPath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reset checkpoint %s: %w", snapshotPath, err)
	}
	return nil
}

// Run calls fn once for a generation that has not completed yet and commits
// the marker only if fn succeeds. A present marker skips fn entirely. An
// interrupted or failed run leaves no marker, so the next Run starts over.
func Run(snapshotPath string, fn func() error) (bool, error) {
	return RunFor(snapshotPath, "", fn)
}

// RunFor is Run for a load derived from other input, identified by basis.
// A marker committed against a different basis does not count as done.
func RunFor(snapshotPath, basis string, fn func() error) (bool, error) {
	done, err := DoneFor(snapshotPath, basis)
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}

	if err := fn(); err != nil {
		return true, err
	}

	return true, commit(snapshotPath, basis)
}

func commit(snapshotPath, basis string) error {
	marker := MarkerPath(snapshotPath)
	tmp := marker + ".tmp"
	content := time.Now().UTC().Format(time.RFC3339) + "\n"
	if basis != "" {
		content += basisPrefix + basis + "\n"
	}
	if err := os.WriteFile(tmp, []byte(content), 0644); err != nil {
		return fmt.Errorf("write checkpoint %s: %w", marker, err)
	}
	if err := os.Rename(tmp, marker); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("commit checkpoint %s: %w", marker, err)
	}
	return nil
}

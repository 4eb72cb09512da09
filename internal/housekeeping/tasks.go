// filepath: internal/housekeeping/tasks.go
package housekeeping

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"moviedb/internal/logging"
	"moviedb/internal/models"
	"moviedb/internal/storage"

	"github.com/dustin/go-humanize"
)

// Dependencies defines the required services for the housekeeping tasks.
type Dependencies struct {
	Generations GenerationStore
	Refresher   Refresher
}

// PruneGenerations removes old snapshot generations. The newest keep
// directories stay, and so does every directory holding one of the newest
// keep copies of a snapshot file: files are dated independently, so a
// file's current copy may sit in an older directory. A keep of 0 disables
// pruning.
func PruneGenerations(deps Dependencies, keep int) (*models.PruneReport, error) {
	report := &models.PruneReport{}
	if keep <= 0 {
		report.Message = "Pruning is disabled (keep_generations is 0)."
		return report, nil
	}

	generations, err := deps.Generations.ListGenerations()
	if err != nil {
		return nil, err
	}
	if len(generations) <= keep {
		report.Message = fmt.Sprintf("%d generations present, nothing to prune.", len(generations))
		return report, nil
	}

	for _, gen := range staleGenerations(generations, keep) {
		freed, err := deps.Generations.RemoveGeneration(gen)
		if err != nil {
			logging.Log.Warnf("Housekeeping: Failed to remove generation %s: %v", gen.Path, err)
			continue
		}
		logging.Log.Infof("Removed generation %s (%s).", gen.Date.Format(storage.GenerationLayout), humanize.Bytes(uint64(freed)))
		report.GenerationsRemoved++
		report.SpaceFreedBytes += freed
	}

	report.Message = fmt.Sprintf("Housekeeping complete. %d generations removed, freeing %s.",
		report.GenerationsRemoved, humanize.Bytes(uint64(report.SpaceFreedBytes)))
	return report, nil
}

// staleGenerations returns the generations that hold no file among the
// newest keep copies of its name. generations is sorted newest first.
func staleGenerations(generations []storage.Generation, keep int) []storage.Generation {
	copies := make(map[string]int)
	var stale []storage.Generation
	for i, gen := range generations {
		current := i < keep
		for _, name := range gen.Files {
			copies[name]++
			if copies[name] <= keep {
				current = true
			}
		}
		if !current {
			stale = append(stale, gen)
		}
	}
	return stale
}

// DiskGenerations is the GenerationStore below a download root.
type DiskGenerations struct {
	Root string
}

var _ GenerationStore = DiskGenerations{}

func (d DiskGenerations) ListGenerations() ([]storage.Generation, error) {
	return storage.ListGenerations(d.Root)
}

func (d DiskGenerations) RemoveGeneration(gen storage.Generation) (int64, error) {
	var size int64
	err := filepath.WalkDir(gen.Path, func(_ string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.Type().IsRegular() {
			info, err := entry.Info()
			if err != nil {
				return err
			}
			size += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if err := os.RemoveAll(gen.Path); err != nil {
		return 0, err
	}
	return size, nil
}

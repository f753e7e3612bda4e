/*
PURPOSE:
  Finds the images a benchmark run will iterate over.

REQUIREMENTS:
  User-specified:
  - Accept jpg/jpeg/png in any letter case.
  - A missing or empty directory ends the run early.

  Implementation-discovered:
  - Sorted output keeps leaderboard rows in the same order run over run.

ARCHITECTURE INTEGRATION:
  - Called by: internal/engine.Run

ERROR HANDLING:
  - Returns ErrNoInputData (wrapped) for a missing dir or no matches.
*/

package images

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ErrNoInputData means there is nothing to benchmark.
var ErrNoInputData = errors.New("no input data")

// Extensions accepted by Discover, lower case.
var Extensions = []string{".jpg", ".jpeg", ".png"}

// IsImage reports whether name carries one of Extensions.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Discover lists the image files directly inside dir.
func Discover(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot read image directory %s: %v", ErrNoInputData, dir, err)
	}

	var paths []string
	for _, entry := range entries {
		if entry.IsDir() || !IsImage(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}

	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: no images found in %s", ErrNoInputData, dir)
	}

	sort.Strings(paths)
	return paths, nil
}

package platform

import (
	"errors"
	"os"
	"path/filepath"
)

// ErrRootNotFound is returned by FindRoot when no marker is found up to the
// filesystem root.
var ErrRootNotFound = errors.New("vault root not found")

// rootMarkers identify a vault directory, in order of precedence.
var rootMarkers = []string{ConfigFile, ".tagvault", ".git"}

// FindRoot looks upwards from startDir for a vault root: a directory holding
// tagvault.yaml, a .tagvault directory or a .git directory. It returns the
// absolute path of the first match.
func FindRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		for _, marker := range rootMarkers {
			if exists(filepath.Join(dir, marker)) {
				return dir, nil
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrRootNotFound
		}
		dir = parent
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// FileName is the configuration file name looked up by Find.
const FileName = "console.yaml"

// ErrNotFound is returned by Find when no configuration file exists.
var ErrNotFound = errors.New("config: no configuration file found")

// SearchPaths returns the candidate configuration paths in lookup order:
// explicit (when set), $XDG_CONFIG_HOME/sclaw-console/console.yaml (or
// ~/.config when unset), then ./console.yaml.
func SearchPaths(explicit string) []string {
	if explicit != "" {
		return []string{explicit}
	}
	var paths []string
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "sclaw-console", FileName))
	}
	return append(paths, FileName)
}

// Find returns the first existing path from SearchPaths. An explicit path
// that does not exist is an error.
func Find(explicit string) (string, error) {
	for _, p := range SearchPaths(explicit) {
		_, err := os.Stat(p)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("config: stat %s: %w", p, err)
		}
	}
	if explicit != "" {
		return "", fmt.Errorf("%w: %s", ErrNotFound, explicit)
	}
	return "", ErrNotFound
}

package utils

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/begriff-lang/begriff/internal/config"
)

// ResolveIncludePath resolves a manifest include relative to the
// directory of the including manifest. Absolute paths pass through.
func ResolveIncludePath(baseDir, include string) string {
	if filepath.IsAbs(include) {
		return filepath.Clean(include)
	}
	return filepath.Join(baseDir, include)
}

// ManifestPath resolves a path argument to a manifest file.
// A directory resolves to the first recognized manifest filename
// inside it; a file path is returned as is.
func ManifestPath(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return path, nil
	}
	for _, name := range config.ManifestFileNames {
		candidate := filepath.Join(path, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no %s found in %s: %w", config.ManifestFileName, path, fs.ErrNotExist)
}

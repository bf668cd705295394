package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// DataDir returns the per-user directory holding umlizer state.
// Priority: $UMLIZER_HOME -> $XDG_CACHE_HOME/umlizer -> ~/.cache/umlizer (Unix) / %LOCALAPPDATA%\umlizer (Windows)
func DataDir() (string, error) {
	if home := os.Getenv("UMLIZER_HOME"); home != "" {
		return home, nil
	}

	if runtime.GOOS != "windows" {
		if xdgCache := os.Getenv("XDG_CACHE_HOME"); xdgCache != "" {
			return filepath.Join(xdgCache, "umlizer"), nil
		}
	}

	userHome, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}

	switch runtime.GOOS {
	case "windows":
		return filepath.Join(userHome, "AppData", "Local", "umlizer"), nil
	default:
		return filepath.Join(userHome, ".cache", "umlizer"), nil
	}
}

// DefaultCachePath returns the render cache database inside DataDir.
func DefaultCachePath() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

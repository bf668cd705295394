package util

import (
	"path/filepath"
	"strings"
)

// PathToURI returns the file:// URI of path, made absolute first.
func PathToURI(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "file://" + filepath.ToSlash(path)
	}
	slashed := filepath.ToSlash(abs)
	if !strings.HasPrefix(slashed, "/") {
		// Windows drive paths
		slashed = "/" + slashed
	}
	return "file://" + slashed
}

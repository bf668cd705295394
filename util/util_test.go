package util

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprintIsLengthPrefixed(t *testing.T) {
	assert.Equal(t, Fingerprint("a", "b"), Fingerprint("a", "b"))
	assert.NotEqual(t, Fingerprint("ab", "c"), Fingerprint("a", "bc"))
	assert.NotEqual(t, Fingerprint(), Fingerprint(""))
	assert.Len(t, ContentHash([]byte("x")), 64)
}

func TestFindGitRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	file := filepath.Join(nested, "x.py")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	got, ok := FindGitRoot(nested)
	require.True(t, ok)
	assert.Equal(t, root, got)

	got, ok = FindGitRoot(file)
	require.True(t, ok)
	assert.Equal(t, root, got)
}

func TestPathToURI(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix paths")
	}
	assert.Equal(t, "file:///tmp/out/classes.svg", PathToURI("/tmp/out/classes.svg"))

	wd, err := os.Getwd()
	require.NoError(t, err)
	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(wd, "x.svg")), PathToURI("x.svg"))
}

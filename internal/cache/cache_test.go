package cache

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTemp(t *testing.T) (*Cache, string) {
	t.Helper()
	dir := t.TempDir()
	c, err := Open(filepath.Join(dir, "state", FileName))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, dir
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("<svg/>"), 0o644))
}

func TestLookupHitAndMiss(t *testing.T) {
	ctx := context.Background()
	c, dir := openTemp(t)
	out := filepath.Join(dir, "classes.svg")

	hit, err := c.Lookup(ctx, out, "fp1")
	require.NoError(t, err)
	assert.False(t, hit, "empty cache")

	touch(t, out)
	require.NoError(t, c.Store(ctx, out, "fp1", "svg"))

	hit, err = c.Lookup(ctx, out, "fp1")
	require.NoError(t, err)
	assert.True(t, hit)

	hit, err = c.Lookup(ctx, out, "fp2")
	require.NoError(t, err)
	assert.False(t, hit, "fingerprint changed")
}

func TestLookupRequiresOutputFile(t *testing.T) {
	ctx := context.Background()
	c, dir := openTemp(t)
	out := filepath.Join(dir, "classes.svg")

	touch(t, out)
	require.NoError(t, c.Store(ctx, out, "fp", "svg"))
	require.NoError(t, os.Remove(out))

	hit, err := c.Lookup(ctx, out, "fp")
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestStoreOverwrites(t *testing.T) {
	ctx := context.Background()
	c, dir := openTemp(t)
	out := filepath.Join(dir, "classes.svg")
	touch(t, out)

	require.NoError(t, c.Store(ctx, out, "old", "svg"))
	require.NoError(t, c.Store(ctx, out, "new", "png"))

	entries, err := c.Entries(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "new", entries[0].Fingerprint)
	assert.Equal(t, "png", entries[0].Format)
}

func TestKeysAreAbsolute(t *testing.T) {
	ctx := context.Background()
	c, dir := openTemp(t)
	t.Chdir(dir)
	touch(t, "classes.svg")

	require.NoError(t, c.Store(ctx, "classes.svg", "fp", "svg"))
	hit, err := c.Lookup(ctx, filepath.Join(dir, "classes.svg"), "fp")
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestPersistsAcrossOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db := filepath.Join(dir, FileName)
	out := filepath.Join(dir, "classes.svg")
	touch(t, out)

	c, err := Open(db)
	require.NoError(t, err)
	require.NoError(t, c.Store(ctx, out, "fp", "svg"))
	require.NoError(t, c.Close())

	c, err = Open(db)
	require.NoError(t, err)
	defer c.Close()
	e, ok, err := c.Get(ctx, out)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "fp", e.Fingerprint)
	assert.False(t, e.RenderedAt.IsZero())
}

func TestInvalidateAndClear(t *testing.T) {
	ctx := context.Background()
	c, dir := openTemp(t)
	a := filepath.Join(dir, "a.svg")
	b := filepath.Join(dir, "b.svg")
	touch(t, a)
	touch(t, b)
	require.NoError(t, c.Store(ctx, a, "fa", "svg"))
	require.NoError(t, c.Store(ctx, b, "fb", "svg"))

	require.NoError(t, c.Invalidate(ctx, a))
	hit, err := c.Lookup(ctx, a, "fa")
	require.NoError(t, err)
	assert.False(t, hit)

	n, err := c.Clear(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	hit, err = c.Lookup(ctx, b, "fb")
	require.NoError(t, err)
	assert.False(t, hit)
}

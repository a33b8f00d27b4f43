package log

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexFile(t *testing.T) {
	dir := t.TempDir()

	_, err := newIndexFile(filepath.Join(dir, "bad.index"), 25)
	require.Error(t, err, "25 is not a multiple of entryWidth")

	idx, err := newIndexFile(filepath.Join(dir, "0.index"), entryWidth*3)
	require.NoError(t, err)
	require.Equal(t, uint64(0), idx.entries())

	entries := []struct {
		logOffset uint64
		size      uint64
	}{
		{0, 5},
		{5, 5},
		{10, 1},
	}
	for i, e := range entries {
		idx2, err := idx.write(e.logOffset, e.size)
		require.NoError(t, err)
		require.Equal(t, uint64(i), idx2)
	}
	require.Equal(t, uint64(3), idx.entries())

	for i, e := range entries {
		off, size, err := idx.read(uint64(i))
		require.NoError(t, err)
		require.Equal(t, e.logOffset, off)
		require.Equal(t, e.size, size)
	}

	// invariant: consecutive entries chain offset+size == next offset
	for i := 0; i < len(entries)-1; i++ {
		off, size, err := idx.read(uint64(i))
		require.NoError(t, err)
		nextOff, _, err := idx.read(uint64(i + 1))
		require.NoError(t, err)
		require.Equal(t, nextOff, off+size)
	}

	// index is full now
	_, err = idx.write(11, 1)
	require.ErrorIs(t, err, errIndexFull)

	_, _, err = idx.read(3)
	require.Error(t, err)

	require.NoError(t, idx.close())
}

func TestIndexFileValueTooLarge(t *testing.T) {
	dir := t.TempDir()
	idx, err := newIndexFile(filepath.Join(dir, "0.index"), entryWidth)
	require.NoError(t, err)
	defer idx.close()

	_, err = idx.write(10_000_000_000, 1)
	require.Error(t, err)
}

func TestIndexFileOnDiskLayout(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "0.index")
	idx, err := newIndexFile(path, entryWidth*2)
	require.NoError(t, err)

	_, err = idx.write(0, 5)
	require.NoError(t, err)
	_, err = idx.write(5, 5)
	require.NoError(t, err)
	require.NoError(t, idx.close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, "00000000000000000005"+"00000000050000000005", string(raw))
}

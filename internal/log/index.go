package log

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/tysonmote/gommap"
)

// Entries are fixed-width, position-addressable, and encoded as plain
// decimal ASCII rather than a binary pair: entry k always lives at bytes
// [k*entryWidth, (k+1)*entryWidth), self-describing on disk at the cost of
// density. Swapping to a binary (uint64, uint64) layout would be a strict
// win in space and speed, but it would break the on-disk format this
// package commits to.
const (
	offsetWidth = 10
	sizeWidth   = 10
	entryWidth  = offsetWidth + sizeWidth
)

// indexFile is a memory-mapped, fixed-capacity table of entryWidth-byte
// entries. Entry k maps a record's ordinal position within a segment to
// its (offset, size) in that segment's logFile.
type indexFile struct {
	mu sync.RWMutex

	file    *os.File
	mmap    gommap.MMap
	cursor  uint64
	maxSize uint64
}

// newIndexFile creates (or truncates) the file at path to exactly maxSize
// bytes and maps it read/write into memory. maxSize must be a positive
// multiple of entryWidth.
func newIndexFile(path string, maxSize uint64) (*indexFile, error) {
	if maxSize == 0 || maxSize%entryWidth != 0 {
		return nil, ErrInvalidConfig{Reason: fmt.Sprintf("index max size %d is not a positive multiple of %d", maxSize, entryWidth)}
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("indexfile: open %s: %w", path, err)
	}

	if err := f.Truncate(int64(maxSize)); err != nil {
		f.Close()
		return nil, fmt.Errorf("indexfile: truncate %s to %d bytes: %w", path, maxSize, err)
	}

	m, err := gommap.Map(f.Fd(), gommap.PROT_READ|gommap.PROT_WRITE, gommap.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("indexfile: mmap %s: %w", path, err)
	}

	return &indexFile{
		file:    f,
		mmap:    m,
		cursor:  0,
		maxSize: maxSize,
	}, nil
}

// write encodes logOffset and size as two 10-digit zero-padded decimal
// fields and appends the 20-byte entry at the cursor, returning the local
// entry index it was written at.
func (i *indexFile) write(logOffset, size uint64) (entryIndex uint64, err error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.cursor+entryWidth > i.maxSize {
		return 0, errIndexFull
	}
	if logOffset >= pow10(offsetWidth) {
		return 0, ErrValueTooLarge{Value: logOffset}
	}
	if size >= pow10(sizeWidth) {
		return 0, ErrValueTooLarge{Value: size}
	}

	entryIndex = i.cursor / entryWidth
	entry := fmt.Sprintf("%0*d%0*d", offsetWidth, logOffset, sizeWidth, size)
	copy(i.mmap[i.cursor:i.cursor+entryWidth], entry)
	i.cursor += entryWidth
	return entryIndex, nil
}

// read parses the entry at entryIndex into its (logOffset, size) pair.
func (i *indexFile) read(entryIndex uint64) (logOffset, size uint64, err error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	pos := entryIndex * entryWidth
	if pos+entryWidth > i.cursor {
		return 0, 0, ErrOutOfBounds{Position: entryIndex}
	}

	entry := i.mmap[pos : pos+entryWidth]
	logOffset, err = strconv.ParseUint(string(entry[:offsetWidth]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("indexfile: corrupt offset field at entry %d: %w", entryIndex, err)
	}
	size, err = strconv.ParseUint(string(entry[offsetWidth:entryWidth]), 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("indexfile: corrupt size field at entry %d: %w", entryIndex, err)
	}
	return logOffset, size, nil
}

// entries returns the number of valid entries written so far.
func (i *indexFile) entries() uint64 {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.cursor / entryWidth
}

func (i *indexFile) flush() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if err := i.mmap.Sync(gommap.MS_SYNC); err != nil {
		return fmt.Errorf("indexfile: sync %s: %w", i.file.Name(), err)
	}
	return nil
}

func (i *indexFile) close() error {
	if err := i.flush(); err != nil {
		return err
	}
	return i.file.Close()
}

func (i *indexFile) name() string {
	return i.file.Name()
}

func pow10(n int) uint64 {
	v := uint64(1)
	for ; n > 0; n-- {
		v *= 10
	}
	return v
}

package log

import (
	"fmt"
	"os"
	"sync"

	"github.com/tysonmote/gommap"
)

// logFile is a memory-mapped, fixed-capacity region holding raw record
// payloads concatenated in write order. Bytes in [0, cursor) are valid
// record data; bytes in [cursor, maxSize) are zero-initialized scratch
// reserved by the file's initial truncation.
type logFile struct {
	mu sync.RWMutex

	file    *os.File
	mmap    gommap.MMap
	cursor  uint64
	maxSize uint64
}

// newLogFile creates (or truncates) the file at path to exactly maxSize
// bytes and maps it read/write into memory.
func newLogFile(path string, maxSize uint64) (*logFile, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("logfile: open %s: %w", path, err)
	}

	if err := f.Truncate(int64(maxSize)); err != nil {
		f.Close()
		return nil, fmt.Errorf("logfile: truncate %s to %d bytes: %w", path, maxSize, err)
	}

	m, err := gommap.Map(f.Fd(), gommap.PROT_READ|gommap.PROT_WRITE, gommap.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("logfile: mmap %s: %w", path, err)
	}

	return &logFile{
		file:    f,
		mmap:    m,
		cursor:  0,
		maxSize: maxSize,
	}, nil
}

// write copies buf into the mapped region starting at the current cursor
// and returns the offset at which the write began. The cursor only
// advances once the copy has returned control, so a failed precondition
// check never leaves the cursor in an inconsistent state.
func (l *logFile) write(buf []byte) (offset uint64, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := uint64(len(buf))
	if l.cursor+size > l.maxSize {
		return 0, errSegmentFull
	}

	offset = l.cursor
	copy(l.mmap[offset:offset+size], buf)
	l.cursor += size
	return offset, nil
}

// read returns an immutable view into the mapped region of length size
// starting at offset. The returned slice aliases the mapping directly and
// remains valid for the lifetime of the logFile; callers must not mutate
// it.
func (l *logFile) read(offset, size uint64) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if offset+size > l.cursor {
		return nil, ErrOutOfBounds{Position: offset}
	}
	return l.mmap[offset : offset+size], nil
}

// flush requests that the mapped pages' dirty state be written back to the
// backing file. Best-effort: a failure is reported to the caller but does
// not corrupt in-memory state.
func (l *logFile) flush() error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if err := l.mmap.Sync(gommap.MS_SYNC); err != nil {
		return fmt.Errorf("logfile: sync %s: %w", l.file.Name(), err)
	}
	return nil
}

func (l *logFile) close() error {
	if err := l.flush(); err != nil {
		return err
	}
	return l.file.Close()
}

func (l *logFile) name() string {
	return l.file.Name()
}

package log

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/rs/zerolog"
)

// CommitLog owns an ordered, append-only sequence of segments. It routes
// appends to the current (last) segment, rotating to a fresh one when the
// active segment can't fit the next record, and routes reads to whichever
// segment contains the requested global position.
//
// Restoring state from segments already on disk is out of scope: a
// CommitLog always starts fresh with a single empty segment at
// Config.Segment.InitialOffset, and Dir is assumed empty or safe to
// overwrite.
type CommitLog struct {
	mu sync.RWMutex

	Dir    string
	Config Config

	activeSegment *segment
	segments      []*segment

	logger *zerolog.Logger
}

// NewCommitLog creates dir if absent and bootstraps a single initial
// segment at Config.Segment.InitialOffset.
func NewCommitLog(dir string, c Config) (*CommitLog, error) {
	if c.Segment.LogMaxBytes == 0 {
		c.Segment.LogMaxBytes = 1024
	}
	if c.Segment.IndexMaxBytes == 0 {
		c.Segment.IndexMaxBytes = 1020 // nearest multiple of entryWidth (20) below 1024
	}
	if c.Segment.LogMaxBytes > 9_999_999_999 {
		return nil, ErrInvalidConfig{Reason: fmt.Sprintf("log max bytes %d exceeds the 10-digit index field capacity", c.Segment.LogMaxBytes)}
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("commitlog: create dir %s: %w", dir, err)
	}

	logger := zerolog.New(os.Stderr).With().Str("service", "commitlog").Str("dir", dir).Logger()

	l := &CommitLog{
		Dir:    dir,
		Config: c,
		logger: &logger,
	}

	if err := l.newSegment(c.Segment.InitialOffset); err != nil {
		return nil, err
	}
	return l, nil
}

// Append writes buf to the active segment, rotating to a new segment
// first if the active one can't fit it, and returns the record's global
// position. From the caller's perspective rotation is invisible: either
// the write lands on the old segment, or a new one is created and the
// write lands there instead. A sealed segment is never written to again.
func (l *CommitLog) Append(buf []byte) (uint64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	size := uint64(len(buf))
	if size > l.Config.Segment.LogMaxBytes {
		return 0, ErrRecordTooLarge{Size: size, MaxSize: l.Config.Segment.LogMaxBytes}
	}

	active := l.activeSegment
	if !active.fits(size) {
		sealedBase, sealedCount := active.baseOffset, active.count()
		newBase := sealedBase + sealedCount
		l.logger.Debug().
			Uint64("sealed_base_offset", sealedBase).
			Uint64("new_base_offset", newBase).
			Msg("rotating segment")
		if err := l.newSegment(newBase); err != nil {
			return 0, err
		}
		active = l.activeSegment
	}

	local, err := active.write(buf)
	switch err {
	case nil:
		return active.baseOffset + local, nil
	case errSegmentFull, errIndexFull:
		// The segment was just created empty and still can't fit buf:
		// the record itself is too large for any segment.
		return 0, ErrRecordTooLarge{Size: size, MaxSize: l.Config.Segment.LogMaxBytes}
	default:
		return 0, err
	}
}

// Read returns the bytes of the record at the given global position.
func (l *CommitLog) Read(position uint64) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	s := l.findSegment(position)
	if s == nil {
		return nil, ErrOutOfBounds{Position: position}
	}
	return s.read(position - s.baseOffset)
}

// findSegment locates the segment whose [baseOffset, baseOffset+count)
// range contains position, via binary search over the (sorted,
// monotonically increasing) base offsets.
func (l *CommitLog) findSegment(position uint64) *segment {
	i := sort.Search(len(l.segments), func(i int) bool {
		return l.segments[i].baseOffset > position
	})
	if i == 0 {
		return nil
	}
	s := l.segments[i-1]
	if position >= s.baseOffset+s.count() {
		return nil
	}
	return s
}

// newSegment creates a new segment at baseOffset, appends it to the
// segment list, and makes it the active segment. It must be called with
// l.mu held.
func (l *CommitLog) newSegment(baseOffset uint64) error {
	s, err := newSegment(l.Dir, baseOffset, l.Config)
	if err != nil {
		return err
	}
	l.segments = append(l.segments, s)
	l.activeSegment = s
	return nil
}

// Flush requests that every segment's mapped pages be written back to
// their backing files. Best-effort: a failure is reported to the caller
// but the CommitLog otherwise remains usable.
func (l *CommitLog) Flush() error {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for _, s := range l.segments {
		if err := s.flush(); err != nil {
			l.logger.Warn().Err(err).Msg("flush failed")
			return err
		}
	}
	return nil
}

// Close flushes and releases every segment's mapped region and file
// handle. The CommitLog must not be used after Close returns.
func (l *CommitLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, s := range l.segments {
		if err := s.close(); err != nil {
			return err
		}
	}
	return nil
}

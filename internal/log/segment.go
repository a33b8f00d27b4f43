package log

import (
	"fmt"
	"path/filepath"
)

// baseOffsetWidth is the width of the zero-padded decimal base offset used
// to name a segment's files.
const baseOffsetWidth = 20

// segment pairs one logFile with one indexFile under a shared,
// base-offset-derived filename stem. It enforces capacity and translates
// between a segment-local entry index and raw (offset, size) pairs in the
// logFile.
type segment struct {
	log   *logFile
	index *indexFile

	// baseOffset is the global position of this segment's first record.
	baseOffset uint64
}

// newSegment opens (creating if absent) the {baseOffset:020}.log and
// {baseOffset:020}.index files under dir, sized per the Config's Segment
// limits.
func newSegment(dir string, baseOffset uint64, c Config) (*segment, error) {
	stem := fmt.Sprintf("%0*d", baseOffsetWidth, baseOffset)

	lf, err := newLogFile(filepath.Join(dir, stem+".log"), c.Segment.LogMaxBytes)
	if err != nil {
		return nil, fmt.Errorf("segment %d: %w", baseOffset, err)
	}

	idx, err := newIndexFile(filepath.Join(dir, stem+".index"), c.Segment.IndexMaxBytes)
	if err != nil {
		lf.close()
		return nil, fmt.Errorf("segment %d: %w", baseOffset, err)
	}

	return &segment{
		log:        lf,
		index:      idx,
		baseOffset: baseOffset,
	}, nil
}

// fits reports whether a record of recordSize bytes can be appended
// without exceeding either the logFile's or the indexFile's capacity. The
// commit log consults this before writing so it can rotate instead of
// hitting a full segment mid-write.
func (s *segment) fits(recordSize uint64) bool {
	return s.log.cursor+recordSize <= s.log.maxSize &&
		s.index.cursor+entryWidth <= s.index.maxSize
}

// write appends buf to the segment's logFile and records its (offset,
// size) as the next indexFile entry, in that order: a logFile write that
// succeeds followed by an indexFile write that fails leaves unreferenced
// trailing bytes in the logFile, which callers avoid entirely by checking
// fits first.
func (s *segment) write(buf []byte) (localEntryIndex uint64, err error) {
	if !s.fits(uint64(len(buf))) {
		return 0, errSegmentFull
	}

	logOffset, err := s.log.write(buf)
	if err != nil {
		return 0, err
	}

	entryIndex, err := s.index.write(logOffset, uint64(len(buf)))
	if err != nil {
		return 0, err
	}
	return entryIndex, nil
}

// read resolves a segment-local entry index to the record bytes it names.
func (s *segment) read(localEntryIndex uint64) ([]byte, error) {
	logOffset, size, err := s.index.read(localEntryIndex)
	if err != nil {
		return nil, err
	}
	return s.log.read(logOffset, size)
}

// count returns the number of records stored in this segment.
func (s *segment) count() uint64 {
	return s.index.entries()
}

func (s *segment) flush() error {
	if err := s.log.flush(); err != nil {
		return err
	}
	return s.index.flush()
}

func (s *segment) close() error {
	if err := s.log.close(); err != nil {
		return err
	}
	if err := s.index.close(); err != nil {
		return err
	}
	if err := s.log.mmap.UnsafeUnmap(); err != nil {
		return fmt.Errorf("segment %d: unmap log: %w", s.baseOffset, err)
	}
	if err := s.index.mmap.UnsafeUnmap(); err != nil {
		return fmt.Errorf("segment %d: unmap index: %w", s.baseOffset, err)
	}
	return nil
}

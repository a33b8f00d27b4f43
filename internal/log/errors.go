package log

import "fmt"

// ErrOutOfBounds is returned when a caller asks to read a position that was
// never written, or that has fallen past the end of a segment's index.
type ErrOutOfBounds struct {
	Position uint64
}

func (e ErrOutOfBounds) Error() string {
	return fmt.Sprintf("position %d is out of bounds", e.Position)
}

// ErrRecordTooLarge is returned when a record can never fit any segment
// because it exceeds the configured LogMaxBytes.
type ErrRecordTooLarge struct {
	Size    uint64
	MaxSize uint64
}

func (e ErrRecordTooLarge) Error() string {
	return fmt.Sprintf("record of %d bytes exceeds segment log capacity of %d bytes", e.Size, e.MaxSize)
}

// ErrInvalidConfig is returned when a Config's sizes can't back a valid
// segment: non-positive sizes, or an index size that isn't a multiple of
// entryWidth.
type ErrInvalidConfig struct {
	Reason string
}

func (e ErrInvalidConfig) Error() string {
	return fmt.Sprintf("invalid config: %s", e.Reason)
}

// ErrValueTooLarge is returned when an offset or size can't be represented
// in the index's 10-digit decimal fields (i.e. the value is >= 10^10).
type ErrValueTooLarge struct {
	Value uint64
}

func (e ErrValueTooLarge) Error() string {
	return fmt.Sprintf("value %d does not fit in %d decimal digits", e.Value, offsetWidth)
}

// errSegmentFull and errIndexFull are internal sentinels: a segment or
// commit log caller never sees these directly. Append avoids them by
// checking fits and rotating before it writes, and reports
// ErrRecordTooLarge if one still comes back from the segment it wrote to.
var (
	errSegmentFull = fmt.Errorf("segment: log file is full")
	errIndexFull   = fmt.Errorf("segment: index file is full")
)

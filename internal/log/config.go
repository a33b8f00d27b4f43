package log

// Config configures a CommitLog and the segments it creates.
type Config struct {
	Segment struct {
		// LogMaxBytes is the fixed capacity of each segment's LogFile.
		LogMaxBytes uint64
		// IndexMaxBytes is the fixed capacity of each segment's IndexFile.
		// Must be a positive multiple of entryWidth (20).
		IndexMaxBytes uint64
		// InitialOffset is the base offset of the first segment created
		// by NewCommitLog.
		InitialOffset uint64
	}
}

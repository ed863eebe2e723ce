package journal

import "time"

// WriterConfig holds batch writer settings shared by both writers.
type WriterConfig struct {
	BatchSize     int           // Rows per insert batch
	FlushInterval time.Duration // Max time a row waits before flushing
}

// DefaultWriterConfig returns default settings.
func DefaultWriterConfig() WriterConfig {
	return WriterConfig{
		BatchSize:     500,
		FlushInterval: 1 * time.Second,
	}
}

// WriterMetrics are cumulative writer counters.
type WriterMetrics struct {
	Inserts   int64 // Rows inserted
	Conflicts int64 // Rows skipped as duplicates
	Flushes   int64 // Flush operations
	Errors    int64 // Failed batch inserts
}

package convert

import (
	"context"
	"io"

	"audioforge/internal/domain/job"
	"audioforge/internal/domain/transcode"
)

// JobStore is the single serialization point for job state. Update applies
// its mutator atomically; the mutator may return an error to veto the
// write.
type JobStore interface {
	Create(rec job.Record) error
	Get(uploadID string) (job.Record, bool)
	GetByConversionID(conversionID string) (job.Record, bool)
	Update(uploadID string, fn func(*job.Record) error) (job.Record, error)
}

// FileStore persists uploaded bytes and locates conversion outputs.
type FileStore interface {
	SaveUpload(storedName string, r io.Reader) (string, int64, error)
	Remove(path string) error
	OutputPath(conversionID, outputFilename string) string
	FileExists(path string) bool
}

// Engine runs one transcode per Start call and delivers its event stream.
// The stream carries zero or more progress events and exactly one terminal
// event, after which it is closed.
type Engine interface {
	Start(ctx context.Context, inputPath, outputPath string, spec transcode.Spec) <-chan transcode.Event
}

// Archiver copies completed outputs to long-term storage.
type Archiver interface {
	Upload(ctx context.Context, localPath, key string) error
}

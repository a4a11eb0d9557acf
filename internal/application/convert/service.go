package convert

import (
	"context"
	"errors"
	"io"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"audioforge/internal/domain/job"
	"audioforge/internal/domain/transcode"
)

const (
	// DefaultMaxUploadBytes caps incoming files at 100 MiB.
	DefaultMaxUploadBytes = 100 << 20
	// DefaultConvertTimeout bounds a single engine invocation.
	DefaultConvertTimeout = 30 * time.Minute
)

// Progress milestones. The engine's own percentage is folded into the
// 50-95 band; 100 is reserved for completion.
const (
	progressDispatched    = 20
	progressEngineStarted = 30
	progressEngineFloor   = 50
	progressEngineScale   = 0.4
	progressEngineCeiling = 95
)

// errStaleAttempt vetoes background writes once a record no longer belongs
// to the attempt that produced them.
var errStaleAttempt = errors.New("stale conversion attempt")

// Service orchestrates the upload-through-conversion lifecycle: it
// registers uploads, dispatches transcodes as background work, folds
// engine events into job state, and gates result access.
type Service struct {
	jobs    JobStore
	files   FileStore
	engine  Engine
	archive Archiver // optional
	logger  *log.Logger

	// MaxUploadBytes and ConvertTimeout may be adjusted before the service
	// starts taking requests.
	MaxUploadBytes int64
	ConvertTimeout time.Duration
}

// NewService creates the conversion orchestrator. archive may be nil.
func NewService(jobs JobStore, files FileStore, engine Engine, archive Archiver, logger *log.Logger) *Service {
	return &Service{
		jobs:           jobs,
		files:          files,
		engine:         engine,
		archive:        archive,
		logger:         logger,
		MaxUploadBytes: DefaultMaxUploadBytes,
		ConvertTimeout: DefaultConvertTimeout,
	}
}

// Upload validates and persists an incoming file and registers its job
// record in the uploaded state.
func (s *Service) Upload(userID, originalName, mimeType string, declaredSize int64, r io.Reader) (job.Record, error) {
	if !job.AcceptUpload(originalName, mimeType) {
		return job.Record{}, job.ErrUnsupportedType
	}
	if declaredSize > s.MaxUploadBytes {
		return job.Record{}, job.ErrPayloadTooLarge
	}

	uploadID := uuid.NewString()
	storedPath, size, err := s.files.SaveUpload(uploadID+"-"+originalName, r)
	if err != nil {
		return job.Record{}, err
	}
	if size > s.MaxUploadBytes {
		_ = s.files.Remove(storedPath)
		return job.Record{}, job.ErrPayloadTooLarge
	}

	if userID == "" {
		userID = "anonymous"
	}

	rec := job.Record{
		UploadID:     uploadID,
		OriginalName: originalName,
		StoredPath:   storedPath,
		SizeBytes:    size,
		MimeType:     mimeType,
		UserID:       userID,
		UploadedAt:   time.Now(),
		State:        job.StateUploaded,
	}
	if err := s.jobs.Create(rec); err != nil {
		_ = s.files.Remove(storedPath)
		return job.Record{}, err
	}

	s.logger.Printf("upload accepted: %s (%s, %d bytes)", uploadID, originalName, size)
	return rec, nil
}

// StartConversion transitions a job to processing and dispatches the
// transcode in the background. It returns as soon as the record is
// transitioned; the caller observes the outcome through polling. A job
// with a conversion already in flight is rejected.
func (s *Service) StartConversion(uploadID string, p job.Params) (job.Record, error) {
	p = normalizeParams(p)
	conversionID := uuid.NewString()
	now := time.Now()

	updated, err := s.jobs.Update(uploadID, func(rec *job.Record) error {
		if rec.State == job.StateProcessing {
			return job.ErrConversionInFlight
		}
		rec.State = job.StateProcessing
		rec.ConversionID = conversionID
		rec.Params = p
		rec.OutputFilename = job.OutputFilename(rec.OriginalName, p.Format, p.Trim)
		rec.OutputPath = s.files.OutputPath(conversionID, rec.OutputFilename)
		rec.Progress = progressDispatched
		rec.StartedAt = now
		rec.CompletedAt = time.Time{}
		rec.Error = ""
		return nil
	})
	if err != nil {
		return job.Record{}, err
	}

	s.logger.Printf("conversion dispatched: %s -> %s (%s)", uploadID, conversionID, p.Format)
	go s.runConversion(updated)
	return updated, nil
}

// Status resolves a conversion id to its job record.
func (s *Service) Status(conversionID string) (job.Record, error) {
	rec, ok := s.jobs.GetByConversionID(conversionID)
	if !ok {
		return job.Record{}, job.ErrNotFound
	}
	return rec, nil
}

// Result returns the record for a completed conversion whose output file
// is present on storage. Incomplete conversions are rejected; a completed
// record whose file vanished reports not found.
func (s *Service) Result(conversionID string) (job.Record, error) {
	rec, err := s.Status(conversionID)
	if err != nil {
		return job.Record{}, err
	}
	if rec.State != job.StateCompleted {
		return job.Record{}, job.ErrNotReady
	}
	if !s.files.FileExists(rec.OutputPath) {
		return job.Record{}, job.ErrOutputMissing
	}
	return rec, nil
}

func (s *Service) runConversion(rec job.Record) {
	ctx := context.Background()
	if s.ConvertTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.ConvertTimeout)
		defer cancel()
	}

	spec := transcode.Resolve(rec.Params)
	events := s.engine.Start(ctx, rec.StoredPath, rec.OutputPath, spec)

	for event := range events {
		switch event.Kind {
		case transcode.EventStarted:
			s.logger.Printf("transcode started: %s: %s", rec.ConversionID, event.Command)
			s.applyProgress(rec, progressEngineStarted)
		case transcode.EventProgress:
			s.applyProgress(rec, scaleEnginePercent(event.Percent))
		case transcode.EventCompleted:
			s.markCompleted(rec)
		case transcode.EventFailed:
			s.markFailed(rec, event.Message)
		}
	}
}

// applyProgress raises a job's progress, never lowering it. Writes from a
// superseded or finished attempt are vetoed inside the store update.
func (s *Service) applyProgress(rec job.Record, value int) {
	_, _ = s.jobs.Update(rec.UploadID, func(current *job.Record) error {
		if current.ConversionID != rec.ConversionID || current.State != job.StateProcessing {
			return errStaleAttempt
		}
		if value > current.Progress {
			current.Progress = value
		}
		return nil
	})
}

func (s *Service) markCompleted(rec job.Record) {
	updated, err := s.jobs.Update(rec.UploadID, func(current *job.Record) error {
		if current.ConversionID != rec.ConversionID || current.State != job.StateProcessing {
			return errStaleAttempt
		}
		current.State = job.StateCompleted
		current.Progress = 100
		current.CompletedAt = time.Now()
		return nil
	})
	if err != nil {
		return
	}

	s.logger.Printf("conversion completed: %s -> %s", updated.ConversionID, updated.OutputPath)

	if s.archive != nil {
		key := updated.ConversionID + "-" + updated.OutputFilename
		if err := s.archive.Upload(context.Background(), updated.OutputPath, key); err != nil {
			s.logger.Printf("result archive failed: %s: %v", updated.ConversionID, err)
		}
	}
}

func (s *Service) markFailed(rec job.Record, message string) {
	_, err := s.jobs.Update(rec.UploadID, func(current *job.Record) error {
		if current.ConversionID != rec.ConversionID || current.State != job.StateProcessing {
			return errStaleAttempt
		}
		current.State = job.StateFailed
		current.Error = message
		current.CompletedAt = time.Now()
		return nil
	})
	if err != nil {
		return
	}
	s.logger.Printf("conversion failed: %s: %s", rec.ConversionID, message)
}

// scaleEnginePercent folds the engine's untrusted percentage into the band
// reserved for "engine is working".
func scaleEnginePercent(percent float64) int {
	scaled := progressEngineFloor + percent*progressEngineScale
	if scaled > progressEngineCeiling {
		scaled = progressEngineCeiling
	}
	return int(math.Round(scaled))
}

func normalizeParams(p job.Params) job.Params {
	if p.Format == "" {
		p.Format = "mp3"
	}
	if p.Quality == "" {
		p.Quality = "high"
	}
	if !p.Trim || p.Start == nil {
		// A trim window needs at least a start; end-only requests trim
		// nothing.
		p.Start = nil
		p.End = nil
	}
	return p
}

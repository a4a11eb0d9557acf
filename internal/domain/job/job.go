package job

import (
	"errors"
	"path"
	"strings"
	"time"
)

// State describes where a job is in its upload-through-conversion lifecycle.
type State string

const (
	StateUploaded   State = "uploaded"
	StateProcessing State = "processing"
	StateCompleted  State = "completed"
	StateFailed     State = "failed"
)

var (
	ErrNotFound           = errors.New("job not found")
	ErrDuplicateKey       = errors.New("job already exists")
	ErrUnsupportedType    = errors.New("only audio and video files are allowed")
	ErrPayloadTooLarge    = errors.New("file exceeds maximum upload size")
	ErrConversionInFlight = errors.New("conversion already in progress")
	ErrNotReady           = errors.New("conversion not completed")
	ErrOutputMissing      = errors.New("converted file not found")
)

// Params are the client-requested conversion settings, fixed once
// processing begins.
type Params struct {
	Format  string
	Quality string
	Bitrate int
	Trim    bool
	Start   *float64
	End     *float64
}

// Record is the mutable state of one uploaded file and its conversion.
type Record struct {
	UploadID     string
	OriginalName string
	StoredPath   string
	SizeBytes    int64
	MimeType     string
	UserID       string
	UploadedAt   time.Time

	State        State
	ConversionID string
	Params       Params

	OutputPath     string
	OutputFilename string
	Progress       int

	StartedAt   time.Time
	CompletedAt time.Time
	Error       string
}

var allowedUploadExts = map[string]bool{
	".mp3":  true,
	".wav":  true,
	".flac": true,
	".m4a":  true,
	".ogg":  true,
	".wma":  true,
	".mp4":  true,
	".avi":  true,
	".mov":  true,
	".mkv":  true,
	".webm": true,
}

// AcceptUpload reports whether a declared MIME type or filename extension
// qualifies a file for upload. The checks are a union: either passing is
// enough.
func AcceptUpload(filename, mimeType string) bool {
	lower := strings.ToLower(mimeType)
	if strings.HasPrefix(lower, "audio/") || strings.HasPrefix(lower, "video/") {
		return true
	}
	return allowedUploadExts[strings.ToLower(path.Ext(filename))]
}

// OutputFilename derives the client-visible result name from the original
// name's stem, the target format, and whether trimming was requested.
func OutputFilename(originalName, format string, trimmed bool) string {
	stem := strings.TrimSuffix(path.Base(originalName), path.Ext(originalName))
	if stem == "" {
		stem = "output"
	}
	if trimmed {
		return stem + "_trimmed." + format
	}
	return stem + "." + format
}

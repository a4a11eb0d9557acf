package transcode

import "audioforge/internal/domain/job"

// Spec carries the fully resolved engine parameters for one invocation.
type Spec struct {
	Format     string
	Codec      string
	Quality    int // codec quality scalar, -1 when unused
	BitrateK   int // kbit/s, 0 when unset
	Channels   int // 0 when unset
	SampleRate int // 0 when unset

	SeekSeconds     float64
	DurationSeconds float64
	HasSeek         bool
	HasDuration     bool
}

// EventKind identifies one of the four signals an engine invocation emits.
type EventKind string

const (
	EventStarted   EventKind = "started"
	EventProgress  EventKind = "progress"
	EventCompleted EventKind = "completed"
	EventFailed    EventKind = "failed"
)

// Event is one signal from a running engine invocation. Completed and
// Failed are terminal and mutually exclusive.
type Event struct {
	Kind    EventKind
	Command string  // started
	Percent float64 // progress, engine-reported, not trusted to be monotonic
	Message string  // failed
}

// Quality scalars for libmp3lame, matching the original tier mapping.
const (
	mp3QualityHigh   = 0
	mp3QualityMedium = 4
	mp3QualityLow    = 9
)

// Resolve maps conversion request parameters onto concrete engine settings.
// Lossless and raw formats ignore quality tier and bitrate; only mp3 honors
// an explicit bitrate override. Unknown formats are handed to the muxer
// without codec selection.
func Resolve(p job.Params) Spec {
	spec := Spec{Format: p.Format, Quality: -1}

	switch p.Format {
	case "mp3":
		spec.Codec = "libmp3lame"
		switch p.Quality {
		case "medium":
			spec.Quality = mp3QualityMedium
		case "low":
			spec.Quality = mp3QualityLow
		default:
			spec.Quality = mp3QualityHigh
		}
		spec.BitrateK = p.Bitrate
	case "wav":
		spec.Codec = "pcm_s16le"
		spec.Channels = 2
		spec.SampleRate = 44100
	case "flac":
		spec.Codec = "flac"
	case "m4a":
		spec.Codec = "aac"
	}

	if p.Trim && p.Start != nil {
		spec.HasSeek = true
		spec.SeekSeconds = *p.Start
		if p.End != nil {
			spec.HasDuration = true
			spec.DurationSeconds = *p.End - *p.Start
		}
	}

	return spec
}

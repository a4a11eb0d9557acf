package ffmpeg

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"audioforge/internal/domain/transcode"
)

// Runner launches ffmpeg invocations. Each Start call is one engine
// invocation with its own event stream; invocation state never outlives
// the stream.
type Runner struct {
	FFmpegBin  string
	FFprobeBin string
}

// NewRunner creates an adapter using the ffmpeg/ffprobe binaries on PATH.
func NewRunner() *Runner {
	return &Runner{FFmpegBin: "ffmpeg", FFprobeBin: "ffprobe"}
}

// Start runs one transcode and returns its event stream. Exactly one
// terminal event (completed or failed) is delivered, then the channel is
// closed.
func (r *Runner) Start(ctx context.Context, inputPath, outputPath string, spec transcode.Spec) <-chan transcode.Event {
	events := make(chan transcode.Event, 16)
	go func() {
		defer close(events)
		r.run(ctx, inputPath, outputPath, spec, events)
	}()
	return events
}

func (r *Runner) run(ctx context.Context, inputPath, outputPath string, spec transcode.Spec, events chan<- transcode.Event) {
	totalUs := r.totalMicros(ctx, inputPath, spec)

	args := BuildArgs(inputPath, outputPath, spec)
	cmd := exec.CommandContext(ctx, r.FFmpegBin, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		events <- transcode.Event{Kind: transcode.EventFailed, Message: err.Error()}
		return
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		events <- transcode.Event{Kind: transcode.EventFailed, Message: err.Error()}
		return
	}

	events <- transcode.Event{
		Kind:    transcode.EventStarted,
		Command: r.FFmpegBin + " " + strings.Join(args, " "),
	}

	scanner := bufio.NewScanner(stdout)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		// ffmpeg reports microseconds under both keys.
		if parts[0] != "out_time_us" && parts[0] != "out_time_ms" {
			continue
		}
		us, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || totalUs <= 0 {
			continue
		}
		percent := float64(us) / float64(totalUs) * 100
		if percent > 100 {
			percent = 100
		}
		events <- transcode.Event{Kind: transcode.EventProgress, Percent: percent}
	}

	if err := cmd.Wait(); err != nil {
		message := err.Error()
		if detail := strings.TrimSpace(stderr.String()); detail != "" {
			message = fmt.Sprintf("%v: %s", err, tail(detail, 512))
		}
		events <- transcode.Event{Kind: transcode.EventFailed, Message: message}
		return
	}

	events <- transcode.Event{Kind: transcode.EventCompleted}
}

// totalMicros estimates the output duration used to turn ffmpeg's
// out_time counters into a percentage. A trim window shortens it; an
// unknown duration disables progress events.
func (r *Runner) totalMicros(ctx context.Context, inputPath string, spec transcode.Spec) int64 {
	if spec.HasDuration {
		return int64(spec.DurationSeconds * 1e6)
	}

	seconds, err := r.probeDuration(ctx, inputPath)
	if err != nil {
		return 0
	}
	if spec.HasSeek {
		seconds -= spec.SeekSeconds
	}
	if seconds <= 0 {
		return 0
	}
	return int64(seconds * 1e6)
}

func (r *Runner) probeDuration(ctx context.Context, inputPath string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=nokey=1:noprint_wrappers=1",
		inputPath,
	}
	cmd := exec.CommandContext(ctx, r.FFprobeBin, args...)
	out, err := cmd.Output()
	if err != nil {
		return 0, err
	}
	value := strings.TrimSpace(string(out))
	if value == "" {
		return 0, fmt.Errorf("duration missing")
	}
	return strconv.ParseFloat(value, 64)
}

// BuildArgs translates a resolved transcode spec into the ffmpeg argument
// list. The seek is placed before -i so the engine seeks before decoding;
// video streams are dropped.
func BuildArgs(inputPath, outputPath string, spec transcode.Spec) []string {
	args := []string{"-y"}
	if spec.HasSeek {
		args = append(args, "-ss", formatSeconds(spec.SeekSeconds))
	}
	args = append(args, "-i", inputPath)
	if spec.HasDuration {
		args = append(args, "-t", formatSeconds(spec.DurationSeconds))
	}
	if spec.Codec != "" {
		args = append(args, "-c:a", spec.Codec)
	}
	if spec.Quality >= 0 {
		args = append(args, "-q:a", strconv.Itoa(spec.Quality))
	}
	if spec.BitrateK > 0 {
		args = append(args, "-b:a", fmt.Sprintf("%dk", spec.BitrateK))
	}
	if spec.Channels > 0 {
		args = append(args, "-ac", strconv.Itoa(spec.Channels))
	}
	if spec.SampleRate > 0 {
		args = append(args, "-ar", strconv.Itoa(spec.SampleRate))
	}
	args = append(args,
		"-vn",
		"-f", muxerName(spec.Format),
		"-progress", "pipe:1",
		"-nostats",
		outputPath,
	)
	return args
}

func muxerName(format string) string {
	// m4a is an extension, not a muxer.
	if format == "m4a" {
		return "ipod"
	}
	return format
}

func formatSeconds(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func tail(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[len(s)-max:]
}

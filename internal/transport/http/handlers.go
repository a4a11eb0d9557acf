package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"audioforge/internal/domain/job"
)

type converterUseCases interface {
	Upload(userID, originalName, mimeType string, declaredSize int64, r io.Reader) (job.Record, error)
	StartConversion(uploadID string, p job.Params) (job.Record, error)
	Status(conversionID string) (job.Record, error)
	Result(conversionID string) (job.Record, error)
}

type Handler struct {
	converter      converterUseCases
	maxUploadBytes int64
}

// NewHandler wires HTTP handlers with the conversion use cases.
func NewHandler(converter converterUseCases, maxUploadBytes int64) *Handler {
	return &Handler{converter: converter, maxUploadBytes: maxUploadBytes}
}

// Upload handles POST /upload.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	// Slack for the multipart framing around the file itself.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes+(1<<20))

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	rec, err := h.converter.Upload(
		r.FormValue("userId"),
		header.Filename,
		header.Header.Get("Content-Type"),
		header.Size,
		file,
	)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrUnsupportedType):
			writeError(w, http.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, job.ErrPayloadTooLarge):
			writeError(w, http.StatusRequestEntityTooLarge, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Upload failed")
		}
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"fileId":       rec.UploadID,
		"message":      "File uploaded successfully",
		"originalName": rec.OriginalName,
		"size":         rec.SizeBytes,
	})
}

type convertRequest struct {
	Format    string   `json:"format"`
	Quality   string   `json:"quality"`
	Bitrate   int      `json:"bitrate"`
	StartTime *float64 `json:"startTime"`
	EndTime   *float64 `json:"endTime"`
	Trim      bool     `json:"trim"`
}

// Convert handles POST /convert/{fileId}.
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}

	params := job.Params{
		Format:  req.Format,
		Quality: req.Quality,
		Bitrate: req.Bitrate,
		Trim:    req.Trim,
	}
	if req.Trim {
		params.Start = req.StartTime
		params.End = req.EndTime
	}

	rec, err := h.converter.StartConversion(mux.Vars(r)["fileId"], params)
	if err != nil {
		switch {
		case errors.Is(err, job.ErrNotFound):
			writeError(w, http.StatusNotFound, "File not found")
		case errors.Is(err, job.ErrConversionInFlight):
			writeError(w, http.StatusConflict, err.Error())
		default:
			writeError(w, http.StatusInternalServerError, "Conversion failed")
		}
		return
	}

	message := "Conversion started"
	if rec.Params.Trim {
		message = "Audio trimming started"
	}

	resp := map[string]interface{}{
		"conversionId": rec.ConversionID,
		"message":      message,
		"format":       rec.Params.Format,
		"quality":      rec.Params.Quality,
		"trim":         rec.Params.Trim,
	}
	if rec.Params.Start != nil {
		resp["startTime"] = *rec.Params.Start
	}
	if rec.Params.End != nil {
		resp["endTime"] = *rec.Params.End
	}
	writeJSON(w, http.StatusOK, resp)
}

// Status handles GET /status/{conversionId}.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	rec, err := h.converter.Status(mux.Vars(r)["conversionId"])
	if err != nil {
		writeError(w, http.StatusNotFound, "Conversion job not found")
		return
	}

	// Records created before progress tracking report full progress.
	progress := rec.Progress
	if progress == 0 {
		progress = 100
	}

	resp := map[string]interface{}{
		"conversionId":   rec.ConversionID,
		"status":         string(rec.State),
		"progress":       progress,
		"originalName":   rec.OriginalName,
		"outputFilename": rec.OutputFilename,
		"format":         rec.Params.Format,
	}
	if !rec.StartedAt.IsZero() {
		resp["startedAt"] = rec.StartedAt.Format(time.RFC3339)
	}
	if !rec.CompletedAt.IsZero() {
		resp["completedAt"] = rec.CompletedAt.Format(time.RFC3339)
	}
	if rec.Error != "" {
		resp["error"] = rec.Error
	}
	writeJSON(w, http.StatusOK, resp)
}

// Download handles GET /download/{conversionId}.
func (h *Handler) Download(w http.ResponseWriter, r *http.Request) {
	rec, err := h.converter.Result(mux.Vars(r)["conversionId"])
	if err != nil {
		switch {
		case errors.Is(err, job.ErrNotReady):
			writeError(w, http.StatusBadRequest, "Conversion not completed")
		case errors.Is(err, job.ErrOutputMissing):
			writeError(w, http.StatusNotFound, "Converted file not found")
		default:
			writeError(w, http.StatusNotFound, "Conversion job not found")
		}
		return
	}

	streamAttachment(w, rec.OutputPath, rec.OutputFilename)
}

// Health handles GET /health.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "converter",
	})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

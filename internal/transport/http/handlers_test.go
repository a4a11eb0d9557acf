package http

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audioforge/internal/domain/job"
)

type stubConverter struct {
	uploadRec job.Record
	uploadErr error

	convertRec job.Record
	convertErr error

	statusRec job.Record
	statusErr error

	resultRec job.Record
	resultErr error

	gotUploadID string
	gotParams   job.Params
	gotName     string
	gotMime     string
}

func (s *stubConverter) Upload(userID, originalName, mimeType string, declaredSize int64, r io.Reader) (job.Record, error) {
	s.gotName = originalName
	s.gotMime = mimeType
	if s.uploadErr != nil {
		return job.Record{}, s.uploadErr
	}
	_, _ = io.Copy(io.Discard, r)
	return s.uploadRec, nil
}

func (s *stubConverter) StartConversion(uploadID string, p job.Params) (job.Record, error) {
	s.gotUploadID = uploadID
	s.gotParams = p
	return s.convertRec, s.convertErr
}

func (s *stubConverter) Status(conversionID string) (job.Record, error) {
	return s.statusRec, s.statusErr
}

func (s *stubConverter) Result(conversionID string) (job.Record, error) {
	return s.resultRec, s.resultErr
}

func newTestRouter(stub *stubConverter) http.Handler {
	return NewRouter(NewHandler(stub, 100<<20))
}

func multipartUpload(t *testing.T, filename, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	if err != nil {
		t.Fatalf("create part failed: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("write part failed: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer failed: %v", err)
	}
	return body, writer.FormDataContentType()
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(res.Body.Bytes(), &out); err != nil {
		t.Fatalf("invalid JSON response: %v: %s", err, res.Body.String())
	}
	return out
}

func TestUpload_Success(t *testing.T) {
	stub := &stubConverter{uploadRec: job.Record{
		UploadID:     "u1",
		OriginalName: "song.wav",
		SizeBytes:    9,
		State:        job.StateUploaded,
	}}
	router := newTestRouter(stub)

	body, contentType := multipartUpload(t, "song.wav", "audio/wav", "audiodata")
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", res.Code, res.Body.String())
	}
	out := decodeBody(t, res)
	if out["fileId"] != "u1" || out["originalName"] != "song.wav" {
		t.Fatalf("unexpected response: %v", out)
	}
	if stub.gotName != "song.wav" || stub.gotMime != "audio/wav" {
		t.Fatalf("upload metadata not forwarded: %q %q", stub.gotName, stub.gotMime)
	}
}

func TestUpload_MissingFile(t *testing.T) {
	router := newTestRouter(&stubConverter{})

	req := httptest.NewRequest("POST", "/upload", strings.NewReader("not multipart"))
	req.Header.Set("Content-Type", "multipart/form-data; boundary=x")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestUpload_UnsupportedType(t *testing.T) {
	stub := &stubConverter{uploadErr: job.ErrUnsupportedType}
	router := newTestRouter(stub)

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", "text")
	req := httptest.NewRequest("POST", "/upload", body)
	req.Header.Set("Content-Type", contentType)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415, got %d", res.Code)
	}
}

func TestConvert_ForwardsTrimParams(t *testing.T) {
	stub := &stubConverter{convertRec: job.Record{
		ConversionID: "c1",
		Params: job.Params{
			Format: "mp3", Quality: "high", Trim: true,
			Start: floatPtr(2), End: floatPtr(5),
		},
	}}
	router := newTestRouter(stub)

	payload := `{"format":"mp3","quality":"high","trim":true,"startTime":2,"endTime":5}`
	req := httptest.NewRequest("POST", "/convert/u1", strings.NewReader(payload))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
	if stub.gotUploadID != "u1" {
		t.Fatalf("expected fileId forwarded, got %q", stub.gotUploadID)
	}
	if stub.gotParams.Start == nil || *stub.gotParams.Start != 2 {
		t.Fatalf("expected start forwarded, got %+v", stub.gotParams)
	}

	out := decodeBody(t, res)
	if out["conversionId"] != "c1" || out["message"] != "Audio trimming started" {
		t.Fatalf("unexpected response: %v", out)
	}
	if out["startTime"] != 2.0 || out["endTime"] != 5.0 {
		t.Fatalf("expected trim window echoed: %v", out)
	}
}

func TestConvert_IgnoresWindowWithoutTrim(t *testing.T) {
	stub := &stubConverter{convertRec: job.Record{ConversionID: "c1", Params: job.Params{Format: "mp3"}}}
	router := newTestRouter(stub)

	payload := `{"format":"mp3","startTime":2,"endTime":5}`
	req := httptest.NewRequest("POST", "/convert/u1", strings.NewReader(payload))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if stub.gotParams.Start != nil || stub.gotParams.End != nil {
		t.Fatalf("expected window dropped without trim, got %+v", stub.gotParams)
	}
}

func TestConvert_UnknownFile(t *testing.T) {
	stub := &stubConverter{convertErr: job.ErrNotFound}
	router := newTestRouter(stub)

	req := httptest.NewRequest("POST", "/convert/missing", strings.NewReader(`{}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestConvert_InFlightConflict(t *testing.T) {
	stub := &stubConverter{convertErr: job.ErrConversionInFlight}
	router := newTestRouter(stub)

	req := httptest.NewRequest("POST", "/convert/u1", strings.NewReader(`{}`))
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", res.Code)
	}
}

func TestStatus_ReportsJobState(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	stub := &stubConverter{statusRec: job.Record{
		ConversionID:   "c1",
		State:          job.StateProcessing,
		Progress:       70,
		OriginalName:   "song.wav",
		OutputFilename: "song.mp3",
		Params:         job.Params{Format: "mp3"},
		StartedAt:      started,
	}}
	router := newTestRouter(stub)

	req := httptest.NewRequest("GET", "/status/c1", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	out := decodeBody(t, res)
	if out["status"] != "processing" || out["progress"] != 70.0 {
		t.Fatalf("unexpected status body: %v", out)
	}
	if out["startedAt"] != "2024-05-01T12:00:00Z" {
		t.Fatalf("unexpected startedAt: %v", out["startedAt"])
	}
	if _, present := out["error"]; present {
		t.Fatalf("error should be omitted when empty")
	}
}

func TestStatus_DefaultsProgressTo100(t *testing.T) {
	stub := &stubConverter{statusRec: job.Record{ConversionID: "c1", State: job.StateUploaded}}
	router := newTestRouter(stub)

	req := httptest.NewRequest("GET", "/status/c1", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	out := decodeBody(t, res)
	if out["progress"] != 100.0 {
		t.Fatalf("expected progress fallback 100, got %v", out["progress"])
	}
}

func TestStatus_Unknown(t *testing.T) {
	stub := &stubConverter{statusErr: job.ErrNotFound}
	router := newTestRouter(stub)

	req := httptest.NewRequest("GET", "/status/missing", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestDownload_NotReady(t *testing.T) {
	stub := &stubConverter{resultErr: job.ErrNotReady}
	router := newTestRouter(stub)

	req := httptest.NewRequest("GET", "/download/c1", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestDownload_OutputMissing(t *testing.T) {
	stub := &stubConverter{resultErr: job.ErrOutputMissing}
	router := newTestRouter(stub)

	req := httptest.NewRequest("GET", "/download/c1", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}

func TestDownload_StreamsAttachment(t *testing.T) {
	dir := t.TempDir()
	outputPath := filepath.Join(dir, "c1-song.mp3")
	if err := os.WriteFile(outputPath, []byte("encoded audio"), 0o644); err != nil {
		t.Fatalf("write fixture failed: %v", err)
	}

	stub := &stubConverter{resultRec: job.Record{
		ConversionID:   "c1",
		State:          job.StateCompleted,
		OutputPath:     outputPath,
		OutputFilename: "song.mp3",
	}}
	router := newTestRouter(stub)

	req := httptest.NewRequest("GET", "/download/c1", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if got := res.Header().Get("Content-Disposition"); got != `attachment; filename="song.mp3"` {
		t.Fatalf("unexpected disposition: %q", got)
	}
	if res.Body.String() != "encoded audio" {
		t.Fatalf("unexpected body: %q", res.Body.String())
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(&stubConverter{})

	req := httptest.NewRequest("GET", "/health", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	out := decodeBody(t, res)
	if out["status"] != "healthy" {
		t.Fatalf("unexpected health body: %v", out)
	}
}

func floatPtr(v float64) *float64 { return &v }

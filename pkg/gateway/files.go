package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/rhuss/scrubgate/pkg/api"
	"github.com/rhuss/scrubgate/pkg/chatapi"
	"github.com/rhuss/scrubgate/pkg/detector"
	"github.com/rhuss/scrubgate/pkg/observability"
	"github.com/rhuss/scrubgate/pkg/observerbus"
	"github.com/rhuss/scrubgate/pkg/scrubber"
	"github.com/rhuss/scrubgate/pkg/toolserver"
)

// detectorSniffBytes is how much of the payload's head is sent to the
// Detector's classification call when Config.SniffBytes is unset. MIME
// sniffing is separate and always reads the first 512 bytes.
const detectorSniffBytes = 4096

// rejectedMIMEPrefixes carries a human message per spec §4.1's
// "reject image/video/audio/pdf/zip with specific messages".
var rejectedMIMEPrefixes = map[string]string{
	"image/":                       "image uploads are not accepted",
	"video/":                       "video uploads are not accepted",
	"audio/":                       "audio uploads are not accepted",
	"application/pdf":              "PDF uploads are not accepted",
	"application/zip":              "archive uploads are not accepted",
	"application/x-zip-compressed": "archive uploads are not accepted",
}

// allowedTextSubtypes extends text/* with a small allow-list of
// structured-text MIME types http.DetectContentType reports as
// application/* even though their payload is plain text.
var allowedTextSubtypes = map[string]bool{
	"application/json":       true,
	"application/xml":        true,
	"application/x-yaml":     true,
	"application/javascript": true,
}

type fileUploadEnvelope struct {
	Status   bool           `json:"status"`
	ID       string         `json:"id"`
	Filename string         `json:"filename"`
	Data     fileUploadData `json:"data"`
	Meta     map[string]any `json:"meta,omitempty"`
}

type fileUploadData struct {
	Status  string `json:"status"`
	Content string `json:"content"`
}

// handleFileUpload implements spec §4.1's "POST file upload" operation.
func (g *Gateway) handleFileUpload(w http.ResponseWriter, r *http.Request) {
	maxBytes := g.cfg.FileLimitBytes
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+1)

	filename, data, err := readUploadedFile(r)
	if err != nil {
		writeJSONError(w, http.StatusBadRequest, chatapi.ErrorTypeInvalidRequest, "file", err.Error())
		return
	}
	if filename != filepath.Base(filename) || strings.HasPrefix(filename, ".") {
		writeJSONError(w, http.StatusBadRequest, chatapi.ErrorTypeInvalidRequest, "filename", "filename must be a plain basename")
		return
	}
	if int64(len(data)) > maxBytes {
		writeJSONError(w, http.StatusRequestEntityTooLarge, chatapi.ErrorTypeInvalidRequest, "file", "file exceeds the upload size limit")
		return
	}

	sniffLen := len(data)
	if sniffLen > 512 {
		sniffLen = 512
	}
	mimeType := http.DetectContentType(data[:sniffLen])
	if msg := rejectedMIME(mimeType); msg != "" {
		writeJSONError(w, http.StatusUnsupportedMediaType, chatapi.ErrorTypeInvalidRequest, "file", msg)
		return
	}
	if !strings.HasPrefix(mimeType, "text/") && !allowedTextSubtypes[strings.SplitN(mimeType, ";", 2)[0]] {
		writeJSONError(w, http.StatusUnsupportedMediaType, chatapi.ErrorTypeInvalidRequest, "file", "unsupported file type: "+mimeType)
		return
	}

	if !g.scrubbingIsEnabled() {
		g.passthroughUpload(w, r, filename, data)
		return
	}
	g.scrubUpload(w, r, filename, data)
}

func rejectedMIME(mimeType string) string {
	for prefix, msg := range rejectedMIMEPrefixes {
		if strings.HasPrefix(mimeType, prefix) {
			return msg
		}
	}
	return ""
}

// readUploadedFile accepts either a multipart form (field "file") or a
// raw request body, returning the original filename (from the
// multipart header, or the Content-Disposition/X-Filename header for a
// raw body) and its bytes.
func readUploadedFile(r *http.Request) (string, []byte, error) {
	if ct := r.Header.Get("Content-Type"); strings.HasPrefix(ct, "multipart/form-data") {
		mr, err := r.MultipartReader()
		if err != nil {
			return "", nil, fmt.Errorf("parse multipart body: %w", err)
		}
		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				return "", nil, fmt.Errorf("no file part found")
			}
			if err != nil {
				return "", nil, fmt.Errorf("read multipart part: %w", err)
			}
			if part.FormName() != "file" {
				continue
			}
			data, err := io.ReadAll(part)
			if err != nil {
				return "", nil, fmt.Errorf("read file part: %w", err)
			}
			return part.FileName(), data, nil
		}
	}

	filename := r.Header.Get("X-Filename")
	if filename == "" {
		filename = "upload.txt"
	}
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return "", nil, fmt.Errorf("read request body: %w", err)
	}
	return filename, data, nil
}

func (g *Gateway) passthroughUpload(w http.ResponseWriter, r *http.Request, filename string, data []byte) {
	if g.cfg.PassthroughURL == "" {
		writeJSONError(w, http.StatusBadGateway, chatapi.ErrorTypeServerError, "", "no passthrough file endpoint configured")
		return
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err == nil {
		_, err = part.Write(data)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "", "", "build passthrough request: "+err.Error())
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, g.cfg.PassthroughURL, &buf)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "", "", "build passthrough request: "+err.Error())
		return
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := g.client.Do(req)
	if err != nil {
		writeJSONError(w, http.StatusBadGateway, chatapi.ErrorTypeServerError, "", "downstream file endpoint unreachable: "+err.Error())
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	io.Copy(w, resp.Body)
}

func (g *Gateway) scrubUpload(w http.ResponseWriter, r *http.Request, filename string, data []byte) {
	ctx := r.Context()
	sessionID := RequestIDFromContext(ctx)

	if !utf8.Valid(data) {
		writeJSONError(w, http.StatusUnsupportedMediaType, chatapi.ErrorTypeInvalidRequest, "file", "file is not valid UTF-8 text")
		return
	}
	text := string(data)

	sniffLimit := g.cfg.SniffBytes
	if sniffLimit <= 0 {
		sniffLimit = detectorSniffBytes
	}
	sniffLen := len(text)
	if sniffLen > sniffLimit {
		sniffLen = sniffLimit
	}
	verdict := g.detector.Detect(ctx, sessionID, text[:sniffLen])

	if verdict.Category == detector.CategoryError {
		g.publish(ctx, observerbus.Event{
			Filename: filename, Status: "[ERROR]", Type: observerbus.KindFileEvent,
			Warning: verdict.Summary,
		})
		writeJSONError(w, http.StatusInternalServerError, chatapi.ErrorTypeDetectionFailed, "", "detection failed: "+verdict.Summary)
		return
	}

	jobID := "job_" + api.NewItemID()

	if !verdict.NeedsSanitization {
		g.publish(ctx, observerbus.Event{Filename: filename, JobID: jobID, Status: "[CLEAN]", Type: observerbus.KindFileEvent})
		writeJSON(w, http.StatusOK, noRAGEnvelope(jobID, filename))
		return
	}

	inPath, err := g.sandbox.Resolve("in", jobID+"_"+filename)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, chatapi.ErrorTypeServerError, "", "sandbox: "+err.Error())
		return
	}
	if err := os.WriteFile(inPath, data, 0o644); err != nil {
		writeJSONError(w, http.StatusInternalServerError, chatapi.ErrorTypeServerError, "", "write input: "+err.Error())
		return
	}

	raw, err := g.toolChannel.Call(ctx, toolserver.ScrubLogAsFile, map[string]any{"text": text})
	if err != nil {
		g.publish(ctx, observerbus.Event{Filename: filename, JobID: jobID, Status: "[ERROR]", Type: observerbus.KindFileEvent, Warning: err.Error()})
		writeJSONError(w, http.StatusInternalServerError, chatapi.ErrorTypeScrubFailed, "", "scrubbing failed")
		return
	}
	var result scrubber.FileResult
	if err := json.Unmarshal(raw, &result); err != nil {
		writeJSONError(w, http.StatusInternalServerError, chatapi.ErrorTypeScrubFailed, "", "decode scrub result: "+err.Error())
		return
	}
	for itemType, count := range result.Summary {
		observability.ScrubItemsTotal.WithLabelValues(itemType).Add(float64(count))
	}

	outName := jobID + "_" + filename
	outPath, err := g.sandbox.Resolve("out", outName)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, chatapi.ErrorTypeServerError, "", "sandbox: "+err.Error())
		return
	}
	if err := os.WriteFile(outPath, []byte(result.SanitizedText), 0o644); err != nil {
		writeJSONError(w, http.StatusInternalServerError, chatapi.ErrorTypeServerError, "", "write output: "+err.Error())
		return
	}

	g.publish(ctx, observerbus.Event{
		Filename: filename, JobID: jobID, Status: "[SCRUBBED]", Type: observerbus.KindFileScrubbed,
		Detection: verdict.Category, ReplacementCount: result.ItemsScrubbed, Summary: result.Summary,
		DownloadURL: "/api/v1/files/download/" + jobID,
	})
	writeJSON(w, http.StatusOK, noRAGEnvelope(jobID, filename))
}

// noRAGEnvelope synthesizes the downstream UI's expected success
// envelope with empty content, which is the UI's opt-out signal for
// retrieval-augmented processing (the scrubbed/clean bytes live under
// the download URL instead).
func noRAGEnvelope(jobID, filename string) fileUploadEnvelope {
	return fileUploadEnvelope{
		Status:   true,
		ID:       jobID,
		Filename: filename,
		Data:     fileUploadData{Status: "completed", Content: ""},
		Meta:     map[string]any{"download_url": "/api/v1/files/download/" + jobID},
	}
}

// handleFileDownload implements spec §4.1's "GET file download by job
// id" operation: unauthenticated by design, loopback-only deployment.
func (g *Gateway) handleFileDownload(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("job_id")
	if jobID == "" {
		writeJSONError(w, http.StatusBadRequest, chatapi.ErrorTypeInvalidRequest, "job_id", "missing job id")
		return
	}

	outDir, err := g.sandbox.Resolve("out", "")
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, chatapi.ErrorTypeServerError, "", "sandbox: "+err.Error())
		return
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, chatapi.ErrorTypeServerError, "", "read output directory: "+err.Error())
		return
	}

	prefix := jobID + "_"
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), prefix) {
			continue
		}
		path, err := g.sandbox.Resolve("out", entry.Name())
		if err != nil {
			continue
		}
		data, err := os.ReadFile(path)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, chatapi.ErrorTypeServerError, "", "read file: "+err.Error())
			return
		}
		w.Header().Set("Content-Disposition", "attachment; filename=\""+defangFilename(entry.Name())+"\"")
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.WriteHeader(http.StatusOK)
		w.Write(data)
		return
	}

	writeJSONError(w, http.StatusNotFound, chatapi.ErrorTypeNotFound, "job_id", "no file found for job id")
}

func defangFilename(name string) string {
	name = strings.ReplaceAll(name, "\"", "")
	name = strings.ReplaceAll(name, "\n", "")
	name = strings.ReplaceAll(name, "\r", "")
	return name
}

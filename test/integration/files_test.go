package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"testing"
)

func uploadFile(t *testing.T, env *testEnv, filename string, content []byte) *http.Response {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, env.Server.URL+"/api/v1/files", &body)
	if err != nil {
		t.Fatalf("build upload request: %v", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /api/v1/files: %v", err)
	}
	return resp
}

func TestFileUploadCleanReturnsNoRAGEnvelope(t *testing.T) {
	env := newTestEnv(t, true)
	nextVerdict = `{"needs_sanitization": false, "category": "clean", "summary": "", "items_detected": [], "item_types": []}`

	resp := uploadFile(t, env, "notes.txt", []byte("nothing sensitive here"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		Status bool `json:"status"`
		ID     string `json:"id"`
		Data   struct {
			Status  string `json:"status"`
			Content string `json:"content"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !envelope.Status || envelope.Data.Status != "completed" || envelope.Data.Content != "" {
		t.Fatalf("expected completed envelope with empty content (RAG opt-out), got %+v", envelope)
	}
}

func TestFileUploadScrubAndDownloadRoundTrip(t *testing.T) {
	env := newTestEnv(t, true)
	nextVerdict = `{"needs_sanitization": true, "category": "pii", "summary": "email found", "items_detected": ["a@example.com"], "item_types": ["email"]}`

	resp := uploadFile(t, env, "log.txt", []byte("contact a@example.com for help"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var envelope struct {
		ID   string `json:"id"`
		Meta struct {
			DownloadURL string `json:"download_url"`
		} `json:"meta"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if envelope.Meta.DownloadURL == "" {
		t.Fatalf("expected a download url in the envelope, got %+v", envelope)
	}

	dlResp, err := http.Get(env.Server.URL + envelope.Meta.DownloadURL)
	if err != nil {
		t.Fatalf("GET download url: %v", err)
	}
	defer dlResp.Body.Close()
	if dlResp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from download, got %d", dlResp.StatusCode)
	}
	scrubbed, _ := io.ReadAll(dlResp.Body)
	if strings.Contains(string(scrubbed), "a@example.com") {
		t.Fatalf("downloaded file still contains the raw email: %s", scrubbed)
	}
	if !strings.Contains(string(scrubbed), "EMAIL_") {
		t.Fatalf("expected a placeholder in the scrubbed file, got: %s", scrubbed)
	}
}

func TestFileUploadRejectsImageType(t *testing.T) {
	env := newTestEnv(t, true)

	pngHeader := []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A}
	resp := uploadFile(t, env, "photo.png", pngHeader)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnsupportedMediaType {
		t.Fatalf("expected 415 for image upload, got %d", resp.StatusCode)
	}
}

func TestFileUploadRejectsPathInFilename(t *testing.T) {
	env := newTestEnv(t, true)

	// mime/multipart.Part.FileName already reduces a path-containing
	// filename to its basename, so the raw-body upload path (filename
	// from X-Filename) is what exercises the basename validation.
	req, err := http.NewRequest(http.MethodPost, env.Server.URL+"/api/v1/files", strings.NewReader("data"))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("X-Filename", "../../etc/passwd")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST /api/v1/files: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for a filename with path components, got %d", resp.StatusCode)
	}
}

func TestFileDownloadUnknownJobReturns404(t *testing.T) {
	env := newTestEnv(t, true)

	resp, err := http.Get(env.Server.URL + "/api/v1/files/download/job_does_not_exist")
	if err != nil {
		t.Fatalf("GET download: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown job id, got %d", resp.StatusCode)
	}
}

package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Recognized upload MIME types. Selection of the extraction path is purely
// by declared type; the bytes are never sniffed.
const (
	MIMEPDF  = "application/pdf"
	MIMEDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

// Extractor turns an uploaded document into plain text. It is an external
// collaborator: the gateway treats extraction as a black box.
type Extractor interface {
	Extract(ctx context.Context, mimeType string, data []byte) (string, error)
}

// HTTPExtractor calls an external extraction service over HTTP. The service
// receives the raw document body with its declared Content-Type and responds
// with {"text": "..."}.
type HTTPExtractor struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPExtractor creates an extractor client for the given service URL.
func NewHTTPExtractor(baseURL string) *HTTPExtractor {
	return &HTTPExtractor{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (e *HTTPExtractor) Extract(ctx context.Context, mimeType string, data []byte) (string, error) {
	var path string
	switch mimeType {
	case MIMEPDF:
		path = "/extract/pdf"
	case MIMEDOCX:
		path = "/extract/docx"
	default:
		return "", fmt.Errorf("extract: unsupported mime type %q", mimeType)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("extract: create request: %w", err)
	}
	req.Header.Set("Content-Type", mimeType)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("extract: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		buf, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("extract: service returned status %d: %s", resp.StatusCode, string(buf))
	}

	var payload struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("extract: decode response: %w", err)
	}
	return payload.Text, nil
}

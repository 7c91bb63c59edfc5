package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractRoutesByMIMEType(t *testing.T) {
	var gotPath, gotContentType string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		fmt.Fprint(w, `{"text":"извлечённый текст"}`)
	}))
	t.Cleanup(srv.Close)

	e := NewHTTPExtractor(srv.URL)

	text, err := e.Extract(context.Background(), MIMEPDF, []byte("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if text != "извлечённый текст" {
		t.Errorf("text = %q", text)
	}
	if gotPath != "/extract/pdf" {
		t.Errorf("path = %q, want /extract/pdf", gotPath)
	}
	if gotContentType != MIMEPDF {
		t.Errorf("content type = %q, want %q", gotContentType, MIMEPDF)
	}

	if _, err := e.Extract(context.Background(), MIMEDOCX, []byte("PK")); err != nil {
		t.Fatalf("Extract docx: %v", err)
	}
	if gotPath != "/extract/docx" {
		t.Errorf("path = %q, want /extract/docx", gotPath)
	}
}

func TestExtractUnsupportedMIMEType(t *testing.T) {
	e := NewHTTPExtractor("http://localhost:0")
	if _, err := e.Extract(context.Background(), "text/html", nil); err == nil {
		t.Fatal("expected error for unsupported mime type")
	}
}

func TestExtractServiceError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "corrupt document", http.StatusUnprocessableEntity)
	}))
	t.Cleanup(srv.Close)

	e := NewHTTPExtractor(srv.URL)
	if _, err := e.Extract(context.Background(), MIMEPDF, []byte("junk")); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

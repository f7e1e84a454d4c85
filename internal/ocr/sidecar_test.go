package ocr

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSidecarProvider_ExtractText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ocr" {
			t.Errorf("path = %s; want /ocr", r.URL.Path)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		fmt.Fprint(w, `{"text": "  Total: $42.00  "}`)
	}))
	defer srv.Close()

	p := NewSidecarProvider(srv.URL)
	if p.Name() != "sidecar" {
		t.Errorf("Name = %s; want sidecar", p.Name())
	}

	text, err := p.ExtractText(context.Background(), []byte("x"))
	if err != nil {
		t.Fatalf("ExtractText failed: %v", err)
	}
	if text != "Total: $42.00" {
		t.Errorf("text = %q; want trimmed %q", text, "Total: $42.00")
	}
}

func TestSidecarProvider_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "tesseract crashed", http.StatusInternalServerError)
	}))
	defer srv.Close()

	if _, err := NewSidecarProvider(srv.URL).ExtractText(context.Background(), []byte("x")); err == nil {
		t.Error("expected error on 500 response")
	}
}

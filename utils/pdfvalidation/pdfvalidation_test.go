package pdfvalidation

import (
	"bytes"
	"strings"
	"testing"
)

func TestValidateBytes(t *testing.T) {
	limits := UploadLimits{MaxFileSizeMB: 1, MaxPages: 10}

	tests := []struct {
		name      string
		fileName  string
		content   []byte
		wantValid bool
		wantImage bool
		wantError string
	}{
		{"png page", "scan.PNG", []byte("\x89PNG...."), true, true, ""},
		{"tiff page", "scan.tiff", []byte("II*\x00"), true, true, ""},
		{"empty", "book.pdf", nil, false, false, "File is empty"},
		{"too large", "book.pdf", bytes.Repeat([]byte("a"), 1024*1024+1), false, false, "exceeds maximum allowed size"},
		{"unsupported", "notes.docx", []byte("PK"), false, false, "Only PDF"},
		{"missing header", "book.pdf", []byte("hello"), false, false, "missing PDF header"},
		{"corrupt pdf", "book.pdf", []byte("%PDF-1.4\nnot really"), false, false, "Failed to read PDF"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateBytes(tt.fileName, tt.content, limits)
			if got.Valid != tt.wantValid || got.IsImage != tt.wantImage {
				t.Fatalf("ValidateBytes = %+v", got)
			}
			if tt.wantError != "" && !strings.Contains(got.Error, tt.wantError) {
				t.Errorf("error = %q, want it to mention %q", got.Error, tt.wantError)
			}
			if tt.wantImage && got.PageCount != 1 {
				t.Errorf("image page count = %d", got.PageCount)
			}
		})
	}
}

func TestContentTypeFor(t *testing.T) {
	tests := map[string]string{
		"a.pdf":  "application/pdf",
		"a.JPG":  "image/jpeg",
		"a.tif":  "image/tiff",
		"a.docx": "",
	}
	for name, want := range tests {
		if got := ContentTypeFor(name); got != want {
			t.Errorf("ContentTypeFor(%q) = %q, want %q", name, got, want)
		}
	}
}

func TestTrimAfterEOF(t *testing.T) {
	in := []byte("%PDF-1.4\nbody\n%%EOF\r\n<html>junk</html>")
	if got := string(trimAfterEOF(in)); got != "%PDF-1.4\nbody\n%%EOF\r\n" {
		t.Errorf("trimAfterEOF = %q", got)
	}
	clean := []byte("%PDF-1.4\n%%EOF\n")
	if got := trimAfterEOF(clean); !bytes.Equal(got, clean) {
		t.Errorf("clean input changed: %q", got)
	}
}

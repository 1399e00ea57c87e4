package pdfvalidation

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
)

// UploadLimits defines the validation limits for textbook uploads
type UploadLimits struct {
	MaxFileSizeMB int // Maximum file size in MB
	MaxPages      int // Maximum number of pages, zero disables the check
}

// TextbookLimits are the defaults for uploaded textbooks
var TextbookLimits = UploadLimits{
	MaxFileSizeMB: 100,
	MaxPages:      2000,
}

// ValidationResult contains the result of upload validation
type ValidationResult struct {
	Valid     bool
	IsImage   bool
	PageCount int
	FileSize  int64
	Error     string
}

var imageExtensions = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// ContentTypeFor returns the MIME type implied by a supported file name
func ContentTypeFor(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	if ext == ".pdf" {
		return "application/pdf"
	}
	return imageExtensions[ext]
}

// ReadUpload validates a multipart upload and returns its content when valid.
// A non-nil error means the file could not be read at all; validation
// failures are reported through ValidationResult.Error.
func ReadUpload(file *multipart.FileHeader, limits UploadLimits) (*ValidationResult, []byte, error) {
	result := &ValidationResult{FileSize: file.Size}

	maxSize := int64(limits.MaxFileSizeMB) * 1024 * 1024
	if file.Size > maxSize {
		result.Error = fmt.Sprintf("File size exceeds maximum allowed size of %dMB", limits.MaxFileSizeMB)
		return result, nil, nil
	}

	fileContent, err := file.Open()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer fileContent.Close()

	content, err := io.ReadAll(fileContent)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read file: %w", err)
	}

	result = ValidateBytes(file.Filename, content, limits)
	if !result.Valid {
		return result, nil, nil
	}
	return result, content, nil
}

// ValidateBytes validates document content against the given limits
func ValidateBytes(fileName string, content []byte, limits UploadLimits) *ValidationResult {
	result := &ValidationResult{FileSize: int64(len(content))}

	// 1. Validate file size
	maxSize := int64(limits.MaxFileSizeMB) * 1024 * 1024
	if result.FileSize > maxSize {
		result.Error = fmt.Sprintf("File size exceeds maximum allowed size of %dMB", limits.MaxFileSizeMB)
		return result
	}
	if result.FileSize == 0 {
		result.Error = "File is empty"
		return result
	}

	// 2. Images carry exactly one page
	ext := strings.ToLower(filepath.Ext(fileName))
	if _, ok := imageExtensions[ext]; ok {
		result.IsImage = true
		result.PageCount = 1
		result.Valid = true
		return result
	}
	if ext != ".pdf" {
		result.Error = "Only PDF, PNG, JPEG and TIFF files are supported"
		return result
	}

	// 3. Validate PDF header
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		result.Error = "Invalid PDF file: missing PDF header"
		return result
	}

	// 4. Get page count
	pageCount, err := PageCount(content)
	if err != nil {
		result.Error = fmt.Sprintf("Failed to read PDF: %v", err)
		return result
	}
	result.PageCount = pageCount

	// 5. Validate page count
	if pageCount == 0 {
		result.Error = "PDF has no pages"
		return result
	}
	if limits.MaxPages > 0 && pageCount > limits.MaxPages {
		result.Error = fmt.Sprintf("PDF has %d pages, which exceeds the maximum of %d pages for a textbook",
			pageCount, limits.MaxPages)
		return result
	}

	result.Valid = true
	return result
}

// PageCount returns the number of pages in a PDF. pdfcpu reads the page tree;
// documents it rejects are retried with the more lenient text-layer reader.
func PageCount(content []byte) (int, error) {
	if n, err := api.PageCount(bytes.NewReader(content), nil); err == nil {
		return n, nil
	}

	content = trimAfterEOF(content)
	reader, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return 0, fmt.Errorf("failed to parse PDF: %w", err)
	}
	return reader.NumPage(), nil
}

// trimAfterEOF removes trailing garbage after the last %%EOF marker
func trimAfterEOF(content []byte) []byte {
	eofMarker := []byte("%%EOF")
	lastEOF := bytes.LastIndex(content, eofMarker)
	if lastEOF == -1 {
		return content
	}

	pdfEnd := lastEOF + len(eofMarker)
	for pdfEnd < len(content) && (content[pdfEnd] == '\n' || content[pdfEnd] == '\r') {
		pdfEnd++
	}
	return content[:pdfEnd]
}

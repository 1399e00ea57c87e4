package services

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
)

// RenderScale is the upscale factor applied when rasterizing a page for OCR.
// pdftoppm works in DPI, so the scale is relative to the 72 DPI PDF user space.
const RenderScale = 2.0

// PageRenderer rasterizes one page of a PDF file to PNG bytes
type PageRenderer interface {
	RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error)
}

// PdftoppmRenderer renders pages with poppler's pdftoppm
type PdftoppmRenderer struct {
	Binary string
	DPI    int
}

// NewPdftoppmRenderer creates a renderer; an empty binary means "pdftoppm" on PATH
func NewPdftoppmRenderer(binary string) *PdftoppmRenderer {
	if binary == "" {
		binary = "pdftoppm"
	}
	return &PdftoppmRenderer{
		Binary: binary,
		DPI:    int(72 * RenderScale),
	}
}

// RenderPage renders a single 1-based page and returns the PNG bytes
func (r *PdftoppmRenderer) RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "planner-page-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outputPrefix := filepath.Join(tmpDir, "page")
	pageStr := strconv.Itoa(page)

	// -singlefile: no page number suffix on the output name
	cmd := exec.CommandContext(ctx, r.Binary,
		"-png",
		"-f", pageStr,
		"-l", pageStr,
		"-r", strconv.Itoa(r.DPI),
		"-singlefile",
		pdfPath,
		outputPrefix,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("pdftoppm failed: %w (output: %s)", err, string(output))
	}

	data, err := os.ReadFile(outputPrefix + ".png")
	if err != nil {
		return nil, fmt.Errorf("pdftoppm did not create expected output: %w", err)
	}

	return data, nil
}

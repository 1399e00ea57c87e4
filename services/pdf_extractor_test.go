package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

func TestPageExtractorTextLayer(t *testing.T) {
	doc := buildPDF([]string{
		"Chapter 1 Introduction to Cells\nCells are the basic unit of life",
		"Chapter 2 Genetics\nGenes carry hereditary information",
	})
	renderer := &fakeRenderer{}
	ocr := &fakeOCR{}
	extractor := NewPageExtractor(renderer, ocr, logger.NewNop())

	src, err := extractor.Open(doc, "biology.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if src.NumPages() != 2 {
		t.Fatalf("NumPages = %d, want 2", src.NumPages())
	}

	text := src.PageText(context.Background(), 2, model.LanguageEnglish)
	if !strings.Contains(text, "Genetics") {
		t.Errorf("page 2 text = %q", text)
	}
	if len(renderer.calls) != 0 {
		t.Errorf("text pages should not be rasterized, got %v", renderer.calls)
	}
}

func TestPageExtractorScannedPageUsesOCR(t *testing.T) {
	doc := buildPDF([]string{"Chapter 1 Introduction to Cells", ""})
	renderer := &fakeRenderer{}
	ocr := &fakeOCR{}
	extractor := NewPageExtractor(renderer, ocr, logger.NewNop())

	src, err := extractor.Open(doc, "scan.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	got := src.PageText(context.Background(), 2, model.LanguageArabic)
	if got != "ocr:image-2" {
		t.Errorf("PageText = %q, want OCR output", got)
	}
	if len(ocr.langs) != 1 || ocr.langs[0] != model.LanguageArabic {
		t.Errorf("OCR languages = %v", ocr.langs)
	}
}

func TestPageExtractorOCRFailureYieldsEmptyText(t *testing.T) {
	doc := buildPDF([]string{""})
	renderer := &fakeRenderer{err: errors.New("pdftoppm missing")}
	extractor := NewPageExtractor(renderer, &fakeOCR{}, logger.NewNop())

	src, err := extractor.Open(doc, "scan.pdf")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer src.Close()

	if got := src.PageText(context.Background(), 1, model.LanguageEnglish); got != "" {
		t.Errorf("PageText = %q, want empty", got)
	}
	if got := src.PageText(context.Background(), 99, model.LanguageEnglish); got != "" {
		t.Errorf("out of range page = %q, want empty", got)
	}
}

func TestPageExtractorImage(t *testing.T) {
	ocr := &fakeOCR{}
	extractor := NewPageExtractor(&fakeRenderer{}, ocr, logger.NewNop())

	src, err := extractor.Open([]byte("raw-png"), "page.PNG")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if src.NumPages() != 1 {
		t.Errorf("NumPages = %d, want 1", src.NumPages())
	}
	if got := src.PageText(context.Background(), 1, model.LanguageEnglish); got != "ocr:raw-png" {
		t.Errorf("PageText = %q", got)
	}
}

func TestPageExtractorRejectsInput(t *testing.T) {
	extractor := NewPageExtractor(nil, nil, nil)

	if _, err := extractor.Open(nil, "a.pdf"); !errors.Is(err, ErrEmptyDocument) {
		t.Errorf("empty content error = %v", err)
	}
	if _, err := extractor.Open([]byte("hello"), "notes.docx"); !errors.Is(err, ErrUnsupportedFileType) {
		t.Errorf("docx error = %v", err)
	}
	if _, err := extractor.Open([]byte("%PDF-1.4 garbage"), "broken.pdf"); !errors.Is(err, ErrUnreadableDocument) {
		t.Errorf("broken pdf error = %v", err)
	}
}

func TestSanitizePDF(t *testing.T) {
	log := logger.NewNop()
	clean := []byte("%PDF-1.4\nbody\n%%EOF\n")
	if got := sanitizePDF(clean, log); string(got) != string(clean) {
		t.Errorf("clean PDF modified: %q", got)
	}

	dirty := append(append([]byte{}, clean...), []byte("<html><body>download page</body></html>")...)
	if got := sanitizePDF(dirty, log); string(got) != string(clean) {
		t.Errorf("trailing garbage kept: %q", got)
	}

	notPDF := []byte("plain text")
	if got := sanitizePDF(notPDF, log); string(got) != "plain text" {
		t.Errorf("non-PDF modified: %q", got)
	}
}

func TestReadPagesKeepsOrder(t *testing.T) {
	src := &staticSource{pages: []string{"one", "two", "three", "four", "five", "six"}}

	got := ReadPages(context.Background(), src, 2, 10, model.LanguageEnglish)
	want := []string{"two", "three", "four", "five", "six"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("ReadPages = %v, want %v", got, want)
	}

	if got := ReadPages(context.Background(), src, 5, 3, model.LanguageEnglish); len(got) != 0 {
		t.Errorf("inverted range = %v", got)
	}
}

func TestJoinPagesSkipsBlank(t *testing.T) {
	got := JoinPages([]string{" a ", "", "  ", "b"})
	if got != "a\n\nb" {
		t.Errorf("JoinPages = %q", got)
	}
}

func TestIsImageFile(t *testing.T) {
	for name, want := range map[string]bool{
		"scan.jpg": true, "scan.JPEG": true, "scan.tiff": true, "book.pdf": false, "noext": false,
	} {
		if IsImageFile(name) != want {
			t.Errorf("IsImageFile(%q) = %v", name, !want)
		}
	}
}

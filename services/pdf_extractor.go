package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/sync/errgroup"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

// MinTextItems is the non-blank text item count below which a page is treated as scanned
const MinTextItems = 10

// pageWorkers bounds concurrent page reads; text-layer parsing is serialized anyway, OCR is not
const pageWorkers = 4

var (
	ErrEmptyDocument       = errors.New("empty document content")
	ErrUnreadableDocument  = errors.New("document could not be parsed")
	ErrUnsupportedFileType = errors.New("unsupported file type")
)

// PageSource yields per-page text for one opened document.
// PageText never fails: unreadable pages come back as "".
type PageSource interface {
	NumPages() int
	PageText(ctx context.Context, page int, lang model.Language) string
	Close() error
}

// DocumentOpener turns uploaded bytes into a PageSource
type DocumentOpener interface {
	Open(content []byte, fileName string) (PageSource, error)
}

// languageProber is implemented by sources that can re-read their first page through OCR
type languageProber interface {
	ProbeText(ctx context.Context) string
}

// PageExtractor opens uploaded documents for page-by-page text extraction.
// PDFs use the embedded text layer; pages that look scanned are rasterized
// and sent to the OCR engine. Images are OCR only.
type PageExtractor struct {
	renderer PageRenderer
	ocr      OCREngine
	log      *logger.Logger
}

// NewPageExtractor creates a page extractor. A nil OCR engine disables the scanned-page fallback.
func NewPageExtractor(renderer PageRenderer, ocr OCREngine, log *logger.Logger) *PageExtractor {
	if log == nil {
		log = logger.NewNop()
	}
	return &PageExtractor{
		renderer: renderer,
		ocr:      ocr,
		log:      log.With("component", "page_extractor"),
	}
}

// IsImageFile reports whether the file name has one of the supported raster extensions
func IsImageFile(fileName string) bool {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".png", ".jpg", ".jpeg", ".tif", ".tiff":
		return true
	}
	return false
}

// IsPDFFile reports whether the file name has a .pdf extension
func IsPDFFile(fileName string) bool {
	return strings.EqualFold(filepath.Ext(fileName), ".pdf")
}

// Open prepares a PageSource for the given document bytes
func (p *PageExtractor) Open(content []byte, fileName string) (PageSource, error) {
	if len(content) == 0 {
		return nil, ErrEmptyDocument
	}

	if IsImageFile(fileName) {
		return &imageSource{extractor: p, image: content}, nil
	}
	if !IsPDFFile(fileName) && !bytes.HasPrefix(content, []byte("%PDF-")) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, filepath.Ext(fileName))
	}

	// Try to sanitize PDF if it has trailing garbage (common with web downloads)
	content = sanitizePDF(content, p.log)

	src := &pdfSource{extractor: p, content: content}

	reader, err := openPDFReader(content)
	if err != nil {
		p.log.Warn("text layer unavailable, pages will be OCR'd", "file", fileName, "error", err)
	} else {
		src.reader = reader
	}

	numPages, err := PageCount(content)
	if err != nil {
		if reader == nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadableDocument, err)
		}
		numPages = reader.NumPage()
	}
	if numPages == 0 {
		return nil, fmt.Errorf("%w: PDF has no pages", ErrUnreadableDocument)
	}
	src.numPages = numPages

	p.log.Debug("opened PDF", "file", fileName, "pages", numPages)
	return src, nil
}

// PageCount returns the number of pages of a PDF using pdfcpu
func PageCount(content []byte) (int, error) {
	return api.PageCount(bytes.NewReader(content), nil)
}

// ReadPages extracts pages [first, last] concurrently and returns their text in page order
func ReadPages(ctx context.Context, src PageSource, first, last int, lang model.Language) []string {
	if first < 1 {
		first = 1
	}
	if last > src.NumPages() {
		last = src.NumPages()
	}
	if last < first {
		return []string{}
	}

	texts := make([]string, last-first+1)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(pageWorkers)
	for page := first; page <= last; page++ {
		page := page
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			texts[page-first] = src.PageText(gctx, page, lang)
			return nil
		})
	}
	_ = g.Wait() // only cancellation is reported; cancelled pages stay empty
	return texts
}

// JoinPages concatenates page texts, skipping blank pages
func JoinPages(pages []string) string {
	var b strings.Builder
	for _, text := range pages {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	return b.String()
}

func openPDFReader(content []byte) (reader *pdf.Reader, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	return pdf.NewReader(bytes.NewReader(content), int64(len(content)))
}

// sanitizePDF fixes common PDF issues like trailing garbage data
// Many PDFs downloaded from web have HTML or other data appended after %%EOF
// This function truncates the content at the last valid %%EOF marker
func sanitizePDF(content []byte, log *logger.Logger) []byte {
	if len(content) == 0 {
		return content
	}

	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content
	}

	eofMarker := []byte("%%EOF")
	lastEOF := bytes.LastIndex(content, eofMarker)
	if lastEOF == -1 {
		// Likely truncated, let the parser deal with it
		return content
	}

	pdfEnd := lastEOF + len(eofMarker)

	// Trailing newlines after %%EOF are valid
	for pdfEnd < len(content) && (content[pdfEnd] == '\n' || content[pdfEnd] == '\r') {
		pdfEnd++
	}

	if extraBytes := len(content) - pdfEnd; extraBytes > 10 {
		log.Debug("removing trailing garbage after %%EOF", "bytes", extraBytes)
		return content[:pdfEnd]
	}

	return content
}

type pdfSource struct {
	extractor *PageExtractor
	content   []byte
	numPages  int

	// ledongthuc readers are not safe for concurrent use
	mu     sync.Mutex
	reader *pdf.Reader

	tmpOnce sync.Once
	tmpPath string
	tmpErr  error
}

func (s *pdfSource) NumPages() int { return s.numPages }

func (s *pdfSource) PageText(ctx context.Context, page int, lang model.Language) string {
	if page < 1 || page > s.numPages {
		return ""
	}
	log := s.extractor.log

	text, items, err := s.textLayer(page)
	if err != nil {
		log.Warn("text layer extraction failed", "page", page, "error", err)
	}
	if items >= MinTextItems {
		return text
	}

	ocrText, err := s.ocrPage(ctx, page, lang)
	if err != nil {
		log.Warn("OCR fallback failed", "page", page, "error", err)
		return text
	}
	if strings.TrimSpace(ocrText) == "" {
		return text
	}
	return strings.TrimSpace(ocrText)
}

// ProbeText OCRs the first page with every supported language model loaded.
// It is used when the text layer is too thin to classify the document language.
func (s *pdfSource) ProbeText(ctx context.Context) string {
	text, err := s.ocrPage(ctx, 1, model.LanguageAuto)
	if err != nil {
		s.extractor.log.Debug("language probe failed", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

// textLayer returns the page text and its non-blank text item count
func (s *pdfSource) textLayer(page int) (text string, items int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.reader == nil {
		return "", 0, nil
	}

	defer func() {
		if r := recover(); r != nil {
			text, items, err = "", 0, fmt.Errorf("pdf parser panic: %v", r)
		}
	}()

	p := s.reader.Page(page)
	if p.V.IsNull() {
		return "", 0, nil
	}

	// Rows preserve the document structure better than plain text
	rows, err := p.GetTextByRow()
	if err != nil {
		plain, plainErr := p.GetPlainText(nil)
		if plainErr != nil {
			return "", 0, fmt.Errorf("row extraction: %v, plain text: %w", err, plainErr)
		}
		return strings.TrimSpace(plain), len(strings.Fields(plain)), nil
	}

	var b strings.Builder
	for _, row := range rows {
		var rowText strings.Builder
		for _, word := range row.Content {
			if strings.TrimSpace(word.S) != "" {
				items++
			}
			rowText.WriteString(word.S)
		}
		line := strings.TrimSpace(rowText.String())
		if line != "" {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String()), items, nil
}

func (s *pdfSource) ocrPage(ctx context.Context, page int, lang model.Language) (string, error) {
	p := s.extractor
	if p.ocr == nil || p.renderer == nil {
		return "", errors.New("no OCR engine configured")
	}

	path, err := s.tempFile()
	if err != nil {
		return "", err
	}

	image, err := p.renderer.RenderPage(ctx, path, page)
	if err != nil {
		return "", fmt.Errorf("render page: %w", err)
	}
	return p.ocr.RecognizePage(ctx, image, lang)
}

// tempFile writes the PDF to disk once, on the first page that needs rasterizing
func (s *pdfSource) tempFile() (string, error) {
	s.tmpOnce.Do(func() {
		f, err := os.CreateTemp("", "planner-doc-*.pdf")
		if err != nil {
			s.tmpErr = fmt.Errorf("failed to create temp file: %w", err)
			return
		}
		defer f.Close()
		if _, err := f.Write(s.content); err != nil {
			os.Remove(f.Name())
			s.tmpErr = fmt.Errorf("failed to write temp file: %w", err)
			return
		}
		s.tmpPath = f.Name()
	})
	return s.tmpPath, s.tmpErr
}

func (s *pdfSource) Close() error {
	// Consume the Once so a late render cannot recreate the file after removal
	s.tmpOnce.Do(func() {})
	if s.tmpPath != "" {
		return os.Remove(s.tmpPath)
	}
	return nil
}

type imageSource struct {
	extractor *PageExtractor
	image     []byte
}

func (s *imageSource) NumPages() int { return 1 }

func (s *imageSource) PageText(ctx context.Context, page int, lang model.Language) string {
	if page != 1 || s.extractor.ocr == nil {
		return ""
	}
	text, err := s.extractor.ocr.RecognizePage(ctx, s.image, lang)
	if err != nil {
		s.extractor.log.Warn("image OCR failed", "error", err)
		return ""
	}
	return strings.TrimSpace(text)
}

func (s *imageSource) Close() error { return nil }

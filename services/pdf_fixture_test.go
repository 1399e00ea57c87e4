package services

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/services/schedule"
)

// buildPDF writes a minimal PDF with one page per entry. Each line of a page
// becomes its own text row; an empty entry produces a page with no text layer.
func buildPDF(pages []string) []byte {
	var buf bytes.Buffer
	var offsets []int

	obj := func(body string) {
		offsets = append(offsets, buf.Len())
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", len(offsets), body)
	}

	buf.WriteString("%PDF-1.4\n")

	// 1: catalog, 2: pages, 3: font, then page/content pairs
	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+2*i)
	}
	obj("<< /Type /Catalog /Pages 2 0 R >>")
	obj(fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(pages)))
	obj("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>")

	for i, text := range pages {
		var stream strings.Builder
		y := 720
		for _, line := range strings.Split(text, "\n") {
			if strings.TrimSpace(line) == "" {
				continue
			}
			line = strings.NewReplacer(`\`, `\\`, "(", `\(`, ")", `\)`).Replace(line)
			fmt.Fprintf(&stream, "BT /F1 12 Tf 72 %d Td (%s) Tj ET\n", y, line)
			y -= 20
		}
		obj(fmt.Sprintf("<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+2*i))
		obj(fmt.Sprintf("<< /Length %d >>\nstream\n%sendstream", stream.Len(), stream.String()))
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(offsets)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(offsets)+1, xref)
	return buf.Bytes()
}

// fakeRenderer returns a marker image naming the page it was asked for
type fakeRenderer struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (r *fakeRenderer) RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, error) {
	r.mu.Lock()
	r.calls = append(r.calls, page)
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	return []byte(fmt.Sprintf("image-%d", page)), nil
}

// fakeOCR echoes the image marker and the requested language
type fakeOCR struct {
	mu    sync.Mutex
	langs []model.Language
	text  func(image []byte, lang model.Language) (string, error)
}

func (o *fakeOCR) RecognizePage(ctx context.Context, image []byte, lang model.Language) (string, error) {
	o.mu.Lock()
	o.langs = append(o.langs, lang)
	o.mu.Unlock()
	if o.text != nil {
		return o.text(image, lang)
	}
	return "ocr:" + string(image), nil
}

// staticSource serves fixed page texts
type staticSource struct {
	mu     sync.Mutex
	pages  []string
	closed bool
	reads  []int
}

func (s *staticSource) NumPages() int { return len(s.pages) }

func (s *staticSource) PageText(ctx context.Context, page int, lang model.Language) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reads = append(s.reads, page)
	if page < 1 || page > len(s.pages) {
		return ""
	}
	return s.pages[page-1]
}

func (s *staticSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *staticSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func mustDate(t testing.TB, s string) time.Time {
	t.Helper()
	d, err := schedule.ParseDate(s)
	if err != nil {
		t.Fatalf("bad date %q: %v", s, err)
	}
	return d
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/services/schedule"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

type stubGenerator struct {
	resp   *OutlineResponse
	err    error
	sample string
}

func (g *stubGenerator) GenerateOutline(ctx context.Context, req OutlineRequest) (*OutlineResponse, error) {
	g.sample = req.TextSample
	return g.resp, g.err
}

func TestParseOutlineEnglish(t *testing.T) {
	text := strings.Join([]string{
		"Contents",
		"Chapter 1 Cells ........ 5",
		"Chapter 2 Genetics ........ 21",
		"",
		"Chapter 1 Cells",
		"Cells are the smallest unit of life.",
		"They divide.",
		"Chapter 2 Genetics",
		"Genes are inherited.",
		"3) Evolution and Change",
		"ok",
	}, "\n")

	got := ParseOutline(text, model.LanguageEnglish)
	want := []model.Chapter{
		{Title: "Chapter 1 Cells", Context: "Cells are the smallest unit of life. They divide."},
		{Title: "Chapter 2 Genetics", Context: "Genes are inherited."},
		{Title: "3) Evolution and Change", Context: "ok"},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d chapters: %+v", len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("chapter %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestParseOutlineIgnoresTextAfterContents(t *testing.T) {
	text := strings.Join([]string{
		"Contents",
		"Chapter 1 Plants ........ 3",
		"Chapter 2 Soil ........ 9",
		"Chapter 3 Animals ........ 15",
		"Preface",
		"This book is for grade seven teachers.",
		"Chapter 1 Plants",
		"Plants make food from light.",
		"Chapter 2 Soil",
		"Soil holds water.",
		"Chapter 3 Animals",
		"Animals eat plants or other animals.",
	}, "\n")

	got := ParseOutline(text, model.LanguageEnglish)
	want := []string{
		"Plants make food from light.",
		"Soil holds water.",
		"Animals eat plants or other animals.",
	}
	if len(got) != len(want) {
		t.Fatalf("got %d chapters: %+v", len(got), got)
	}
	for i := range want {
		if got[i].Context != want[i] {
			t.Errorf("chapter %q context = %q, want %q", got[i].Title, got[i].Context, want[i])
		}
	}
}

func TestParseOutlineKeepsContentsContextWithoutBody(t *testing.T) {
	text := "Chapter 1 Plants ........ 3\nIntroduction to green life\nChapter 1 Plants"

	got := ParseOutline(text, model.LanguageEnglish)
	if len(got) != 1 || got[0].Context != "Introduction to green life" {
		t.Errorf("chapters = %+v", got)
	}
}

func TestParseOutlineArabic(t *testing.T) {
	text := "الفصل الأول: الخلية\nالخلية هي وحدة الحياة\nالفصل الثاني: الوراثة\n٣- التطور"
	got := ParseOutline(text, model.LanguageArabic)
	if len(got) != 3 {
		t.Fatalf("got %d chapters: %+v", len(got), got)
	}
	if got[0].Title != "الفصل الأول: الخلية" || got[0].Context != "الخلية هي وحدة الحياة" {
		t.Errorf("first chapter = %+v", got[0])
	}
	if got[1].Context != model.PatternChapterContext {
		t.Errorf("empty section context = %q", got[1].Context)
	}
	if got[2].Title != "٣- التطور" {
		t.Errorf("numbered heading = %q", got[2].Title)
	}
}

func TestParseOutlineLimits(t *testing.T) {
	var lines []string
	for i := 1; i <= 80; i++ {
		lines = append(lines, fmt.Sprintf("Unit %d", i))
	}
	lines = append(lines, "UNIT 1", "Unit "+strings.Repeat("x", 120))
	got := ParseOutline(strings.Join(lines, "\n"), model.LanguageEnglish)
	if len(got) != maxPatternChapters {
		t.Errorf("got %d chapters, want cap %d", len(got), maxPatternChapters)
	}

	if got := ParseOutline("Unit", model.LanguageEnglish); len(got) != 0 {
		t.Errorf("short line matched: %+v", got)
	}
	if got := ParseOutline("The cell is alive.\nPhotosynthesis happens.", model.LanguageEnglish); len(got) != 0 {
		t.Errorf("prose matched: %+v", got)
	}
}

func TestSectionContextCapped(t *testing.T) {
	ctx := sectionContext([]string{strings.Repeat("é", 2000)})
	if n := utf8.RuneCountInString(ctx); n != maxPatternContext {
		t.Errorf("context runes = %d, want %d", n, maxPatternContext)
	}
}

func TestAnalyzerPrefersAI(t *testing.T) {
	gen := &stubGenerator{resp: &OutlineResponse{
		Chapters: []OutlineChapter{{Title: " Cells "}, {Title: ""}, {Title: "Genetics", Page: 12}},
		Summary:  "Biology",
		Grade:    "7",
	}}
	a := NewStructuralAnalyzer(gen, logger.NewNop())

	outline := a.Analyze(context.Background(), AnalysisInput{Sample: "Chapter 1 Something", Language: model.LanguageEnglish})
	if outline.Source != model.OutlineSourceAI {
		t.Fatalf("source = %s", outline.Source)
	}
	want := []model.Chapter{
		{Title: "Cells", Context: "AI Extracted"},
		{Title: "Genetics", Context: "AI Extracted (page 12)"},
	}
	if len(outline.Chapters) != 2 || outline.Chapters[0] != want[0] || outline.Chapters[1] != want[1] {
		t.Errorf("chapters = %+v", outline.Chapters)
	}
	if outline.Summary != "Biology" || outline.Grade != "7" {
		t.Errorf("summary/grade = %q/%q", outline.Summary, outline.Grade)
	}
}

func TestAnalyzerCapsAITitles(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  int
	}{
		{"short", "Cells", 5},
		{"at limit", strings.Repeat("a", model.MaxTitleLength), model.MaxTitleLength},
		{"long latin", strings.Repeat("abc ", 100), model.MaxTitleLength},
		{"long arabic", strings.Repeat("الخلية", 60), model.MaxTitleLength},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &stubGenerator{resp: &OutlineResponse{
				Chapters: []OutlineChapter{{Title: tt.title}},
				Grade:    strings.Repeat("9", 80),
			}}
			outline := NewStructuralAnalyzer(gen, logger.NewNop()).Analyze(context.Background(), AnalysisInput{Sample: "x", Language: model.LanguageEnglish})

			got := outline.Chapters[0].Title
			if n := utf8.RuneCountInString(got); n != tt.want {
				t.Errorf("title has %d runes, want %d", n, tt.want)
			}
			if !utf8.ValidString(got) {
				t.Error("title cut inside a rune")
			}
			if n := utf8.RuneCountInString(outline.Grade); n != model.MaxGradeLength {
				t.Errorf("grade has %d runes, want %d", n, model.MaxGradeLength)
			}
		})
	}
}

func TestAnalyzerFallsBackToPatterns(t *testing.T) {
	gen := &stubGenerator{err: errors.New("service down")}
	a := NewStructuralAnalyzer(gen, logger.NewNop())

	outline := a.Analyze(context.Background(), AnalysisInput{Sample: "Lesson 1 Fractions\nLesson 2 Decimals"})
	if outline.Source != model.OutlineSourcePattern || len(outline.Chapters) != 2 {
		t.Errorf("outline = %+v", outline)
	}

	gen.err = nil
	gen.resp = &OutlineResponse{Chapters: []OutlineChapter{{Title: "   "}}}
	outline = a.Analyze(context.Background(), AnalysisInput{Sample: "Lesson 1 Fractions"})
	if outline.Source != model.OutlineSourcePattern {
		t.Errorf("blank AI chapters should count as failure, source = %s", outline.Source)
	}
}

// Service failure and no recognizable headings end in the synthetic chapter,
// and a ten-day schedule then gets generic lesson titles.
func TestAnalyzerFallbackThenDistribute(t *testing.T) {
	gen := &stubGenerator{err: errors.New("boom")}
	a := NewStructuralAnalyzer(gen, logger.NewNop())

	outline := a.Analyze(context.Background(), AnalysisInput{Sample: "just some prose without headings"})
	if outline.Source != model.OutlineSourceFallback {
		t.Fatalf("source = %s", outline.Source)
	}
	if !model.IsFallbackOnly(outline.Chapters) {
		t.Fatalf("chapters = %+v", outline.Chapters)
	}

	days := schedule.TeachingDays(schedule.Config{
		StartDate: schedule.DateOf(mustDate(t, "2025-09-01")),
		EndDate:   schedule.DateOf(mustDate(t, "2025-09-12")),
		Weekdays:  schedule.ParseWeekdays([]int{1, 2, 3, 4, 5}),
	})
	lessons := schedule.Distribute(1, days, outline.Chapters, 5)
	if len(lessons) != 10 {
		t.Fatalf("lessons = %d", len(lessons))
	}
	for i, l := range lessons {
		if l.Title != fmt.Sprintf("Lesson %d", i+1) || l.ContentContext != model.FallbackChapterContext {
			t.Errorf("lesson %d = %q/%q", i, l.Title, l.ContentContext)
		}
	}
}

func TestAnalyzerTruncatesSample(t *testing.T) {
	gen := &stubGenerator{resp: &OutlineResponse{Chapters: []OutlineChapter{{Title: "A"}}}}
	a := NewStructuralAnalyzer(gen, nil)

	a.Analyze(context.Background(), AnalysisInput{Sample: strings.Repeat("ع", MaxSampleChars+500)})
	if n := utf8.RuneCountInString(gen.sample); n != MaxSampleChars {
		t.Errorf("sample runes = %d, want %d", n, MaxSampleChars)
	}
}

func TestAnalyzerWithoutGenerator(t *testing.T) {
	a := NewStructuralAnalyzer(nil, nil)
	outline := a.Analyze(context.Background(), AnalysisInput{Sample: "Module 1 Forces"})
	if outline.Source != model.OutlineSourcePattern {
		t.Errorf("source = %s", outline.Source)
	}
}

package services

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/sahilchouksey/lesson-planner/model"
)

const (
	minHeadingRunes    = 4
	maxHeadingRunes    = 100
	maxPatternChapters = 60
	maxPatternContext  = 1500
)

// headingPattern recognizes one kind of heading line and extracts its title
type headingPattern struct {
	name  string
	re    *regexp.Regexp
	title func(m []string) string
}

func fullLine(m []string) string { return m[0] }

var (
	// "Cell Structure ........ 12" or "Cell Structure …… ١٢"
	tocPattern = headingPattern{
		name:  "toc",
		re:    regexp.MustCompile(`^(.+?)\s*[.…·]{2,}\s*[0-9٠-٩]+$`),
		title: func(m []string) string { return strings.TrimSpace(m[1]) },
	}

	englishPatterns = []headingPattern{
		tocPattern,
		{
			name:  "keyword",
			re:    regexp.MustCompile(`(?i)^(chapter|unit|lesson|module|part|section)\s+([0-9]+|[ivxlc]+|one|two|three|four|five|six|seven|eight|nine|ten)\b.*$`),
			title: fullLine,
		},
		{
			name:  "numbered",
			re:    regexp.MustCompile(`^([0-9]{1,2})[.)]\s+(\p{Lu}[^.!?]*)$`),
			title: fullLine,
		},
	}

	arabicPatterns = []headingPattern{
		tocPattern,
		{
			name:  "keyword",
			re:    regexp.MustCompile(`^(الفصل|الوحدة|الدرس|الباب|الجزء)\s+\S+.*$`),
			title: fullLine,
		},
		{
			name:  "numbered",
			re:    regexp.MustCompile(`^([0-9٠-٩]{1,2})\s*[-.)]\s*(\p{Arabic}[^.!?؟]*)$`),
			title: fullLine,
		},
	}
)

func patternsFor(lang model.Language) []headingPattern {
	if lang == model.LanguageArabic {
		return arabicPatterns
	}
	return englishPatterns
}

var spaceRun = regexp.MustCompile(`\s+`)

func normalizeLine(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}

// ParseOutline scans text line by line for chapter headings. The first pattern
// that matches a line wins, duplicate titles are dropped case-insensitively,
// and each chapter's context is the text up to the next heading.
func ParseOutline(text string, lang model.Language) []model.Chapter {
	patterns := patternsFor(lang)
	lines := strings.Split(text, "\n")

	type hit struct {
		line  int
		title string
		toc   bool
	}
	var hits []hit
	for i, raw := range lines {
		line := normalizeLine(raw)
		n := utf8.RuneCountInString(line)
		if n < minHeadingRunes || n > maxHeadingRunes {
			continue
		}
		for _, p := range patterns {
			m := p.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			if title := p.title(m); title != "" {
				hits = append(hits, hit{line: i, title: title, toc: p.name == tocPattern.name})
			}
			break
		}
	}

	chapters := make([]model.Chapter, 0, len(hits))
	seen := make(map[string]int, len(hits))
	// Chapters whose context came from a table of contents entry. Whatever
	// follows the last entry (a preface, say) is not that chapter's body.
	fromTOC := make(map[int]bool, len(hits))
	for j, h := range hits {
		end := len(lines)
		if j+1 < len(hits) {
			end = hits[j+1].line
		}
		context := sectionContext(lines[h.line+1 : end])

		key := strings.ToLower(h.title)
		if idx, ok := seen[key]; ok {
			// A table of contents entry followed later by the real heading
			if context != "" && (fromTOC[idx] || chapters[idx].Context == model.PatternChapterContext) {
				chapters[idx].Context = context
				fromTOC[idx] = h.toc
			}
			continue
		}
		if len(chapters) >= maxPatternChapters {
			continue
		}

		if context == "" {
			context = model.PatternChapterContext
		}
		seen[key] = len(chapters)
		fromTOC[len(chapters)] = h.toc
		chapters = append(chapters, model.Chapter{Title: h.title, Context: context})
	}
	return chapters
}

// sectionContext joins the non-blank lines of a section, capped in runes
func sectionContext(lines []string) string {
	var b strings.Builder
	runes := 0
	for _, raw := range lines {
		line := normalizeLine(raw)
		if line == "" {
			continue
		}
		if b.Len() > 0 {
			line = " " + line
		}
		n := utf8.RuneCountInString(line)
		if runes+n > maxPatternContext {
			b.WriteString(truncateRunes(line, maxPatternContext-runes))
			break
		}
		b.WriteString(line)
		runes += n
	}
	return strings.TrimSpace(b.String())
}

// truncateRunes cuts s to at most n runes
func truncateRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

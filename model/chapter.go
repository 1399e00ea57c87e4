package model

const (
	// FallbackChapterTitle and FallbackChapterContext form the synthetic chapter
	// stored when no structure could be recovered from a document.
	FallbackChapterTitle   = "General Content"
	FallbackChapterContext = "Generated Fallback"

	// AIChapterContext tags chapters produced by the content-generation service
	AIChapterContext = "AI Extracted"

	// PatternChapterContext tags pattern-parsed chapters that had no body text
	PatternChapterContext = "Pattern Extracted"
)

// Chapter is one recovered structural unit of a document
type Chapter struct {
	Title   string `json:"title"`
	Context string `json:"context"`
}

// FallbackChapter returns the synthetic sentinel chapter
func FallbackChapter() Chapter {
	return Chapter{Title: FallbackChapterTitle, Context: FallbackChapterContext}
}

// IsFallback reports whether c is the synthetic sentinel, by its context tag
func (c Chapter) IsFallback() bool {
	return c.Context == FallbackChapterContext
}

// IsFallbackOnly reports whether chapters is exactly the single sentinel entry
func IsFallbackOnly(chapters []Chapter) bool {
	return len(chapters) == 1 && chapters[0].IsFallback()
}

// Language is one of the supported content languages
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageArabic  Language = "ar"
	// LanguageAuto asks OCR engines to load every supported model; never persisted
	LanguageAuto Language = "auto"
)

// OCRCode returns the traineddata code used by tesseract-style OCR services
func (l Language) OCRCode() string {
	switch l {
	case LanguageArabic:
		return "ara"
	case LanguageAuto:
		return "eng+ara"
	default:
		return "eng"
	}
}

// Hints returns BCP-47 language hints for engines that accept them
func (l Language) Hints() []string {
	switch l {
	case LanguageArabic:
		return []string{"ar"}
	case LanguageAuto:
		return []string{"en", "ar"}
	default:
		return []string{"en"}
	}
}

// ParseLanguage maps a user-supplied value onto a supported language.
// ok is false for empty or unknown input.
func ParseLanguage(s string) (Language, bool) {
	switch Language(s) {
	case LanguageEnglish, LanguageArabic:
		return Language(s), true
	}
	return "", false
}

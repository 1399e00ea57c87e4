package services

import (
	"unicode"

	"github.com/sahilchouksey/lesson-planner/model"
)

// ArabicRatioThreshold is the share of Arabic-script runes above which text is classified as Arabic
const ArabicRatioThreshold = 0.10

// minDetectableRunes is the smallest non-space sample the detector trusts
const minDetectableRunes = 200

// DetectLanguage classifies text as Arabic when more than ArabicRatioThreshold
// of its runes fall in the Arabic blocks, and English otherwise.
func DetectLanguage(text string) model.Language {
	total, arabic := 0, 0
	for _, r := range text {
		total++
		if isArabicRune(r) {
			arabic++
		}
	}
	if total == 0 {
		return model.LanguageEnglish
	}
	if float64(arabic)/float64(total) > ArabicRatioThreshold {
		return model.LanguageArabic
	}
	return model.LanguageEnglish
}

// hasDetectableSample reports whether text carries enough letters to classify
func hasDetectableSample(text string) bool {
	n := 0
	for _, r := range text {
		if unicode.IsSpace(r) {
			continue
		}
		n++
		if n >= minDetectableRunes {
			return true
		}
	}
	return false
}

func isArabicRune(r rune) bool {
	switch {
	case r >= 0x0600 && r <= 0x06FF, // Arabic
		r >= 0x0750 && r <= 0x077F, // Arabic Supplement
		r >= 0x08A0 && r <= 0x08FF, // Arabic Extended-A
		r >= 0xFB50 && r <= 0xFDFF, // Presentation Forms-A
		r >= 0xFE70 && r <= 0xFEFF: // Presentation Forms-B
		return true
	}
	return false
}

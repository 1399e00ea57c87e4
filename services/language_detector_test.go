package services

import (
	"strings"
	"testing"

	"github.com/sahilchouksey/lesson-planner/model"
)

func TestDetectLanguage(t *testing.T) {
	tests := []struct {
		name string
		text string
		want model.Language
	}{
		{"empty", "", model.LanguageEnglish},
		{"english", "Chapter 1: Introduction to Cells and Tissues", model.LanguageEnglish},
		{"arabic", "الفصل الأول: مقدمة في علم الأحياء", model.LanguageArabic},
		// 2 Arabic runes out of 20 is exactly 10%, which is not above the threshold
		{"at threshold", "بب" + strings.Repeat("a", 18), model.LanguageEnglish},
		{"just above threshold", "ببب" + strings.Repeat("a", 18), model.LanguageArabic},
		{"mixed mostly english", "Unit 3 Photosynthesis " + strings.Repeat("leaf ", 40) + "ورقة", model.LanguageEnglish},
		{"presentation forms", "ﻣﺮﺣﺒﺎ", model.LanguageArabic},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectLanguage(tt.text); got != tt.want {
				t.Errorf("DetectLanguage() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestHasDetectableSample(t *testing.T) {
	if hasDetectableSample(strings.Repeat(" \n", 500)) {
		t.Error("whitespace only should not be detectable")
	}
	if hasDetectableSample(strings.Repeat("a", minDetectableRunes-1)) {
		t.Error("short sample should not be detectable")
	}
	if !hasDetectableSample(strings.Repeat("a ", minDetectableRunes)) {
		t.Error("long sample should be detectable")
	}
}

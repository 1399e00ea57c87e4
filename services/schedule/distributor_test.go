package schedule

import (
	"fmt"
	"testing"
	"time"

	"github.com/sahilchouksey/lesson-planner/model"
)

// The clamp must never turn into a wrap-around.
func TestContentIndexForClamps(t *testing.T) {
	tests := []struct {
		day, chapters, want int
	}{
		{0, 3, 0},
		{1, 3, 1},
		{2, 3, 2},
		{3, 3, 2},
		{4, 3, 2},
		{100, 3, 2},
		{0, 1, 0},
		{7, 1, 0},
		{5, 0, 0},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("day%d_of_%d", tt.day, tt.chapters), func(t *testing.T) {
			if got := ContentIndexFor(tt.day, tt.chapters); got != tt.want {
				t.Errorf("ContentIndexFor(%d, %d) = %d, want %d", tt.day, tt.chapters, got, tt.want)
			}
		})
	}
}

func TestDistributeRepeatsLastChapter(t *testing.T) {
	days := TeachingDays(Config{
		StartDate: date(2025, time.September, 1),
		EndDate:   date(2025, time.September, 14),
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
	})
	chapters := []model.Chapter{
		{Title: "Cells", Context: "ctx-1"},
		{Title: "Genetics", Context: "ctx-2"},
		{Title: "Evolution", Context: "ctx-3"},
	}

	lessons := Distribute(42, days, chapters, 2)
	if len(lessons) != 4 {
		t.Fatalf("got %d lessons, want 4", len(lessons))
	}

	for i := 0; i < 3; i++ {
		if lessons[i].Title != chapters[i].Title || lessons[i].ContentContext != chapters[i].Context {
			t.Errorf("lesson %d = %q/%q, want chapter %d verbatim", i, lessons[i].Title, lessons[i].ContentContext, i)
		}
	}
	if lessons[3].Title != "Evolution" || lessons[3].ContentContext != "ctx-3" {
		t.Errorf("lesson 4 should repeat chapter 3, got %q/%q", lessons[3].Title, lessons[3].ContentContext)
	}

	for i, l := range lessons {
		if l.DocumentID != 42 {
			t.Errorf("lesson %d has document %d", i, l.DocumentID)
		}
		if l.Status != model.LessonStatusPending {
			t.Errorf("lesson %d status %s", i, l.Status)
		}
		if !l.ScheduledDate.Equal(days[i]) {
			t.Errorf("lesson %d date %v, want %v", i, l.ScheduledDate, days[i])
		}
	}
}

func TestDistributeClampPolicy(t *testing.T) {
	days := make([]time.Time, 9)
	for i := range days {
		days[i] = date(2025, time.October, 1).AddDate(0, 0, i)
	}
	chapters := []model.Chapter{{Title: "A", Context: "a"}, {Title: "B", Context: "b"}}

	lessons := Distribute(1, days, chapters, 5)
	if len(lessons) != len(days) {
		t.Fatalf("len(lessons) = %d, want %d", len(lessons), len(days))
	}
	for i := len(chapters); i < len(lessons); i++ {
		if lessons[i].ContentContext != "b" {
			t.Errorf("lesson %d context = %q, want last chapter's", i, lessons[i].ContentContext)
		}
	}
}

func TestDistributeFallbackSentinelUsesGenericTitles(t *testing.T) {
	days := make([]time.Time, 10)
	for i := range days {
		days[i] = date(2025, time.November, 3).AddDate(0, 0, 7*i)
	}

	lessons := Distribute(7, days, []model.Chapter{model.FallbackChapter()}, 1)
	if len(lessons) != 10 {
		t.Fatalf("got %d lessons, want 10", len(lessons))
	}
	for i, l := range lessons {
		want := fmt.Sprintf("Lesson %d", i+1)
		if l.Title != want {
			t.Errorf("lesson %d title = %q, want %q", i, l.Title, want)
		}
		if l.Title == model.FallbackChapterTitle {
			t.Errorf("lesson %d carries the sentinel title", i)
		}
		if l.ContentContext != model.FallbackChapterContext {
			t.Errorf("lesson %d context = %q", i, l.ContentContext)
		}
	}
}

func TestDistributeWithoutChaptersUsesPlaceholders(t *testing.T) {
	days := []time.Time{date(2025, 1, 6), date(2025, 1, 7), date(2025, 1, 8)}
	lessons := Distribute(1, days, nil, 3)

	for i, l := range lessons {
		if want := fmt.Sprintf("Lesson %d", i+1); l.Title != want {
			t.Errorf("lesson %d title = %q, want %q", i, l.Title, want)
		}
	}
}

func TestDistributeWeekNumbers(t *testing.T) {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = date(2025, 1, 1).AddDate(0, 0, i)
	}
	lessons := Distribute(1, days, []model.Chapter{{Title: "Only", Context: "x"}}, 3)

	want := []int{1, 1, 1, 2, 2, 2, 3}
	for i, l := range lessons {
		if l.WeekNumber != want[i] {
			t.Errorf("lesson %d week = %d, want %d", i, l.WeekNumber, want[i])
		}
	}

	if WeekNumber(4, 0) != 5 {
		t.Error("zero frequency should be treated as one lesson per week")
	}
}

func TestDistributeNoDays(t *testing.T) {
	lessons := Distribute(1, nil, []model.Chapter{{Title: "A"}}, 2)
	if lessons == nil || len(lessons) != 0 {
		t.Errorf("expected empty list, got %v", lessons)
	}
}

package schedule

import (
	"fmt"
	"time"

	"github.com/sahilchouksey/lesson-planner/model"
)

// ContentIndexFor maps a teaching-day index onto a chapter index.
// Days past the last chapter keep reusing the last chapter; the mapping never wraps.
func ContentIndexFor(dayIndex, chapterCount int) int {
	if chapterCount <= 0 {
		return 0
	}
	if dayIndex < chapterCount-1 {
		return dayIndex
	}
	return chapterCount - 1
}

// WeekNumber returns the 1-based teaching week of lesson i
func WeekNumber(i, weeklyFrequency int) int {
	if weeklyFrequency < 1 {
		weeklyFrequency = 1
	}
	return i/weeklyFrequency + 1
}

// Distribute produces one pending lesson per teaching day.
func Distribute(documentID uint, days []time.Time, chapters []model.Chapter, weeklyFrequency int) []model.Lesson {
	lessons := make([]model.Lesson, 0, len(days))
	if len(days) == 0 {
		return lessons
	}

	units := chapters
	if len(units) == 0 {
		units = placeholderUnits(len(days))
	}
	genericTitles := model.IsFallbackOnly(units)

	for i, day := range days {
		unit := units[ContentIndexFor(i, len(units))]

		title := unit.Title
		if genericTitles {
			title = fmt.Sprintf("Lesson %d", i+1)
		}

		lessons = append(lessons, model.Lesson{
			DocumentID:     documentID,
			ScheduledDate:  DateOf(day),
			Title:          title,
			ContentContext: unit.Context,
			Status:         model.LessonStatusPending,
			WeekNumber:     WeekNumber(i, weeklyFrequency),
		})
	}
	return lessons
}

func placeholderUnits(n int) []model.Chapter {
	units := make([]model.Chapter, n)
	for i := range units {
		units[i] = model.Chapter{Title: fmt.Sprintf("Lesson %d", i+1)}
	}
	return units
}

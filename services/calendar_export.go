package services

import (
	"fmt"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/google/uuid"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/services/schedule"
)

const icsProductID = "-//Lesson Planner//Schedule//EN"

// lessonUIDNamespace derives deterministic event UIDs; a lesson keeps its UID across exports
var lessonUIDNamespace = uuid.MustParse("5b0c3a8e-7f0e-4b8e-9c55-2f7f1f1f6c1d")

// LessonUID returns the stable calendar UID of a lesson
func LessonUID(lesson model.Lesson) string {
	return uuid.NewSHA1(lessonUIDNamespace, []byte(fmt.Sprintf("lesson/%d", lesson.ID))).String() + "@lesson-planner"
}

// BuildCalendar renders the lessons as an iCalendar document with one all-day
// event per lesson
func BuildCalendar(doc *model.Document, lessons []model.Lesson, now time.Time) []byte {
	cal := ics.NewCalendar()
	cal.SetProductId(icsProductID)
	cal.SetCalscale("GREGORIAN")
	cal.SetMethod(ics.MethodPublish)
	if doc != nil {
		cal.SetXWRCalName(icsText(doc.Title))
	}

	for _, lesson := range lessons {
		day := schedule.DateOf(lesson.ScheduledDate)

		event := cal.AddEvent(LessonUID(lesson))
		event.SetDtStampTime(now)
		event.SetAllDayStartAt(day)
		event.SetAllDayEndAt(day.AddDate(0, 0, 1))
		event.SetSummary(icsText(lesson.Title))
		event.SetDescription(fmt.Sprintf("Week %d\nStatus: %s", lesson.WeekNumber, lesson.Status))
	}

	return []byte(cal.Serialize(ics.WithNewLineWindows))
}

// icsText folds carriage returns into plain newlines, which the serializer escapes
func icsText(s string) string {
	return strings.ReplaceAll(strings.ReplaceAll(s, "\r\n", "\n"), "\r", "\n")
}

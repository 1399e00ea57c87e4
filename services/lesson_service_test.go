package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/sahilchouksey/lesson-planner/database"
	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/services/schedule"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

func createScheduledDocument(t *testing.T, db *gorm.DB, chapters []model.Chapter) *model.Document {
	t.Helper()
	doc := &model.Document{
		Title:       "Biology",
		FileName:    "bio.pdf",
		ContentHash: uuid.NewString(),
		PageCount:   10,
	}
	if err := doc.SetChapters(chapters); err != nil {
		t.Fatal(err)
	}
	if err := db.Create(doc).Error; err != nil {
		t.Fatalf("create document: %v", err)
	}
	return doc
}

func mondayWednesday(t *testing.T, start, end string) schedule.Config {
	return schedule.Config{
		StartDate: mustDate(t, start),
		EndDate:   mustDate(t, end),
		Weekdays:  []time.Weekday{time.Monday, time.Wednesday},
	}
}

var threeChapters = []model.Chapter{
	{Title: "Cells", Context: "cells"},
	{Title: "Genetics", Context: "genes"},
	{Title: "Evolution", Context: "change"},
}

func TestRegenerateScheduleRepeatsLastChapter(t *testing.T) {
	db := database.OpenTestDB(t)
	doc := createScheduledDocument(t, db, threeChapters)
	svc := NewLessonService(db, logger.NewNop())

	// 2024-01-01 is a Monday
	lessons, err := svc.RegenerateSchedule(context.Background(), doc.ID, mondayWednesday(t, "2024-01-01", "2024-01-12"))
	if err != nil {
		t.Fatalf("RegenerateSchedule: %v", err)
	}

	want := []struct {
		date  string
		title string
		week  int
	}{
		{"2024-01-01", "Cells", 1},
		{"2024-01-03", "Genetics", 1},
		{"2024-01-08", "Evolution", 2},
		{"2024-01-10", "Evolution", 2},
	}
	if len(lessons) != len(want) {
		t.Fatalf("got %d lessons, want %d", len(lessons), len(want))
	}
	for i, w := range want {
		l := lessons[i]
		if l.ScheduledDate.Format(schedule.DateLayout) != w.date || l.Title != w.title || l.WeekNumber != w.week {
			t.Errorf("lesson %d = %s %q week %d, want %s %q week %d",
				i, l.ScheduledDate.Format(schedule.DateLayout), l.Title, l.WeekNumber, w.date, w.title, w.week)
		}
		if l.Status != model.LessonStatusPending || l.ID == 0 {
			t.Errorf("lesson %d status %s id %d", i, l.Status, l.ID)
		}
	}
}

func TestRegenerateScheduleIsIdempotent(t *testing.T) {
	db := database.OpenTestDB(t)
	doc := createScheduledDocument(t, db, threeChapters)
	svc := NewLessonService(db, logger.NewNop())
	ctx := context.Background()
	cfg := mondayWednesday(t, "2024-01-01", "2024-02-29")

	first, err := svc.RegenerateSchedule(ctx, doc.ID, cfg)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.RegenerateSchedule(ctx, doc.ID, cfg)
	if err != nil {
		t.Fatal(err)
	}

	stored, err := svc.ListLessons(ctx, doc.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != len(second) || len(stored) != len(second) {
		t.Fatalf("counts: first %d, second %d, stored %d", len(first), len(second), len(stored))
	}
	for i := range stored {
		if !schedule.SameDay(stored[i].ScheduledDate, first[i].ScheduledDate) {
			t.Errorf("lesson %d date changed: %v vs %v", i, stored[i].ScheduledDate, first[i].ScheduledDate)
		}
		if i > 0 && stored[i].ScheduledDate.Before(stored[i-1].ScheduledDate) {
			t.Errorf("lessons not date-sorted at %d", i)
		}
	}
}

func TestRegenerateScheduleErrors(t *testing.T) {
	db := database.OpenTestDB(t)
	doc := createScheduledDocument(t, db, threeChapters)
	svc := NewLessonService(db, logger.NewNop())
	ctx := context.Background()

	existing, err := svc.RegenerateSchedule(ctx, doc.ID, mondayWednesday(t, "2024-01-01", "2024-01-12"))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		docID uint
		cfg   schedule.Config
		want  error
	}{
		{"missing range", doc.ID, schedule.Config{Weekdays: []time.Weekday{time.Monday}}, ErrScheduleInputMissing},
		{"missing document", 0, mondayWednesday(t, "2024-01-01", "2024-01-12"), ErrScheduleInputMissing},
		{"unknown document", 999, mondayWednesday(t, "2024-01-01", "2024-01-12"), ErrDocumentNotFound},
		{"weekend only range", doc.ID, mondayWednesday(t, "2024-01-06", "2024-01-07"), ErrEmptySchedule},
		{"end before start", doc.ID, mondayWednesday(t, "2024-01-12", "2024-01-01"), ErrEmptySchedule},
		{"range too long", doc.ID, mondayWednesday(t, "2024-01-01", "2099-12-31"), ErrScheduleRangeTooLong},
		{"far future end", doc.ID, mondayWednesday(t, "1900-01-01", "9999-12-31"), ErrScheduleRangeTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.RegenerateSchedule(ctx, tt.docID, tt.cfg); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	stored, _ := svc.ListLessons(ctx, doc.ID)
	if len(stored) != len(existing) {
		t.Errorf("failed regeneration changed the schedule: %d lessons, want %d", len(stored), len(existing))
	}
}

func TestRegenerateScheduleFallbackTitles(t *testing.T) {
	db := database.OpenTestDB(t)
	doc := createScheduledDocument(t, db, []model.Chapter{model.FallbackChapter()})
	svc := NewLessonService(db, logger.NewNop())

	// Ten weekdays
	cfg := schedule.Config{
		StartDate: mustDate(t, "2024-01-01"),
		EndDate:   mustDate(t, "2024-01-12"),
		Weekdays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
	}
	lessons, err := svc.RegenerateSchedule(context.Background(), doc.ID, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(lessons) != 10 {
		t.Fatalf("got %d lessons", len(lessons))
	}
	for i, l := range lessons {
		if want := fmt.Sprintf("Lesson %d", i+1); l.Title != want || l.ContentContext != model.FallbackChapterContext {
			t.Errorf("lesson %d = %q / %q", i, l.Title, l.ContentContext)
		}
	}
}

func TestUpdateStatus(t *testing.T) {
	db := database.OpenTestDB(t)
	doc := createScheduledDocument(t, db, threeChapters)
	svc := NewLessonService(db, logger.NewNop())
	ctx := context.Background()
	lessons, err := svc.RegenerateSchedule(ctx, doc.ID, mondayWednesday(t, "2024-01-01", "2024-01-12"))
	if err != nil {
		t.Fatal(err)
	}
	id := lessons[0].ID

	steps := []struct {
		to   model.LessonStatus
		want error
	}{
		{model.LessonStatusCompleted, nil},
		{model.LessonStatusCompleted, ErrInvalidStatusTransition},
		{model.LessonStatusPending, ErrInvalidStatusTransition},
		{model.LessonStatus("archived"), ErrInvalidStatusTransition},
		{model.LessonStatusPlanned, nil},
		{model.LessonStatusSkipped, nil},
	}
	for _, step := range steps {
		lesson, err := svc.UpdateStatus(ctx, id, step.to)
		if !errors.Is(err, step.want) {
			t.Fatalf("to %s: err = %v, want %v", step.to, err, step.want)
		}
		if err == nil && lesson.Status != step.to {
			t.Errorf("status = %s, want %s", lesson.Status, step.to)
		}
	}

	if _, err := svc.UpdateStatus(ctx, 999, model.LessonStatusPlanned); !errors.Is(err, ErrLessonNotFound) {
		t.Errorf("missing lesson = %v", err)
	}
}

func TestProgressSyncNeverDecreasesPointer(t *testing.T) {
	db := database.OpenTestDB(t)
	doc := createScheduledDocument(t, db, threeChapters)
	ctx := context.Background()
	lessons, err := NewLessonService(db, nil).RegenerateSchedule(ctx, doc.ID, mondayWednesday(t, "2024-01-01", "2024-01-31"))
	if err != nil {
		t.Fatal(err)
	}
	sync := NewProgressSynchronizer(db, logger.NewNop())

	res, err := sync.Sync(ctx, doc.ID, lessons[3].ID)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Position != 4 || res.Pointer != 4 || !res.Advanced || res.Status != model.LessonStatusPlanned {
		t.Errorf("first sync = %+v", res)
	}

	// Syncing an earlier lesson plans it but leaves the pointer alone
	res, err = sync.Sync(ctx, doc.ID, lessons[1].ID)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if res.Position != 2 || res.Pointer != 4 || res.Advanced || res.Status != model.LessonStatusPlanned {
		t.Errorf("earlier sync = %+v", res)
	}

	if got := reloadDocument(t, db, doc.ID); got.CurrentLessonPointer != 4 {
		t.Errorf("stored pointer = %d", got.CurrentLessonPointer)
	}

	var planned int64
	db.Model(&model.Lesson{}).Where("document_id = ? AND status = ?", doc.ID, model.LessonStatusPlanned).Count(&planned)
	if planned != 2 {
		t.Errorf("planned lessons = %d, want 2", planned)
	}
}

func TestProgressSyncErrors(t *testing.T) {
	db := database.OpenTestDB(t)
	doc := createScheduledDocument(t, db, threeChapters)
	other := createScheduledDocument(t, db, threeChapters)
	ctx := context.Background()

	lessons, err := NewLessonService(db, nil).RegenerateSchedule(ctx, other.ID, mondayWednesday(t, "2024-01-01", "2024-01-12"))
	if err != nil {
		t.Fatal(err)
	}
	sync := NewProgressSynchronizer(db, nil)

	if _, err := sync.Sync(ctx, doc.ID, lessons[0].ID); !errors.Is(err, ErrLessonNotFound) {
		t.Errorf("lesson of another document = %v", err)
	}
	if _, err := sync.Sync(ctx, 999, lessons[0].ID); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("missing document = %v", err)
	}
}

func TestGormSaveCannotMovePointer(t *testing.T) {
	db := database.OpenTestDB(t)
	doc := createScheduledDocument(t, db, threeChapters)

	doc.CurrentLessonPointer = 9
	doc.Title = "Renamed"
	if err := db.Save(doc).Error; err != nil {
		t.Fatal(err)
	}

	got := reloadDocument(t, db, doc.ID)
	if got.Title != "Renamed" || got.CurrentLessonPointer != 1 {
		t.Errorf("title %q, pointer %d", got.Title, got.CurrentLessonPointer)
	}
}

func TestActiveLessonSelection(t *testing.T) {
	day := func(s string) model.Lesson {
		return model.Lesson{ScheduledDate: mustDate(t, s), Title: s, Status: model.LessonStatusPending}
	}
	pending := []model.Lesson{day("2024-03-04"), day("2024-03-06"), day("2024-03-11"), day("2024-03-13")}

	tests := []struct {
		name     string
		pointer  int
		today    string
		wantKind ActiveLessonKind
		want     string
	}{
		{"exact match", 1, "2024-03-06", ActiveLessonToday, "2024-03-06"},
		{"between lessons", 1, "2024-03-07", ActiveLessonNext, "2024-03-11"},
		{"before schedule", 1, "2024-03-01", ActiveLessonNext, "2024-03-04"},
		{"pointer skips today's lesson", 3, "2024-03-06", ActiveLessonNext, "2024-03-11"},
		{"zero pointer treated as one", 0, "2024-03-04", ActiveLessonToday, "2024-03-04"},
		{"after schedule", 1, "2024-03-14", "", ""},
		{"pointer past end", 5, "2024-03-01", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := pickActiveLesson(pending, tt.pointer, mustDate(t, tt.today))
			if tt.want == "" {
				if got != nil {
					t.Fatalf("got %+v, want none", got)
				}
				return
			}
			if got == nil || got.Kind != tt.wantKind || got.Lesson.Title != tt.want {
				t.Fatalf("got %+v, want %s %s", got, tt.wantKind, tt.want)
			}
		})
	}
}

func TestActiveLessonSelectorUsesTimeZone(t *testing.T) {
	db := database.OpenTestDB(t)
	doc := createScheduledDocument(t, db, threeChapters)
	ctx := context.Background()
	if _, err := NewLessonService(db, nil).RegenerateSchedule(ctx, doc.ID, mondayWednesday(t, "2024-01-01", "2024-01-12")); err != nil {
		t.Fatal(err)
	}

	// 22:00 UTC on Tuesday is already Wednesday in UTC+3
	loc := time.FixedZone("UTC+3", 3*60*60)
	selector := NewActiveLessonSelector(db, loc)
	selector.Now = func() time.Time { return time.Date(2024, 1, 2, 22, 0, 0, 0, time.UTC) }

	active, err := selector.Select(ctx, doc.ID)
	if err != nil {
		t.Fatalf("Select: %v", err)
	}
	if active == nil || active.Kind != ActiveLessonToday || active.Lesson.Title != "Genetics" {
		t.Fatalf("active = %+v", active)
	}

	if _, err := selector.Select(ctx, 999); !errors.Is(err, ErrDocumentNotFound) {
		t.Errorf("missing document = %v", err)
	}
}

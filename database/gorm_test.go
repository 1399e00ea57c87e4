package database

import (
	"testing"
	"time"

	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
)

func TestMigrateAndHealthCheck(t *testing.T) {
	db := OpenTestDB(t)
	store := NewGORMStore(db, logger.NewNop())

	if err := store.HealthCheck(); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}

	for _, table := range []interface{}{&model.Document{}, &model.DocumentFile{}, &model.Lesson{}, &model.CronJobLog{}} {
		if !db.Migrator().HasTable(table) {
			t.Errorf("missing table for %T", table)
		}
	}
}

func TestLessonPointerIsCreateOnly(t *testing.T) {
	db := OpenTestDB(t)

	doc := model.Document{Title: "Biology", FileName: "bio.pdf", ContentHash: "h1", CurrentLessonPointer: 3}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("create: %v", err)
	}

	doc.CurrentLessonPointer = 9
	doc.Title = "Biology II"
	if err := db.Save(&doc).Error; err != nil {
		t.Fatalf("save: %v", err)
	}

	var reloaded model.Document
	if err := db.First(&reloaded, doc.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if reloaded.Title != "Biology II" {
		t.Errorf("title not saved: %q", reloaded.Title)
	}
	if reloaded.CurrentLessonPointer != 3 {
		t.Errorf("pointer moved through Save: got %d, want 3", reloaded.CurrentLessonPointer)
	}
}

func TestLessonDateRoundTrip(t *testing.T) {
	db := OpenTestDB(t)

	doc := model.Document{Title: "Math", FileName: "m.pdf", ContentHash: "h2"}
	if err := db.Create(&doc).Error; err != nil {
		t.Fatalf("create doc: %v", err)
	}
	day := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)
	lesson := model.Lesson{DocumentID: doc.ID, ScheduledDate: day, Title: "Lesson 1", Status: model.LessonStatusPending, WeekNumber: 1}
	if err := db.Create(&lesson).Error; err != nil {
		t.Fatalf("create lesson: %v", err)
	}

	var got model.Lesson
	if err := db.First(&got, lesson.ID).Error; err != nil {
		t.Fatalf("reload: %v", err)
	}
	y, m, d := got.ScheduledDate.Date()
	if y != 2025 || m != time.September || d != 1 {
		t.Errorf("date = %v", got.ScheduledDate)
	}
}

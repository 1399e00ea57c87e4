package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sahilchouksey/lesson-planner/database"
	"github.com/sahilchouksey/lesson-planner/handlers"
	backup_handlers "github.com/sahilchouksey/lesson-planner/handlers/backup"
	document_handlers "github.com/sahilchouksey/lesson-planner/handlers/document"
	lesson_handlers "github.com/sahilchouksey/lesson-planner/handlers/lesson"
	"github.com/sahilchouksey/lesson-planner/services"
	"github.com/sahilchouksey/lesson-planner/utils/auth"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
	"github.com/sahilchouksey/lesson-planner/utils/pdfvalidation"
)

// Dependencies are the services the HTTP surface is built on
type Dependencies struct {
	Store         database.Storage
	Documents     *services.DocumentService
	Lessons       *services.LessonService
	Synchronizer  *services.ProgressSynchronizer
	Selector      *services.ActiveLessonSelector
	Backup        *services.BackupService
	FeedTokens    *auth.FeedTokenManager
	UploadLimits  pdfvalidation.UploadLimits
	PublicBaseURL string
	Readiness     []handlers.ReadinessCheck
	Log           *logger.Logger
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Readiness...)
	documentHandler := document_handlers.NewDocumentHandler(deps.Documents, deps.UploadLimits, deps.Log)
	lessonHandler := lesson_handlers.NewLessonHandler(lesson_handlers.LessonHandlerOptions{
		LessonService: deps.Lessons,
		Synchronizer:  deps.Synchronizer,
		Selector:      deps.Selector,
		FeedTokens:    deps.FeedTokens,
		PublicBaseURL: deps.PublicBaseURL,
		Log:           deps.Log,
	})
	backupHandler := backup_handlers.NewBackupHandler(deps.Backup, deps.Log)

	// Health check
	app.Get("/ping", healthHandler.Ping)
	app.Get("/ping/ready", healthHandler.Ready)

	// API v1 routes
	api := app.Group("/api/v1")

	// Document routes
	documents := api.Group("/documents")
	documents.Post("/", documentHandler.UploadDocument)
	documents.Get("/", documentHandler.ListDocuments)
	documents.Get("/:id", documentHandler.GetDocument)
	documents.Delete("/:id", documentHandler.DeleteDocument)
	documents.Post("/:id/reanalyze", documentHandler.ReanalyzeDocument)

	// Deep indexing
	documents.Get("/:id/indexing", documentHandler.GetIndexingStatus)
	documents.Get("/:id/indexing/stream", documentHandler.StreamIndexing)
	documents.Post("/:id/indexing/cancel", documentHandler.CancelIndexing)

	// Schedule and progress
	documents.Post("/:id/schedule", lessonHandler.GenerateSchedule)
	documents.Get("/:id/lessons", lessonHandler.ListLessons)
	documents.Post("/:id/sync", lessonHandler.SyncProgress)
	documents.Get("/:id/active-lesson", lessonHandler.GetActiveLesson)

	// Calendar export
	documents.Get("/:id/calendar.ics", lessonHandler.DownloadCalendar)
	documents.Post("/:id/calendar-token", lessonHandler.CreateCalendarToken)
	api.Get("/calendar/:token", lessonHandler.CalendarFeed)

	// Lesson routes
	api.Patch("/lessons/:id/status", lessonHandler.UpdateLessonStatus)

	// Backup routes
	api.Get("/backup", backupHandler.DownloadBackup)
	api.Post("/restore", backupHandler.Restore)
}

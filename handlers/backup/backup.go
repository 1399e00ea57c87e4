package backup

import (
	"bytes"
	"fmt"
	"io"

	"github.com/gofiber/fiber/v2"

	"github.com/sahilchouksey/lesson-planner/handlers"
	"github.com/sahilchouksey/lesson-planner/services"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
	"github.com/sahilchouksey/lesson-planner/utils/response"
)

// BackupHandler handles snapshot export and restore
type BackupHandler struct {
	backupService *services.BackupService
	log           *logger.Logger
}

// NewBackupHandler creates a new backup handler
func NewBackupHandler(backupService *services.BackupService, log *logger.Logger) *BackupHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &BackupHandler{
		backupService: backupService,
		log:           log.With("component", "backup_handler"),
	}
}

// DownloadBackup handles GET /api/v1/backup
func (h *BackupHandler) DownloadBackup(c *fiber.Ctx) error {
	var buf bytes.Buffer
	if _, err := h.backupService.WriteBackup(c.UserContext(), &buf); err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSONCharsetUTF8)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="lesson-planner-backup.json"`))
	return c.Send(buf.Bytes())
}

// Restore handles POST /api/v1/restore. The snapshot is read from a multipart
// "file" field when present, otherwise from the raw request body.
func (h *BackupHandler) Restore(c *fiber.Ctx) error {
	var body io.Reader = bytes.NewReader(c.Body())

	if file, err := c.FormFile("file"); err == nil {
		f, err := file.Open()
		if err != nil {
			return response.BadRequest(c, "Failed to open backup file")
		}
		defer f.Close()
		body = f
	}

	result, err := h.backupService.Restore(c.UserContext(), body)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.SuccessWithMessage(c, "Backup restored", result)
}

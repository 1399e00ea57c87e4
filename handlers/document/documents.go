package document

import (
	"github.com/gofiber/fiber/v2"

	"github.com/sahilchouksey/lesson-planner/handlers"
	"github.com/sahilchouksey/lesson-planner/services"
	"github.com/sahilchouksey/lesson-planner/utils/logger"
	"github.com/sahilchouksey/lesson-planner/utils/pdfvalidation"
	"github.com/sahilchouksey/lesson-planner/utils/response"
	"github.com/sahilchouksey/lesson-planner/utils/validation"
)

// DocumentHandler handles document-related requests
type DocumentHandler struct {
	documentService *services.DocumentService
	limits          pdfvalidation.UploadLimits
	log             *logger.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documentService *services.DocumentService, limits pdfvalidation.UploadLimits, log *logger.Logger) *DocumentHandler {
	if log == nil {
		log = logger.NewNop()
	}
	return &DocumentHandler{
		documentService: documentService,
		limits:          limits,
		log:             log.With("component", "document_handler"),
	}
}

// UploadDocument handles POST /api/v1/documents
func (h *DocumentHandler) UploadDocument(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "File is required")
	}

	result, content, err := pdfvalidation.ReadUpload(file, h.limits)
	if err != nil {
		return response.InternalServerError(c, "Failed to read upload")
	}
	if !result.Valid {
		return response.BadRequest(c, result.Error)
	}

	contentType := file.Header.Get(fiber.HeaderContentType)
	if contentType == "" || contentType == fiber.MIMEOctetStream {
		contentType = pdfvalidation.ContentTypeFor(file.Filename)
	}

	doc, err := h.documentService.Ingest(c.UserContext(), services.IngestRequest{
		Title:       validation.SanitizeString(c.FormValue("title")),
		Subject:     validation.SanitizeString(c.FormValue("subject")),
		FileName:    file.Filename,
		ContentType: contentType,
		Content:     content,
	})
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	return response.Created(c, "Document uploaded", doc)
}

// ListDocuments handles GET /api/v1/documents
func (h *DocumentHandler) ListDocuments(c *fiber.Ctx) error {
	docs, err := h.documentService.ListDocuments(c.UserContext())
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, docs)
}

// GetDocument handles GET /api/v1/documents/:id
func (h *DocumentHandler) GetDocument(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	doc, err := h.documentService.GetDocument(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, doc)
}

// DeleteDocument handles DELETE /api/v1/documents/:id
func (h *DocumentHandler) DeleteDocument(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	if err := h.documentService.DeleteDocumentWithCleanup(c.UserContext(), id); err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.SuccessWithMessage(c, "Document deleted successfully", fiber.Map{"id": id})
}

// ReanalyzeDocument handles POST /api/v1/documents/:id/reanalyze
func (h *DocumentHandler) ReanalyzeDocument(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	doc, err := h.documentService.Reanalyze(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.SuccessWithMessage(c, "Document outline re-analyzed", doc)
}

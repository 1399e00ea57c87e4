package document

import (
	"bufio"
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/sahilchouksey/lesson-planner/handlers"
	"github.com/sahilchouksey/lesson-planner/model"
	"github.com/sahilchouksey/lesson-planner/services"
	"github.com/sahilchouksey/lesson-planner/utils/response"
	"github.com/sahilchouksey/lesson-planner/utils/sse"
)

// Stream timing for GET /indexing/stream
var (
	StreamPollInterval = time.Second
	StreamKeepAlive    = 15 * time.Second
	StreamMaxDuration  = 2 * time.Hour
)

// GetIndexingStatus handles GET /api/v1/documents/:id/indexing
func (h *DocumentHandler) GetIndexingStatus(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	status, err := h.documentService.IndexingStatus(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.Success(c, status)
}

// CancelIndexing handles POST /api/v1/documents/:id/indexing/cancel
func (h *DocumentHandler) CancelIndexing(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	status, err := h.documentService.CancelIndexing(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}
	return response.SuccessWithMessage(c, "Deep indexing cancelled", status)
}

// StreamIndexing handles GET /api/v1/documents/:id/indexing/stream.
// It emits an event whenever progress changes and closes after a terminal event.
func (h *DocumentHandler) StreamIndexing(c *fiber.Ctx) error {
	id, ok := handlers.ParseID(c, "id")
	if !ok {
		return response.BadRequest(c, "Invalid document ID")
	}

	// Resolve the document before switching to a stream so 404s stay JSON
	first, err := h.documentService.IndexingStatus(c.UserContext(), id)
	if err != nil {
		return handlers.ServiceError(c, h.log, err)
	}

	sse.SetHeaders(c)
	log := h.log.With("document_id", id)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		// The request context is gone once the handler returns
		ctx, cancel := context.WithTimeout(context.Background(), StreamMaxDuration)
		defer cancel()

		last := *first
		if err := sendProgress(w, last); err != nil || streamFinished(last) {
			return
		}

		poll := time.NewTicker(StreamPollInterval)
		defer poll.Stop()
		keepAlive := time.NewTicker(StreamKeepAlive)
		defer keepAlive.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-keepAlive.C:
				if err := sse.SendKeepAlive(w); err != nil {
					log.Debug("index stream client went away")
					return
				}
			case <-poll.C:
				current, err := h.documentService.IndexingStatus(ctx, id)
				if err != nil {
					_ = sse.SendError(w, err)
					return
				}
				if !progressChanged(last, *current) {
					continue
				}
				last = *current
				if err := sendProgress(w, last); err != nil {
					log.Debug("index stream client went away")
					return
				}
				if streamFinished(last) {
					return
				}
			}
		}
	})
	return nil
}

func sendProgress(w *bufio.Writer, event services.IndexProgressEvent) error {
	return sse.Send(w, sse.Event{
		Event: event.Type,
		ID:    uuid.NewString(),
		Retry: int(StreamPollInterval.Milliseconds()) * 3,
		Data:  event,
	})
}

func progressChanged(prev, next services.IndexProgressEvent) bool {
	return prev.Type != next.Type || prev.Status != next.Status || prev.IndexedPages != next.IndexedPages
}

// streamFinished reports whether no further progress is expected
func streamFinished(event services.IndexProgressEvent) bool {
	switch event.Status {
	case model.IndexingStatusCompleted, model.IndexingStatusFailed, model.IndexingStatusCancelled:
		return true
	}
	return false
}

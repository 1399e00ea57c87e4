package sse

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// Event is one server-sent event. Data is JSON-encoded unless it is a string.
type Event struct {
	Event string // empty omits the event: line
	ID    string
	Retry int // reconnection delay in milliseconds, 0 omits it
	Data  interface{}
}

// SetHeaders prepares a fiber response for an event stream
func SetHeaders(c *fiber.Ctx) {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")
}

// Send writes one event and flushes it to the client
func Send(w *bufio.Writer, event Event) error {
	payload, ok := event.Data.(string)
	if !ok {
		data, err := json.Marshal(event.Data)
		if err != nil {
			return fmt.Errorf("failed to marshal event data: %w", err)
		}
		payload = string(data)
	}

	var b strings.Builder
	if event.ID != "" {
		fmt.Fprintf(&b, "id: %s\n", event.ID)
	}
	if event.Retry > 0 {
		fmt.Fprintf(&b, "retry: %d\n", event.Retry)
	}
	if event.Event != "" {
		fmt.Fprintf(&b, "event: %s\n", event.Event)
	}
	for _, line := range strings.Split(payload, "\n") {
		fmt.Fprintf(&b, "data: %s\n", line)
	}
	b.WriteByte('\n')

	return write(w, b.String())
}

// SendError reports a failure to the client as an "error" event
func SendError(w *bufio.Writer, err error) error {
	return Send(w, Event{
		Event: "error",
		Data:  map[string]string{"type": "error", "message": err.Error()},
	})
}

// SendKeepAlive writes a comment line so idle proxies keep the stream open
func SendKeepAlive(w *bufio.Writer) error {
	return write(w, ": ping\n\n")
}

func write(w *bufio.Writer, s string) error {
	if _, err := w.WriteString(s); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}
	return w.Flush()
}

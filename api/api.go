package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/sahilchouksey/lesson-planner/utils/logger"
	"github.com/sahilchouksey/lesson-planner/utils/response"
)

// ShutdownTimeout bounds how long in-flight requests may take after a stop signal
const ShutdownTimeout = 15 * time.Second

type APIServer struct {
	app           *fiber.App
	listenAddress string
	log           *logger.Logger
}

// NewAPIServer creates the fiber app. bodyLimitMB caps request bodies and must
// cover the largest accepted upload.
func NewAPIServer(listenAddress string, bodyLimitMB int, log *logger.Logger) *APIServer {
	if log == nil {
		log = logger.NewNop()
	}
	if bodyLimitMB <= 0 {
		bodyLimitMB = 4
	}
	app := fiber.New(fiber.Config{
		AppName:               "lesson-planner",
		BodyLimit:             (bodyLimitMB + 1) * 1024 * 1024, // headroom for multipart framing
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
	})
	return &APIServer{
		app:           app,
		listenAddress: listenAddress,
		log:           log.With("component", "api"),
	}
}

func (s *APIServer) GetEngine() *fiber.App {
	return s.app
}

// Run serves until ctx is cancelled, then drains in-flight requests
func (s *APIServer) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting API server", "address", s.listenAddress)
		errCh <- s.app.Listen(s.listenAddress)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("shutting down API server")
	if err := s.app.ShutdownWithTimeout(ShutdownTimeout); err != nil {
		return err
	}
	return <-errCh
}

// errorHandler renders fiber's own errors (unknown route, body too large) in the response envelope
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	switch code {
	case fiber.StatusNotFound:
		return response.NotFound(c, "Route not found")
	case fiber.StatusRequestEntityTooLarge:
		return response.Error(c, code, "Upload exceeds the size limit", "PAYLOAD_TOO_LARGE")
	case fiber.StatusInternalServerError:
		return response.InternalServerError(c, "")
	}
	return response.Error(c, code, err.Error(), "HTTP_ERROR")
}

package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/ytget/fetchmux/internal/events"
	"github.com/ytget/fetchmux/internal/format"
	"github.com/ytget/fetchmux/internal/queue"
)

// Server exposes the queue over HTTP
type Server struct {
	app     *fiber.App
	service *Service
	manager *queue.Manager
	hub     *events.Hub
	log     *zap.Logger
}

// NewServer builds the fiber application and registers all routes
func NewServer(service *Service, manager *queue.Manager, hub *events.Hub, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		app: fiber.New(fiber.Config{
			DisableStartupMessage: true,
		}),
		service: service,
		manager: manager,
		hub:     hub,
		log:     log,
	}

	s.app.Use(recover.New())
	s.app.Use(cors.New())

	s.app.Post("/jobs", s.handleSubmit)
	s.app.Get("/jobs", s.handleList)
	s.app.Get("/jobs/:id", s.handleGet)
	s.app.Delete("/jobs/:id", s.handleCancel)
	s.app.Post("/jobs/:id/retry", s.handleRetry)
	s.app.Post("/jobs/:id/promote", s.handlePromote)
	s.app.Delete("/queue", s.handleClearQueue)
	s.app.Get("/events", s.handleEvents)

	s.app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	return s
}

// App returns the underlying fiber application, used by tests
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen starts serving on the given address and blocks
func (s *Server) Listen(addr string) error {
	s.log.Info("http server listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleSubmit(c *fiber.Ctx) error {
	var req SubmitRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "malformed request body"})
	}

	resp, err := s.service.Submit(c.Context(), req)
	if err != nil {
		return c.Status(submitStatus(err)).JSON(ErrorResponse{Error: err.Error()})
	}
	return c.Status(fiber.StatusAccepted).JSON(resp)
}

// submitStatus maps selection errors onto HTTP status codes
func submitStatus(err error) int {
	switch {
	case errors.Is(err, format.ErrInvalidRequest):
		return fiber.StatusBadRequest
	case errors.Is(err, format.ErrFormatNotFound),
		errors.Is(err, format.ErrNoMatchingFormats):
		return fiber.StatusUnprocessableEntity
	case errors.Is(err, format.ErrInvalidSourceURL):
		return fiber.StatusBadGateway
	default:
		return fiber.StatusInternalServerError
	}
}

func (s *Server) handleList(c *fiber.Ctx) error {
	switch state := c.Query("state"); state {
	case "active":
		return c.JSON(toJobResponses(s.manager.ListActive()))
	case "queued":
		return c.JSON(toJobResponses(s.manager.ListQueued()))
	case "completed":
		return c.JSON(toJobResponses(s.manager.ListCompleted()))
	case "":
		all := s.manager.ListActive()
		all = append(all, s.manager.ListQueued()...)
		all = append(all, s.manager.ListCompleted()...)
		return c.JSON(toJobResponses(all))
	default:
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: fmt.Sprintf("unknown state %q", state)})
	}
}

func (s *Server) handleGet(c *fiber.Ctx) error {
	job, ok := s.manager.GetJob(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "job not found"})
	}
	return c.JSON(toJobResponse(job))
}

func (s *Server) handleCancel(c *fiber.Ctx) error {
	if !s.manager.Cancel(c.Params("id")) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "job not found or already terminal"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleRetry(c *fiber.Ctx) error {
	id, ok := s.manager.Retry(c.Params("id"))
	if !ok {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "job not retryable"})
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"job_id": id})
}

func (s *Server) handlePromote(c *fiber.Ctx) error {
	if !s.manager.ForceProcessNext(c.Params("id")) {
		return c.Status(fiber.StatusConflict).JSON(ErrorResponse{Error: "job not queued or no free slot"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) handleClearQueue(c *fiber.Ctx) error {
	return c.JSON(ClearQueueResponse{Evicted: s.manager.ClearQueue()})
}

// handleEvents streams lifecycle events as server-sent events. The stream ends
// when the client disconnects or the hub closes the subscription.
func (s *Server) handleEvents(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	sub := s.hub.Subscribe(0)

	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Unsubscribe()

		for ev := range sub.C {
			payload, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, payload); err != nil {
				return
			}
			if err := w.Flush(); err != nil {
				return
			}
		}
	}))

	return nil
}

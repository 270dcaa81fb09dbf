// Package httpapi exposes document validity and question checks over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/goliatone/go-formval/pkg/formdef"
	"github.com/goliatone/go-formval/pkg/validation"
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithJWTSecret enables bearer token authentication. Without a secret every
// request is served anonymously.
func WithJWTSecret(secret string) Option {
	return func(s *Server) {
		s.secret = []byte(secret)
	}
}

// Server wires the validation engine to fiber routes.
type Server struct {
	app       *fiber.App
	validator *validation.Validator
	forms     *formdef.Set
	logger    zerolog.Logger
	secret    []byte
}

// New builds the server and registers its routes.
func New(v *validation.Validator, forms *formdef.Set, options ...Option) *Server {
	s := &Server{
		validator: v,
		forms:     forms,
		logger:    zerolog.Nop(),
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	if s.validator == nil {
		s.validator = validation.New()
	}

	s.app = fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	s.routes()
	return s
}

// App exposes the underlying fiber application, mainly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	s.logger.Info().Str("addr", addr).Msg("listening")
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) routes() {
	s.app.Use(s.logRequests)
	s.app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	v1 := s.app.Group("/v1", s.authenticate)
	v1.Post("/documents/validity", s.documentValidity)
	v1.Get("/documents/:id/dynamic-options", s.dynamicOptions)
	v1.Post("/questions/validate", s.validateQuestion)
	v1.Get("/forms/:slug", s.form)
}

func (s *Server) logRequests(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	status := c.Response().StatusCode()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status = fe.Code
	}
	s.logger.Info().
		Str("method", c.Method()).
		Str("path", c.Path()).
		Int("status", status).
		Dur("latency", time.Since(start)).
		Msg("request")
	return err
}

func (s *Server) documentValidity(c *fiber.Ctx) error {
	doc, err := s.forms.DecodeDocument(c.Body())
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	report, err := s.validator.GetDocumentValidity(c.UserContext(), doc)
	if err != nil {
		s.logger.Error().Err(err).Str("document", doc.ID).Msg("document validity failed")
		return fiber.NewError(fiber.StatusInternalServerError, "internal validation error")
	}
	return c.JSON(report)
}

type questionResponse struct {
	Valid  bool                     `json:"valid"`
	Errors []validation.ReportError `json:"errors"`
}

func (s *Server) validateQuestion(c *fiber.Ctx) error {
	var in validation.QuestionInput
	if err := json.Unmarshal(c.Body(), &in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid question payload: "+err.Error())
	}

	err := s.validator.ValidateQuestion(in)
	if err == nil {
		return c.JSON(questionResponse{Valid: true, Errors: []validation.ReportError{}})
	}
	failures := validation.Failures(err)
	if len(failures) == 0 {
		s.logger.Error().Err(err).Str("question", in.Slug).Msg("question validation failed")
		return fiber.NewError(fiber.StatusInternalServerError, "internal validation error")
	}

	resp := questionResponse{Errors: []validation.ReportError{}}
	for _, failure := range failures {
		for _, issue := range failure.Issues {
			resp.Errors = append(resp.Errors, validation.ReportError{Slug: issue.Slug, ErrorMsg: failure.Message})
		}
	}
	return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
}

func (s *Server) form(c *fiber.Ctx) error {
	form, ok := s.forms.Form(c.Params("slug"))
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "form not found")
	}
	return c.JSON(formdef.Export(form))
}

func (s *Server) dynamicOptions(c *fiber.Ctx) error {
	options, err := s.validator.Store().List(c.UserContext(), c.Params("id"))
	if err != nil {
		s.logger.Error().Err(err).Str("document", c.Params("id")).Msg("list dynamic options failed")
		return fiber.NewError(fiber.StatusInternalServerError, "could not list dynamic options")
	}
	if options == nil {
		return c.JSON([]any{})
	}
	return c.JSON(options)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "internal server error"
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		message = fe.Message
	}
	return c.Status(code).JSON(fiber.Map{"error": message})
}

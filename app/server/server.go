package server

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"scamtrap/app/config"
	"scamtrap/app/service/analysis"
	"scamtrap/app/service/callback"
	"scamtrap/app/service/session"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"github.com/samber/do"
)

const requestIDKey = "request_id"

type Service struct {
	cfg      *config.Config
	app      *fiber.App
	validate *validator.Validate

	sessionSvc  *session.Service
	analysisSvc *analysis.Service
	callbackSvc *callback.Service
}

func New(di *do.Injector) (*Service, error) {
	s := &Service{
		cfg:         do.MustInvoke[*config.Config](di),
		validate:    validator.New(validator.WithRequiredStructEnabled()),
		sessionSvc:  do.MustInvoke[*session.Service](di),
		analysisSvc: do.MustInvoke[*analysis.Service](di),
		callbackSvc: do.MustInvoke[*callback.Service](di),
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(func(c *fiber.Ctx) error {
		c.Locals(requestIDKey, uuid.NewString())
		return c.Next()
	})

	app.Get("/health", s.handleHealth)
	app.Post("/honeypot", s.requireAPIKey, s.handleHoneypot)

	s.app = app

	return s, nil
}

// App exposes the fiber app for tests.
func (s *Service) App() *fiber.App {
	return s.app
}

func (s *Service) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = s.app.ShutdownWithTimeout(5 * time.Second)
	}()

	if err := s.app.Listen(s.cfg.Server.Listen); err != nil {
		return fmt.Errorf("server listen: %w", err)
	}

	return nil
}

func (s *Service) requireAPIKey(c *fiber.Ctx) error {
	key := c.Get("x-api-key")
	if key == "" || subtle.ConstantTimeCompare([]byte(key), []byte(s.cfg.Server.APIKey)) != 1 {
		return c.Status(fiber.StatusUnauthorized).JSON(errorResponse{
			Status: "error",
			Reason: "unauthenticated",
		})
	}

	return c.Next()
}

func (s *Service) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

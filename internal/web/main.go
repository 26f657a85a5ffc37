// Package web assembles the HTTP API: middlewares, health and metrics endpoints and the handlers.
package web

import (
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ivolevy/grupo5-usuarios-sub001/internal/apperror"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/auth"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/config"
	fiberlogger "github.com/ivolevy/grupo5-usuarios-sub001/internal/logger/adapter/fiber"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler/admin/server/configuration"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler/admin/user"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler/dashboard"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler/login"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler/profile"
	"github.com/ivolevy/grupo5-usuarios-sub001/internal/web/handler/reset"
)

const (
	// HealthPath answers 200 while the service accepts traffic and 503 during shutdown.
	HealthPath = "/health"
	// MetricsPath serves the prometheus registry.
	MetricsPath = "/metrics"

	appName = "usuarios"
)

// Service represents the web service.
type Service struct {
	App          *fiber.App
	cfg          *config.Config
	fastShutDown bool
	alive        atomic.Bool
}

// Start starts the web service on the given address.
func (s *Service) Start(addr string) error {
	var doneFiber = make(chan bool)

	go func() {
		if err := s.App.Listen(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Msgf("fiber listen error: %v", err)
		}

		doneFiber <- true
	}()

	<-doneFiber // wait for fiber to stop

	return nil
}

// WaitShutdown waits for SIGINT or SIGTERM and stops the server gracefully.
func (s *Service) WaitShutdown() {
	irqSig := make(chan os.Signal, 1)
	signal.Notify(irqSig, syscall.SIGINT, syscall.SIGTERM)

	sig := <-irqSig
	log.Info().Msgf("shutdown request (signal: %v)", sig)

	s.Shutdown()
}

// Shutdown fails the health check for ShutDownTime seconds, unless fast shutdown is set,
// and stops the http server.
func (s *Service) Shutdown() {
	// Graceful shutdown for reverse proxies: set status to fail, so checkalive returns fail.
	s.alive.Store(false)

	if !s.fastShutDown {
		log.Info().Msgf(
			"graceful shutdown: return 503 while %d seconds to let LB to remove this pod from active targets",
			s.cfg.Webserver.ShutDownTime,
		)

		time.Sleep(time.Duration(s.cfg.Webserver.ShutDownTime) * time.Second)
	}

	log.Info().Msg("stopping http server ...")

	if err := s.App.Shutdown(); err != nil {
		log.Error().Err(err).Msg("")
	}

	log.Info().Msg("http server was stopped ... good bye...")
}

// SetFastShutDown skips the drain period of Shutdown.
func (s *Service) SetFastShutDown(fast bool) {
	s.fastShutDown = fast
}

// New creates the web service. deps must pass Check.
func New(cfg *config.Config, deps *handler.Deps) (*Service, error) {
	if cfg == nil {
		return nil, handler.ErrNilDeps
	}

	if err := deps.Check(); err != nil {
		return nil, err
	}

	app := fiber.New(
		fiber.Config{
			ReadBufferSize: 8192,
			AppName:        appName,
			CaseSensitive:  true,
			Prefork:        false,
			Immutable:      true,
			BodyLimit:      cfg.Webserver.BodyLimit,
			ErrorHandler:   apperror.FiberErrorHandler,
		},
	)

	service := &Service{
		cfg: cfg,
		App: app,
	}
	service.alive.Store(true)

	if !cfg.Webserver.DisableRecover {
		app.Use(recover.New(recover.Config{EnableStackTrace: cfg.DevMode}))
	}

	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Config:        cfg.Log,
		CheckAliveURI: HealthPath,
	}))

	app.Get(HealthPath, service.health)
	app.Get(MetricsPath, adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group(handler.APIPath, auth.Authenticate(deps.Authz))

	services := []handler.Service{
		&login.Service{},
		&reset.Service{},
		&profile.Service{},
		&user.Service{},
		&dashboard.Service{},
		&configuration.Service{},
	}

	for _, s := range services {
		if err := s.Init(api, deps); err != nil {
			return nil, err
		}
	}

	return service, nil
}

func (s *Service) health(c *fiber.Ctx) error {
	if !s.alive.Load() {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "shutting down"})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

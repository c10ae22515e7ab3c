package server

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/hrygo/polyglot/ai/observability/logging"
	"github.com/hrygo/polyglot/internal/profile"
	apiv1 "github.com/hrygo/polyglot/server/router/api/v1"
	"github.com/hrygo/polyglot/store"
)

type Server struct {
	Profile *profile.Profile
	Store   *store.Store
	Runtime *Runtime

	echoServer *echo.Echo
	logger     *slog.Logger
}

func NewServer(ctx context.Context, profile *profile.Profile, store *store.Store) (*Server, error) {
	logger := logging.New(logging.ForMode(profile.Mode))
	runtime, err := NewRuntime(profile, store, logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create runtime")
	}
	if runtime.LLM != nil {
		go func() {
			warmupCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			runtime.LLM.Warmup(warmupCtx)
		}()
	}

	s := &Server{
		Profile: profile,
		Store:   store,
		Runtime: runtime,
		logger:  logger,
	}
	s.echoServer = newEcho(logger)

	apiV1Service := apiv1.NewAPIV1Service(profile, runtime.Chat, runtime.Memory, runtime.Stats, runtime.Metrics.Handler())
	apiV1Service.Register(s.echoServer)
	return s, nil
}

func newEcho(logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = jsonSerializer{}
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
				"latency_ms", v.Latency.Milliseconds(),
			}
			if v.Error != nil {
				logger.LogAttrs(c.Request().Context(), slog.LevelWarn, "request failed",
					slog.Group("http", attrs...), slog.String("error", v.Error.Error()))
				return nil
			}
			logger.Debug("request", slog.Group("http", attrs...))
			return nil
		},
	}))
	return e
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", s.Profile.Addr, s.Profile.Port)
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return errors.Wrap(err, "failed to listen")
	}
	s.echoServer.Listener = listener

	go func() {
		if err := s.echoServer.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.ErrorContext(ctx, "failed to start echo server", "error", err)
		}
	}()
	return nil
}

// Shutdown stops the HTTP server, flushes cached sessions and closes the store.
func (s *Server) Shutdown(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	s.logger.Info("server shutting down")
	if err := s.echoServer.Shutdown(ctx); err != nil {
		s.logger.Error("failed to shutdown server", "error", err)
	}
	if err := s.Runtime.Close(ctx); err != nil {
		s.logger.Error("failed to flush session memory", "error", err)
	}
	if err := s.Store.Close(); err != nil {
		s.logger.Error("failed to close database", "error", err)
	}
	s.logger.Info("server stopped properly")
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

type jsonSerializer struct{}

func (jsonSerializer) Serialize(c echo.Context, i any, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsonSerializer) Deserialize(c echo.Context, i any) error {
	err := json.NewDecoder(c.Request().Body).Decode(i)
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("unmarshal type error: expected=%v, got=%v, field=%v", typeErr.Type, typeErr.Value, typeErr.Field)).SetInternal(err)
	case errors.As(err, &syntaxErr):
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("syntax error: offset=%v, error=%v", syntaxErr.Offset, syntaxErr.Error())).SetInternal(err)
	}
	return err
}

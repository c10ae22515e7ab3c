package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/polyglot/ai/chat"
	"github.com/hrygo/polyglot/ai/memory"
	"github.com/hrygo/polyglot/ai/pedagogy"
	"github.com/hrygo/polyglot/internal/profile"
)

// CacheStatsSource reports session memory statistics.
type CacheStatsSource interface {
	GetCacheStats() memory.CacheStats
}

type APIV1Service struct {
	Profile *profile.Profile
	Chat    *chat.Orchestrator
	Memory  CacheStatsSource
	Stats   *pedagogy.Stats
	Metrics http.Handler
}

func NewAPIV1Service(profile *profile.Profile, orch *chat.Orchestrator, mem CacheStatsSource, stats *pedagogy.Stats, metricsHandler http.Handler) *APIV1Service {
	return &APIV1Service{
		Profile: profile,
		Chat:    orch,
		Memory:  mem,
		Stats:   stats,
		Metrics: metricsHandler,
	}
}

// Register mounts the tutor API, the health check and the metrics endpoint.
func (s *APIV1Service) Register(e *echo.Echo) {
	e.GET("/healthz", s.Healthz)
	if s.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.Metrics))
	}

	corsHandler := middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOriginFunc: func(_ string) (bool, error) {
			return true, nil
		},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"*"},
	})
	api := e.Group("/api/v1", corsHandler, middleware.BodyLimit("64K"))
	api.POST("/sessions", s.CreateSession)
	api.POST("/sessions/:id/turns", s.CreateTurn)
	api.DELETE("/sessions/:id", s.EndSession)
	api.GET("/sessions/:id/messages", s.ListMessages)
	api.GET("/memory/stats", s.GetMemoryStats)
}

func (s *APIV1Service) Healthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.Profile.Version,
	})
}

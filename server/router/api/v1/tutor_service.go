package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/polyglot/ai/chat"
	"github.com/hrygo/polyglot/ai/memory"
	"github.com/hrygo/polyglot/ai/observability/logging"
	"github.com/hrygo/polyglot/ai/pedagogy"
	"github.com/hrygo/polyglot/ai/tutor"
	"github.com/hrygo/polyglot/store"
)

type CreateSessionRequest struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id"`
	Level          string `json:"level"`
	Mode           string `json:"mode"`
	Topic          string `json:"topic"`
	NativeLanguage string `json:"native_language"`
	TargetLanguage string `json:"target_language"`
}

type SessionResponse struct {
	ID             string `json:"id"`
	UserID         string `json:"user_id,omitempty"`
	Level          string `json:"level"`
	Mode           string `json:"mode"`
	Topic          string `json:"topic,omitempty"`
	NativeLanguage string `json:"native_language"`
	TargetLanguage string `json:"target_language"`
	CreatedTs      int64  `json:"created_ts"`
	UpdatedTs      int64  `json:"updated_ts"`
	EndedTs        int64  `json:"ended_ts,omitempty"`
}

func convertSession(s *store.TutorSession) *SessionResponse {
	return &SessionResponse{
		ID:             s.ID,
		UserID:         s.UserID,
		Level:          s.Level,
		Mode:           s.Mode,
		Topic:          s.Topic,
		NativeLanguage: s.NativeLanguage,
		TargetLanguage: s.TargetLanguage,
		CreatedTs:      s.CreatedTs,
		UpdatedTs:      s.UpdatedTs,
		EndedTs:        s.EndedTs,
	}
}

type CreateTurnRequest struct {
	Message string `json:"message"`
}

type ListMessagesResponse struct {
	SessionID string          `json:"session_id"`
	Messages  []tutor.Message `json:"messages"`
}

type MemoryStatsResponse struct {
	Memory   memory.CacheStats      `json:"memory"`
	Pedagogy pedagogy.StatsSnapshot `json:"pedagogy"`
}

// CreateSession starts a session or returns the active session with the same id.
func (s *APIV1Service) CreateSession(c echo.Context) error {
	var req CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	session, err := s.Chat.StartSession(c.Request().Context(), chat.StartParams{
		ID:             req.ID,
		UserID:         req.UserID,
		Level:          req.Level,
		Mode:           req.Mode,
		Topic:          req.Topic,
		NativeLanguage: req.NativeLanguage,
		TargetLanguage: req.TargetLanguage,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusCreated, convertSession(session))
}

// CreateTurn processes one learner message.
func (s *APIV1Service) CreateTurn(c echo.Context) error {
	var req CreateTurnRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body").SetInternal(err)
	}
	ctx, logger := logging.WithSession(c.Request().Context(), c.Param("id"))
	res, err := s.Chat.ProcessTurn(ctx, c.Param("id"), req.Message)
	if err != nil {
		logger.Warn("turn failed", "error", err)
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, res)
}

// EndSession flushes the session to the store and marks it ended.
func (s *APIV1Service) EndSession(c echo.Context) error {
	session, err := s.Chat.EndSession(c.Request().Context(), c.Param("id"))
	if err != nil {
		return toHTTPError(err)
	}
	return c.JSON(http.StatusOK, convertSession(session))
}

// ListMessages returns the newest cached messages, oldest first.
func (s *APIV1Service) ListMessages(c echo.Context) error {
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be a non-negative integer")
		}
		limit = n
	}
	messages, err := s.Chat.History(c.Request().Context(), c.Param("id"), limit)
	if err != nil {
		return toHTTPError(err)
	}
	if messages == nil {
		messages = []tutor.Message{}
	}
	return c.JSON(http.StatusOK, &ListMessagesResponse{SessionID: c.Param("id"), Messages: messages})
}

func (s *APIV1Service) GetMemoryStats(c echo.Context) error {
	resp := &MemoryStatsResponse{Memory: s.Memory.GetCacheStats()}
	if s.Stats != nil {
		resp.Pedagogy = s.Stats.Snapshot()
	}
	return c.JSON(http.StatusOK, resp)
}

func toHTTPError(err error) error {
	switch {
	case errors.Is(err, chat.ErrSessionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, chat.ErrSessionEnded):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, tutor.ErrInvalidMessage),
		errors.Is(err, tutor.ErrInvalidCorrection),
		errors.Is(err, tutor.ErrInvalidLevel),
		errors.Is(err, tutor.ErrInvalidCategory):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, memory.ErrMemoryUnavailable):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "memory subsystem unavailable").SetInternal(err)
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error").SetInternal(err)
	}
}

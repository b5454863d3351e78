package session

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/pulsefit/coach-backend/internal/coachsession"
	"github.com/pulsefit/coach-backend/internal/dto"
	"github.com/pulsefit/coach-backend/internal/shared"
)

// AuthFunc resolves a request to a user ID.
type AuthFunc func(r *http.Request) (string, error)

type Handler struct {
	store   *Store
	manager *coachsession.Manager
	auth    AuthFunc
	log     *slog.Logger
}

func NewHandler(store *Store, manager *coachsession.Manager, auth AuthFunc, log *slog.Logger) *Handler {
	return &Handler{
		store:   store,
		manager: manager,
		auth:    auth,
		log:     log.With("component", "session_handler"),
	}
}

func toResponse(rec *Record) dto.SessionResponse {
	return dto.SessionResponse{
		ID:           rec.ID,
		UserID:       rec.UserID,
		Status:       string(rec.Status),
		StartedAt:    rec.StartedAt,
		EndedAt:      rec.EndedAt,
		LastActiveAt: rec.LastActiveAt,
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/sessions", h.listSessions)
	g.GET("/sessions/live", h.listLive)
	g.GET("/sessions/:id", h.getSession)
	g.DELETE("/sessions/:id", h.endSession)
}

// listSessions returns the caller's session history.
//
// @Summary List sessions
// @Description Returns the authenticated user's coaching session records, newest first.
// @Tags sessions
// @Produce json
// @Success 200 {object} dto.SessionListResponse
// @Failure 401 {object} shared.APIError
// @Failure 500 {object} shared.APIError
// @Router /sessions [get]
func (h *Handler) listSessions(c echo.Context) error {
	userID, err := h.auth(c.Request())
	if err != nil {
		return shared.Unauthorized("invalid_credentials", "authentication required")
	}

	records, err := h.store.ListByUser(c.Request().Context(), userID)
	if err != nil {
		h.log.Error("list sessions failed", "error", err, "user_id", userID)
		return shared.InternalError("internal_error", "failed to list sessions")
	}

	resp := dto.SessionListResponse{
		Sessions: make([]dto.SessionResponse, 0, len(records)),
		Count:    len(records),
	}
	for _, rec := range records {
		resp.Sessions = append(resp.Sessions, toResponse(rec))
	}
	return c.JSON(http.StatusOK, resp)
}

// listLive returns sessions currently running on this node.
//
// @Summary List live sessions
// @Description Returns the authenticated user's sessions that are live on this node.
// @Tags sessions
// @Produce json
// @Success 200 {array} dto.LiveSessionResponse
// @Failure 401 {object} shared.APIError
// @Router /sessions/live [get]
func (h *Handler) listLive(c echo.Context) error {
	userID, err := h.auth(c.Request())
	if err != nil {
		return shared.Unauthorized("invalid_credentials", "authentication required")
	}

	live := make([]dto.LiveSessionResponse, 0)
	for _, info := range h.manager.ListSessions() {
		if info.UserID != userID {
			continue
		}
		live = append(live, dto.LiveSessionResponse{
			SessionID: info.SessionID,
			UserID:    info.UserID,
			State:     info.State,
			Muted:     info.Muted,
			InFlight:  info.InFlight,
		})
	}
	return c.JSON(http.StatusOK, live)
}

// getSession returns one session record.
//
// @Summary Get session
// @Description Returns a single session record owned by the authenticated user.
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 401 {object} shared.APIError
// @Failure 404 {object} shared.APIError
// @Router /sessions/{id} [get]
func (h *Handler) getSession(c echo.Context) error {
	userID, err := h.auth(c.Request())
	if err != nil {
		return shared.Unauthorized("invalid_credentials", "authentication required")
	}

	rec, err := h.store.Get(c.Request().Context(), c.Param("id"))
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NotFound("session_not_found", "session not found")
	}
	if err != nil {
		h.log.Error("get session failed", "error", err, "session_id", c.Param("id"))
		return shared.InternalError("internal_error", "failed to load session")
	}
	if rec.UserID != userID {
		return shared.NotFound("session_not_found", "session not found")
	}
	return c.JSON(http.StatusOK, toResponse(rec))
}

// endSession tears down a live session.
//
// @Summary End session
// @Description Closes a live session owned by the authenticated user.
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204 "session closed"
// @Failure 401 {object} shared.APIError
// @Failure 404 {object} shared.APIError
// @Router /sessions/{id} [delete]
func (h *Handler) endSession(c echo.Context) error {
	userID, err := h.auth(c.Request())
	if err != nil {
		return shared.Unauthorized("invalid_credentials", "authentication required")
	}

	id := c.Param("id")
	sess, ok := h.manager.GetSession(id)
	if !ok || sess.UserID() != userID {
		return shared.NotFound("session_not_found", "session not found")
	}
	if err := sess.Close(); err != nil {
		h.log.Error("close session failed", "error", err, "session_id", id)
	}
	return c.NoContent(http.StatusNoContent)
}

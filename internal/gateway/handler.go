package gateway

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pulsefit/coach-backend/internal/coachsession"
	"github.com/pulsefit/coach-backend/internal/livecoach"
	"github.com/pulsefit/coach-backend/internal/shared"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// AuthFunc resolves the authenticated user for an incoming request.
type AuthFunc func(r *http.Request) (userID string, err error)

type Handler struct {
	manager *coachsession.Manager
	auth    AuthFunc
	log     *slog.Logger
}

func NewHandler(manager *coachsession.Manager, auth AuthFunc, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		manager: manager,
		auth:    auth,
		log:     log.With("component", "coach_gateway"),
	}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/live", h.handleLive)
}

// @Summary      Attach to a live coaching session
// @Description  Upgrades to a WebSocket carrying microphone frames up and scheduled playback audio down
// @Tags         coach
// @Param        output_rate  query  int  false  "Client playback sample rate (Hz)"
// @Success      101  "Switching Protocols"
// @Failure      401  {object}  shared.APIError
// @Router       /coach/live [get]
func (h *Handler) handleLive(c echo.Context) error {
	userID, err := h.auth(c.Request())
	if err != nil {
		return shared.Unauthorized("invalid_credentials", "authentication required")
	}

	outRate := livecoach.OutputSampleRate
	if v := c.QueryParam("output_rate"); v != "" {
		rate, err := strconv.Atoi(v)
		if err != nil || rate < 8000 || rate > 96000 {
			return shared.BadRequest("invalid_output_rate", "output_rate must be between 8000 and 96000")
		}
		outRate = rate
	}

	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Error("websocket upgrade failed", "error", err)
		return err
	}

	conn := newClientConn(ws, outRate, h.log)

	// The write pump must be draining before the session dials out, so that a
	// failure status emitted during startup still reaches the client.
	go conn.writePump()

	events := coachsession.Events{
		OnState:  conn.sendState,
		OnLevel:  conn.sendLevel,
		OnStatus: conn.sendStatus,
	}

	sess, err := h.manager.CreateSession(c.Request().Context(), userID, conn, conn, events)
	if err != nil {
		h.log.Error("failed to start coach session", "user_id", userID, "error", err)
		conn.Close()
		return nil
	}

	conn.onMute = sess.SetMuted
	conn.onClientStop = func(code string) {
		h.log.Info("client ended session", "session_id", sess.SessionID(), "reason", code)
		sess.Close()
	}

	h.log.Info("client attached", "session_id", sess.SessionID(), "user_id", userID, "output_rate", outRate)

	conn.readPump()

	sess.Close()
	h.log.Info("client detached", "session_id", sess.SessionID())
	return nil
}

package health

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/pulsefit/coach-backend/internal/coachsession"
)

const checkTimeout = 2 * time.Second

type CheckStatus struct {
	Status  string `json:"status" example:"ok"`
	Message string `json:"message,omitempty" example:""`
}

type Response struct {
	Status       string                 `json:"status" example:"ok"`
	Checks       map[string]CheckStatus `json:"checks"`
	LiveSessions int                    `json:"live_sessions" example:"1"`
	Goroutines   int                    `json:"goroutines" example:"24"`
	Uptime       string                 `json:"uptime" example:"1h23m4s"`
}

type Handler struct {
	db           *gorm.DB
	rdb          *redis.Client
	manager      *coachsession.Manager
	liveEndpoint string
	started      time.Time
}

func NewHandler(db *gorm.DB, rdb *redis.Client, manager *coachsession.Manager, liveEndpoint string) *Handler {
	return &Handler{
		db:           db,
		rdb:          rdb,
		manager:      manager,
		liveEndpoint: liveEndpoint,
		started:      time.Now(),
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.handleHealth)
	e.GET("/ready", h.handleReady)
}

// handleHealth reports dependency status.
//
// @Summary Health check
// @Description Reports the status of the database, redis, and live session counts.
// @Tags health
// @Produce json
// @Success 200 {object} health.Response
// @Failure 503 {object} health.Response
// @Router /health [get]
func (h *Handler) handleHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), checkTimeout)
	defer cancel()

	resp := Response{
		Status:       "ok",
		Checks:       make(map[string]CheckStatus),
		LiveSessions: h.manager.SessionCount(),
		Goroutines:   runtime.NumGoroutine(),
		Uptime:       time.Since(h.started).Round(time.Second).String(),
	}

	resp.Checks["database"] = h.checkDatabase(ctx)
	resp.Checks["redis"] = h.checkRedis(ctx)
	resp.Checks["live_endpoint"] = h.checkLiveEndpoint(ctx)

	code := http.StatusOK
	for _, check := range resp.Checks {
		if check.Status == "error" {
			resp.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	return c.JSON(code, resp)
}

// handleReady is the liveness probe endpoint.
//
// @Summary Readiness check
// @Description Returns 200 when the process can serve traffic.
// @Tags health
// @Success 200 {string} string "ready"
// @Router /ready [get]
func (h *Handler) handleReady(c echo.Context) error {
	return c.String(http.StatusOK, "ready")
}

func (h *Handler) checkDatabase(ctx context.Context) CheckStatus {
	if h.db == nil {
		return CheckStatus{Status: "skipped"}
	}
	sqlDB, err := h.db.DB()
	if err != nil {
		return CheckStatus{Status: "error", Message: err.Error()}
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		return CheckStatus{Status: "error", Message: err.Error()}
	}
	return CheckStatus{Status: "ok"}
}

func (h *Handler) checkRedis(ctx context.Context) CheckStatus {
	if h.rdb == nil {
		return CheckStatus{Status: "skipped"}
	}
	if err := h.rdb.Ping(ctx).Err(); err != nil {
		return CheckStatus{Status: "error", Message: err.Error()}
	}
	return CheckStatus{Status: "ok"}
}

// checkLiveEndpoint verifies the vendor host accepts TCP connections. A full
// WebSocket handshake would consume session quota, so reachability is enough.
func (h *Handler) checkLiveEndpoint(ctx context.Context) CheckStatus {
	if h.liveEndpoint == "" {
		return CheckStatus{Status: "skipped"}
	}
	u, err := url.Parse(h.liveEndpoint)
	if err != nil {
		return CheckStatus{Status: "error", Message: err.Error()}
	}
	host := u.Host
	if u.Port() == "" {
		switch u.Scheme {
		case "ws", "http":
			host += ":80"
		default:
			host += ":443"
		}
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", host)
	if err != nil {
		return CheckStatus{Status: "error", Message: err.Error()}
	}
	_ = conn.Close()
	return CheckStatus{Status: "ok"}
}

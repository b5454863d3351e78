package bootstrap

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/pulsefit/coach-backend/internal/coachsession"
	"github.com/pulsefit/coach-backend/internal/health"
)

func ProvideHealthHandler(cfg *Config, db *gorm.DB, rdb *redis.Client, manager *coachsession.Manager) *health.Handler {
	return health.NewHandler(db, rdb, manager, cfg.LiveEndpoint)
}

func RegisterHealthRoutes(e *echo.Echo, h *health.Handler) {
	h.RegisterRoutes(e)
}

var HealthModule = fx.Options(
	fx.Provide(ProvideHealthHandler),
	fx.Invoke(RegisterHealthRoutes),
)

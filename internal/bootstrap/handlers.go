package bootstrap

import (
	"log/slog"
	"os"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/fx"

	"github.com/pulsefit/coach-backend/internal/coachsession"
	"github.com/pulsefit/coach-backend/internal/session"
)

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func ProvideLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: parseLogLevel(cfg.LogLevel),
	}))
}

func ProvideSessionHandler(store *session.Store, manager *coachsession.Manager, auth session.AuthFunc, logger *slog.Logger) *session.Handler {
	return session.NewHandler(store, manager, auth, logger)
}

func RegisterRoutes(e *echo.Echo, sessionHandler *session.Handler) {
	sessionHandler.RegisterRoutes(e.Group("/v1"))
	e.GET("/swagger/*", echoSwagger.EchoWrapHandler())
}

var HandlersModule = fx.Options(
	fx.Provide(
		ProvideLogger,
		ProvideSessionHandler,
	),
	fx.Invoke(RegisterRoutes),
)

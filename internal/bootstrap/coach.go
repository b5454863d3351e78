package bootstrap

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/fx"

	"github.com/pulsefit/coach-backend/internal/coachsession"
	"github.com/pulsefit/coach-backend/internal/gateway"
	"github.com/pulsefit/coach-backend/internal/livecoach"
	"github.com/pulsefit/coach-backend/internal/profile"
	"github.com/pulsefit/coach-backend/internal/session"
	"github.com/pulsefit/coach-backend/internal/shared"
)

func ProvideLiveDialer(cfg *Config, logger *slog.Logger) livecoach.Dialer {
	return livecoach.NewClient(livecoach.Config{
		Endpoint: cfg.LiveEndpoint,
		APIKey:   cfg.LiveAPIKey,
	}, logger)
}

func ProvideSessionManager(
	dialer livecoach.Dialer,
	profiles *profile.Service,
	records *session.Store,
	cfg *Config,
	logger *slog.Logger,
) *coachsession.Manager {
	return coachsession.NewManager(coachsession.ManagerConfig{
		Dialer:   dialer,
		Profiles: profiles,
		Records:  records,
		Model:    cfg.CoachModel,
		Voice:    cfg.CoachVoice,
		Log:      logger,
	})
}

func ProvideTokenSigner(cfg *Config) *shared.TokenSigner {
	return shared.NewTokenSigner(cfg.HMACKey)
}

func authenticate(signer *shared.TokenSigner, r *http.Request) (string, error) {
	token := r.Header.Get("Authorization")
	if after, ok := strings.CutPrefix(token, "Bearer "); ok {
		token = after
	}
	// WebSocket clients can't set headers from the browser, so the token
	// is also accepted as a query parameter.
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		return "", errors.New("missing token")
	}
	return signer.Verify(token)
}

func ProvideGatewayAuth(signer *shared.TokenSigner) gateway.AuthFunc {
	return func(r *http.Request) (string, error) { return authenticate(signer, r) }
}

func ProvideSessionAuth(signer *shared.TokenSigner) session.AuthFunc {
	return func(r *http.Request) (string, error) { return authenticate(signer, r) }
}

func ProvideGatewayHandler(manager *coachsession.Manager, auth gateway.AuthFunc, logger *slog.Logger) *gateway.Handler {
	return gateway.NewHandler(manager, auth, logger)
}

func RegisterCoachRoutes(e *echo.Echo, h *gateway.Handler) {
	h.RegisterRoutes(e.Group("/v1/coach"))
}

var CoachModule = fx.Options(
	fx.Provide(
		ProvideLiveDialer,
		ProvideSessionManager,
		ProvideTokenSigner,
		ProvideGatewayAuth,
		ProvideSessionAuth,
		ProvideGatewayHandler,
	),
	fx.Invoke(RegisterCoachRoutes),
)

package bootstrap

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/pulsefit/coach-backend/internal/profile"
	"github.com/pulsefit/coach-backend/internal/session"
)

func ProvideProfileStore(db *gorm.DB) *profile.Store {
	return profile.NewStore(db)
}

func ProvideProfileProvider(cfg *Config) *profile.Provider {
	return profile.NewProvider(profile.ProviderConfig{
		BaseURL:      cfg.IdentityBaseURL,
		TokenURL:     cfg.IdentityTokenURL,
		ClientID:     cfg.IdentityClientID,
		ClientSecret: cfg.IdentityClientSecret,
	})
}

func ProvideProfileService(store *profile.Store, provider *profile.Provider, cfg *Config, logger *slog.Logger) *profile.Service {
	return profile.NewService(profile.ServiceConfig{
		Store:    store,
		Fetcher:  provider,
		CacheTTL: cfg.ProfileCacheTTL,
		Log:      logger,
	})
}

func ProvideSessionStore(redisClient *redis.Client) *session.Store {
	return session.NewStore(redisClient)
}

func RunMigrations(profileStore *profile.Store) error {
	return profileStore.Migrate()
}

var StoresModule = fx.Options(
	fx.Provide(
		ProvideProfileStore,
		ProvideProfileProvider,
		ProvideProfileService,
		ProvideSessionStore,
	),
	fx.Invoke(RunMigrations),
)

package profile

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/pulsefit/coach-backend/internal/shared"
)

const defaultCacheTTL = 15 * time.Minute

// Fetcher is the remote side of the profile lookup. *Provider implements it;
// tests substitute fakes.
type Fetcher interface {
	Fetch(ctx context.Context, userID string) (*RemoteProfile, error)
}

// Service resolves display names for session prompts: local cache first,
// identity service on miss or staleness, stale cache as a fallback when the
// identity service is down.
type Service struct {
	store    *Store
	fetcher  Fetcher
	cacheTTL time.Duration
	log      *slog.Logger
}

type ServiceConfig struct {
	Store    *Store
	Fetcher  Fetcher
	CacheTTL time.Duration
	Log      *slog.Logger
}

func NewService(cfg ServiceConfig) *Service {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Service{
		store:    cfg.Store,
		fetcher:  cfg.Fetcher,
		cacheTTL: cfg.CacheTTL,
		log:      cfg.Log.With("component", "profile_service"),
	}
}

func (s *Service) DisplayName(ctx context.Context, userID string) (string, error) {
	var cached *Profile
	if s.store != nil {
		p, err := s.store.GetByUserID(ctx, userID)
		if err == nil {
			if time.Since(p.FetchedAt) < s.cacheTTL {
				return p.DisplayName, nil
			}
			cached = p
		} else if !errors.Is(err, shared.ErrNotFound) {
			s.log.Error("profile cache read failed", "user_id", userID, "error", err)
		}
	}

	if s.fetcher == nil {
		if cached != nil {
			return cached.DisplayName, nil
		}
		return "", shared.ErrNotFound
	}

	remote, err := s.fetcher.Fetch(ctx, userID)
	if err != nil {
		if cached != nil {
			s.log.Warn("identity service unavailable, serving stale profile",
				"user_id", userID, "error", err)
			return cached.DisplayName, nil
		}
		return "", err
	}

	if s.store != nil {
		p := &Profile{
			UserID:      remote.UserID,
			DisplayName: remote.DisplayName,
			Email:       remote.Email,
			AvatarURL:   remote.AvatarURL,
		}
		if cached != nil {
			p.ID = cached.ID
		}
		if err := s.store.Upsert(ctx, p); err != nil {
			s.log.Error("profile cache write failed", "user_id", userID, "error", err)
		}
	}

	return remote.DisplayName, nil
}

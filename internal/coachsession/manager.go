package coachsession

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/pulsefit/coach-backend/internal/capture"
	"github.com/pulsefit/coach-backend/internal/livecoach"
	"github.com/pulsefit/coach-backend/internal/playback"
)

// DefaultPromptTemplate is the coaching persona sent with every session.
// {name} is replaced with the user's display name when the profile store has
// one.
const DefaultPromptTemplate = "You are Pulse, a friendly fitness and wellness coach. " +
	"Speak in short, natural sentences suited to being read aloud, and keep the tone " +
	"encouraging without being pushy. The user's name is {name}."

// ProfileSource supplies the display name injected into the system prompt.
// Read-only, fetched once at session start.
type ProfileSource interface {
	DisplayName(ctx context.Context, userID string) (string, error)
}

// Recorder persists session lifecycle records.
type Recorder interface {
	Started(ctx context.Context, sessionID, userID string) error
	Ended(ctx context.Context, sessionID string) error
}

// TurnRecorder is optionally implemented by a Recorder that also tracks
// per-session conversation metrics.
type TurnRecorder interface {
	TurnCompleted(ctx context.Context, sessionID string) error
	Interrupted(ctx context.Context, sessionID string) error
}

type Manager struct {
	dialer   livecoach.Dialer
	profiles ProfileSource
	records  Recorder
	log      *slog.Logger

	model          string
	voice          string
	promptTemplate string

	mu       sync.RWMutex
	sessions map[string]*CoachSession
}

type ManagerConfig struct {
	Dialer         livecoach.Dialer
	Profiles       ProfileSource
	Records        Recorder
	Model          string
	Voice          string
	PromptTemplate string
	Log            *slog.Logger
}

func NewManager(cfg ManagerConfig) *Manager {
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	if cfg.PromptTemplate == "" {
		cfg.PromptTemplate = DefaultPromptTemplate
	}
	return &Manager{
		dialer:         cfg.Dialer,
		profiles:       cfg.Profiles,
		records:        cfg.Records,
		model:          cfg.Model,
		voice:          cfg.Voice,
		promptTemplate: cfg.PromptTemplate,
		log:            cfg.Log.With("component", "coachsession_manager"),
		sessions:       make(map[string]*CoachSession),
	}
}

// CreateSession builds and starts one session for an attached client. The
// profile lookup happens here, once; a missing profile degrades to a
// nameless prompt rather than failing the session.
func (m *Manager) CreateSession(
	ctx context.Context,
	userID string,
	source capture.Source,
	output playback.Output,
	events Events,
) (*CoachSession, error) {
	name := ""
	if m.profiles != nil && userID != "" {
		var err error
		name, err = m.profiles.DisplayName(ctx, userID)
		if err != nil {
			m.log.Warn("profile lookup failed, continuing without name",
				"user_id", userID, "error", err)
			name = ""
		}
	}

	turns, _ := m.records.(TurnRecorder)
	clientOnState := events.OnState

	// Transitions arrive concurrently from the live endpoint's read pump and
	// from HTTP-driven teardown, so the tracked state needs its own lock.
	var (
		trackMu sync.Mutex
		sess    *CoachSession
		prev    State
	)
	events.OnState = func(st State) {
		if clientOnState != nil {
			clientOnState(st)
		}

		trackMu.Lock()
		cur := sess
		was := prev
		prev = st
		trackMu.Unlock()
		if cur == nil {
			return
		}

		if turns != nil {
			// streaming -> open is a completed turn; interrupted turns are
			// counted separately.
			if st == StateInterrupted {
				if err := turns.Interrupted(context.Background(), cur.SessionID()); err != nil {
					m.log.Debug("failed to record interruption", "error", err)
				}
			}
			if was == StateStreaming && st == StateOpen {
				if err := turns.TurnCompleted(context.Background(), cur.SessionID()); err != nil {
					m.log.Debug("failed to record turn", "error", err)
				}
			}
		}
		if st == StateClosed {
			m.remove(cur.SessionID())
		}
	}

	created, err := New(Config{
		UserID:       userID,
		Model:        m.model,
		Voice:        m.voice,
		SystemPrompt: m.buildPrompt(name),
		Source:       source,
		Output:       output,
		Dialer:       m.dialer,
		Events:       events,
	}, m.log)
	if err != nil {
		return nil, err
	}
	trackMu.Lock()
	sess = created
	trackMu.Unlock()

	m.mu.Lock()
	m.sessions[created.SessionID()] = created
	m.mu.Unlock()

	if m.records != nil {
		if err := m.records.Started(ctx, created.SessionID(), userID); err != nil {
			m.log.Error("failed to record session start", "error", err)
		}
	}

	if err := created.Start(); err != nil {
		m.remove(created.SessionID())
		return nil, err
	}

	m.log.Info("coach session created", "session_id", created.SessionID(), "user_id", userID)
	return created, nil
}

func (m *Manager) buildPrompt(name string) string {
	prompt := m.promptTemplate
	if name == "" {
		// Drop the trailing name sentence when there is nothing to inject.
		if idx := strings.Index(prompt, "The user's name is {name}."); idx >= 0 {
			prompt = strings.TrimSpace(prompt[:idx])
		} else {
			prompt = strings.ReplaceAll(prompt, "{name}", "the user")
		}
		return prompt
	}
	return strings.ReplaceAll(prompt, "{name}", name)
}

func (m *Manager) remove(sessionID string) {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if ok {
		if m.records != nil {
			if err := m.records.Ended(context.Background(), sessionID); err != nil {
				m.log.Error("failed to record session end", "error", err)
			}
		}
		m.log.Info("coach session removed", "session_id", sessionID)
	}
}

func (m *Manager) GetSession(sessionID string) (*CoachSession, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[sessionID]
	return sess, ok
}

// RemoveSession closes and forgets a session. The close callback performs the
// actual removal.
func (m *Manager) RemoveSession(sessionID string) {
	m.mu.RLock()
	sess, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if ok {
		sess.Close()
	}
}

func (m *Manager) SessionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

type SessionInfo struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	State     string `json:"state"`
	Muted     bool   `json:"muted"`
	InFlight  int    `json:"in_flight_buffers"`
}

func (m *Manager) ListSessions() []SessionInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(m.sessions))
	for _, s := range m.sessions {
		infos = append(infos, SessionInfo{
			SessionID: s.SessionID(),
			UserID:    s.UserID(),
			State:     string(s.State()),
			Muted:     s.Muted(),
			InFlight:  s.InFlightBuffers(),
		})
	}
	return infos
}

func (m *Manager) Close() error {
	m.mu.Lock()
	sessions := make([]*CoachSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
	return nil
}

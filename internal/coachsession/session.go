package coachsession

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pulsefit/coach-backend/internal/capture"
	"github.com/pulsefit/coach-backend/internal/livecoach"
	"github.com/pulsefit/coach-backend/internal/playback"
)

const dialTimeout = 15 * time.Second

// Config assembles one live coaching session. Source, Output and Dialer are
// narrow capability interfaces so the session core runs against fakes in
// tests and against the gateway connection and vendor endpoint in production.
type Config struct {
	UserID       string
	Model        string
	Voice        string
	SystemPrompt string

	Source capture.Source
	Output playback.Output
	Clock  playback.Clock
	Dialer livecoach.Dialer
	Events Events
}

// CoachSession owns all per-conversation state: the capture stage, uplink
// encoder, live channel and downlink scheduler. One session exists per
// attached client; nothing is shared across sessions.
type CoachSession struct {
	sessionID string
	userID    string

	machine *stateMachine
	stage   *capture.Stage
	uplink  *Uplink
	sched   *Scheduler
	dialer  livecoach.Dialer
	output  playback.Output
	events  Events
	cfg     Config
	log     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	liveMu sync.Mutex
	live   livecoach.LiveSession

	closeOnce sync.Once
}

func New(cfg Config, log *slog.Logger) (*CoachSession, error) {
	if cfg.Source == nil || cfg.Output == nil || cfg.Dialer == nil {
		return nil, errors.New("coachsession: source, output and dialer are required")
	}
	if log == nil {
		log = slog.Default()
	}

	sessionID := uuid.New().String()
	ctx, cancel := context.WithCancel(context.Background())

	s := &CoachSession{
		sessionID: sessionID,
		userID:    cfg.UserID,
		dialer:    cfg.Dialer,
		output:    cfg.Output,
		events:    cfg.Events,
		cfg:       cfg,
		log:       log.With("session_id", sessionID),
		ctx:       ctx,
		cancel:    cancel,
	}

	s.machine = newStateMachine(s.events.emitState)
	s.uplink = NewUplink(s.log)
	s.sched = NewScheduler(cfg.Output, cfg.Clock, s.log)
	s.stage = capture.NewStage(capture.StageConfig{
		Source:  cfg.Source,
		OnFrame: s.uplink.SendFrame,
		OnLevel: s.events.emitLevel,
		Log:     s.log,
	})

	return s, nil
}

// Start dials the live endpoint and begins capture. A handshake failure or a
// refused microphone is fatal: the status is surfaced, everything already
// acquired is released, and the caller gets the error. There is no retry
// loop; reconnection is a fresh session.
func (s *CoachSession) Start() error {
	dialCtx, cancel := context.WithTimeout(s.ctx, dialTimeout)
	defer cancel()

	live, err := s.dialer.Connect(dialCtx, livecoach.SessionConfig{
		Model:        s.cfg.Model,
		Voice:        s.cfg.Voice,
		SystemPrompt: s.cfg.SystemPrompt,
	}, livecoach.Callbacks{
		OnOpen:         s.onOpen,
		OnAudioChunk:   s.onAudioChunk,
		OnTurnComplete: s.onTurnComplete,
		OnInterrupted:  s.onInterrupted,
		OnError:        s.onTransportError,
		OnClose:        s.onRemoteClose,
	})
	if err != nil {
		s.log.Error("live session connect failed", "error", err)
		s.events.emitStatus(Status{
			Code:    StatusConnectionFailed,
			Message: "could not reach the coaching service",
		})
		s.Close()
		return err
	}

	s.liveMu.Lock()
	s.live = live
	s.liveMu.Unlock()
	s.uplink.Bind(live)

	if err := s.stage.Start(s.ctx); err != nil {
		if errors.Is(err, capture.ErrPermissionDenied) || errors.Is(err, capture.ErrNoDevice) {
			s.events.emitStatus(Status{
				Code:    StatusPermissionDenied,
				Message: "microphone access is required for live coaching",
			})
		}
		s.Close()
		return err
	}

	return nil
}

func (s *CoachSession) SessionID() string { return s.sessionID }
func (s *CoachSession) UserID() string    { return s.userID }
func (s *CoachSession) State() State      { return s.machine.State() }

// SetMuted toggles uplink transmission. Capture and level metering keep
// running; unmute resumes sending on the next frame.
func (s *CoachSession) SetMuted(muted bool) { s.uplink.SetMuted(muted) }
func (s *CoachSession) Muted() bool         { return s.uplink.Muted() }

// DroppedFrames counts uplink frames discarded before the channel opened.
func (s *CoachSession) DroppedFrames() uint64 { return s.uplink.Dropped() }

// InFlightBuffers counts scheduled downlink buffers not yet finished.
func (s *CoachSession) InFlightBuffers() int { return s.sched.InFlight() }

func (s *CoachSession) onOpen() {
	s.machine.transition(StateOpen)
	s.log.Info("live session open")
}

func (s *CoachSession) onAudioChunk(data, mimeType string) {
	rate := parsePCMRate(mimeType)
	start, err := s.sched.Schedule(data, rate)
	if err != nil {
		s.log.Warn("skipping undecodable chunk", "error", err)
		s.events.emitStatus(Status{
			Code:    StatusDecodeError,
			Message: "skipped one audio chunk",
		})
		return
	}

	// First scheduled chunk of a response moves open -> streaming.
	s.machine.transition(StateStreaming)
	s.log.Debug("chunk scheduled", "start", start, "rate", rate)
}

func (s *CoachSession) onTurnComplete() {
	// Idle-listening again; the scheduler cursor keeps its last value.
	s.machine.transition(StateOpen)
}

func (s *CoachSession) onInterrupted() {
	if !s.machine.transition(StateInterrupted) {
		return
	}
	s.sched.Interrupt()
	s.machine.transition(StateOpen)
	s.log.Debug("playback interrupted, in-flight buffers cleared")
}

func (s *CoachSession) onTransportError(err error) {
	s.log.Error("live session transport error", "error", err)
	s.events.emitStatus(Status{
		Code:    StatusTransportError,
		Message: "connection to the coaching service was lost",
	})
}

func (s *CoachSession) onRemoteClose() {
	s.Close()
}

// Close releases every session resource exactly once: capture device,
// in-flight playback, the live channel and the output. Safe to call from any
// path, any number of times.
func (s *CoachSession) Close() error {
	s.closeOnce.Do(func() {
		s.machine.transition(StateClosed)
		s.cancel()

		s.stage.Stop()
		s.sched.Stop()
		s.uplink.Unbind()

		s.liveMu.Lock()
		live := s.live
		s.live = nil
		s.liveMu.Unlock()
		if live != nil {
			if err := live.Close(); err != nil {
				s.log.Error("failed to close live session", "error", err)
			}
		}

		if err := s.output.Close(); err != nil {
			s.log.Error("failed to close output", "error", err)
		}
		s.log.Info("session closed")
	})
	return nil
}

// parsePCMRate extracts the sample rate from a mime tag such as
// "audio/pcm;rate=24000".
func parsePCMRate(mimeType string) int {
	for _, part := range strings.Split(mimeType, ";") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "rate="); ok {
			if rate, err := strconv.Atoi(v); err == nil && rate > 0 {
				return rate
			}
		}
	}
	return livecoach.OutputSampleRate
}

package capture

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pulsefit/coach-backend/internal/audio"
)

// Stage pumps frames from a Source for as long as the session is active.
// Muting happens downstream at the uplink, not here, so frame delivery and
// level metering continue while muted and unmute is instantaneous.
type Stage struct {
	source  Source
	onFrame func(frame []float32)
	onLevel func(level float64)
	log     *slog.Logger

	mu       sync.Mutex
	started  bool
	stopOnce sync.Once
}

type StageConfig struct {
	Source  Source
	OnFrame func(frame []float32)
	OnLevel func(level float64)
	Log     *slog.Logger
}

func NewStage(cfg StageConfig) *Stage {
	log := cfg.Log
	if log == nil {
		log = slog.Default()
	}
	return &Stage{
		source:  cfg.Source,
		onFrame: cfg.OnFrame,
		onLevel: cfg.OnLevel,
		log:     log.With("component", "capture_stage"),
	}
}

func (s *Stage) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.mu.Unlock()

	if err := s.source.Start(ctx, s.handleFrame); err != nil {
		s.log.Error("capture start failed", "error", err)
		return err
	}

	s.log.Info("capture started", "sample_rate", SampleRate, "frame_size", FrameSize)
	return nil
}

func (s *Stage) handleFrame(frame []float32) {
	if s.onLevel != nil {
		s.onLevel(audio.RMSLevel(frame))
	}
	if s.onFrame != nil {
		s.onFrame(frame)
	}
}

// Stop releases the input device exactly once. Safe to call on a stage that
// never started or was already stopped.
func (s *Stage) Stop() {
	s.stopOnce.Do(func() {
		if err := s.source.Stop(); err != nil {
			s.log.Error("failed to stop capture source", "error", err)
		}
	})
}

package coachsession

import (
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pulsefit/coach-backend/internal/audio"
	"github.com/pulsefit/coach-backend/internal/playback"
)

// ErrDecode marks a chunk that could not be decoded. Local and recoverable:
// the chunk is skipped and scheduling continues with the next one.
var ErrDecode = errors.New("chunk decode failed")

// Scheduler guarantees gapless, non-overlapping playout of inbound chunks
// that arrive at irregular intervals. Each chunk is scheduled at
// max(now, cursor) and the cursor advances by the chunk's duration, so a
// chunk that arrives while the previous one is still playing queues
// immediately after it instead of overlapping.
type Scheduler struct {
	out   playback.Output
	clock playback.Clock
	log   *slog.Logger

	mu       sync.Mutex
	cursor   time.Time
	inflight map[uint64]playback.Handle
	nextID   uint64
}

func NewScheduler(out playback.Output, clock playback.Clock, log *slog.Logger) *Scheduler {
	if clock == nil {
		clock = playback.SystemClock()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{
		out:      out,
		clock:    clock,
		log:      log.With("component", "downlink_scheduler"),
		inflight: make(map[uint64]playback.Handle),
	}
}

// Schedule decodes one inbound chunk and queues it on the playback timeline.
// Returns the assigned start time.
func (s *Scheduler) Schedule(data string, sampleRate int) (time.Time, error) {
	pcm, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(pcm) < 2 || sampleRate <= 0 {
		return time.Time{}, fmt.Errorf("%w: empty or malformed chunk", ErrDecode)
	}

	buf := playback.Buffer{
		PCM:        pcm,
		SampleRate: sampleRate,
		Channels:   1,
		Duration:   audio.PCMDuration(pcm, sampleRate),
	}

	s.mu.Lock()
	start := s.cursor
	if now := s.clock.Now(); now.After(start) {
		start = now
	}
	s.cursor = start.Add(buf.Duration)
	id := s.nextID
	s.nextID++
	s.inflight[id] = nil
	s.mu.Unlock()

	handle, err := s.out.Schedule(buf, start, func() {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
	})
	if err != nil {
		s.mu.Lock()
		delete(s.inflight, id)
		s.mu.Unlock()
		return time.Time{}, err
	}

	s.mu.Lock()
	_, pending := s.inflight[id]
	if pending {
		s.inflight[id] = handle
	}
	s.mu.Unlock()

	// Stop or Interrupt cleared the map while the output call was in flight;
	// this handle was never tracked, so it has to be stopped here.
	if !pending {
		handle.Stop()
	}

	return start, nil
}

// Interrupt stops every in-flight buffer and resets the cursor to the current
// output clock time, so the next response starts immediately rather than
// behind a stale future cursor.
func (s *Scheduler) Interrupt() {
	s.stopAll(true)
}

// Stop cancels all in-flight playback without touching the cursor. Used on
// session teardown.
func (s *Scheduler) Stop() {
	s.stopAll(false)
}

func (s *Scheduler) stopAll(resetCursor bool) {
	s.mu.Lock()
	handles := make([]playback.Handle, 0, len(s.inflight))
	for _, h := range s.inflight {
		if h != nil {
			handles = append(handles, h)
		}
	}
	s.inflight = make(map[uint64]playback.Handle)
	if resetCursor {
		s.cursor = s.clock.Now()
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Stop()
	}
}

// Cursor reports the time at which the next chunk would begin.
func (s *Scheduler) Cursor() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cursor
}

// InFlight reports how many scheduled buffers have not finished.
func (s *Scheduler) InFlight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.inflight)
}

package coachsession

import (
	"context"
	"sync"
	"time"

	"github.com/pulsefit/coach-backend/internal/livecoach"
	"github.com/pulsefit/coach-backend/internal/playback"
)

// fakeClock is a manually advanced playback clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type scheduledBuffer struct {
	buf     playback.Buffer
	start   time.Time
	onDone  func()
	stopped bool
}

func (b *scheduledBuffer) Stop() { b.stopped = true }

// fakeOutput records every scheduled buffer and lets tests finish them.
type fakeOutput struct {
	mu        sync.Mutex
	scheduled []*scheduledBuffer
	closed    bool
	failNext  error
}

func (o *fakeOutput) Schedule(buf playback.Buffer, start time.Time, onDone func()) (playback.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failNext != nil {
		err := o.failNext
		o.failNext = nil
		return nil, err
	}
	sb := &scheduledBuffer{buf: buf, start: start, onDone: onDone}
	o.scheduled = append(o.scheduled, sb)
	return sb, nil
}

func (o *fakeOutput) Close() error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	return nil
}

func (o *fakeOutput) buffers() []*scheduledBuffer {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*scheduledBuffer, len(o.scheduled))
	copy(out, o.scheduled)
	return out
}

func (o *fakeOutput) finish(i int) {
	o.mu.Lock()
	done := o.scheduled[i].onDone
	o.mu.Unlock()
	if done != nil {
		done()
	}
}

// fakeSource delivers frames only when the test pushes them.
type fakeSource struct {
	mu       sync.Mutex
	onFrame  func([]float32)
	started  bool
	stops    int
	startErr error
}

func (s *fakeSource) Start(ctx context.Context, onFrame func([]float32)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.startErr != nil {
		return s.startErr
	}
	s.started = true
	s.onFrame = onFrame
	return nil
}

func (s *fakeSource) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.started = false
	s.stops++
	return nil
}

func (s *fakeSource) push(frame []float32) {
	s.mu.Lock()
	cb := s.onFrame
	s.mu.Unlock()
	if cb != nil {
		cb(frame)
	}
}

// fakeLiveSession records uplink frames.
type fakeLiveSession struct {
	mu      sync.Mutex
	frames  []livecoach.MediaFrame
	closed  bool
	sendErr error
}

func (s *fakeLiveSession) SendMedia(frame livecoach.MediaFrame) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.frames = append(s.frames, frame)
	return nil
}

func (s *fakeLiveSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeLiveSession) sent() []livecoach.MediaFrame {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]livecoach.MediaFrame, len(s.frames))
	copy(out, s.frames)
	return out
}

// fakeDialer hands back a fakeLiveSession and keeps the callbacks so tests
// can drive the remote side.
type fakeDialer struct {
	mu      sync.Mutex
	sess    *fakeLiveSession
	cb      livecoach.Callbacks
	dialErr error
}

func (d *fakeDialer) Connect(ctx context.Context, cfg livecoach.SessionConfig, cb livecoach.Callbacks) (livecoach.LiveSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	d.sess = &fakeLiveSession{}
	d.cb = cb
	cb.OnOpen()
	return d.sess, nil
}

func (d *fakeDialer) callbacks() livecoach.Callbacks {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.cb
}

// eventRecorder captures emitted session events.
type eventRecorder struct {
	mu       sync.Mutex
	states   []State
	levels   []float64
	statuses []Status
}

func (r *eventRecorder) events() Events {
	return Events{
		OnState: func(s State) {
			r.mu.Lock()
			r.states = append(r.states, s)
			r.mu.Unlock()
		},
		OnLevel: func(l float64) {
			r.mu.Lock()
			r.levels = append(r.levels, l)
			r.mu.Unlock()
		},
		OnStatus: func(s Status) {
			r.mu.Lock()
			r.statuses = append(r.statuses, s)
			r.mu.Unlock()
		},
	}
}

func (r *eventRecorder) lastState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.states) == 0 {
		return ""
	}
	return r.states[len(r.states)-1]
}

func (r *eventRecorder) statusCodes() []StatusCode {
	r.mu.Lock()
	defer r.mu.Unlock()
	codes := make([]StatusCode, 0, len(r.statuses))
	for _, s := range r.statuses {
		codes = append(codes, s.Code)
	}
	return codes
}

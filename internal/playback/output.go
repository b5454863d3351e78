package playback

import "time"

// Buffer is one decoded block of output audio, ready to schedule.
type Buffer struct {
	PCM        []byte
	SampleRate int
	Channels   int
	Duration   time.Duration
}

// Handle refers to one scheduled buffer. Stop cancels it before or during
// playback; stopping an already-finished buffer is a no-op.
type Handle interface {
	Stop()
}

// Output is the playout capability surface. Implementations own the real
// output device (or the client connection standing in for it) and must honor
// the requested start time so back-to-back buffers play gapless.
type Output interface {
	// Schedule queues buf to begin playing at start. onDone runs exactly once
	// when the buffer finishes naturally; it is not called after Stop.
	Schedule(buf Buffer, start time.Time, onDone func()) (Handle, error)

	// Close releases the output device. Idempotent.
	Close() error
}

// Clock abstracts the output timeline so scheduling is testable.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func SystemClock() Clock { return systemClock{} }

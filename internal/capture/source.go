package capture

import (
	"context"
	"errors"
)

const (
	// SampleRate is the fixed capture rate, mono.
	SampleRate = 16000
	// FrameSize is the fixed number of samples per capture frame. Frame
	// cadence depends only on the capture clock, never on network state.
	FrameSize = 4096
)

var (
	// ErrPermissionDenied means the user refused microphone access. Fatal to
	// the session; surfaced as a status message, never retried silently.
	ErrPermissionDenied = errors.New("microphone permission denied")
	// ErrNoDevice means no compatible input device exists. Fatal.
	ErrNoDevice = errors.New("no compatible input device")
)

// Source is the microphone capability surface. The real device lives behind
// it; sessions and tests drive the stage through this interface.
type Source interface {
	// Start acquires the device and begins delivering fixed-size frames of
	// float32 samples in [-1, 1] on the source's own goroutine. Returns
	// ErrPermissionDenied or ErrNoDevice when acquisition fails.
	Start(ctx context.Context, onFrame func(frame []float32)) error

	// Stop releases the device and all capture resources. Idempotent.
	Stop() error
}

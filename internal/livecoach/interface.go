package livecoach

import "context"

// LiveSession is one open duplex conversation with the coaching model.
type LiveSession interface {
	// SendMedia forwards one uplink frame. It never blocks the caller; frames
	// that cannot be buffered are dropped.
	SendMedia(frame MediaFrame) error
	// Close tears the session down. Idempotent.
	Close() error
}

// Dialer opens live sessions. The production implementation speaks the
// vendor's WebSocket protocol; tests substitute fakes.
type Dialer interface {
	Connect(ctx context.Context, cfg SessionConfig, cb Callbacks) (LiveSession, error)
}

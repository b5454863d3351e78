package coachsession

import (
	"encoding/base64"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/pulsefit/coach-backend/internal/audio"
	"github.com/pulsefit/coach-backend/internal/livecoach"
)

// Uplink converts capture frames to the wire form and forwards them on the
// live session. It never blocks the capture path: frames captured before the
// channel is bound are dropped and counted, not queued.
type Uplink struct {
	log *slog.Logger

	mu   sync.RWMutex
	sess livecoach.LiveSession

	muted   atomic.Bool
	dropped atomic.Uint64
	sent    atomic.Uint64
}

func NewUplink(log *slog.Logger) *Uplink {
	if log == nil {
		log = slog.Default()
	}
	return &Uplink{log: log.With("component", "uplink")}
}

// Bind attaches the open live session. Frames start flowing on the next
// capture callback.
func (u *Uplink) Bind(sess livecoach.LiveSession) {
	u.mu.Lock()
	u.sess = sess
	u.mu.Unlock()
}

func (u *Uplink) Unbind() {
	u.mu.Lock()
	u.sess = nil
	u.mu.Unlock()
}

// SetMuted suppresses transmission only. Capture keeps running upstream so
// level metering continues and unmute needs no device re-acquisition.
func (u *Uplink) SetMuted(muted bool) {
	u.muted.Store(muted)
}

func (u *Uplink) Muted() bool {
	return u.muted.Load()
}

// Dropped counts frames discarded because no session was bound.
func (u *Uplink) Dropped() uint64 {
	return u.dropped.Load()
}

func (u *Uplink) Sent() uint64 {
	return u.sent.Load()
}

// SendFrame encodes one capture frame (PCM16 little-endian, base64) and
// forwards it tagged with its format metadata.
func (u *Uplink) SendFrame(frame []float32) {
	if u.muted.Load() {
		return
	}

	u.mu.RLock()
	sess := u.sess
	u.mu.RUnlock()
	if sess == nil {
		u.dropped.Add(1)
		return
	}

	payload := base64.StdEncoding.EncodeToString(audio.PackPCM16(frame))
	if err := sess.SendMedia(livecoach.MediaFrame{
		Data:     payload,
		MimeType: livecoach.InputMimeType,
	}); err != nil {
		u.log.Debug("uplink send failed", "error", err)
		return
	}
	u.sent.Add(1)
}

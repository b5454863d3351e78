package gateway

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pulsefit/coach-backend/internal/audio"
	"github.com/pulsefit/coach-backend/internal/capture"
	"github.com/pulsefit/coach-backend/internal/coachsession"
	"github.com/pulsefit/coach-backend/internal/playback"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
	sendBufferSize = 128
)

type clientEvent struct {
	Type    string  `json:"type"`
	State   string  `json:"state,omitempty"`
	Level   float64 `json:"level,omitempty"`
	Code    string  `json:"code,omitempty"`
	Message string  `json:"message,omitempty"`
}

type clientControl struct {
	Type  string `json:"type"`
	Muted bool   `json:"muted,omitempty"`
}

type outboundMsg struct {
	binary []byte
	text   []byte
}

// clientConn adapts one end-user WebSocket into the session's capability
// surfaces: binary messages from the client are microphone frames
// (little-endian float32, one frame per message), and scheduled playback
// buffers are written back as binary messages at their start times. JSON
// text messages carry control and status traffic.
type clientConn struct {
	ws      *websocket.Conn
	log     *slog.Logger
	outRate int

	send chan outboundMsg
	done chan struct{}

	mu        sync.Mutex
	onFrame   func([]float32)
	capturing bool

	onMute       func(bool)
	onClientStop func(code string)

	closeOnce sync.Once
}

func newClientConn(ws *websocket.Conn, outRate int, log *slog.Logger) *clientConn {
	return &clientConn{
		ws:      ws,
		log:     log.With("component", "client_conn"),
		outRate: outRate,
		send:    make(chan outboundMsg, sendBufferSize),
		done:    make(chan struct{}),
	}
}

// Start implements capture.Source. The client owns the real device; frames
// begin flowing as soon as the browser delivers them, so Start only arms the
// callback.
func (c *clientConn) Start(_ context.Context, onFrame func([]float32)) error {
	c.mu.Lock()
	c.onFrame = onFrame
	c.capturing = true
	c.mu.Unlock()
	return nil
}

// Stop implements capture.Source.
func (c *clientConn) Stop() error {
	c.mu.Lock()
	c.capturing = false
	c.onFrame = nil
	c.mu.Unlock()
	return nil
}

// Schedule implements playback.Output. The buffer is held until its start
// time, then written as one binary message; completion fires after the
// buffer's duration has elapsed on the shared timeline.
func (c *clientConn) Schedule(buf playback.Buffer, start time.Time, onDone func()) (playback.Handle, error) {
	pcm := buf.PCM
	if c.outRate > 0 && c.outRate != buf.SampleRate {
		resampled := audio.ResampleInt16(audio.UnpackPCM16(pcm), buf.SampleRate, c.outRate)
		out := make([]byte, len(resampled)*2)
		for i, s := range resampled {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
		}
		pcm = out
	}

	h := &scheduledSend{}
	delay := time.Until(start)
	if delay < 0 {
		delay = 0
	}

	h.mu.Lock()
	h.sendTimer = time.AfterFunc(delay, func() {
		if h.stopped.Load() {
			return
		}
		c.enqueue(outboundMsg{binary: pcm})
		h.mu.Lock()
		h.doneTimer = time.AfterFunc(buf.Duration, func() {
			if !h.stopped.Load() && onDone != nil {
				onDone()
			}
		})
		h.mu.Unlock()
	})
	h.mu.Unlock()

	return h, nil
}

type scheduledSend struct {
	mu        sync.Mutex
	sendTimer *time.Timer
	doneTimer *time.Timer
	stopped   atomic.Bool
}

func (h *scheduledSend) Stop() {
	h.stopped.Store(true)
	h.mu.Lock()
	if h.sendTimer != nil {
		h.sendTimer.Stop()
	}
	if h.doneTimer != nil {
		h.doneTimer.Stop()
	}
	h.mu.Unlock()
}

// Close implements playback.Output and signals shutdown. The write pump owns
// the socket: it flushes queued events and sends a close frame before the
// underlying connection goes away. Idempotent.
func (c *clientConn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
	})
	return nil
}

func (c *clientConn) sendState(st coachsession.State) {
	c.sendEvent(clientEvent{Type: "state", State: string(st)})
}

func (c *clientConn) sendLevel(level float64) {
	c.sendEvent(clientEvent{Type: "level", Level: level})
}

func (c *clientConn) sendStatus(status coachsession.Status) {
	c.sendEvent(clientEvent{Type: "status", Code: string(status.Code), Message: status.Message})
}

func (c *clientConn) sendEvent(evt clientEvent) {
	data, err := json.Marshal(evt)
	if err != nil {
		c.log.Error("failed to marshal client event", "error", err)
		return
	}
	c.enqueue(outboundMsg{text: data})
}

func (c *clientConn) enqueue(msg outboundMsg) {
	select {
	case <-c.done:
	case c.send <- msg:
	default:
		c.log.Warn("send buffer full, dropping message")
	}
}

func (c *clientConn) readPump() {
	defer c.Close()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Error("websocket read error", "error", err)
			}
			return
		}

		switch msgType {
		case websocket.BinaryMessage:
			c.handleFrame(data)
		case websocket.TextMessage:
			c.handleControl(data)
		}
	}
}

func (c *clientConn) handleFrame(data []byte) {
	c.mu.Lock()
	onFrame := c.onFrame
	capturing := c.capturing
	c.mu.Unlock()
	if !capturing || onFrame == nil {
		return
	}

	frame := make([]float32, len(data)/4)
	for i := range frame {
		frame[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	onFrame(frame)
}

func (c *clientConn) handleControl(data []byte) {
	var ctrl clientControl
	if err := json.Unmarshal(data, &ctrl); err != nil {
		c.log.Error("failed to unmarshal control message", "error", err)
		return
	}

	switch ctrl.Type {
	case "mute":
		if c.onMute != nil {
			c.onMute(ctrl.Muted)
		}
	case "permission_denied", "no_device":
		// The client could not acquire its microphone; fatal to the session.
		if c.onClientStop != nil {
			c.onClientStop(ctrl.Type)
		}
	case "close":
		if c.onClientStop != nil {
			c.onClientStop(ctrl.Type)
		}
	default:
		c.log.Debug("ignoring unknown control message", "type", ctrl.Type)
	}
}

func (c *clientConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Close()
		_ = c.ws.Close()
	}()

	for {
		select {
		case <-c.done:
			c.flush()
			return
		case msg := <-c.send:
			if err := c.writeMessage(msg); err != nil {
				c.log.Error("websocket write error", "error", err)
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// flush delivers events that were queued before shutdown, such as a terminal
// status explaining why the session ended, then sends a close frame so the
// client sees an orderly end instead of a dropped socket.
func (c *clientConn) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.writeMessage(msg); err != nil {
				return
			}
		default:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.ws.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *clientConn) writeMessage(msg outboundMsg) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if msg.binary != nil {
		return c.ws.WriteMessage(websocket.BinaryMessage, msg.binary)
	}
	return c.ws.WriteMessage(websocket.TextMessage, msg.text)
}

var _ capture.Source = (*clientConn)(nil)
var _ playback.Output = (*clientConn)(nil)

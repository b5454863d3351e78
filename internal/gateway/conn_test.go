package gateway

import (
	"encoding/binary"
	"encoding/json"
	"log/slog"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/pulsefit/coach-backend/internal/playback"
)

func newTestConn() *clientConn {
	return newClientConn(nil, 24000, slog.Default())
}

func packFloat32LE(samples []float32) []byte {
	out := make([]byte, len(samples)*4)
	for i, s := range samples {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(s))
	}
	return out
}

func TestClientConn_HandleFrameDecodesLittleEndianFloat32(t *testing.T) {
	conn := newTestConn()

	var mu sync.Mutex
	var got [][]float32
	if err := conn.Start(nil, func(f []float32) {
		mu.Lock()
		got = append(got, f)
		mu.Unlock()
	}); err != nil {
		t.Fatal(err)
	}

	want := []float32{0, 0.5, -0.5, 1.0}
	conn.handleFrame(packFloat32LE(want))

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(got))
	}
	for i := range want {
		if got[0][i] != want[i] {
			t.Errorf("sample %d: expected %f, got %f", i, want[i], got[0][i])
		}
	}
}

func TestClientConn_FramesIgnoredWhenNotCapturing(t *testing.T) {
	conn := newTestConn()

	delivered := 0
	if err := conn.Start(nil, func(f []float32) { delivered++ }); err != nil {
		t.Fatal(err)
	}
	if err := conn.Stop(); err != nil {
		t.Fatal(err)
	}

	conn.handleFrame(packFloat32LE([]float32{0.1, 0.2}))
	if delivered != 0 {
		t.Errorf("expected no frames after Stop, got %d", delivered)
	}
}

func TestClientConn_ControlRouting(t *testing.T) {
	conn := newTestConn()

	var muted *bool
	var stopCode string
	conn.onMute = func(m bool) { muted = &m }
	conn.onClientStop = func(code string) { stopCode = code }

	conn.handleControl([]byte(`{"type":"mute","muted":true}`))
	if muted == nil || !*muted {
		t.Error("expected mute(true) callback")
	}

	conn.handleControl([]byte(`{"type":"mute","muted":false}`))
	if muted == nil || *muted {
		t.Error("expected mute(false) callback")
	}

	conn.handleControl([]byte(`{"type":"permission_denied"}`))
	if stopCode != "permission_denied" {
		t.Errorf("expected stop with permission_denied, got %q", stopCode)
	}

	conn.handleControl([]byte(`{"type":"close"}`))
	if stopCode != "close" {
		t.Errorf("expected stop with close, got %q", stopCode)
	}

	// Garbage and unknown types are ignored.
	conn.handleControl([]byte(`not json`))
	conn.handleControl([]byte(`{"type":"selfie"}`))
}

func TestClientConn_ScheduleDeliversAtStartTime(t *testing.T) {
	conn := newTestConn()

	// 10ms of 24kHz mono PCM16: 240 samples.
	pcm := make([]byte, 480)
	buf := playback.Buffer{PCM: pcm, SampleRate: 24000, Channels: 1, Duration: 10 * time.Millisecond}

	done := make(chan struct{})
	_, err := conn.Schedule(buf, time.Now().Add(20*time.Millisecond), func() { close(done) })
	if err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-conn.send:
		if msg.binary == nil {
			t.Fatal("expected binary playback message")
		}
		if len(msg.binary) != len(pcm) {
			t.Errorf("expected %d bytes at native rate, got %d", len(pcm), len(msg.binary))
		}
	case <-time.After(time.Second):
		t.Fatal("scheduled buffer never sent")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onDone never fired")
	}
}

func TestClientConn_ScheduleResamplesToClientRate(t *testing.T) {
	conn := newClientConn(nil, 48000, slog.Default())

	pcm := make([]byte, 480) // 240 samples at 24kHz
	buf := playback.Buffer{PCM: pcm, SampleRate: 24000, Channels: 1, Duration: 10 * time.Millisecond}

	if _, err := conn.Schedule(buf, time.Now(), nil); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-conn.send:
		// 2x rate doubles the sample count.
		if len(msg.binary) != 960 {
			t.Errorf("expected 960 resampled bytes, got %d", len(msg.binary))
		}
	case <-time.After(time.Second):
		t.Fatal("scheduled buffer never sent")
	}
}

func TestClientConn_StoppedHandleNeverSends(t *testing.T) {
	conn := newTestConn()

	buf := playback.Buffer{PCM: make([]byte, 480), SampleRate: 24000, Duration: 10 * time.Millisecond}
	h, err := conn.Schedule(buf, time.Now().Add(50*time.Millisecond), func() {
		t.Error("onDone must not fire after Stop")
	})
	if err != nil {
		t.Fatal(err)
	}
	h.Stop()

	select {
	case <-conn.send:
		t.Fatal("stopped buffer reached the send queue")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestClientConn_EventsAreJSONText(t *testing.T) {
	conn := newTestConn()

	conn.sendLevel(0.42)

	select {
	case msg := <-conn.send:
		if msg.text == nil {
			t.Fatal("expected text message")
		}
		var evt clientEvent
		if err := json.Unmarshal(msg.text, &evt); err != nil {
			t.Fatalf("event not JSON: %v", err)
		}
		if evt.Type != "level" || evt.Level != 0.42 {
			t.Errorf("unexpected event %+v", evt)
		}
	default:
		t.Fatal("no event queued")
	}
}

func TestClientConn_EnqueueDropsWhenFull(t *testing.T) {
	conn := newTestConn()

	for i := 0; i < sendBufferSize+10; i++ {
		conn.sendLevel(float64(i))
	}
	// Channel holds at most sendBufferSize; the rest were dropped, and the
	// producer never blocked.
	if len(conn.send) != sendBufferSize {
		t.Errorf("expected full buffer of %d, got %d", sendBufferSize, len(conn.send))
	}
}

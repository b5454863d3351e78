package livecoach

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	setupTimeout     = 10 * time.Second
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	sendBufferSize   = 64
)

type clientMessage struct {
	Setup         *SessionConfig `json:"setup,omitempty"`
	RealtimeInput *realtimeInput `json:"realtime_input,omitempty"`
}

type realtimeInput struct {
	MediaChunks []MediaFrame `json:"media_chunks"`
}

type serverMessage struct {
	SetupComplete *struct{}      `json:"setup_complete,omitempty"`
	ServerContent *serverContent `json:"server_content,omitempty"`
	Error         *serverError   `json:"error,omitempty"`
}

type serverContent struct {
	Audio        *MediaFrame `json:"audio,omitempty"`
	TurnComplete bool        `json:"turn_complete,omitempty"`
	Interrupted  bool        `json:"interrupted,omitempty"`
}

type serverError struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// Client dials the vendor's live WebSocket endpoint.
type Client struct {
	cfg Config
	log *slog.Logger
}

func NewClient(cfg Config, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		cfg: cfg,
		log: log.With("component", "livecoach_client"),
	}
}

func (c *Client) Connect(ctx context.Context, cfg SessionConfig, cb Callbacks) (LiveSession, error) {
	u, err := url.Parse(c.cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%w: bad endpoint: %v", ErrConnectionFailed, err)
	}
	if c.cfg.APIKey != "" {
		q := u.Query()
		q.Set("key", c.cfg.APIKey)
		u.RawQuery = q.Encode()
	}

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, resp, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("%w: status %d: %v", ErrConnectionFailed, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	s := &wsSession{
		ws:   ws,
		cb:   cb,
		log:  c.log,
		send: make(chan clientMessage, sendBufferSize),
		done: make(chan struct{}),
	}

	if err := s.handshake(cfg); err != nil {
		_ = ws.Close()
		return nil, err
	}

	go s.writePump()
	go s.readPump()

	if cb.OnOpen != nil {
		cb.OnOpen()
	}
	return s, nil
}

type wsSession struct {
	ws   *websocket.Conn
	cb   Callbacks
	log  *slog.Logger
	send chan clientMessage

	writeMu   sync.Mutex
	closeOnce sync.Once
	done      chan struct{}
}

func (s *wsSession) handshake(cfg SessionConfig) error {
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	if err := s.ws.WriteJSON(clientMessage{Setup: &cfg}); err != nil {
		return fmt.Errorf("%w: send setup: %v", ErrConnectionFailed, err)
	}

	_ = s.ws.SetReadDeadline(time.Now().Add(setupTimeout))
	var msg serverMessage
	if err := s.ws.ReadJSON(&msg); err != nil {
		return fmt.Errorf("%w: read setup ack: %v", ErrConnectionFailed, err)
	}
	if msg.Error != nil {
		return fmt.Errorf("%w: %s", ErrConnectionFailed, msg.Error.Message)
	}
	if msg.SetupComplete == nil {
		return fmt.Errorf("%w: unexpected first message", ErrConnectionFailed)
	}
	return nil
}

func (s *wsSession) SendMedia(frame MediaFrame) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}

	msg := clientMessage{RealtimeInput: &realtimeInput{MediaChunks: []MediaFrame{frame}}}
	select {
	case s.send <- msg:
		return nil
	default:
		s.log.Warn("send buffer full, dropping media frame")
		return nil
	}
}

func (s *wsSession) readPump() {
	defer s.close(nil)

	_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error {
		_ = s.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := s.ws.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.close(err)
				return
			}
			return
		}

		var msg serverMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.log.Error("failed to unmarshal server message", "error", err)
			continue
		}
		s.dispatch(msg)
	}
}

func (s *wsSession) dispatch(msg serverMessage) {
	switch {
	case msg.Error != nil:
		if s.cb.OnError != nil {
			s.cb.OnError(fmt.Errorf("live session error: %s", msg.Error.Message))
		}
	case msg.ServerContent != nil:
		sc := msg.ServerContent
		if sc.Interrupted {
			if s.cb.OnInterrupted != nil {
				s.cb.OnInterrupted()
			}
			return
		}
		if sc.Audio != nil && s.cb.OnAudioChunk != nil {
			s.cb.OnAudioChunk(sc.Audio.Data, sc.Audio.MimeType)
		}
		if sc.TurnComplete && s.cb.OnTurnComplete != nil {
			s.cb.OnTurnComplete()
		}
	}
}

func (s *wsSession) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			s.writeMu.Lock()
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.ws.WriteJSON(msg)
			s.writeMu.Unlock()
			if err != nil {
				s.close(err)
				return
			}
		case <-ticker.C:
			s.writeMu.Lock()
			_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			err := s.ws.WriteMessage(websocket.PingMessage, nil)
			s.writeMu.Unlock()
			if err != nil {
				s.close(err)
				return
			}
		}
	}
}

func (s *wsSession) close(err error) {
	s.closeOnce.Do(func() {
		close(s.done)
		if err != nil && s.cb.OnError != nil {
			s.cb.OnError(err)
		}
		_ = s.ws.Close()
		if s.cb.OnClose != nil {
			s.cb.OnClose()
		}
	})
}

func (s *wsSession) Close() error {
	s.writeMu.Lock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = s.ws.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	s.writeMu.Unlock()

	s.close(nil)
	return nil
}

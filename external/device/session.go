package device

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/lumeolabs/lexilens/internal/config"
	"github.com/lumeolabs/lexilens/internal/device"
)

const handshakeTimeout = 10 * time.Second

// cloudSession is one glasses session backed by a websocket connection to
// the platform cloud. A single read pump dispatches inbound messages; writes
// share a mutex; request/response calls are correlated by request id.
type cloudSession struct {
	id     string
	userID string
	conn   *websocket.Conn
	client *CloudClient

	writeMu sync.Mutex

	handlerMu             sync.RWMutex
	nextHandlerID         int
	buttonHandlers        map[int]func(device.ButtonEvent)
	transcriptionHandlers map[int]func(device.TranscriptionEvent)

	pendingMu sync.Mutex
	pending   map[string]chan wsMessage

	done      chan struct{}
	closeOnce sync.Once
}

func newCloudSession(client *CloudClient, conn *websocket.Conn, sessionID, userID string) *cloudSession {
	return &cloudSession{
		id:                    sessionID,
		userID:                userID,
		conn:                  conn,
		client:                client,
		buttonHandlers:        make(map[int]func(device.ButtonEvent)),
		transcriptionHandlers: make(map[int]func(device.TranscriptionEvent)),
		pending:               make(map[string]chan wsMessage),
		done:                  make(chan struct{}),
	}
}

func (s *cloudSession) ID() string     { return s.id }
func (s *cloudSession) UserID() string { return s.userID }

// handshake authenticates the connection and subscribes to the event streams
// the orchestrator consumes. Runs before the read pump starts, so it reads
// the ack directly.
func (s *cloudSession) handshake(cfg *config.Config) error {
	init := wsMessage{
		Type:        msgConnectionInit,
		SessionID:   s.id,
		PackageName: cfg.PackageName,
		APIKey:      cfg.PlatformAPIKey,
	}
	if err := s.conn.WriteJSON(init); err != nil {
		return fmt.Errorf("failed to send connection_init: %w", err)
	}

	_ = s.conn.SetReadDeadline(time.Now().Add(handshakeTimeout))
	var ack wsMessage
	if err := s.conn.ReadJSON(&ack); err != nil {
		return fmt.Errorf("failed to read connection_ack: %w", err)
	}
	_ = s.conn.SetReadDeadline(time.Time{})
	if ack.Type != msgConnectionAck {
		return fmt.Errorf("unexpected handshake reply %q", ack.Type)
	}

	sub := wsMessage{
		Type:          msgSubscriptionUpdate,
		PackageName:   cfg.PackageName,
		Subscriptions: []string{msgButtonPress, msgTranscription, msgLocationUpdate},
	}
	if err := s.conn.WriteJSON(sub); err != nil {
		return fmt.Errorf("failed to send subscription_update: %w", err)
	}
	return nil
}

func (s *cloudSession) OnButtonPress(handler func(device.ButtonEvent)) func() {
	s.handlerMu.Lock()
	id := s.nextHandlerID
	s.nextHandlerID++
	s.buttonHandlers[id] = handler
	s.handlerMu.Unlock()
	return func() {
		s.handlerMu.Lock()
		delete(s.buttonHandlers, id)
		s.handlerMu.Unlock()
	}
}

func (s *cloudSession) OnTranscription(handler func(device.TranscriptionEvent)) func() {
	s.handlerMu.Lock()
	id := s.nextHandlerID
	s.nextHandlerID++
	s.transcriptionHandlers[id] = handler
	s.handlerMu.Unlock()
	return func() {
		s.handlerMu.Lock()
		delete(s.transcriptionHandlers, id)
		s.handlerMu.Unlock()
	}
}

func (s *cloudSession) RequestPhoto(ctx context.Context) (device.Photo, error) {
	requestID := uuid.NewString()
	reply, err := s.call(ctx, wsMessage{Type: msgPhotoRequest, RequestID: requestID})
	if err != nil {
		return device.Photo{}, err
	}
	if reply.Error != "" {
		return device.Photo{}, fmt.Errorf("photo request rejected: %s", reply.Error)
	}

	data, err := base64.StdEncoding.DecodeString(reply.PhotoData)
	if err != nil {
		return device.Photo{}, fmt.Errorf("failed to decode photo data: %w", err)
	}
	capturedAt := time.Now()
	if reply.CapturedAt != "" {
		if ts, parseErr := time.Parse(time.RFC3339, reply.CapturedAt); parseErr == nil {
			capturedAt = ts
		}
	}
	mimeType := reply.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return device.Photo{
		Bytes:      data,
		MimeType:   mimeType,
		CapturedAt: capturedAt,
		RequestID:  requestID,
	}, nil
}

func (s *cloudSession) Speak(ctx context.Context, text string, opts device.SpeakOptions) error {
	reply, err := s.call(ctx, wsMessage{
		Type:      msgSpeak,
		RequestID: uuid.NewString(),
		Text:      text,
		VoiceID:   opts.VoiceID,
		ModelID:   opts.ModelID,
	})
	if err != nil {
		return err
	}
	if reply.Error != "" {
		return fmt.Errorf("speak rejected: %s", reply.Error)
	}
	return nil
}

func (s *cloudSession) ShowText(text string, d time.Duration) error {
	return s.send(wsMessage{Type: msgDisplayText, Text: text, DurationMs: d.Milliseconds()})
}

func (s *cloudSession) LatestLocation(ctx context.Context, accuracy string) (device.Coordinates, error) {
	reply, err := s.call(ctx, wsMessage{
		Type:      msgLocationPoll,
		RequestID: uuid.NewString(),
		Accuracy:  accuracy,
	})
	if err != nil {
		return device.Coordinates{}, err
	}
	if reply.Error != "" {
		return device.Coordinates{}, fmt.Errorf("location poll rejected: %s", reply.Error)
	}
	return device.Coordinates{Lat: reply.Lat, Lng: reply.Lng}, nil
}

func (s *cloudSession) send(msg wsMessage) error {
	select {
	case <-s.done:
		return device.ErrSessionClosed
	default:
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.conn.WriteJSON(msg)
}

// call sends a request and waits for the response carrying the same request
// id, delivered by the read pump.
func (s *cloudSession) call(ctx context.Context, msg wsMessage) (wsMessage, error) {
	ch := make(chan wsMessage, 1)
	s.pendingMu.Lock()
	s.pending[msg.RequestID] = ch
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, msg.RequestID)
		s.pendingMu.Unlock()
	}()

	if err := s.send(msg); err != nil {
		return wsMessage{}, err
	}
	select {
	case reply := <-ch:
		return reply, nil
	case <-ctx.Done():
		return wsMessage{}, ctx.Err()
	case <-s.done:
		return wsMessage{}, device.ErrSessionClosed
	}
}

func (s *cloudSession) readPump() {
	defer s.finish("connection_closed")
	for {
		var msg wsMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			select {
			case <-s.done:
			default:
				slog.Warn("session connection read failed", "error", err, "session_id", s.id)
			}
			return
		}
		s.dispatch(msg)
	}
}

func (s *cloudSession) dispatch(msg wsMessage) {
	switch msg.Type {
	case msgButtonPress:
		ev := device.ButtonEvent{ButtonID: msg.ButtonID, PressType: device.PressType(msg.PressType)}
		s.handlerMu.RLock()
		handlers := make([]func(device.ButtonEvent), 0, len(s.buttonHandlers))
		for _, h := range s.buttonHandlers {
			handlers = append(handlers, h)
		}
		s.handlerMu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}
	case msgTranscription:
		ev := device.TranscriptionEvent{Text: msg.Text, IsFinal: msg.IsFinal}
		s.handlerMu.RLock()
		handlers := make([]func(device.TranscriptionEvent), 0, len(s.transcriptionHandlers))
		for _, h := range s.transcriptionHandlers {
			handlers = append(handlers, h)
		}
		s.handlerMu.RUnlock()
		for _, h := range handlers {
			h(ev)
		}
	case msgPhotoResponse, msgAudioPlayResponse, msgLocationUpdate:
		s.resolvePending(msg)
	case msgSessionEnd:
		reason := msg.Reason
		if reason == "" {
			reason = msgSessionEnd
		}
		s.finish(reason)
	case msgConnectionAck:
		// Handshake already consumed the first ack; repeats are harmless.
	default:
		slog.Debug("ignoring unknown platform message", "type", msg.Type, "session_id", s.id)
	}
}

func (s *cloudSession) resolvePending(msg wsMessage) {
	s.pendingMu.Lock()
	ch, ok := s.pending[msg.RequestID]
	if ok {
		delete(s.pending, msg.RequestID)
	}
	s.pendingMu.Unlock()
	if !ok {
		slog.Debug("no waiter for platform response", "type", msg.Type, "request_id", msg.RequestID, "session_id", s.id)
		return
	}
	ch <- msg
}

// finish tears the session down exactly once and reports the stop.
// Capability calls fail with ErrSessionClosed after it has run.
func (s *cloudSession) finish(reason string) {
	s.closeOnce.Do(func() {
		close(s.done)
		_ = s.conn.Close()
		s.client.sessionClosed(s, reason)
	})
}

package device

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lumeolabs/lexilens/internal/config"
	"github.com/lumeolabs/lexilens/internal/device"
)

const testCapturedAt = "2026-03-14T10:00:00Z"

// platformConn serializes writes to one server-side connection so the event
// loop and test pushes do not interleave frames.
type platformConn struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

func (p *platformConn) write(msg wsMessage) error {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()
	return p.conn.WriteJSON(msg)
}

// fakePlatform is a glasses cloud stand-in: it accepts the handshake and
// answers capability requests in a canned way.
type fakePlatform struct {
	server   *httptest.Server
	upgrader websocket.Upgrader

	mu            sync.Mutex
	speakErr      string
	conns         map[string]*platformConn
	initMsgs      []wsMessage
	subscriptions [][]string
	displayed     []wsMessage
}

func newFakePlatform(t *testing.T) *fakePlatform {
	t.Helper()
	f := &fakePlatform{conns: make(map[string]*platformConn)}
	f.server = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakePlatform) wsURL() string {
	return "ws" + strings.TrimPrefix(f.server.URL, "http")
}

func (f *fakePlatform) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	pc := &platformConn{conn: conn}

	var init wsMessage
	if err := conn.ReadJSON(&init); err != nil {
		return
	}
	f.mu.Lock()
	f.initMsgs = append(f.initMsgs, init)
	f.conns[init.SessionID] = pc
	f.mu.Unlock()
	if err := pc.write(wsMessage{Type: msgConnectionAck}); err != nil {
		return
	}

	var sub wsMessage
	if err := conn.ReadJSON(&sub); err != nil {
		return
	}
	f.mu.Lock()
	f.subscriptions = append(f.subscriptions, sub.Subscriptions)
	f.mu.Unlock()

	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case msgPhotoRequest:
			_ = pc.write(wsMessage{
				Type:       msgPhotoResponse,
				RequestID:  msg.RequestID,
				PhotoData:  base64.StdEncoding.EncodeToString([]byte("img")),
				MimeType:   "image/jpeg",
				CapturedAt: testCapturedAt,
			})
		case msgSpeak:
			f.mu.Lock()
			errText := f.speakErr
			f.mu.Unlock()
			_ = pc.write(wsMessage{Type: msgAudioPlayResponse, RequestID: msg.RequestID, Error: errText})
		case msgLocationPoll:
			_ = pc.write(wsMessage{Type: msgLocationUpdate, RequestID: msg.RequestID, Lat: 37.1773, Lng: -3.5986})
		case msgDisplayText:
			f.mu.Lock()
			f.displayed = append(f.displayed, msg)
			f.mu.Unlock()
		}
	}
}

func (f *fakePlatform) push(t *testing.T, sessionID string, msg wsMessage) {
	t.Helper()
	f.mu.Lock()
	pc := f.conns[sessionID]
	f.mu.Unlock()
	if pc == nil {
		t.Fatalf("no platform connection for session %s", sessionID)
	}
	if err := pc.write(msg); err != nil {
		t.Fatalf("failed to push %s: %v", msg.Type, err)
	}
}

func (f *fakePlatform) setSpeakError(text string) {
	f.mu.Lock()
	f.speakErr = text
	f.mu.Unlock()
}

func (f *fakePlatform) lastInit(t *testing.T) wsMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.initMsgs) == 0 {
		t.Fatal("platform received no connection_init")
	}
	return f.initMsgs[len(f.initMsgs)-1]
}

func (f *fakePlatform) subscriptionCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscriptions)
}

func (f *fakePlatform) lastSubscriptions(t *testing.T) []string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.subscriptions) == 0 {
		t.Fatal("platform received no subscription_update")
	}
	return f.subscriptions[len(f.subscriptions)-1]
}

func (f *fakePlatform) displayedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.displayed)
}

func (f *fakePlatform) lastDisplayed(t *testing.T) wsMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.displayed) == 0 {
		t.Fatal("platform received no display_text")
	}
	return f.displayed[len(f.displayed)-1]
}

type sessionStop struct {
	sessionID string
	userID    string
	reason    string
}

type recordingHandler struct {
	mu       sync.Mutex
	sessions []device.Session
	stops    []sessionStop
}

func (h *recordingHandler) OnSessionStart(s device.Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.sessions = append(h.sessions, s)
}

func (h *recordingHandler) OnSessionStop(sessionID, userID, reason string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops = append(h.stops, sessionStop{sessionID: sessionID, userID: userID, reason: reason})
}

func (h *recordingHandler) sessionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions)
}

func (h *recordingHandler) lastSession(t *testing.T) device.Session {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.sessions) == 0 {
		t.Fatal("handler received no session")
	}
	return h.sessions[len(h.sessions)-1]
}

func (h *recordingHandler) stopCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.stops)
}

func (h *recordingHandler) lastStop(t *testing.T) sessionStop {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.stops) == 0 {
		t.Fatal("handler received no stop")
	}
	return h.stops[len(h.stops)-1]
}

func newTestClient(t *testing.T, platform *fakePlatform) (*CloudClient, *recordingHandler) {
	t.Helper()
	cfg := &config.Config{
		PackageName:    "com.lumeolabs.lexilens",
		PlatformAPIKey: "platform-key",
		PlatformWSURL:  platform.wsURL(),
	}
	client := NewCloudClient(cfg).(*CloudClient)
	handler := &recordingHandler{}
	client.RegisterSessionHandler(handler)
	t.Cleanup(func() { _ = client.Close() })
	return client, handler
}

func openTestSession(t *testing.T, client *CloudClient, sessionID, userID string) *httptest.ResponseRecorder {
	t.Helper()
	body := fmt.Sprintf(`{"type": "session_request", "sessionId": %q, "userId": %q}`, sessionID, userID)
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body))
	rec := httptest.NewRecorder()
	client.handleWebhook(rec, req)
	return rec
}

func TestWebhook_StartsSessionAndServesCapabilities(t *testing.T) {
	platform := newFakePlatform(t)
	client, handler := newTestClient(t, platform)

	rec := openTestSession(t, client, "sess-1", "user-7")
	if rec.Code != http.StatusOK {
		t.Fatalf("webhook status = %d, want 200", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"status": "ok"}` {
		t.Fatalf("webhook body = %q", got)
	}

	if handler.sessionCount() != 1 {
		t.Fatalf("handler saw %d sessions, want 1", handler.sessionCount())
	}
	s := handler.lastSession(t)
	if s.ID() != "sess-1" || s.UserID() != "user-7" {
		t.Fatalf("session identity = %s/%s", s.ID(), s.UserID())
	}

	init := platform.lastInit(t)
	if init.Type != msgConnectionInit || init.SessionID != "sess-1" {
		t.Fatalf("unexpected init message %+v", init)
	}
	if init.PackageName != "com.lumeolabs.lexilens" || init.APIKey != "platform-key" {
		t.Fatalf("init credentials = %s/%s", init.PackageName, init.APIKey)
	}
	waitUntil(t, time.Second, func() bool { return platform.subscriptionCount() == 1 }, "platform received no subscription_update")
	subs := platform.lastSubscriptions(t)
	want := []string{msgButtonPress, msgTranscription, msgLocationUpdate}
	if len(subs) != len(want) {
		t.Fatalf("subscriptions = %v, want %v", subs, want)
	}
	for i, sub := range want {
		if subs[i] != sub {
			t.Fatalf("subscriptions = %v, want %v", subs, want)
		}
	}

	photo, err := s.RequestPhoto(context.Background())
	if err != nil {
		t.Fatalf("RequestPhoto failed: %v", err)
	}
	if string(photo.Bytes) != "img" || photo.MimeType != "image/jpeg" {
		t.Fatalf("unexpected photo %q %s", photo.Bytes, photo.MimeType)
	}
	wantAt, _ := time.Parse(time.RFC3339, testCapturedAt)
	if !photo.CapturedAt.Equal(wantAt) {
		t.Fatalf("photo captured at %v, want %v", photo.CapturedAt, wantAt)
	}
	if photo.RequestID == "" {
		t.Fatal("photo request id is empty")
	}

	if err := s.Speak(context.Background(), "hello", device.SpeakOptions{VoiceID: "alloy"}); err != nil {
		t.Fatalf("Speak failed: %v", err)
	}

	if err := s.ShowText("LexiLens ready", 3*time.Second); err != nil {
		t.Fatalf("ShowText failed: %v", err)
	}
	waitUntil(t, time.Second, func() bool { return platform.displayedCount() == 1 }, "display_text never reached the platform")
	shown := platform.lastDisplayed(t)
	if shown.Text != "LexiLens ready" || shown.DurationMs != 3000 {
		t.Fatalf("unexpected display_text %+v", shown)
	}

	loc, err := s.LatestLocation(context.Background(), "reduced")
	if err != nil {
		t.Fatalf("LatestLocation failed: %v", err)
	}
	if loc.Lat != 37.1773 || loc.Lng != -3.5986 {
		t.Fatalf("location = %v", loc)
	}
}

func TestEventsReachHandlersAndUnsubscribeStops(t *testing.T) {
	platform := newFakePlatform(t)
	client, handler := newTestClient(t, platform)
	openTestSession(t, client, "sess-1", "user-7")
	s := handler.lastSession(t)

	var mu sync.Mutex
	var presses []device.ButtonEvent
	var transcripts []device.TranscriptionEvent
	unsubPress := s.OnButtonPress(func(ev device.ButtonEvent) {
		mu.Lock()
		presses = append(presses, ev)
		mu.Unlock()
	})
	s.OnTranscription(func(ev device.TranscriptionEvent) {
		mu.Lock()
		transcripts = append(transcripts, ev)
		mu.Unlock()
	})

	platform.push(t, "sess-1", wsMessage{Type: msgButtonPress, ButtonID: "main", PressType: "short"})
	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(presses) == 1
	}, "button press never reached the handler")
	mu.Lock()
	press := presses[0]
	mu.Unlock()
	if press.ButtonID != "main" || press.PressType != device.PressShort {
		t.Fatalf("unexpected press %+v", press)
	}

	platform.push(t, "sess-1", wsMessage{Type: msgTranscription, Text: "what is this", IsFinal: true})
	waitUntil(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(transcripts) == 1
	}, "transcription never reached the handler")
	mu.Lock()
	tr := transcripts[0]
	mu.Unlock()
	if tr.Text != "what is this" || !tr.IsFinal {
		t.Fatalf("unexpected transcription %+v", tr)
	}

	unsubPress()
	platform.push(t, "sess-1", wsMessage{Type: msgButtonPress, ButtonID: "main", PressType: "short"})
	// A capability round trip after the push guarantees the pump has already
	// dispatched the second press by the time we assert.
	if _, err := s.RequestPhoto(context.Background()); err != nil {
		t.Fatalf("RequestPhoto failed: %v", err)
	}
	mu.Lock()
	got := len(presses)
	mu.Unlock()
	if got != 1 {
		t.Fatalf("unsubscribed handler saw %d presses, want 1", got)
	}
}

func TestSessionEnd_ReportsStopAndFailsLaterCalls(t *testing.T) {
	platform := newFakePlatform(t)
	client, handler := newTestClient(t, platform)
	openTestSession(t, client, "sess-1", "user-7")
	s := handler.lastSession(t)

	platform.push(t, "sess-1", wsMessage{Type: msgSessionEnd, Reason: "user_disconnected"})
	waitUntil(t, time.Second, func() bool { return handler.stopCount() == 1 }, "session stop never reported")
	stop := handler.lastStop(t)
	if stop.sessionID != "sess-1" || stop.userID != "user-7" || stop.reason != "user_disconnected" {
		t.Fatalf("unexpected stop %+v", stop)
	}

	if _, err := s.RequestPhoto(context.Background()); !errors.Is(err, device.ErrSessionClosed) {
		t.Fatalf("RequestPhoto after end = %v, want ErrSessionClosed", err)
	}
	if err := s.ShowText("late", time.Second); !errors.Is(err, device.ErrSessionClosed) {
		t.Fatalf("ShowText after end = %v, want ErrSessionClosed", err)
	}
}

func TestWebhook_RejectsBadPayloads(t *testing.T) {
	platform := newFakePlatform(t)
	client, _ := newTestClient(t, platform)

	tests := []struct {
		name string
		body string
	}{
		{name: "invalid json", body: `{"type": `},
		{name: "unknown type", body: `{"type": "status_ping", "sessionId": "sess-1"}`},
		{name: "missing session id", body: `{"type": "session_request", "userId": "user-7"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			client.handleWebhook(rec, req)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestWebhook_WithoutHandlerIsUnavailable(t *testing.T) {
	platform := newFakePlatform(t)
	client := NewCloudClient(&config.Config{PlatformWSURL: platform.wsURL()}).(*CloudClient)

	rec := openTestSession(t, client, "sess-1", "user-7")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestSpeak_SurfacesDeviceError(t *testing.T) {
	platform := newFakePlatform(t)
	platform.setSpeakError("audio busy")
	client, handler := newTestClient(t, platform)
	openTestSession(t, client, "sess-1", "user-7")
	s := handler.lastSession(t)

	err := s.Speak(context.Background(), "hello", device.SpeakOptions{})
	if err == nil || !strings.Contains(err.Error(), "audio busy") {
		t.Fatalf("Speak error = %v, want audio busy", err)
	}
}

func TestWebhook_ReplacesExistingSession(t *testing.T) {
	platform := newFakePlatform(t)
	client, handler := newTestClient(t, platform)

	openTestSession(t, client, "sess-1", "user-7")
	openTestSession(t, client, "sess-1", "user-7")

	if handler.sessionCount() != 2 {
		t.Fatalf("handler saw %d sessions, want 2", handler.sessionCount())
	}
	if handler.stopCount() != 1 {
		t.Fatalf("handler saw %d stops, want 1", handler.stopCount())
	}
	if stop := handler.lastStop(t); stop.reason != "replaced" {
		t.Fatalf("stop reason = %q, want replaced", stop.reason)
	}

	s := handler.lastSession(t)
	if _, err := s.RequestPhoto(context.Background()); err != nil {
		t.Fatalf("replacement session RequestPhoto failed: %v", err)
	}
}

func TestConnectRunClose_ServesHealthAndMetrics(t *testing.T) {
	platform := newFakePlatform(t)
	client, _ := newTestClient(t, platform)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	runErr := make(chan error, 1)
	go func() { runErr <- client.Run() }()

	base := "http://" + client.listener.Addr().String()
	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("healthz request failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Fatalf("healthz = %d %q", resp.StatusCode, body)
	}

	resp, err = http.Get(base + "/metrics")
	if err != nil {
		t.Fatalf("metrics request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", resp.StatusCode)
	}

	resp, err = http.Post(base+"/webhook", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatalf("webhook request failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("webhook status = %d, want 400", resp.StatusCode)
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := <-runErr; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool, message string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal(message)
}

// Package device implements the glasses platform client: a webhook server
// the platform calls to announce sessions, and a websocket connection per
// session for events and capabilities.
package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lumeolabs/lexilens/internal/config"
	"github.com/lumeolabs/lexilens/internal/device"
)

type CloudClient struct {
	cfg     *config.Config
	dialer  *websocket.Dialer
	handler device.SessionHandler

	server   *http.Server
	listener net.Listener

	mu       sync.Mutex
	sessions map[string]*cloudSession
}

func NewCloudClient(cfg *config.Config) device.Client {
	return &CloudClient{
		cfg:      cfg,
		dialer:   websocket.DefaultDialer,
		sessions: make(map[string]*cloudSession),
	}
}

func (c *CloudClient) RegisterSessionHandler(handler device.SessionHandler) {
	c.handler = handler
}

// Connect binds the webhook listener. Serving starts in Run, so a taken
// port fails fast here.
func (c *CloudClient) Connect(_ context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", c.handleWebhook)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", promhttp.Handler())

	addr := fmt.Sprintf(":%d", c.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	c.listener = listener
	c.server = &http.Server{Handler: mux}
	return nil
}

func (c *CloudClient) Run() error {
	slog.Info("webhook server listening", "addr", c.listener.Addr().String())
	if err := c.server.Serve(c.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *CloudClient) Close() error {
	c.mu.Lock()
	sessions := make([]*cloudSession, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.Unlock()
	for _, s := range sessions {
		s.finish("server_shutdown")
	}

	if c.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.server.Shutdown(ctx)
}

type sessionRequest struct {
	Type         string `json:"type"`
	SessionID    string `json:"sessionId"`
	UserID       string `json:"userId"`
	WebSocketURL string `json:"websocketUrl"`
}

// handleWebhook answers the platform's session_request by dialing the
// session websocket and handing the connected session to the orchestrator.
func (c *CloudClient) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}
	if req.Type != "session_request" || req.SessionID == "" {
		http.Error(w, "unsupported webhook type", http.StatusBadRequest)
		return
	}
	if c.handler == nil {
		http.Error(w, "no session handler registered", http.StatusServiceUnavailable)
		return
	}

	wsURL := req.WebSocketURL
	if wsURL == "" {
		wsURL = c.cfg.PlatformWSURL
	}
	session, err := c.openSession(r.Context(), req.SessionID, req.UserID, wsURL)
	if err != nil {
		slog.Error("failed to open glasses session", "error", err, "session_id", req.SessionID)
		http.Error(w, "failed to open session", http.StatusBadGateway)
		return
	}

	c.mu.Lock()
	old := c.sessions[req.SessionID]
	c.mu.Unlock()
	if old != nil {
		old.finish("replaced")
	}
	c.mu.Lock()
	c.sessions[req.SessionID] = session
	c.mu.Unlock()

	// The pump must run before OnSessionStart: the orchestrator issues
	// capability calls during startup and their responses arrive on the pump.
	// Events dispatched before handlers are registered are dropped.
	go session.readPump()
	c.handler.OnSessionStart(session)

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status": "ok"}`))
}

func (c *CloudClient) openSession(ctx context.Context, sessionID, userID, wsURL string) (*cloudSession, error) {
	conn, resp, err := c.dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial platform: %w", err)
	}
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}

	session := newCloudSession(c, conn, sessionID, userID)
	if err := session.handshake(c.cfg); err != nil {
		_ = conn.Close()
		return nil, err
	}
	slog.Info("glasses session connected", "session_id", sessionID, "user_id", userID)
	return session, nil
}

// sessionClosed is called exactly once per session, from finish.
func (c *CloudClient) sessionClosed(s *cloudSession, reason string) {
	c.mu.Lock()
	if c.sessions[s.id] == s {
		delete(c.sessions, s.id)
	}
	c.mu.Unlock()

	slog.Info("glasses session closed", "session_id", s.id, "reason", reason)
	if c.handler != nil {
		c.handler.OnSessionStop(s.id, s.userID, reason)
	}
}

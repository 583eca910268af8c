// Package session orchestrates one glasses session: button presses drive the
// capture-and-recognize pipeline, finalized transcriptions drive follow-up
// answers, and a long press toggles the translation target.
package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/lumeolabs/lexilens/internal/config"
	"github.com/lumeolabs/lexilens/internal/device"
	"github.com/lumeolabs/lexilens/internal/forwarder"
	"github.com/lumeolabs/lexilens/internal/geocoder"
	"github.com/lumeolabs/lexilens/internal/inference"
	"github.com/lumeolabs/lexilens/internal/language"
	"github.com/lumeolabs/lexilens/internal/listening"
	"github.com/lumeolabs/lexilens/internal/metrics"
)

const readyTextDuration = 3 * time.Second

type Manager struct {
	cfg     *config.Config
	engine  inference.Engine
	geo     geocoder.Geocoder
	fwd     forwarder.Forwarder
	metrics *metrics.Metrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*activeSession
}

// sessionState is the mutable per-session state. It is only ever touched
// from the session's mailbox goroutine; handlers and pipeline runs hop
// through activeSession.do to read or write it.
type sessionState struct {
	currentWord   *inference.SubjectAnalysis
	window        *listening.Window
	lang          language.Language
	trackLocation bool

	// runSeq numbers recognition runs per session; committedSeq remembers
	// the newest run that committed currentWord so a slow older run cannot
	// overwrite a newer word.
	runSeq       uint64
	committedSeq uint64
}

type activeSession struct {
	device device.Session
	state  *sessionState

	ops       chan func()
	done      chan struct{}
	closeOnce sync.Once

	unsubscribes []func()
}

func NewManager(cfg *config.Config, engine inference.Engine, geo geocoder.Geocoder, fwd forwarder.Forwarder, m *metrics.Metrics) *Manager {
	return &Manager{
		cfg:      cfg,
		engine:   engine,
		geo:      geo,
		fwd:      fwd,
		metrics:  m,
		now:      time.Now,
		sessions: make(map[string]*activeSession),
	}
}

// loop is the session's single writer: state-touching operations queue here
// and execute one at a time, in arrival order.
func (a *activeSession) loop() {
	for {
		select {
		case op := <-a.ops:
			op()
		case <-a.done:
			return
		}
	}
}

// do runs op on the session's mailbox goroutine and waits for it to finish.
// It reports false when the session stopped before the op could run.
func (a *activeSession) do(op func(st *sessionState)) bool {
	ran := make(chan struct{})
	select {
	case a.ops <- func() {
		op(a.state)
		close(ran)
	}:
	case <-a.done:
		return false
	}
	select {
	case <-ran:
		return true
	case <-a.done:
		return false
	}
}

func (a *activeSession) close() {
	a.closeOnce.Do(func() {
		close(a.done)
	})
}

func (m *Manager) OnSessionStart(s device.Session) {
	sessionID := s.ID()
	slog.Info("session started", "session_id", sessionID, "user_id", s.UserID())
	m.metrics.RecordSessionStart()

	a := &activeSession{
		device: s,
		ops:    make(chan func(), 16),
		done:   make(chan struct{}),
	}
	a.state = &sessionState{
		lang:          language.Default(),
		trackLocation: m.cfg.TrackLocation,
		window: listening.NewWindow(m.cfg.ListenWindow(), m.now, func() {
			m.metrics.RecordWindowExpired()
			slog.Debug("listening window expired", "session_id", sessionID)
		}),
	}
	go a.loop()

	m.mu.Lock()
	m.sessions[sessionID] = a
	m.mu.Unlock()

	// One location cycle before event handlers go live. Failures inside are
	// logged and must not prevent the handlers from being registered.
	if m.cfg.TrackLocation {
		m.trackLocation(a)
	}

	unsubButton := s.OnButtonPress(func(ev device.ButtonEvent) {
		m.handleButtonPress(a, ev)
	})
	unsubTranscription := s.OnTranscription(func(ev device.TranscriptionEvent) {
		m.handleTranscription(a, ev)
	})

	m.mu.Lock()
	a.unsubscribes = []func(){unsubButton, unsubTranscription}
	m.mu.Unlock()

	if err := s.ShowText("LexiLens ready", readyTextDuration); err != nil {
		slog.Warn("failed to show ready text", "error", err, "session_id", sessionID)
	}
	slog.Info("session handlers registered", "session_id", sessionID, "track_location", m.cfg.TrackLocation)
}

func (m *Manager) OnSessionStop(sessionID, userID, reason string) {
	m.mu.Lock()
	a, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	var unsubscribes []func()
	if a != nil {
		unsubscribes = a.unsubscribes
	}
	m.mu.Unlock()
	if !ok {
		return
	}

	a.close()
	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
	m.metrics.RecordSessionStop()
	// In-flight wordbase posts are left to drain; only the session's own
	// event handling ends here.
	slog.Info("session stopped", "session_id", sessionID, "user_id", userID, "reason", reason)
}

func (m *Manager) isSessionActive(sessionID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.sessions[sessionID]
	return ok
}

func (m *Manager) handleButtonPress(a *activeSession, ev device.ButtonEvent) {
	if ev.PressType == device.PressLong {
		m.toggleLanguage(a)
		return
	}

	// Any other press captures a fresh photo. Runs are independent: a press
	// during an in-flight run starts a second run rather than waiting.
	var (
		seq  uint64
		lang language.Language
	)
	ok := a.do(func(st *sessionState) {
		st.runSeq++
		seq = st.runSeq
		lang = st.lang
	})
	if !ok {
		return
	}
	go m.runRecognition(a, seq, lang)
}

func (m *Manager) toggleLanguage(a *activeSession) {
	var lang language.Language
	ok := a.do(func(st *sessionState) {
		st.lang = st.lang.Toggle()
		lang = st.lang
	})
	if !ok {
		return
	}
	m.metrics.RecordLanguageToggle()
	slog.Info("language switched", "session_id", a.device.ID(), "language", lang)
	go m.speak(a, fmt.Sprintf("Language switched to %s.", lang))
}

func (m *Manager) handleTranscription(a *activeSession, ev device.TranscriptionEvent) {
	if !ev.IsFinal {
		return
	}
	text := strings.TrimSpace(ev.Text)
	if text == "" {
		return
	}

	var (
		isListening bool
		cancelled   bool
		word        *inference.SubjectAnalysis
		lang        language.Language
	)
	ok := a.do(func(st *sessionState) {
		if !st.window.IsListening() {
			return
		}
		isListening = true
		if containsCancelKeyword(text) {
			st.window.ExpireNow()
			cancelled = true
			return
		}
		if st.currentWord != nil {
			w := *st.currentWord
			word = &w
		}
		lang = st.lang
	})
	if !ok || !isListening {
		return
	}
	if cancelled {
		slog.Info("listening cancelled by utterance", "session_id", a.device.ID(), "text", text)
		return
	}
	if !looksLikeQuestion(text) {
		slog.Debug("utterance ignored: no question cue", "session_id", a.device.ID(), "text", text)
		return
	}
	if word == nil {
		slog.Info("follow-up question skipped: no current word", "session_id", a.device.ID(), "text", text)
		return
	}
	go m.answerQuestion(a, text, *word, lang)
}

func (m *Manager) answerQuestion(a *activeSession, question string, word inference.SubjectAnalysis, lang language.Language) {
	sessionID := a.device.ID()
	answer, err := m.engine.AnswerQuestion(context.Background(), question, word, lang)
	if err != nil {
		slog.Error("contextual answer failed", "error", err, "session_id", sessionID, "word", word.SourceWord)
		return
	}
	answer = strings.TrimSpace(answer)
	if answer == "" {
		slog.Info("contextual answer empty; nothing to speak", "session_id", sessionID, "question", question)
		return
	}

	m.speak(a, answer)
	a.do(func(st *sessionState) {
		st.window.Arm()
	})
	m.metrics.RecordWindowArmed()
	m.metrics.RecordQuestionAnswered()
	slog.Info("follow-up question answered", "session_id", sessionID, "word", word.SourceWord)
}

// speak expires the listening window before audio starts, so the glasses do
// not transcribe their own voice as a command, then plays the text. Returns
// once playback has started.
func (m *Manager) speak(a *activeSession, text string) error {
	a.do(func(st *sessionState) {
		st.window.ExpireNow()
	})
	if err := a.device.Speak(context.Background(), text, m.speakOptions()); err != nil {
		slog.Warn("speech output failed", "error", err, "session_id", a.device.ID())
		return err
	}
	return nil
}

func (m *Manager) speakOptions() device.SpeakOptions {
	return device.SpeakOptions{
		VoiceID: m.cfg.SpeakVoiceID,
		ModelID: m.cfg.SpeakModelID,
	}
}

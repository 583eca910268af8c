// Package device defines the glasses platform surface the companion app
// consumes: session lifecycle, device events, and device capabilities.
// Implementations live in external/device.
package device

import (
	"context"
	"errors"
	"time"
)

// ErrSessionClosed is returned by capability calls after the platform
// connection for the session has gone away.
var ErrSessionClosed = errors.New("device session is closed")

// PressType distinguishes the two button gestures the glasses report.
type PressType string

const (
	PressShort PressType = "short"
	PressLong  PressType = "long"
)

// ButtonEvent is a hardware button press reported by the glasses.
type ButtonEvent struct {
	ButtonID  string
	PressType PressType
}

// TranscriptionEvent is a speech-to-text result from the platform. Only
// finalized utterances are acted on; interim results carry IsFinal=false.
type TranscriptionEvent struct {
	Text    string
	IsFinal bool
}

// Photo is a single captured camera frame.
type Photo struct {
	Bytes      []byte
	MimeType   string
	CapturedAt time.Time
	RequestID  string
}

// Coordinates is a device location fix.
type Coordinates struct {
	Lat float64
	Lng float64
}

// SpeakOptions selects the voice used for audio output.
type SpeakOptions struct {
	VoiceID string
	ModelID string
}

// Session is one connected glasses session. Event subscriptions return an
// unsubscribe function; capability calls block until the device responds or
// the context ends.
type Session interface {
	ID() string
	UserID() string

	OnButtonPress(handler func(ButtonEvent)) (unsubscribe func())
	OnTranscription(handler func(TranscriptionEvent)) (unsubscribe func())

	// RequestPhoto asks the glasses camera for a single frame. The device
	// imposes no deadline of its own; pass a context if one is needed.
	RequestPhoto(ctx context.Context) (Photo, error)

	// Speak plays text as audio on the glasses and returns once playback
	// has started.
	Speak(ctx context.Context, text string, opts SpeakOptions) error

	// ShowText displays text on the glasses screen for the given duration.
	ShowText(text string, d time.Duration) error

	// LatestLocation returns the device's current location fix.
	LatestLocation(ctx context.Context, accuracy string) (Coordinates, error)
}

// SessionHandler receives session lifecycle callbacks from the platform.
type SessionHandler interface {
	OnSessionStart(session Session)
	OnSessionStop(sessionID, userID, reason string)
}

// Client is the connection to the glasses platform cloud.
type Client interface {
	Connect(ctx context.Context) error
	Close() error
	RegisterSessionHandler(handler SessionHandler)
	Run() error
}

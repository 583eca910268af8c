package device

// Platform websocket message types.
const (
	msgConnectionInit     = "connection_init"
	msgConnectionAck      = "connection_ack"
	msgSubscriptionUpdate = "subscription_update"
	msgButtonPress        = "button_press"
	msgTranscription      = "transcription"
	msgPhotoRequest       = "photo_request"
	msgPhotoResponse      = "photo_response"
	msgSpeak              = "speak"
	msgAudioPlayResponse  = "audio_play_response"
	msgDisplayText        = "display_text"
	msgLocationPoll       = "location_poll"
	msgLocationUpdate     = "location_update"
	msgSessionEnd         = "session_end"
)

// wsMessage is the single envelope for every message exchanged with the
// platform cloud; unused fields stay empty for any given type.
type wsMessage struct {
	Type          string   `json:"type"`
	SessionID     string   `json:"sessionId,omitempty"`
	PackageName   string   `json:"packageName,omitempty"`
	APIKey        string   `json:"apiKey,omitempty"`
	Subscriptions []string `json:"subscriptions,omitempty"`
	RequestID     string   `json:"requestId,omitempty"`
	ButtonID      string   `json:"buttonId,omitempty"`
	PressType     string   `json:"pressType,omitempty"`
	Text          string   `json:"text,omitempty"`
	IsFinal       bool     `json:"isFinal,omitempty"`
	PhotoData     string   `json:"photoData,omitempty"`
	MimeType      string   `json:"mimeType,omitempty"`
	CapturedAt    string   `json:"capturedAt,omitempty"`
	VoiceID       string   `json:"voiceId,omitempty"`
	ModelID       string   `json:"modelId,omitempty"`
	DurationMs    int64    `json:"durationMs,omitempty"`
	Accuracy      string   `json:"accuracy,omitempty"`
	Lat           float64  `json:"lat,omitempty"`
	Lng           float64  `json:"lng,omitempty"`
	Error         string   `json:"error,omitempty"`
	Reason        string   `json:"reason,omitempty"`
}

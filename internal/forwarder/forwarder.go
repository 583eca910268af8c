// Package forwarder defines best-effort delivery of recognition results to
// the wordbase backend. Implementations live in external/forwarder.
package forwarder

import "time"

// WordEntry is one recognized word as persisted by the wordbase. The JSON
// field names are the wordbase wire format.
type WordEntry struct {
	ID            int64     `json:"id"`
	SourceWord    string    `json:"word"`
	Translation   string    `json:"translation"`
	Romanization  string    `json:"anglosax"`
	PictureBase64 string    `json:"picture,omitempty"`
	CapturedAt    time.Time `json:"timestamp"`
	LanguageCode  string    `json:"language"`
}

// LocationEntry is one reverse-geocoded place as persisted by the wordbase.
type LocationEntry struct {
	PlaceName    string    `json:"place"`
	Translation  string    `json:"translation"`
	Romanization string    `json:"anglosax"`
	RecordedAt   time.Time `json:"timestamp"`
}

// Forwarder posts entries to the wordbase. Both calls are asynchronous and
// best-effort: they never block the interaction path and never surface
// delivery failures to the caller.
type Forwarder interface {
	SendWord(entry WordEntry)
	SendLocation(entry LocationEntry)
}

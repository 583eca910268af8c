// Package wordstore defines persistence for recognized words and visited
// places. Implementations live in external/wordstore.
package wordstore

import (
	"context"
	"time"
)

// WordRecord is one stored recognition result. The JSON field names are the
// wordbase wire format shared with the companion app forwarder.
type WordRecord struct {
	ID            int64     `json:"id"`
	Word          string    `json:"word"`
	Translation   string    `json:"translation"`
	Romanization  string    `json:"anglosax"`
	PictureBase64 string    `json:"picture,omitempty"`
	Timestamp     time.Time `json:"timestamp"`
	LanguageCode  string    `json:"language"`
}

// LocationRecord is one stored reverse-geocoded place.
type LocationRecord struct {
	ID           int64     `json:"id"`
	PlaceName    string    `json:"place"`
	Translation  string    `json:"translation"`
	Romanization string    `json:"anglosax"`
	Timestamp    time.Time `json:"timestamp"`
}

type InsertWordInput struct {
	Word          string
	Translation   string
	Romanization  string
	PictureBase64 string
	Timestamp     time.Time
	LanguageCode  string
}

type InsertLocationInput struct {
	PlaceName    string
	Translation  string
	Romanization string
	Timestamp    time.Time
}

// Repository stores and lists wordbase rows. Inserts return the assigned id;
// client-supplied ids are never honored.
type Repository interface {
	InsertWord(ctx context.Context, input InsertWordInput) (int64, error)
	ListWords(ctx context.Context) ([]WordRecord, error)
	// ListWordsByDay returns the words whose timestamp falls on the calendar
	// day of the given time, in the given time's location.
	ListWordsByDay(ctx context.Context, day time.Time) ([]WordRecord, error)
	InsertLocation(ctx context.Context, input InsertLocationInput) (int64, error)
	ListLocations(ctx context.Context) ([]LocationRecord, error)
}

package session

import (
	"context"
	"encoding/base64"
	"log/slog"
	"sync"

	"github.com/lumeolabs/lexilens/internal/forwarder"
	"github.com/lumeolabs/lexilens/internal/inference"
	"github.com/lumeolabs/lexilens/internal/language"
)

const (
	locationAccuracy = "reduced"
	unknownPlaceName = "Unknown"
)

// secondaryTranslation pairs a detected object label with its translation.
type secondaryTranslation struct {
	Label       string
	Translation inference.PhraseTranslation
}

// runRecognition is one full capture-and-recognize pipeline run: photo,
// subject analysis, object detection, secondary translations, speech, then
// state commit and best-effort persistence. It runs on its own goroutine;
// only the final commit hops through the session mailbox.
func (m *Manager) runRecognition(a *activeSession, seq uint64, lang language.Language) {
	sessionID := a.device.ID()
	start := m.now()
	m.metrics.RecordRecognitionStarted()
	slog.Info("recognition run started", "session_id", sessionID, "run", seq, "language", lang)

	ctx := context.Background()
	photo, err := a.device.RequestPhoto(ctx)
	if err != nil {
		m.metrics.RecordRecognitionFailed("capture")
		slog.Error("photo capture failed", "error", err, "session_id", sessionID, "run", seq)
		return
	}

	analysis, err := m.engine.AnalyzeSubject(ctx, photo.Bytes, photo.MimeType, lang)
	if err != nil {
		// A failed primary analysis aborts the whole run: nothing is spoken,
		// nothing is persisted, and the listening window is left untouched.
		m.metrics.RecordRecognitionFailed("analysis")
		slog.Error("subject analysis failed", "error", err, "session_id", sessionID, "run", seq)
		return
	}
	slog.Debug("subject analyzed",
		"session_id", sessionID,
		"run", seq,
		"word", analysis.SourceWord,
		"translation", analysis.Translation,
	)

	labels, err := m.engine.DetectObjects(ctx, photo.Bytes, photo.MimeType)
	if err != nil {
		slog.Warn("object detection failed; continuing with primary word only", "error", err, "session_id", sessionID, "run", seq)
		labels = nil
	}
	labels = dedupLabels(labels, analysis.SourceWord)
	m.metrics.RecordSecondaryLabels(len(labels))

	secondary := m.translateLabels(ctx, labels, lang)

	m.speak(a, composeRecognitionSpeech(analysis, secondary, lang))
	m.metrics.RecordRecognitionCompleted(m.now().Sub(start).Seconds())

	capturedAt := photo.CapturedAt
	if capturedAt.IsZero() {
		capturedAt = m.now()
	}
	picture := base64.StdEncoding.EncodeToString(photo.Bytes)
	entries := make([]forwarder.WordEntry, 0, 1+len(secondary))
	entries = append(entries, forwarder.WordEntry{
		ID:            forwarder.NextEntryID(capturedAt),
		SourceWord:    analysis.SourceWord,
		Translation:   analysis.Translation,
		Romanization:  analysis.Romanization,
		PictureBase64: picture,
		CapturedAt:    capturedAt,
		LanguageCode:  lang.Code(),
	})
	for _, s := range secondary {
		entries = append(entries, forwarder.WordEntry{
			ID:            forwarder.NextEntryID(capturedAt),
			SourceWord:    s.Label,
			Translation:   s.Translation.Translation,
			Romanization:  s.Translation.Romanization,
			PictureBase64: picture,
			CapturedAt:    capturedAt,
			LanguageCode:  lang.Code(),
		})
	}

	committed := false
	a.do(func(st *sessionState) {
		st.window.Arm()
		if seq < st.committedSeq {
			// A newer run already committed its word; keep that one current.
			return
		}
		st.committedSeq = seq
		word := analysis
		st.currentWord = &word
		committed = true
	})
	m.metrics.RecordWindowArmed()
	if !committed {
		slog.Info("recognition result superseded by a newer run", "session_id", sessionID, "run", seq)
	}

	for _, entry := range entries {
		m.fwd.SendWord(entry)
	}
	slog.Info("recognition run finished",
		"session_id", sessionID,
		"run", seq,
		"word", analysis.SourceWord,
		"secondary_count", len(secondary),
	)
}

// translateLabels translates every label concurrently and joins the results
// back in detection order. A failed translation drops only its own label.
func (m *Manager) translateLabels(ctx context.Context, labels []string, lang language.Language) []secondaryTranslation {
	if len(labels) == 0 {
		return nil
	}

	results := make([]*inference.PhraseTranslation, len(labels))
	var wg sync.WaitGroup
	for i, label := range labels {
		i, label := i, label
		wg.Add(1)
		go func() {
			defer wg.Done()
			tr, err := m.engine.TranslatePhrase(ctx, label, lang)
			if err != nil {
				m.metrics.RecordSecondaryTranslationFailed()
				slog.Warn("secondary translation dropped", "error", err, "label", label)
				return
			}
			m.metrics.RecordSecondaryTranslation()
			results[i] = &tr
		}()
	}
	wg.Wait()

	out := make([]secondaryTranslation, 0, len(labels))
	for i, label := range labels {
		if results[i] == nil {
			continue
		}
		out = append(out, secondaryTranslation{Label: label, Translation: *results[i]})
	}
	return out
}

// trackLocation performs one location-tracking cycle, from device location
// to a forwarded wordbase entry. Every failure is logged; none reaches the
// caller.
func (m *Manager) trackLocation(a *activeSession) {
	sessionID := a.device.ID()
	var lang language.Language
	if ok := a.do(func(st *sessionState) { lang = st.lang }); !ok {
		return
	}

	ctx := context.Background()
	coords, err := a.device.LatestLocation(ctx, locationAccuracy)
	if err != nil {
		slog.Error("location read failed", "error", err, "session_id", sessionID)
		return
	}

	place, err := m.geo.ReverseGeocode(ctx, coords.Lat, coords.Lng)
	if err != nil {
		// Record the visit anyway under a sentinel place name.
		slog.Error("reverse geocoding failed; using sentinel place name", "error", err, "session_id", sessionID)
		place = unknownPlaceName
	}

	tr, err := m.engine.TranslatePhrase(ctx, place, lang)
	if err != nil {
		slog.Error("place name translation failed", "error", err, "session_id", sessionID, "place", place)
		return
	}

	m.fwd.SendLocation(forwarder.LocationEntry{
		PlaceName:    place,
		Translation:  tr.Translation,
		Romanization: tr.Romanization,
		RecordedAt:   m.now(),
	})
	m.metrics.RecordLocationCycle()
	slog.Info("location tracked", "session_id", sessionID, "place", place)
}

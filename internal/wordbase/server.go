// Package wordbase serves the words backend HTTP API: recognized words and
// visited places, stored through a wordstore.Repository.
package wordbase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/lumeolabs/lexilens/internal/wordstore"
)

const shutdownTimeout = 5 * time.Second

type Server struct {
	repo wordstore.Repository

	server   *http.Server
	listener net.Listener
}

func NewServer(repo wordstore.Repository) *Server {
	return &Server{repo: repo}
}

// Handler returns the full API surface, CORS included.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /words", s.handleAddWord)
	mux.HandleFunc("GET /words", s.handleListWords)
	mux.HandleFunc("GET /words/full", s.handleWordsOfDay)
	mux.HandleFunc("POST /locations", s.handleAddLocation)
	mux.HandleFunc("GET /locations", s.handleListLocations)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return withCORS(mux)
}

// Listen binds the API listener so a taken port fails before Run starts.
func (s *Server) Listen(port int) error {
	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = listener
	s.server = &http.Server{Handler: s.Handler()}
	return nil
}

func (s *Server) Run() error {
	slog.Info("wordbase api listening", "addr", s.listener.Addr().String())
	if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// withCORS allows any origin. The wordbase is consumed by browser study
// tools and the voice agent, none of which share the API's origin.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type insertReply struct {
	Success bool  `json:"success"`
	ID      int64 `json:"id"`
}

type errorReply struct {
	Detail string `json:"detail"`
}

func (s *Server) handleAddWord(w http.ResponseWriter, r *http.Request) {
	var entry wordstore.WordRecord
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Detail: "invalid JSON payload"})
		return
	}
	if entry.Word == "" || entry.Translation == "" {
		writeJSON(w, http.StatusBadRequest, errorReply{Detail: "word and translation are required"})
		return
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	id, err := s.repo.InsertWord(r.Context(), wordstore.InsertWordInput{
		Word:          entry.Word,
		Translation:   entry.Translation,
		Romanization:  entry.Romanization,
		PictureBase64: entry.PictureBase64,
		Timestamp:     ts,
		LanguageCode:  entry.LanguageCode,
	})
	if err != nil {
		slog.Error("failed to insert word", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorReply{Detail: "failed to store word"})
		return
	}
	slog.Debug("word stored", "id", id, "word", entry.Word)
	writeJSON(w, http.StatusOK, insertReply{Success: true, ID: id})
}

func (s *Server) handleListWords(w http.ResponseWriter, r *http.Request) {
	records, err := s.repo.ListWords(r.Context())
	if err != nil {
		slog.Error("failed to list words", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorReply{Detail: "failed to list words"})
		return
	}
	// Pictures are large; the default listing is for study clients that
	// only read text.
	if r.URL.Query().Get("include_pictures") != "true" {
		for i := range records {
			records[i].PictureBase64 = ""
		}
	}
	writeJSON(w, http.StatusOK, nonNilWords(records))
}

func (s *Server) handleWordsOfDay(w http.ResponseWriter, r *http.Request) {
	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Detail: "Invalid date format. Use YYYY-MM-DD."})
		return
	}
	records, err := s.repo.ListWordsByDay(r.Context(), day)
	if err != nil {
		slog.Error("failed to list words by day", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorReply{Detail: "failed to list words"})
		return
	}
	writeJSON(w, http.StatusOK, nonNilWords(records))
}

func (s *Server) handleAddLocation(w http.ResponseWriter, r *http.Request) {
	var entry wordstore.LocationRecord
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeJSON(w, http.StatusBadRequest, errorReply{Detail: "invalid JSON payload"})
		return
	}
	if entry.PlaceName == "" || entry.Translation == "" {
		writeJSON(w, http.StatusBadRequest, errorReply{Detail: "place and translation are required"})
		return
	}
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	id, err := s.repo.InsertLocation(r.Context(), wordstore.InsertLocationInput{
		PlaceName:    entry.PlaceName,
		Translation:  entry.Translation,
		Romanization: entry.Romanization,
		Timestamp:    ts,
	})
	if err != nil {
		slog.Error("failed to insert location", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorReply{Detail: "failed to store location"})
		return
	}
	slog.Debug("location stored", "id", id, "place", entry.PlaceName)
	writeJSON(w, http.StatusOK, insertReply{Success: true, ID: id})
}

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	records, err := s.repo.ListLocations(r.Context())
	if err != nil {
		slog.Error("failed to list locations", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorReply{Detail: "failed to list locations"})
		return
	}
	if records == nil {
		records = []wordstore.LocationRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

func nonNilWords(records []wordstore.WordRecord) []wordstore.WordRecord {
	if records == nil {
		return []wordstore.WordRecord{}
	}
	return records
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

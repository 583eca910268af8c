// Package forwarder implements best-effort delivery to the wordbase over
// HTTP with a bounded outbound queue.
package forwarder

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/lumeolabs/lexilens/internal/forwarder"
	"github.com/lumeolabs/lexilens/internal/metrics"
)

const (
	// queueCapacity bounds memory when the wordbase is slow or down. Beyond
	// it, new entries are dropped and counted instead of piling up.
	queueCapacity  = 64
	requestTimeout = 15 * time.Second

	kindWord     = "word"
	kindLocation = "location"
)

type queuedEntry struct {
	kind string
	path string
	body []byte
}

type HTTPForwarder struct {
	wordbaseURL string
	client      *http.Client
	metrics     *metrics.Metrics

	mu     sync.RWMutex
	closed bool
	queue  chan queuedEntry
	wg     sync.WaitGroup
}

// NewHTTPForwarder starts the drain goroutine immediately. An empty
// wordbaseURL turns forwarding off entirely.
func NewHTTPForwarder(wordbaseURL string, m *metrics.Metrics) forwarder.Forwarder {
	f := &HTTPForwarder{
		wordbaseURL: wordbaseURL,
		client:      &http.Client{Timeout: requestTimeout},
		metrics:     m,
		queue:       make(chan queuedEntry, queueCapacity),
	}
	f.wg.Add(1)
	go f.drain()
	return f
}

func (f *HTTPForwarder) SendWord(entry forwarder.WordEntry) {
	f.enqueue(kindWord, "/words", entry)
}

func (f *HTTPForwarder) SendLocation(entry forwarder.LocationEntry) {
	f.enqueue(kindLocation, "/locations", entry)
}

// Shutdown stops accepting entries and waits for the queue to drain.
func (f *HTTPForwarder) Shutdown() error {
	f.mu.Lock()
	if !f.closed {
		f.closed = true
		close(f.queue)
	}
	f.mu.Unlock()
	f.wg.Wait()
	return nil
}

func (f *HTTPForwarder) enqueue(kind, path string, payload any) {
	if f.wordbaseURL == "" {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		slog.Error("failed to encode outbound entry", "kind", kind, "error", err)
		return
	}

	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	select {
	case f.queue <- queuedEntry{kind: kind, path: path, body: body}:
	default:
		f.metrics.RecordForwarderDropped(kind)
		slog.Warn("outbound queue full; dropping entry", "kind", kind)
	}
}

func (f *HTTPForwarder) drain() {
	defer f.wg.Done()
	for entry := range f.queue {
		f.deliver(entry)
	}
}

func (f *HTTPForwarder) deliver(entry queuedEntry) {
	req, err := http.NewRequest(http.MethodPost, f.wordbaseURL+entry.path, bytes.NewReader(entry.body))
	if err != nil {
		f.metrics.RecordForwarderFailed(entry.kind)
		slog.Error("failed to build wordbase request", "kind", entry.kind, "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := f.client.Do(req)
	if err != nil {
		f.metrics.RecordForwarderFailed(entry.kind)
		slog.Error("wordbase post failed", "kind", entry.kind, "error", err)
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	respBody, _ := io.ReadAll(resp.Body)
	if !isHTTPSuccessStatus(resp.StatusCode) {
		f.metrics.RecordForwarderFailed(entry.kind)
		slog.Error("wordbase post rejected", "kind", entry.kind, "status", resp.StatusCode, "body", string(respBody))
		return
	}
	f.metrics.RecordForwarderSent(entry.kind)
	slog.Debug("wordbase post accepted", "kind", entry.kind, "response", string(respBody))
}

func isHTTPSuccessStatus(statusCode int) bool {
	return statusCode >= 200 && statusCode < 300
}

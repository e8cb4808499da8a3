package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"github.com/utopium/chatflow/pkg/domain"
)

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

// StreamOption configures a StreamManager.
type StreamOption func(*StreamManager)

// WithStreamLogger sets the logger used when broadcasting.
func WithStreamLogger(logger *slog.Logger) StreamOption {
	return func(sm *StreamManager) { sm.logger = logger }
}

func NewStreamManager(opts ...StreamOption) *StreamManager {
	sm := &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(sm)
	}
	return sm
}

func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
		}
	}
}

// Listen broadcasts a persisted change. It has the shape of chatflow.ChangeListener.
func (sm *StreamManager) Listen(_ context.Context, diff *domain.SnapshotDiff) {
	payload, err := json.Marshal(diff)
	if err != nil {
		sm.logger.Error("SSE: failed to encode diff", "session_id", diff.SessionID, "err", err)
		return
	}
	sm.Broadcast(diff.SessionID, string(payload))
}

// Subscribers returns the number of open streams for a session.
func (sm *StreamManager) Subscribers(sessionID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[sessionID])
}

// watchFilter keeps the diffs that touch at least one watched part.
type watchFilter []string

func parseWatch(watch *string) watchFilter {
	if watch == nil || strings.TrimSpace(*watch) == "" {
		return nil
	}
	var f watchFilter
	for _, field := range strings.Split(*watch, ",") {
		if field = strings.TrimSpace(field); field != "" {
			f = append(f, field)
		}
	}
	return f
}

func (f watchFilter) keep(msg string) bool {
	if len(f) == 0 {
		return true
	}
	var diff domain.SnapshotDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range f {
		switch field {
		case "transcript":
			if len(diff.Appended) > 0 || diff.Cleared {
				return true
			}
		case "data":
			if len(diff.Data) > 0 {
				return true
			}
		case "step":
			if diff.Step != nil || diff.Flow != nil {
				return true
			}
		}
	}
	return false
}

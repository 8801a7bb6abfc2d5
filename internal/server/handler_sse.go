package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// handleSSEStats streams scheduler snapshots via Server-Sent Events.
// GET /api/v1/sse/stats
func (s *Server) handleSSEStats(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	snap := s.engine.Snapshot()
	if err := sendSSEEvent(w, flusher, "init", snap); err != nil {
		s.logger.Debug("sse client disconnected", "request_id", reqID, "error", err)
		return
	}
	lastTicks := snap.Stats.Ticks

	ticker := time.NewTicker(s.sseInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			snap = s.engine.Snapshot()
			if snap.Stats.Ticks != lastTicks {
				if err := sendSSEEvent(w, flusher, "update", snap); err != nil {
					s.logger.Debug("sse client disconnected", "request_id", reqID)
					return
				}
				lastTicks = snap.Stats.Ticks
				continue
			}
			// Send heartbeat.
			if _, err := fmt.Fprintf(w, ": heartbeat\n\n"); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	if err != nil {
		return err
	}

	flusher.Flush()
	return nil
}

package server

import (
	"net/http"
	"runtime"
	"time"
)

type healthResponse struct {
	Status    string `json:"status"`
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Scheduler string `json:"scheduler"`
	RunID     string `json:"run_id,omitempty"`
	Store     string `json:"store"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	resp := healthResponse{
		Status:    "healthy",
		Version:   Version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		Scheduler: "unavailable",
		Store:     "unavailable",
	}
	if s.engine != nil {
		resp.Scheduler = "running"
		resp.RunID = s.engine.RunID()
	}
	if s.store != nil {
		resp.Store = "sqlite"
	}
	respondOK(w, reqID, resp)
}

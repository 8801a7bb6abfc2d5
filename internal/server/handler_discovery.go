package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "ticksched API",
		Version:     "v1",
		Description: "Tick-driven task scheduler: live task table control and run journal",
		Endpoints: []endpointInfo{
			{"/api/v1/slots", []string{"GET"}, "Occupied task slots with state and counters"},
			{"/api/v1/stats", []string{"GET"}, "Scheduler counters for the current run"},
			{"/api/v1/tasks", []string{"GET", "POST"}, "Known task specs; POST registers a new task"},
			{"/api/v1/tasks/{name}/pause", []string{"POST"}, "Pause a task, keeping its elapsed count"},
			{"/api/v1/tasks/{name}/continue", []string{"POST"}, "Resume a paused task"},
			{"/api/v1/tasks/{name}/disable", []string{"POST"}, "Remove a task at the end of the next tick"},
			{"/api/v1/sse/stats", []string{"GET"}, "Server-Sent Events stream of scheduler snapshots"},
			{"/api/v1/runs", []string{"GET"}, "Journaled runs. Accepts ?state, ?limit, ?offset"},
			{"/api/v1/runs/{id}", []string{"GET"}, "Single run with final counters"},
			{"/api/v1/runs/{id}/fires", []string{"GET"}, "Task fires recorded for a run"},
			{"/api/v1/runs/{id}/overruns", []string{"GET"}, "Tick overruns recorded for a run"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}

package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/ticksched/pkg/model"
)

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	opts := parseListOptions(r)

	runs, total, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}
	respondList(w, reqID, runs, pagination(opts, total))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	run, ok := s.lookupRun(w, r, reqID)
	if !ok {
		return
	}
	respondOK(w, reqID, run)
}

func (s *Server) handleListFires(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	run, ok := s.lookupRun(w, r, reqID)
	if !ok {
		return
	}
	opts := parseListOptions(r)

	fires, total, err := s.store.ListFires(r.Context(), run.ID, opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if fires == nil {
		fires = []model.Fire{}
	}
	respondList(w, reqID, fires, pagination(opts, total))
}

func (s *Server) handleListOverruns(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	run, ok := s.lookupRun(w, r, reqID)
	if !ok {
		return
	}
	opts := parseListOptions(r)

	overruns, total, err := s.store.ListOverruns(r.Context(), run.ID, opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return
	}
	if overruns == nil {
		overruns = []model.Overrun{}
	}
	respondList(w, reqID, overruns, pagination(opts, total))
}

// lookupRun resolves the {id} URL parameter and writes the error response
// when the run cannot be returned.
func (s *Server) lookupRun(w http.ResponseWriter, r *http.Request, reqID string) (*model.Run, bool) {
	id := chi.URLParam(r, "id")

	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
		return nil, false
	}
	if run == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("run", id))
		return nil, false
	}
	return run, true
}

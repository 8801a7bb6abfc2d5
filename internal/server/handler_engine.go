package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/me/ticksched/internal/plan"
	"github.com/me/ticksched/pkg/model"
)

func (s *Server) handleListSlots(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	slots := s.engine.Snapshot().Slots
	if state := r.URL.Query().Get("state"); state != "" {
		filtered := make([]model.SlotView, 0, len(slots))
		for _, sl := range slots {
			if string(sl.State) == state {
				filtered = append(filtered, sl)
			}
		}
		slots = filtered
	}
	if slots == nil {
		slots = []model.SlotView{}
	}

	respondList(w, reqID, slots, &model.Pagination{
		Total: len(slots), Limit: len(slots), Offset: 0, HasMore: false,
	})
}

func (s *Server) handleGetStats(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, s.engine.Snapshot().Stats)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	tasks := s.engine.Tasks()
	if tasks == nil {
		tasks = []model.TaskSpec{}
	}
	respondList(w, reqID, tasks, &model.Pagination{
		Total: len(tasks), Limit: len(tasks), Offset: 0, HasMore: false,
	})
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var spec model.TaskSpec
	if err := json.NewDecoder(r.Body).Decode(&spec); err != nil {
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{
			Code:    model.ErrValidation,
			Message: "Invalid JSON body: " + err.Error(),
		})
		return
	}

	if err := plan.ValidateTask(spec); err != nil {
		respondEngineError(w, reqID, err)
		return
	}
	plan.NormalizeTask(&spec)

	res, err := s.engine.AddTask(r.Context(), spec)
	if err != nil {
		respondEngineError(w, reqID, err)
		return
	}

	s.logger.Info("task added", "task", res.Name, "slot", res.Slot, "request_id", reqID)
	respondCreated(w, reqID, res)
}

func (s *Server) handlePauseTask(w http.ResponseWriter, r *http.Request) {
	s.controlTask(w, r, "paused", s.engine.PauseTask)
}

func (s *Server) handleContinueTask(w http.ResponseWriter, r *http.Request) {
	s.controlTask(w, r, "continued", s.engine.ContinueTask)
}

func (s *Server) handleDisableTask(w http.ResponseWriter, r *http.Request) {
	s.controlTask(w, r, "disabled", s.engine.DisableTask)
}

type controlResponse struct {
	Name   string `json:"name"`
	Action string `json:"action"`
}

func (s *Server) controlTask(w http.ResponseWriter, r *http.Request, verb string, fn func(ctx context.Context, name string) error) {
	reqID := RequestIDFromContext(r.Context())
	name := chi.URLParam(r, "name")

	if err := fn(r.Context(), name); err != nil {
		respondEngineError(w, reqID, err)
		return
	}

	s.logger.Info("task "+verb, "task", name, "request_id", reqID)
	respondOK(w, reqID, controlResponse{Name: name, Action: verb})
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/me/ticksched/internal/action"
	"github.com/me/ticksched/internal/scheduler"
	"github.com/me/ticksched/pkg/model"
	"github.com/me/ticksched/pkg/timer"
)

// requestID generates a unique request identifier.
func requestID() string {
	return "req_" + uuid.New().String()[:8]
}

// respondOK writes a success response with the standard envelope.
func respondOK(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusOK, reqID, data, nil, nil)
}

// respondCreated writes a 201 response with the standard envelope.
func respondCreated(w http.ResponseWriter, reqID string, data any) {
	respondJSON(w, http.StatusCreated, reqID, data, nil, nil)
}

// respondList writes a success response with pagination.
func respondList(w http.ResponseWriter, reqID string, data any, pg *model.Pagination) {
	respondJSON(w, http.StatusOK, reqID, data, pg, nil)
}

// respondError writes an error response with the standard envelope.
func respondError(w http.ResponseWriter, reqID string, status int, apiErr *model.APIError) {
	respondJSON(w, status, reqID, nil, nil, apiErr)
}

func respondJSON(w http.ResponseWriter, status int, reqID string, data any, pg *model.Pagination, apiErr *model.APIError) {
	resp := model.Response{
		RequestID:  reqID,
		Timestamp:  time.Now().UTC(),
		Data:       data,
		Pagination: pg,
		Error:      apiErr,
	}
	if apiErr != nil {
		resp.Status = "error"
	} else {
		resp.Status = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

// respondEngineError maps scheduler and engine errors to API errors.
func respondEngineError(w http.ResponseWriter, reqID string, err error) {
	var apiErr *model.APIError
	switch {
	case errors.As(err, &apiErr):
		status := http.StatusBadRequest
		if apiErr.Code == model.ErrNotFound {
			status = http.StatusNotFound
		}
		respondError(w, reqID, status, apiErr)
	case errors.Is(err, scheduler.ErrTaskNotFound):
		respondError(w, reqID, http.StatusNotFound, &model.APIError{Code: model.ErrNotFound, Message: err.Error()})
	case errors.Is(err, scheduler.ErrTaskExists):
		respondError(w, reqID, http.StatusConflict, model.NewConflictError(err.Error()))
	case errors.Is(err, timer.ErrCapacityExceeded):
		respondError(w, reqID, http.StatusConflict, &model.APIError{Code: model.ErrCapacityExceeded, Message: err.Error()})
	case errors.Is(err, timer.ErrInvalidSlot):
		respondError(w, reqID, http.StatusConflict, &model.APIError{Code: model.ErrInvalidSlot, Message: err.Error()})
	case errors.Is(err, timer.ErrInvalidInterval), errors.Is(err, timer.ErrInvalidKind), errors.Is(err, action.ErrInvalidAction):
		respondError(w, reqID, http.StatusBadRequest, &model.APIError{Code: model.ErrValidation, Message: err.Error()})
	case errors.Is(err, scheduler.ErrStopped), errors.Is(err, context.DeadlineExceeded):
		respondError(w, reqID, http.StatusServiceUnavailable, &model.APIError{Code: model.ErrUnavailable, Message: err.Error()})
	default:
		respondError(w, reqID, http.StatusInternalServerError, model.NewInternalError(err.Error()))
	}
}

// parseListOptions reads limit, offset and state query parameters.
func parseListOptions(r *http.Request) model.ListOptions {
	opts := model.DefaultListOptions()

	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil && n >= 0 {
			opts.Offset = n
		}
	}
	if state := r.URL.Query().Get("state"); state != "" {
		opts.State = strings.ToUpper(state)
	}

	opts.Clamp()
	return opts
}

func pagination(opts model.ListOptions, total int) *model.Pagination {
	return &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+opts.Limit < total,
	}
}

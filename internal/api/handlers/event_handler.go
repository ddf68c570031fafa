package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/jackie/internal/database"
	"github.com/isdelr/jackie/internal/services"
	"github.com/rs/zerolog/log"
)

const defaultRecentLimit = 20

// EventHandler handles HTTP requests for the event reports.
type EventHandler struct {
	service services.EventServiceProvider
}

// NewEventHandler creates a new EventHandler.
func NewEventHandler(service services.EventServiceProvider) *EventHandler {
	return &EventHandler{service: service}
}

// GetRecent handles the request to get the most recent events.
func (h *EventHandler) GetRecent(w http.ResponseWriter, r *http.Request) {
	limit := defaultRecentLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = n
	}

	events, err := h.service.GetRecentEvents(r.Context(), limit)
	if err != nil {
		writeServiceError(w, err, "Failed to retrieve recent events")
		return
	}
	writeJSON(w, events)
}

// GetAggregations handles the request for per-type event counts.
func (h *EventHandler) GetAggregations(w http.ResponseWriter, r *http.Request) {
	aggs, err := h.service.GetAggregations(r.Context())
	if err != nil {
		writeServiceError(w, err, "Failed to aggregate events")
		return
	}
	writeJSON(w, aggs)
}

// GetByConsistencyKey handles the request for one consistency group.
func (h *EventHandler) GetByConsistencyKey(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	events, err := h.service.GetEventsByConsistencyKey(r.Context(), key)
	if err != nil {
		writeServiceError(w, err, "Failed to retrieve events by consistency key")
		return
	}
	writeJSON(w, events)
}

// GetByCorrelationID handles the request for the events of one correlation id.
func (h *EventHandler) GetByCorrelationID(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "correlation id must be an unsigned integer", http.StatusBadRequest)
		return
	}
	events, err := h.service.GetEventsByCorrelationID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "Failed to retrieve events by correlation id")
		return
	}
	writeJSON(w, events)
}

// writeServiceError maps service errors onto HTTP statuses. The error itself
// is only logged.
func writeServiceError(w http.ResponseWriter, err error, msg string) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidArgument):
		status = http.StatusBadRequest
	case errors.Is(err, database.ErrConnectExhausted):
		status = http.StatusServiceUnavailable
	}
	log.Error().Err(err).Int("status", status).Msg(msg)
	http.Error(w, msg, status)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

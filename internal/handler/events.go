package handler

import (
	"net/http"
	"strconv"
	"time"

	"beltsensor/internal/dto"
	"beltsensor/internal/logger"
	"beltsensor/internal/model"
	"beltsensor/internal/repository"
)

const (
	defaultEventLimit = 50
	maxEventLimit     = 500
)

// Flusher writes buffered events before they are read.
type Flusher interface {
	Flush()
}

// EventsHandler handles GET /api/events?limit=&offset=&kind=&since=.
func EventsHandler(repo repository.ControlEventRepository, buffer Flusher, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		filter, err := parseEventFilters(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		if buffer != nil {
			buffer.Flush()
		}

		events, err := repo.GetAll(filter)
		if err != nil {
			logger.Error("Error reading control events: %v", err)
			http.Error(w, "Failed to read events", http.StatusInternalServerError)
			return
		}

		total, err := repo.GetTotalCount(filter)
		if err != nil {
			logger.Error("Error counting control events: %v", err)
			http.Error(w, "Failed to read events", http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, dto.EventList{Events: events, Total: total}, logger)
	}
}

type badRequest string

func (e badRequest) Error() string { return string(e) }

func parseEventFilters(r *http.Request) (*dto.EventFilters, error) {
	q := r.URL.Query()
	filter := &dto.EventFilters{Limit: defaultEventLimit}

	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return nil, badRequest("invalid limit")
		}
		if n > maxEventLimit {
			n = maxEventLimit
		}
		filter.Limit = n
	}

	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return nil, badRequest("invalid offset")
		}
		filter.Offset = n
	}

	if v := q.Get("kind"); v != "" {
		filter.Kind = model.EventKind(v)
	}

	if v := q.Get("since"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil, badRequest("invalid since, expected RFC3339")
		}
		filter.Since = t
	}

	return filter, nil
}

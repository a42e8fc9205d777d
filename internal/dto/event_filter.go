package dto

import (
	"time"

	"beltsensor/internal/model"
)

// EventFilters narrow the control event list.
type EventFilters struct {
	Kind   model.EventKind
	Since  time.Time
	Until  time.Time
	Limit  int
	Offset int
}

package repository

import (
	"beltsensor/internal/dto"
	"beltsensor/internal/model"
)

// ControlEventRepository defines the interface for control event operations.
type ControlEventRepository interface {
	// Create operations
	Insert(ev *model.ControlEvent) (int64, error)
	InsertBatch(events []model.ControlEvent) error

	// Read operations
	GetAll(filter *dto.EventFilters) ([]model.ControlEvent, error)
	GetTotalCount(filter *dto.EventFilters) (int, error)

	// Delete operations
	DeleteAll() error
}

package sqlite

import (
	"fmt"

	"beltsensor/internal/dto"
	"beltsensor/internal/model"
)

// ControlEventRepository implements repository.ControlEventRepository for SQLite.
type ControlEventRepository struct {
	db *DB
}

// NewControlEventRepository creates a new SQLite control event repository.
func NewControlEventRepository(db *DB) *ControlEventRepository {
	return &ControlEventRepository{db: db}
}

// Insert adds a single event.
func (r *ControlEventRepository) Insert(ev *model.ControlEvent) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().Exec(`
		INSERT INTO control_events (kind, payload, created_at)
		VALUES (?, ?, ?)
	`, string(ev.Kind), ev.Payload, ev.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert control event: %w", err)
	}

	return result.LastInsertId()
}

// InsertBatch adds multiple events in a single transaction.
func (r *ControlEventRepository) InsertBatch(events []model.ControlEvent) error {
	if len(events) == 0 {
		return nil
	}

	r.db.Lock()
	defer r.db.Unlock()

	tx, err := r.db.Conn().Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO control_events (kind, payload, created_at)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, ev := range events {
		if _, err := stmt.Exec(string(ev.Kind), ev.Payload, ev.CreatedAt.UTC()); err != nil {
			return fmt.Errorf("failed to insert control event: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit control events: %w", err)
	}
	return nil
}

func whereClause(filter *dto.EventFilters) (string, []interface{}) {
	query := " WHERE 1=1"
	args := []interface{}{}

	if filter == nil {
		return query, args
	}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}

	if !filter.Since.IsZero() {
		query += " AND created_at >= ?"
		args = append(args, filter.Since.UTC())
	}

	if !filter.Until.IsZero() {
		query += " AND created_at <= ?"
		args = append(args, filter.Until.UTC())
	}

	return query, args
}

// GetAll returns events matching filter, newest first.
func (r *ControlEventRepository) GetAll(filter *dto.EventFilters) ([]model.ControlEvent, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)
	query := "SELECT id, kind, payload, created_at FROM control_events" + where
	query += " ORDER BY created_at DESC, id DESC"

	if filter != nil && filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)

		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query control events: %w", err)
	}
	defer rows.Close()

	events := []model.ControlEvent{}
	for rows.Next() {
		var ev model.ControlEvent
		var kind string
		if err := rows.Scan(&ev.ID, &kind, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan control event: %w", err)
		}
		ev.Kind = model.EventKind(kind)
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read control events: %w", err)
	}
	return events, nil
}

// GetTotalCount returns the number of events matching filter.
func (r *ControlEventRepository) GetTotalCount(filter *dto.EventFilters) (int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	where, args := whereClause(filter)

	var count int
	if err := r.db.Conn().QueryRow("SELECT COUNT(*) FROM control_events"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count control events: %w", err)
	}
	return count, nil
}

// DeleteAll removes every event.
func (r *ControlEventRepository) DeleteAll() error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().Exec("DELETE FROM control_events"); err != nil {
		return fmt.Errorf("failed to delete control events: %w", err)
	}
	return nil
}

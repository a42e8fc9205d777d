package storage

import (
	"context"
	"sync"
	"time"

	"beltsensor/internal/config"
	"beltsensor/internal/logger"
	"beltsensor/internal/model"
	"beltsensor/internal/repository"
)

// EventBuffer buffers control events in memory and periodically flushes them
// to the repository.
type EventBuffer struct {
	events        []model.ControlEvent
	limit         int
	flushInterval time.Duration
	dropped       int
	mu            sync.Mutex
	logger        *logger.Logger
	repo          repository.ControlEventRepository
	now           func() time.Time
}

// NewEventBuffer creates an EventBuffer writing to repo.
func NewEventBuffer(config *config.Config, logger *logger.Logger, repo repository.ControlEventRepository) *EventBuffer {
	return &EventBuffer{
		events:        make([]model.ControlEvent, 0, config.Events.BufferLimit),
		limit:         config.Events.BufferLimit,
		flushInterval: config.FlushEvery(),
		logger:        logger,
		repo:          repo,
		now:           time.Now,
	}
}

// Run flushes on every tick until ctx is cancelled, then flushes once more.
func (s *EventBuffer) Run(ctx context.Context) {
	ticker := time.NewTicker(s.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Flush()
			return
		case <-ticker.C:
			s.Flush()
		}
	}
}

// Record buffers an event. When the buffer is full the event is dropped.
func (s *EventBuffer) Record(kind model.EventKind, payload string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.limit {
		s.dropped++
		return
	}

	s.events = append(s.events, model.ControlEvent{
		Kind:      kind,
		Payload:   payload,
		CreatedAt: s.now(),
	})
}

// Pending returns how many events are waiting to be flushed.
func (s *EventBuffer) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

// Flush writes buffered events to the repository. On failure the events stay
// buffered for the next attempt.
func (s *EventBuffer) Flush() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dropped > 0 {
		s.logger.Warning("Event buffer full, dropped %d events", s.dropped)
		s.dropped = 0
	}

	if len(s.events) == 0 {
		return
	}

	if err := s.write(); err != nil {
		s.logger.Error("Error saving control events: %v", err)
		return
	}

	s.logger.Info("Flushed %d control events", len(s.events))
	s.events = s.events[:0]
}

// write stores a lone event with Insert and anything more in one transaction.
func (s *EventBuffer) write() error {
	if len(s.events) == 1 {
		_, err := s.repo.Insert(&s.events[0])
		return err
	}
	return s.repo.InsertBatch(s.events)
}

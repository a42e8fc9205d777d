package storage

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"beltsensor/internal/config"
	"beltsensor/internal/dto"
	"beltsensor/internal/logger"
	"beltsensor/internal/model"
	"beltsensor/internal/repository/sqlite"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l, err := logger.New(t.TempDir(), io.Discard)
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func newTestRepo(t *testing.T) *sqlite.ControlEventRepository {
	t.Helper()
	db, err := sqlite.New(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("Failed to create database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlite.NewControlEventRepository(db)
}

type failingRepo struct {
	*sqlite.ControlEventRepository
	fail bool
}

func (r *failingRepo) InsertBatch(events []model.ControlEvent) error {
	if r.fail {
		return errors.New("database is locked")
	}
	return r.ControlEventRepository.InsertBatch(events)
}

func (r *failingRepo) Insert(ev *model.ControlEvent) (int64, error) {
	if r.fail {
		return 0, errors.New("database is locked")
	}
	return r.ControlEventRepository.Insert(ev)
}

type countingRepo struct {
	*sqlite.ControlEventRepository
	inserts, batches int
}

func (r *countingRepo) Insert(ev *model.ControlEvent) (int64, error) {
	r.inserts++
	return r.ControlEventRepository.Insert(ev)
}

func (r *countingRepo) InsertBatch(events []model.ControlEvent) error {
	r.batches++
	return r.ControlEventRepository.InsertBatch(events)
}

func TestEventBuffer_SingleEventUsesInsert(t *testing.T) {
	repo := &countingRepo{ControlEventRepository: newTestRepo(t)}
	buf := NewEventBuffer(config.Default(), testLogger(t), repo)

	buf.Record(model.EventIPRequest, "")
	buf.Flush()

	if repo.inserts != 1 || repo.batches != 0 {
		t.Errorf("Expected 1 Insert and no batch, got %d inserts and %d batches", repo.inserts, repo.batches)
	}

	buf.Record(model.EventBeltOn, "1")
	buf.Record(model.EventBeltOff, "0")
	buf.Flush()

	if repo.inserts != 1 || repo.batches != 1 {
		t.Errorf("Expected one batch for two events, got %d inserts and %d batches", repo.inserts, repo.batches)
	}

	count, err := repo.GetTotalCount(&dto.EventFilters{})
	if err != nil {
		t.Fatalf("GetTotalCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("Expected 3 stored events, got %d", count)
	}
}

func TestEventBuffer_FlushWritesEvents(t *testing.T) {
	repo := newTestRepo(t)
	buf := NewEventBuffer(config.Default(), testLogger(t), repo)

	buf.Record(model.EventBeltOn, "1")
	buf.Record(model.EventIPRequest, "")

	if buf.Pending() != 2 {
		t.Errorf("Expected 2 pending events, got %d", buf.Pending())
	}

	buf.Flush()

	if buf.Pending() != 0 {
		t.Errorf("Expected empty buffer after flush, got %d", buf.Pending())
	}

	count, err := repo.GetTotalCount(&dto.EventFilters{})
	if err != nil {
		t.Fatalf("GetTotalCount failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Expected 2 stored events, got %d", count)
	}
}

func TestEventBuffer_LimitDropsExtra(t *testing.T) {
	cfg := config.Default()
	cfg.Events.BufferLimit = 3
	buf := NewEventBuffer(cfg, testLogger(t), newTestRepo(t))

	for i := 0; i < 5; i++ {
		buf.Record(model.EventBeltRejected, "x")
	}

	if buf.Pending() != 3 {
		t.Errorf("Expected 3 pending events, got %d", buf.Pending())
	}
}

func TestEventBuffer_FailedFlushKeepsEvents(t *testing.T) {
	repo := &failingRepo{ControlEventRepository: newTestRepo(t), fail: true}
	buf := NewEventBuffer(config.Default(), testLogger(t), repo)

	buf.Record(model.EventTransportDown, "EOF")
	buf.Flush()

	if buf.Pending() != 1 {
		t.Fatalf("Expected event kept after failed flush, got %d", buf.Pending())
	}

	repo.fail = false
	buf.Flush()
	if buf.Pending() != 0 {
		t.Errorf("Expected buffer drained, got %d", buf.Pending())
	}
}

func TestEventBuffer_RunFlushesOnCancel(t *testing.T) {
	repo := newTestRepo(t)
	cfg := config.Default()
	cfg.Events.FlushInterval = 3600
	buf := NewEventBuffer(cfg, testLogger(t), repo)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		buf.Run(ctx)
		close(done)
	}()

	buf.Record(model.EventBeltOff, "0")
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	count, _ := repo.GetTotalCount(nil)
	if count != 1 {
		t.Errorf("Expected 1 stored event, got %d", count)
	}
}

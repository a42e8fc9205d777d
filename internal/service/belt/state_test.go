package belt

import (
	"sync"
	"testing"
	"time"

	"beltsensor/internal/model"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewState_Defaults(t *testing.T) {
	s := NewState()
	snap := s.Snapshot()

	if snap.BeltEnabled {
		t.Error("Expected belt to start disabled")
	}
	if snap.Connected {
		t.Error("Expected transport to start disconnected")
	}
	if snap.LastColor != model.Unknown {
		t.Errorf("Expected last color Unknown, got %s", snap.LastColor)
	}
	if len(snap.DetectionHistory) != 0 {
		t.Errorf("Expected empty history, got %v", snap.DetectionHistory)
	}
}

func TestSetEnabled_ReportsChange(t *testing.T) {
	s := NewState()

	if !s.SetEnabled(true) {
		t.Error("First enable should report a change")
	}
	if s.SetEnabled(true) {
		t.Error("Second enable should not report a change")
	}
	if !s.Enabled() {
		t.Error("Expected belt enabled")
	}
	if !s.SetEnabled(false) {
		t.Error("Disable should report a change")
	}
}

func TestShouldPublish(t *testing.T) {
	interval := 500 * time.Millisecond
	red := []model.ColorLabel{model.Red}

	tests := []struct {
		name   string
		setup  func(s *State)
		labels []model.ColorLabel
		now    time.Time
		want   Decision
	}{
		{
			name:   "empty detections",
			setup:  func(s *State) { s.SetEnabled(true) },
			labels: nil,
			now:    t0,
			want:   SkipEmpty,
		},
		{
			name:   "belt disabled",
			setup:  func(s *State) {},
			labels: red,
			now:    t0,
			want:   SkipDisabled,
		},
		{
			name:   "first publish",
			setup:  func(s *State) { s.SetEnabled(true) },
			labels: red,
			now:    t0,
			want:   Publish,
		},
		{
			name: "inside throttle interval",
			setup: func(s *State) {
				s.SetEnabled(true)
				s.RecordPublish(red, t0)
			},
			labels: []model.ColorLabel{model.Blue},
			now:    t0.Add(100 * time.Millisecond),
			want:   SkipThrottled,
		},
		{
			name: "same set after interval",
			setup: func(s *State) {
				s.SetEnabled(true)
				s.RecordPublish([]model.ColorLabel{model.Red, model.Blue}, t0)
			},
			labels: []model.ColorLabel{model.Blue, model.Red},
			now:    t0.Add(time.Second),
			want:   SkipUnchanged,
		},
		{
			name: "changed set after interval",
			setup: func(s *State) {
				s.SetEnabled(true)
				s.RecordPublish(red, t0)
			},
			labels: []model.ColorLabel{model.Red, model.Green},
			now:    t0.Add(interval),
			want:   Publish,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewState()
			tt.setup(s)
			if got := s.ShouldPublish(tt.labels, tt.now, interval); got != tt.want {
				t.Errorf("Expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestRecordPublish_UpdatesHistoryAndCounts(t *testing.T) {
	s := NewState()

	s.RecordPublish([]model.ColorLabel{model.Red}, t0)
	s.RecordPublish([]model.ColorLabel{model.Blue, model.Red}, t0.Add(time.Second))
	s.RecordPublish([]model.ColorLabel{model.Red}, t0.Add(2*time.Second))

	snap := s.Snapshot()
	if len(snap.DetectionHistory) != 2 || snap.DetectionHistory[0] != model.Red || snap.DetectionHistory[1] != model.Blue {
		t.Errorf("Expected history [Red Blue], got %v", snap.DetectionHistory)
	}
	if snap.ColorCounts[model.Red] != 3 {
		t.Errorf("Expected Red count 3, got %d", snap.ColorCounts[model.Red])
	}
	if snap.ColorCounts[model.Blue] != 1 {
		t.Errorf("Expected Blue count 1, got %d", snap.ColorCounts[model.Blue])
	}
	if snap.LastColor != model.Red {
		t.Errorf("Expected last color Red, got %s", snap.LastColor)
	}
}

func TestRecordPublish_TimeIsMonotonic(t *testing.T) {
	s := NewState()

	s.RecordPublish([]model.ColorLabel{model.Red}, t0.Add(time.Second))
	s.RecordPublish([]model.ColorLabel{model.Blue}, t0)

	if got := s.Snapshot().LastPublishTime; !got.Equal(t0.Add(time.Second)) {
		t.Errorf("Expected publish time to stay at %v, got %v", t0.Add(time.Second), got)
	}
}

func TestSnapshot_IsACopy(t *testing.T) {
	s := NewState()
	s.RecordPublish([]model.ColorLabel{model.Red}, t0)

	snap := s.Snapshot()
	snap.DetectionHistory[0] = model.Purple
	snap.ColorCounts[model.Red] = 99

	again := s.Snapshot()
	if again.DetectionHistory[0] != model.Red {
		t.Error("Snapshot history aliases internal state")
	}
	if again.ColorCounts[model.Red] != 1 {
		t.Error("Snapshot counts alias internal state")
	}
}

func TestState_ConcurrentAccess(t *testing.T) {
	s := NewState()
	labels := [][]model.ColorLabel{
		{model.Red},
		{model.Blue, model.Green},
		{model.Orange},
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				s.SetEnabled(j%2 == 0)
				s.SetConnected(j%3 == 0)
			}
		}(i)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				now := t0.Add(time.Duration(i*200+j) * time.Millisecond)
				l := labels[j%len(labels)]
				if s.ShouldPublish(l, now, time.Millisecond) == Publish {
					s.RecordPublish(l, now)
				}
				_ = s.Snapshot()
			}
		}(i)
	}
	wg.Wait()

	snap := s.Snapshot()
	if len(snap.DetectionHistory) > len(model.Colors) {
		t.Errorf("History holds duplicates: %v", snap.DetectionHistory)
	}
}

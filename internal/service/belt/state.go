package belt

import (
	"sync"
	"time"

	"beltsensor/internal/model"
)

// Decision explains the outcome of a publish eligibility check.
type Decision int

const (
	Publish Decision = iota
	SkipEmpty
	SkipDisabled
	SkipThrottled
	SkipUnchanged
)

func (d Decision) String() string {
	switch d {
	case Publish:
		return "publish"
	case SkipEmpty:
		return "empty"
	case SkipDisabled:
		return "belt disabled"
	case SkipThrottled:
		return "throttled"
	case SkipUnchanged:
		return "unchanged"
	default:
		return "unknown"
	}
}

// Snapshot is a consistent copy of the state at one instant.
type Snapshot struct {
	BeltEnabled      bool                     `json:"beltEnabled"`
	LastColor        model.ColorLabel         `json:"lastColor"`
	DetectionHistory []model.ColorLabel       `json:"detectionHistory"`
	Connected        bool                     `json:"connected"`
	ColorCounts      map[model.ColorLabel]int `json:"colorCounts"`
	Endpoint         string                   `json:"endpoint"`
	LastPublishTime  time.Time                `json:"lastPublishTime"`
}

// State is the belt/telemetry record shared by the pipeline and the command
// listener. All access goes through mu.
type State struct {
	mu              sync.Mutex
	enabled         bool
	connected       bool
	lastPublished   map[model.ColorLabel]struct{}
	lastColor       model.ColorLabel
	lastPublishTime time.Time
	history         []model.ColorLabel
	counts          map[model.ColorLabel]int
	endpoint        string
}

// NewState creates a State with the belt off and nothing published.
func NewState() *State {
	return &State{
		lastPublished: make(map[model.ColorLabel]struct{}),
		lastColor:     model.Unknown,
		counts:        make(map[model.ColorLabel]int),
	}
}

// SetEnabled sets the belt flag and reports whether it changed.
func (s *State) SetEnabled(on bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.enabled != on
	s.enabled = on
	return changed
}

func (s *State) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetConnected records transport connectivity and reports whether it changed.
func (s *State) SetConnected(up bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := s.connected != up
	s.connected = up
	return changed
}

func (s *State) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *State) SetEndpoint(endpoint string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.endpoint = endpoint
}

func (s *State) Endpoint() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// ShouldPublish applies the gating, throttle and dedup rules without
// mutating anything.
func (s *State) ShouldPublish(labels []model.ColorLabel, now time.Time, interval time.Duration) Decision {
	if len(labels) == 0 {
		return SkipEmpty
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.enabled {
		return SkipDisabled
	}
	if !s.lastPublishTime.IsZero() && now.Sub(s.lastPublishTime) < interval {
		return SkipThrottled
	}
	if s.sameAsLast(labels) {
		return SkipUnchanged
	}
	return Publish
}

func (s *State) sameAsLast(labels []model.ColorLabel) bool {
	set := make(map[model.ColorLabel]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	if len(set) != len(s.lastPublished) {
		return false
	}
	for l := range set {
		if _, ok := s.lastPublished[l]; !ok {
			return false
		}
	}
	return true
}

// RecordPublish stores a confirmed publish of labels at now.
func (s *State) RecordPublish(labels []model.ColorLabel, now time.Time) {
	if len(labels) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	published := make(map[model.ColorLabel]struct{}, len(labels))
	for _, l := range labels {
		published[l] = struct{}{}
	}
	s.lastPublished = published
	s.lastColor = labels[0]

	// lastPublishTime never moves backwards
	if now.After(s.lastPublishTime) {
		s.lastPublishTime = now
	}

	for l := range published {
		s.counts[l]++
	}
	for _, l := range labels {
		if !s.inHistory(l) {
			s.history = append(s.history, l)
		}
	}
}

func (s *State) inHistory(l model.ColorLabel) bool {
	for _, h := range s.history {
		if h == l {
			return true
		}
	}
	return false
}

// Snapshot returns a copy safe to use after the lock is released.
func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]model.ColorLabel, len(s.history))
	copy(history, s.history)

	counts := make(map[model.ColorLabel]int, len(s.counts))
	for k, v := range s.counts {
		counts[k] = v
	}

	return Snapshot{
		BeltEnabled:      s.enabled,
		LastColor:        s.lastColor,
		DetectionHistory: history,
		Connected:        s.connected,
		ColorCounts:      counts,
		Endpoint:         s.endpoint,
		LastPublishTime:  s.lastPublishTime,
	}
}

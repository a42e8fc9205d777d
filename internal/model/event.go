package model

import "time"

// EventKind identifies what happened on the control channel.
type EventKind string

const (
	EventBeltOn        EventKind = "belt_on"
	EventBeltOff       EventKind = "belt_off"
	EventBeltRejected  EventKind = "belt_rejected"
	EventIPRequest     EventKind = "ip_request"
	EventTransportUp   EventKind = "transport_up"
	EventTransportDown EventKind = "transport_down"
)

// ControlEvent represents a remote command or transport transition.
type ControlEvent struct {
	ID        int64     `json:"id"`
	Kind      EventKind `json:"kind"`
	Payload   string    `json:"payload"`
	CreatedAt time.Time `json:"created_at"`
}

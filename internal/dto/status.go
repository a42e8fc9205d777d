package dto

import "beltsensor/internal/model"

// Status is the body of GET /status.
type Status struct {
	BeltEnabled      bool                     `json:"beltEnabled"`
	LastColor        model.ColorLabel         `json:"lastColor"`
	DetectionHistory []model.ColorLabel       `json:"detectionHistory"`
	Connected        bool                     `json:"connected"`
	ColorCounts      map[model.ColorLabel]int `json:"colorCounts"`
	CameraRunning    bool                     `json:"cameraRunning"`
	PipelineState    string                   `json:"pipelineState"`
	Endpoint         string                   `json:"endpoint"`
}

// EventList is the body of GET /api/events.
type EventList struct {
	Events []model.ControlEvent `json:"events"`
	Total  int                  `json:"total"`
}

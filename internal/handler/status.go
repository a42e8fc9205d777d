package handler

import (
	"encoding/json"
	"net/http"

	"beltsensor/internal/dto"
	"beltsensor/internal/logger"
	"beltsensor/internal/service/belt"
	"beltsensor/internal/service/pipeline"
)

// PipelineStatus reports the acquisition loop's lifecycle stage.
type PipelineStatus interface {
	State() pipeline.State
}

// StatusHandler handles GET /status with a read-only snapshot of the sensor.
func StatusHandler(state *belt.State, p PipelineStatus, endpointURL func() string, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snap := state.Snapshot()
		current := p.State()

		writeJSON(w, http.StatusOK, dto.Status{
			BeltEnabled:      snap.BeltEnabled,
			LastColor:        snap.LastColor,
			DetectionHistory: snap.DetectionHistory,
			Connected:        snap.Connected,
			ColorCounts:      snap.ColorCounts,
			CameraRunning:    current == pipeline.Running,
			PipelineState:    current.String(),
			Endpoint:         endpointURL(),
		}, logger)
	}
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func writeJSON(w http.ResponseWriter, status int, v interface{}, logger *logger.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response: %v", err)
	}
}

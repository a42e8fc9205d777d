package stream

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"

	"beltsensor/internal/logger"

	"github.com/hybridgroup/mjpeg"
	"gocv.io/x/gocv"
)

// ViewerFrame is the websocket message sent for every frame.
type ViewerFrame struct {
	Frame uint64 `json:"frame"`
	Image string `json:"image"`
}

// LiveView publishes annotated frames to the MJPEG endpoint and to websocket
// viewers.
type LiveView struct {
	mjpeg   *mjpeg.Stream
	hub     *Hub
	quality int
	logger  *logger.Logger

	frames atomic.Uint64
	mu     sync.RWMutex
	latest []byte
}

// NewLiveView creates a LiveView encoding at the given JPEG quality.
func NewLiveView(hub *Hub, quality int, logger *logger.Logger) *LiveView {
	return &LiveView{
		mjpeg:   mjpeg.NewStream(),
		hub:     hub,
		quality: quality,
		logger:  logger,
	}
}

// Show encodes frame and pushes it to all viewers.
func (v *LiveView) Show(frame gocv.Mat) error {
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, v.quality})
	if err != nil {
		return fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, len(buf.GetBytes()))
	copy(jpeg, buf.GetBytes())

	v.Push(jpeg)
	return nil
}

// Push publishes an already encoded JPEG.
func (v *LiveView) Push(jpeg []byte) {
	n := v.frames.Add(1)

	v.mu.Lock()
	v.latest = jpeg
	v.mu.Unlock()

	v.mjpeg.UpdateJPEG(jpeg)

	if v.hub == nil || v.hub.GetClientCount() == 0 {
		return
	}

	msg, err := json.Marshal(ViewerFrame{
		Frame: n,
		Image: base64.StdEncoding.EncodeToString(jpeg),
	})
	if err != nil {
		v.logger.Error("Failed to marshal viewer frame: %v", err)
		return
	}
	v.hub.Broadcast(msg)
}

// Latest returns the most recent JPEG, or nil before the first frame.
func (v *LiveView) Latest() []byte {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.latest
}

// Frames returns how many frames were pushed.
func (v *LiveView) Frames() uint64 {
	return v.frames.Load()
}

// MJPEG returns the multipart stream handler.
func (v *LiveView) MJPEG() http.Handler {
	return v.mjpeg
}

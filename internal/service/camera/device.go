package camera

import (
	"fmt"

	"beltsensor/internal/config"

	"gocv.io/x/gocv"
)

// OpenVideoDevice returns an Opener backed by local capture devices. Resolution
// and frame rate are requests; drivers may ignore them.
func OpenVideoDevice(cfg config.CameraConfig) Opener {
	return func(index int) (Device, error) {
		capture, err := gocv.VideoCaptureDevice(index)
		if err != nil {
			return nil, fmt.Errorf("failed to open camera %d: %w", index, err)
		}
		if !capture.IsOpened() {
			capture.Close()
			return nil, fmt.Errorf("camera %d did not open", index)
		}

		capture.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
		capture.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))
		// one buffered frame keeps reads current
		capture.Set(gocv.VideoCaptureBufferSize, 1)

		return capture, nil
	}
}

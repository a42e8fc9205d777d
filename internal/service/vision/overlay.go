package vision

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// DrawStatus writes the belt state and frame counter in the top-left corner.
func DrawStatus(img *gocv.Mat, beltEnabled bool, frame uint64) error {
	text, c := "Belt: OFF", beltOffColor
	if beltEnabled {
		text, c = "Belt: ON", beltOnColor
	}

	if err := gocv.PutText(img, text, image.Pt(10, 30), gocv.FontHersheySimplex, 0.7, c, 2); err != nil {
		return fmt.Errorf("failed to draw belt status: %w", err)
	}

	counter := fmt.Sprintf("Frame: %d", frame)
	if err := gocv.PutText(img, counter, image.Pt(10, 60), gocv.FontHersheySimplex, 0.6, frameTextColor, 1); err != nil {
		return fmt.Errorf("failed to draw frame counter: %w", err)
	}
	return nil
}

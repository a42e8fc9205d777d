package vision

import (
	"errors"
	"fmt"
	"image"
	"sort"

	"beltsensor/internal/config"
	"beltsensor/internal/model"

	"gocv.io/x/gocv"
)

// ErrEmptyFrame is returned for frames without pixels.
var ErrEmptyFrame = errors.New("empty frame")

// Classifier finds colored objects in BGR frames.
type Classifier struct {
	colors      []ColorDefinition
	maxWidth    int
	minArea     float64
	blurSize    int
	predominant bool
	kernel      gocv.Mat
}

// NewClassifier creates a classifier from the vision configuration.
// Close releases the morphology kernel.
func NewClassifier(cfg config.VisionConfig) *Classifier {
	return &Classifier{
		colors:      enabledDefinitions(cfg.EnabledColors()),
		maxWidth:    cfg.MaxWidth,
		minArea:     cfg.MinArea,
		blurSize:    odd(cfg.BlurSize),
		predominant: cfg.Mode == config.ModePredominant,
		kernel:      gocv.GetStructuringElement(gocv.MorphRect, image.Pt(cfg.KernelSize, cfg.KernelSize)),
	}
}

func (c *Classifier) Close() error {
	return c.kernel.Close()
}

// Classify returns an annotated copy of frame and the detections ranked by
// descending area. The caller owns the returned Mat.
func (c *Classifier) Classify(frame gocv.Mat) (gocv.Mat, []model.Detection, error) {
	if frame.Empty() || frame.Cols() == 0 || frame.Rows() == 0 {
		return gocv.NewMat(), nil, ErrEmptyFrame
	}

	annotated, err := c.scaled(frame)
	if err != nil {
		return gocv.NewMat(), nil, err
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	if err := gocv.GaussianBlur(annotated, &blurred, image.Pt(c.blurSize, c.blurSize), 0, 0, gocv.BorderDefault); err != nil {
		annotated.Close()
		return gocv.NewMat(), nil, fmt.Errorf("failed to blur frame: %w", err)
	}

	hsv := gocv.NewMat()
	defer hsv.Close()
	if err := gocv.CvtColor(blurred, &hsv, gocv.ColorBGRToHSV); err != nil {
		annotated.Close()
		return gocv.NewMat(), nil, fmt.Errorf("failed to convert frame to HSV: %w", err)
	}

	var detections []model.Detection
	for _, def := range c.colors {
		found, err := c.detect(hsv, def)
		if err != nil {
			annotated.Close()
			return gocv.NewMat(), nil, fmt.Errorf("failed to mask %s: %w", def.Label, err)
		}
		detections = append(detections, found...)
	}

	for _, d := range detections {
		if err := annotate(&annotated, d); err != nil {
			annotated.Close()
			return gocv.NewMat(), nil, err
		}
	}

	return annotated, Rank(detections, c.predominant), nil
}

// scaled returns a copy of frame no wider than maxWidth.
func (c *Classifier) scaled(frame gocv.Mat) (gocv.Mat, error) {
	if c.maxWidth <= 0 || frame.Cols() <= c.maxWidth {
		return frame.Clone(), nil
	}

	height := frame.Rows() * c.maxWidth / frame.Cols()
	if height < 1 {
		height = 1
	}

	resized := gocv.NewMat()
	if err := gocv.Resize(frame, &resized, image.Pt(c.maxWidth, height), 0, 0, gocv.InterpolationArea); err != nil {
		resized.Close()
		return gocv.NewMat(), fmt.Errorf("failed to resize frame: %w", err)
	}
	return resized, nil
}

// detect masks hsv with every range of def and returns one detection per
// qualifying external contour.
func (c *Classifier) detect(hsv gocv.Mat, def ColorDefinition) ([]model.Detection, error) {
	mask := gocv.NewMat()
	defer mask.Close()

	for i, r := range def.Ranges {
		lower := gocv.NewScalar(r.Lower[0], r.Lower[1], r.Lower[2], 0)
		upper := gocv.NewScalar(r.Upper[0], r.Upper[1], r.Upper[2], 0)

		if i == 0 {
			if err := gocv.InRangeWithScalar(hsv, lower, upper, &mask); err != nil {
				return nil, err
			}
			continue
		}

		if err := orRange(hsv, lower, upper, &mask); err != nil {
			return nil, err
		}
	}

	opened := gocv.NewMat()
	defer opened.Close()
	if err := gocv.MorphologyEx(mask, &opened, gocv.MorphOpen, c.kernel); err != nil {
		return nil, err
	}

	closed := gocv.NewMat()
	defer closed.Close()
	if err := gocv.MorphologyEx(opened, &closed, gocv.MorphClose, c.kernel); err != nil {
		return nil, err
	}

	contours := gocv.FindContours(closed, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	var found []model.Detection
	for i := 0; i < contours.Size(); i++ {
		contour := contours.At(i)
		area := gocv.ContourArea(contour)
		if area <= c.minArea {
			continue
		}

		x, y, radius := gocv.MinEnclosingCircle(contour)
		found = append(found, model.Detection{
			Label:  def.Label,
			Area:   area,
			Center: image.Pt(int(x), int(y)),
			Radius: int(radius),
		})
	}
	return found, nil
}

// orRange adds the pixels of hsv inside [lower, upper] to mask.
func orRange(hsv gocv.Mat, lower, upper gocv.Scalar, mask *gocv.Mat) error {
	part := gocv.NewMat()
	defer part.Close()

	if err := gocv.InRangeWithScalar(hsv, lower, upper, &part); err != nil {
		return err
	}
	return gocv.BitwiseOr(*mask, part, mask)
}

func annotate(img *gocv.Mat, d model.Detection) error {
	if err := gocv.Circle(img, d.Center, d.Radius, annotationColor, 2); err != nil {
		return fmt.Errorf("failed to draw circle: %w", err)
	}

	pt := image.Pt(d.Center.X-30, d.Center.Y-d.Radius-10)
	if err := gocv.PutText(img, d.Label.String(), pt, gocv.FontHersheySimplex, 0.6, annotationColor, 2); err != nil {
		return fmt.Errorf("failed to draw label: %w", err)
	}
	return nil
}

// Rank orders detections by descending area. Equal areas keep their input
// order, which is definition order. With predominant set only the largest
// detection is kept.
func Rank(detections []model.Detection, predominant bool) []model.Detection {
	ranked := make([]model.Detection, len(detections))
	copy(ranked, detections)

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Area > ranked[j].Area
	})

	if predominant && len(ranked) > 1 {
		ranked = ranked[:1]
	}
	return ranked
}

func odd(n int) int {
	if n < 1 {
		return 1
	}
	if n%2 == 0 {
		return n + 1
	}
	return n
}

package vision

import (
	"image/color"
	"slices"

	"beltsensor/internal/model"
)

// HSVRange is an inclusive range in OpenCV HSV space (H 0-180, S and V 0-255).
type HSVRange struct {
	Lower [3]float64
	Upper [3]float64
}

// ColorDefinition maps a label to one or more HSV ranges.
type ColorDefinition struct {
	Label  model.ColorLabel
	Ranges []HSVRange
}

// DefaultColors returns the built-in definitions in ranking tie-break order.
// Red needs two ranges because hue wraps around 0.
func DefaultColors() []ColorDefinition {
	return []ColorDefinition{
		{Label: model.Red, Ranges: []HSVRange{
			{Lower: [3]float64{0, 120, 70}, Upper: [3]float64{10, 255, 255}},
			{Lower: [3]float64{170, 120, 70}, Upper: [3]float64{180, 255, 255}},
		}},
		{Label: model.Blue, Ranges: []HSVRange{
			{Lower: [3]float64{100, 150, 50}, Upper: [3]float64{130, 255, 255}},
		}},
		{Label: model.Yellow, Ranges: []HSVRange{
			{Lower: [3]float64{20, 100, 100}, Upper: [3]float64{35, 255, 255}},
		}},
		{Label: model.Green, Ranges: []HSVRange{
			{Lower: [3]float64{35, 50, 50}, Upper: [3]float64{85, 255, 255}},
		}},
		{Label: model.Orange, Ranges: []HSVRange{
			{Lower: [3]float64{10, 100, 100}, Upper: [3]float64{20, 255, 255}},
		}},
		{Label: model.Purple, Ranges: []HSVRange{
			{Lower: [3]float64{130, 50, 50}, Upper: [3]float64{160, 255, 255}},
		}},
	}
}

// enabledDefinitions keeps the default definitions whose label is enabled, in
// definition order.
func enabledDefinitions(enabled []model.ColorLabel) []ColorDefinition {
	var defs []ColorDefinition
	for _, def := range DefaultColors() {
		if slices.Contains(enabled, def.Label) {
			defs = append(defs, def)
		}
	}
	return defs
}

var (
	annotationColor = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	beltOnColor     = color.RGBA{R: 0, G: 255, B: 0, A: 0}
	beltOffColor    = color.RGBA{R: 255, G: 0, B: 0, A: 0}
	frameTextColor  = color.RGBA{R: 255, G: 255, B: 255, A: 0}
)

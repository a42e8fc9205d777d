package model

import "image"

// Detection is a single colored region found in a frame.
type Detection struct {
	Label  ColorLabel  `json:"label"`
	Area   float64     `json:"area"`
	Center image.Point `json:"center"`
	Radius int         `json:"radius"`
}

// Labels returns the unique labels of ds, keeping first-seen order.
func Labels(ds []Detection) []ColorLabel {
	labels := make([]ColorLabel, 0, len(ds))
	seen := make(map[ColorLabel]bool, len(ds))
	for _, d := range ds {
		if seen[d.Label] {
			continue
		}
		seen[d.Label] = true
		labels = append(labels, d.Label)
	}
	return labels
}

package model

import "strings"

// ColorLabel names one of the colors the classifier can recognize.
type ColorLabel string

const (
	Red     ColorLabel = "Red"
	Blue    ColorLabel = "Blue"
	Yellow  ColorLabel = "Yellow"
	Green   ColorLabel = "Green"
	Orange  ColorLabel = "Orange"
	Purple  ColorLabel = "Purple"
	Unknown ColorLabel = "Unknown"
)

// Colors lists the recognizable labels in definition order.
var Colors = []ColorLabel{Red, Blue, Yellow, Green, Orange, Purple}

func (c ColorLabel) String() string {
	return string(c)
}

// ParseColor maps a case-insensitive name to its label, or Unknown.
func ParseColor(name string) ColorLabel {
	name = strings.TrimSpace(name)
	for _, c := range Colors {
		if strings.EqualFold(name, string(c)) {
			return c
		}
	}
	return Unknown
}

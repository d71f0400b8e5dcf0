// Package theme defines the colours used by the Pixie canvas window.
package theme

import (
	"image/color"
)

// Theme defines the color palette for the application UI. Alpha is
// straight, not premultiplied, matching the #RRGGBBAA notation.
type Theme struct {
	Name string

	// Window chrome
	Background       color.RGBA
	Foreground       color.RGBA
	HeaderBackground color.RGBA
	PanelBackground  color.RGBA
	MutedText        color.RGBA

	// Buttons
	ButtonBackground       color.RGBA
	ButtonBackgroundHover  color.RGBA
	ButtonBackgroundActive color.RGBA
	ButtonText             color.RGBA
	ButtonTextActive       color.RGBA
	ButtonBorder           color.RGBA

	// Canvas
	CanvasBackground color.RGBA
	CheckerLight     color.RGBA
	CheckerDark      color.RGBA

	// Selection overlay
	SelectionBorder color.RGBA
	SelectionFill   color.RGBA
	HandleFill      color.RGBA
	HandleBorder    color.RGBA

	// Status messages
	ErrorBackground   color.RGBA
	ErrorText         color.RGBA
	SuccessBackground color.RGBA
	SuccessText       color.RGBA
	VoiceActive       color.RGBA
}

// Default returns the built-in light theme.
func Default() *Theme {
	return &Theme{
		Name:                   "Default",
		Background:             color.RGBA{248, 249, 250, 255},
		Foreground:             color.RGBA{17, 24, 39, 255},
		HeaderBackground:       color.RGBA{255, 255, 255, 255},
		PanelBackground:        color.RGBA{255, 255, 255, 255},
		MutedText:              color.RGBA{107, 114, 128, 255},
		ButtonBackground:       color.RGBA{243, 244, 246, 255},
		ButtonBackgroundHover:  color.RGBA{229, 231, 235, 255},
		ButtonBackgroundActive: color.RGBA{59, 130, 246, 255},
		ButtonText:             color.RGBA{17, 24, 39, 255},
		ButtonTextActive:       color.RGBA{255, 255, 255, 255},
		ButtonBorder:           color.RGBA{209, 213, 219, 255},
		CanvasBackground:       color.RGBA{248, 249, 250, 255},
		CheckerLight:           color.RGBA{240, 240, 240, 255},
		CheckerDark:            color.RGBA{224, 224, 224, 255},
		SelectionBorder:        color.RGBA{59, 130, 246, 255},
		SelectionFill:          color.RGBA{59, 130, 246, 40},
		HandleFill:             color.RGBA{255, 255, 255, 255},
		HandleBorder:           color.RGBA{59, 130, 246, 255},
		ErrorBackground:        color.RGBA{254, 226, 226, 255},
		ErrorText:              color.RGBA{185, 28, 28, 255},
		SuccessBackground:      color.RGBA{220, 252, 231, 255},
		SuccessText:            color.RGBA{21, 128, 61, 255},
		VoiceActive:            color.RGBA{239, 68, 68, 255},
	}
}

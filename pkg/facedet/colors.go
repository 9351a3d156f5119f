package facedet

import "image/color"

// Emotions is the classifier's label vocabulary.
var Emotions = []string{"happy", "sad", "angry", "surprise", "fear", "disgust", "neutral"}

// EmotionColors maps every known emotion label to its overlay color.
// The table is exhaustive over Emotions; anything else gets DefaultEmotionColor.
var EmotionColors = map[string]color.RGBA{
	"happy":    {G: 255, A: 255},                 // green
	"sad":      {B: 255, A: 255},                 // blue
	"angry":    {R: 255, A: 255},                 // red
	"surprise": {G: 255, B: 255, A: 255},         // cyan
	"fear":     {R: 128, B: 128, A: 255},         // purple
	"disgust":  {R: 255, G: 255, A: 255},         // yellow
	"neutral":  {R: 200, G: 200, B: 200, A: 255}, // grey
}

// DefaultEmotionColor is the fallback for labels outside the vocabulary.
var DefaultEmotionColor = color.RGBA{R: 255, G: 255, B: 255, A: 255} // white

// ColorFor returns the overlay color for an emotion label.
func ColorFor(emotion string) color.RGBA {
	if c, ok := EmotionColors[emotion]; ok {
		return c
	}
	return DefaultEmotionColor
}

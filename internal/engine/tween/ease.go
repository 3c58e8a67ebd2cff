// Package tween drives time-sliced property animations from the frame loop.
package tween

import "github.com/chewxy/math32"

// Ease maps linear progress in [0,1] to eased progress.
type Ease func(t float32) float32

// Linear is the identity ease.
func Linear(t float32) float32 { return t }

// Power2InOut accelerates quadratically, then decelerates.
func Power2InOut(t float32) float32 {
	if t < 0.5 {
		return 2 * t * t
	}
	u := -2*t + 2
	return 1 - u*u/2
}

// SineInOut follows half a cosine wave.
func SineInOut(t float32) float32 {
	return -(math32.Cos(math32.Pi*t) - 1) / 2
}

package tween

// Forever repeats a tween until it is killed.
const Forever = -1

// Tween animates one value over Duration seconds.
type Tween struct {
	Duration float32
	Ease     Ease
	// Apply receives eased progress; 0 at the start, 1 at the end of a cycle.
	Apply func(p float32)
	// Repeat is the number of extra cycles, or Forever.
	Repeat int
	// Yoyo reverses direction on every repeat.
	Yoyo       bool
	OnComplete func()

	elapsed float32
	cycle   int
	done    bool
}

// step advances the tween by dt and reports whether it has finished.
func (tw *Tween) step(dt float32) bool {
	if tw.done {
		return true
	}
	tw.elapsed += dt

	for {
		if tw.Duration <= 0 || tw.elapsed >= tw.Duration {
			if tw.Repeat == Forever || tw.cycle < tw.Repeat {
				if tw.Duration <= 0 {
					tw.apply(1)
					return false
				}
				tw.elapsed -= tw.Duration
				tw.cycle++
				continue
			}
			tw.apply(1)
			tw.done = true
			return true
		}
		tw.apply(tw.elapsed / tw.Duration)
		return false
	}
}

func (tw *Tween) apply(t float32) {
	if tw.Yoyo && tw.cycle%2 == 1 {
		t = 1 - t
	}
	ease := tw.Ease
	if ease == nil {
		ease = Linear
	}
	if tw.Apply != nil {
		tw.Apply(ease(t))
	}
}

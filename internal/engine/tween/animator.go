package tween

import "sort"

// Animator owns the running tweens of one scene instance, keyed by the
// animated property (e.g. a node ID). A key has at most one live tween.
type Animator struct {
	tweens map[string]*Tween
}

// NewAnimator creates an empty animator.
func NewAnimator() *Animator {
	return &Animator{tweens: make(map[string]*Tween)}
}

// Start kills any tween already running under key, then starts tw.
func (a *Animator) Start(key string, tw *Tween) {
	a.Kill(key)
	a.tweens[key] = tw
}

// Kill stops the tween under key without completing it.
func (a *Animator) Kill(key string) bool {
	if _, ok := a.tweens[key]; !ok {
		return false
	}
	delete(a.tweens, key)
	return true
}

// KillAll stops every tween.
func (a *Animator) KillAll() {
	clear(a.tweens)
}

// Active reports whether a tween is running under key.
func (a *Animator) Active(key string) bool {
	_, ok := a.tweens[key]
	return ok
}

// Len returns the number of running tweens.
func (a *Animator) Len() int {
	return len(a.tweens)
}

// Update advances every tween by dt seconds. Finished tweens are removed
// before their OnComplete runs, so OnComplete may start a new tween under
// the same key.
func (a *Animator) Update(dt float32) {
	keys := make([]string, 0, len(a.tweens))
	for k := range a.tweens {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		tw, ok := a.tweens[k]
		if !ok {
			continue // killed by an earlier callback
		}
		if !tw.step(dt) {
			continue
		}
		if a.tweens[k] == tw {
			delete(a.tweens, k)
		}
		if tw.OnComplete != nil {
			tw.OnComplete()
		}
	}
}

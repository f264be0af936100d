package statechart

// Animation takes over a property assignment instead of writing it at once.
// Start receives the end value and must call done exactly once when the
// animation completes, from any goroutine. Stop cancels a running animation;
// done may still be called afterwards and is then ignored.
type Animation interface {
	Target() (target any, property string)
	Start(to any, done func())
	Stop()
}

type runningAnimation struct {
	anim       Animation
	state      StateID
	assignment PropertyAssignment
	stopped    bool
}

// animationTracker holds the animations started for each active state
type animationTracker struct {
	byState map[StateID][]*runningAnimation
}

func newAnimationTracker() *animationTracker {
	return &animationTracker{byState: make(map[StateID][]*runningAnimation)}
}

func (t *animationTracker) add(ra *runningAnimation) {
	t.byState[ra.state] = append(t.byState[ra.state], ra)
}

func (t *animationTracker) pending(state StateID) int {
	return len(t.byState[state])
}

// finish forgets a completed animation. It reports false when the animation
// was stopped in the meantime.
func (t *animationTracker) finish(ra *runningAnimation) bool {
	if ra.stopped {
		return false
	}
	list := t.byState[ra.state]
	for i, r := range list {
		if r == ra {
			list = append(list[:i:i], list[i+1:]...)
			if len(list) == 0 {
				delete(t.byState, ra.state)
			} else {
				t.byState[ra.state] = list
			}
			return true
		}
	}
	return false
}

// release stops and forgets the animations of a state
func (t *animationTracker) release(state StateID) []*runningAnimation {
	list := t.byState[state]
	delete(t.byState, state)
	for _, ra := range list {
		ra.stopped = true
		ra.anim.Stop()
	}
	return list
}

// detach forgets a running animation wherever it was started, so it can be
// started again for another state
func (t *animationTracker) detach(anim Animation) {
	for state, list := range t.byState {
		for i, ra := range list {
			if ra.anim != anim {
				continue
			}
			ra.stopped = true
			anim.Stop()
			list = append(list[:i:i], list[i+1:]...)
			if len(list) == 0 {
				delete(t.byState, state)
			} else {
				t.byState[state] = list
			}
			return
		}
	}
}

func (t *animationTracker) releaseAll() {
	for state := range t.byState {
		t.release(state)
	}
}

// claimAnimation picks the first unclaimed candidate animating the property
// of an assignment
func claimAnimation(candidates []Animation, a PropertyAssignment, claimed map[Animation]bool) Animation {
	for _, anim := range candidates {
		if claimed[anim] {
			continue
		}
		target, property := anim.Target()
		if target == a.Target && property == a.Property {
			claimed[anim] = true
			return anim
		}
	}
	return nil
}

package interaction

import (
	"sync"
	"time"
)

// Gesture is a resolved pointer gesture.
type Gesture int

// Gestures
const (
	GestureTap Gesture = iota + 1
	GestureDoubleTap
	GestureHold
)

func (g Gesture) String() string {
	switch g {
	case GestureTap:
		return "tap"
	case GestureDoubleTap:
		return "double_tap"
	case GestureHold:
		return "hold"
	default:
		return "unknown"
	}
}

// State is the state of a Recognizer.
type State int

// Recognizer states
const (
	// StateIdle waits for a press.
	StateIdle State = iota

	// StatePressed is a press waiting for release or the hold timeout.
	StatePressed

	// StateHeld is a press that resolved to hold. The release is swallowed.
	StateHeld

	// StateTapPending is a released tap waiting for a second tap or the grace timeout.
	StateTapPending

	// StatePressedAfterTap is a second press while a tap is pending.
	StatePressedAfterTap
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePressed:
		return "pressed"
	case StateHeld:
		return "held"
	case StateTapPending:
		return "tap_pending"
	case StatePressedAfterTap:
		return "pressed_after_tap"
	default:
		return "unknown"
	}
}

// Timings are the thresholds of gesture recognition.
type Timings struct {
	// Hold is how long a press lasts before it becomes a hold.
	Hold time.Duration

	// DoubleTap is the longest gap between two taps that still counts as a double tap.
	DoubleTap time.Duration

	// Grace is how long a tap waits for a second tap before it resolves as a single tap.
	Grace time.Duration
}

// DefaultTimings are the standard gesture thresholds.
var DefaultTimings = Timings{
	Hold:      500 * time.Millisecond,
	DoubleTap: 250 * time.Millisecond,
	Grace:     260 * time.Millisecond,
}

// LeftButton is the only pointer button recognized.
const LeftButton = 0

// Recognizer turns pointer input of one element into tap, double tap and hold gestures.
//
// Transitions:
//
//	idle              --down-->  pressed            (hold timer started)
//	pressed           --up---->  tap_pending        (grace timer started)
//	pressed           --hold-->  held               dispatch hold
//	held              --up---->  idle
//	tap_pending       --down-->  pressed_after_tap  (hold timer started)
//	tap_pending       --grace->  idle               dispatch tap
//	pressed_after_tap --up---->  idle               dispatch double tap, if within the double tap gap
//	pressed_after_tap --up---->  tap_pending        dispatch tap for the first press, otherwise
//	pressed_after_tap --grace->  pressed            dispatch tap for the first press
//	pressed_after_tap --hold-->  held               dispatch tap for the first press, then hold
//	any press         --cancel-> idle, or tap_pending when a tap was pending
//
// Dispatch runs outside the internal lock, so the callback may call back into the Recognizer.
type Recognizer struct {
	clock    Clock
	timings  Timings
	dispatch func(Gesture)

	mu         sync.Mutex
	state      State
	lastTap    time.Time
	holdTimer  Timer
	graceTimer Timer

	// holdGen and graceGen invalidate timer callbacks that were already running when stopped.
	holdGen  uint64
	graceGen uint64
	stopped  bool
}

// NewRecognizer creates a Recognizer that reports gestures to dispatch.
func NewRecognizer(clock Clock, timings Timings, dispatch func(Gesture)) *Recognizer {
	if clock == nil {
		clock = RealClock()
	}
	return &Recognizer{
		clock:    clock,
		timings:  timings,
		dispatch: dispatch,
	}
}

// State returns the current state.
func (r *Recognizer) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Down handles a pointer press. Buttons other than the left one are ignored.
func (r *Recognizer) Down(button int) {
	if button != LeftButton {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.stopped {
		return
	}

	switch r.state {
	case StateIdle:
		r.state = StatePressed
		r.startHold()
	case StateTapPending:
		r.state = StatePressedAfterTap
		r.startHold()
	}
}

// Up handles a pointer release. Buttons other than the left one are ignored.
func (r *Recognizer) Up(button int) {
	if button != LeftButton {
		return
	}

	var fire []Gesture

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}

	switch r.state {
	case StatePressed:
		r.stopHold()
		r.state = StateTapPending
		r.lastTap = r.clock.Now()
		r.startGrace()
	case StateHeld:
		r.state = StateIdle
	case StatePressedAfterTap:
		r.stopHold()
		r.stopGrace()
		now := r.clock.Now()
		if now.Sub(r.lastTap) < r.timings.DoubleTap {
			r.state = StateIdle
			r.lastTap = time.Time{}
			fire = append(fire, GestureDoubleTap)
		} else {
			fire = append(fire, GestureTap)
			r.state = StateTapPending
			r.lastTap = now
			r.startGrace()
		}
	}
	r.mu.Unlock()

	r.fire(fire...)
}

// Cancel aborts the current press.
func (r *Recognizer) Cancel() {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case StatePressed, StateHeld:
		r.stopHold()
		r.state = StateIdle
	case StatePressedAfterTap:
		r.stopHold()
		r.state = StateTapPending
	}
}

// Key handles a key press. Enter and space activate the element like a tap, without waiting for
// a second tap.
func (r *Recognizer) Key(key string) bool {
	if key != "Enter" && key != " " {
		return false
	}

	r.mu.Lock()
	stopped := r.stopped
	r.mu.Unlock()

	if stopped {
		return false
	}
	r.fire(GestureTap)
	return true
}

// Stop cancels every pending timer. The Recognizer ignores input afterwards.
func (r *Recognizer) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stopHold()
	r.stopGrace()
	r.state = StateIdle
	r.stopped = true
}

func (r *Recognizer) startHold() {
	r.stopHold()
	gen := r.holdGen
	r.holdTimer = r.clock.AfterFunc(r.timings.Hold, func() { r.onHold(gen) })
}

func (r *Recognizer) stopHold() {
	if r.holdTimer != nil {
		r.holdTimer.Stop()
		r.holdTimer = nil
	}
	r.holdGen++
}

func (r *Recognizer) startGrace() {
	r.stopGrace()
	gen := r.graceGen
	r.graceTimer = r.clock.AfterFunc(r.timings.Grace, func() { r.onGrace(gen) })
}

func (r *Recognizer) stopGrace() {
	if r.graceTimer != nil {
		r.graceTimer.Stop()
		r.graceTimer = nil
	}
	r.graceGen++
}

func (r *Recognizer) onHold(gen uint64) {
	var fire []Gesture

	r.mu.Lock()
	if r.stopped || gen != r.holdGen {
		r.mu.Unlock()
		return
	}
	r.holdTimer = nil

	switch r.state {
	case StatePressed:
		r.state = StateHeld
		fire = append(fire, GestureHold)
	case StatePressedAfterTap:
		r.stopGrace()
		r.lastTap = time.Time{}
		r.state = StateHeld
		fire = append(fire, GestureTap, GestureHold)
	}
	r.mu.Unlock()

	r.fire(fire...)
}

func (r *Recognizer) onGrace(gen uint64) {
	var fire []Gesture

	r.mu.Lock()
	if r.stopped || gen != r.graceGen {
		r.mu.Unlock()
		return
	}
	r.graceTimer = nil

	switch r.state {
	case StateTapPending:
		r.state = StateIdle
		r.lastTap = time.Time{}
		fire = append(fire, GestureTap)
	case StatePressedAfterTap:
		r.state = StatePressed
		r.lastTap = time.Time{}
		fire = append(fire, GestureTap)
	}
	r.mu.Unlock()

	r.fire(fire...)
}

func (r *Recognizer) fire(gestures ...Gesture) {
	if r.dispatch == nil {
		return
	}
	for _, g := range gestures {
		r.dispatch(g)
	}
}

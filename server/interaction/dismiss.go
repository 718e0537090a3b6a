package interaction

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

const (
	// DefaultTransition is how long a dismissed item animates before it is hidden.
	DefaultTransition = 250 * time.Millisecond

	// DefaultCommandTimeout bounds a dismiss or restore command.
	DefaultCommandTimeout = 15 * time.Second
)

var errNoCommander = errors.New("no command dispatcher configured")

// DismissRequest asks the upstream integration to dismiss one event.
type DismissRequest struct {
	EntryID  string `json:"entry_id"`
	EventKey string `json:"event_key"`

	// Signature is set when the event should reappear once its content changes.
	Signature string `json:"signature,omitempty"`
}

// Commander sends dismiss and restore commands upstream.
type Commander interface {
	Dismiss(ctx context.Context, req DismissRequest) error
	RestoreAll(ctx context.Context, entryID string) error
}

// Dismisser runs the optimistic dismiss flow of one card. A dismissed event animates for the
// transition time, is then hidden locally and the command is sent. A failed command brings the
// event back.
type Dismisser struct {
	commander  Commander
	clock      Clock
	logger     Logger
	onChange   func()
	transition time.Duration
	timeout    time.Duration

	mu        sync.Mutex
	animating map[string]Timer
	hidden    map[string]uint64
	seq       uint64
	closed    bool

	wg sync.WaitGroup
}

// NewDismisser creates a Dismisser. onChange is called, outside of any lock, whenever the set of
// animating or hidden events changes. clock, logger and onChange may be nil.
func NewDismisser(commander Commander, clock Clock, logger Logger, onChange func()) *Dismisser {
	if clock == nil {
		clock = RealClock()
	}
	if logger == nil {
		logger = nopLogger{}
	}
	if onChange == nil {
		onChange = func() {}
	}
	return &Dismisser{
		commander:  commander,
		clock:      clock,
		logger:     logger,
		onChange:   onChange,
		transition: DefaultTransition,
		timeout:    DefaultCommandTimeout,
		animating:  make(map[string]Timer),
		hidden:     make(map[string]uint64),
	}
}

// Dismiss starts dismissing the event in req. It returns false when the event has no key or is
// already being dismissed.
func (d *Dismisser) Dismiss(req DismissRequest) bool {
	key := req.EventKey
	if key == "" {
		return false
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return false
	}
	if _, ok := d.animating[key]; ok {
		d.mu.Unlock()
		return false
	}
	if _, ok := d.hidden[key]; ok {
		d.mu.Unlock()
		return false
	}
	d.animating[key] = d.clock.AfterFunc(d.transition, func() { d.hide(req) })
	d.mu.Unlock()

	d.onChange()
	return true
}

func (d *Dismisser) hide(req DismissRequest) {
	key := req.EventKey

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if _, ok := d.animating[key]; !ok {
		// Restored during the transition
		d.mu.Unlock()
		return
	}
	delete(d.animating, key)
	d.seq++
	token := d.seq
	d.hidden[key] = token
	d.wg.Add(1)
	d.mu.Unlock()

	d.onChange()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		err := d.send(func() error { return d.commander.Dismiss(ctx, req) })
		if err == nil {
			return
		}

		d.logger.Error("Failed to dismiss event, restoring it", "entry_id", req.EntryID, "event_key", key, "error", err.Error())

		d.mu.Lock()
		rolledBack := !d.closed && d.hidden[key] == token
		if rolledBack {
			delete(d.hidden, key)
		}
		d.mu.Unlock()

		if rolledBack {
			d.onChange()
		}
	}()
}

// RestoreAll clears every local dismissal at once and asks upstream to restore all dismissed
// events of entryID. Local dismissals are brought back if the command fails.
func (d *Dismisser) RestoreAll(entryID string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	for _, t := range d.animating {
		t.Stop()
	}
	d.animating = make(map[string]Timer)
	previous := d.hidden
	d.hidden = make(map[string]uint64)
	d.wg.Add(1)
	d.mu.Unlock()

	d.onChange()

	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		err := d.send(func() error { return d.commander.RestoreAll(ctx, entryID) })
		if err == nil {
			return
		}

		d.logger.Error("Failed to restore events", "entry_id", entryID, "count", len(previous), "error", err.Error())

		d.mu.Lock()
		changed := false
		if !d.closed {
			for key, token := range previous {
				if _, ok := d.hidden[key]; !ok {
					d.hidden[key] = token
					changed = true
				}
			}
		}
		d.mu.Unlock()

		if changed {
			d.onChange()
		}
	}()
}

func (d *Dismisser) send(fn func() error) error {
	if d.commander == nil {
		return errNoCommander
	}
	return fn()
}

// Hidden returns the keys of the locally hidden events.
func (d *Dismisser) Hidden() map[string]bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make(map[string]bool, len(d.hidden))
	for key := range d.hidden {
		out[key] = true
	}
	return out
}

// HiddenKeys returns the keys of the locally hidden events, sorted.
func (d *Dismisser) HiddenKeys() []string {
	d.mu.Lock()
	defer d.mu.Unlock()

	return slices.Sorted(maps.Keys(d.hidden))
}

// Animating reports whether the event with key is in its dismiss transition.
func (d *Dismisser) Animating(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	_, ok := d.animating[key]
	return ok
}

// Wait blocks until every command sent so far has completed.
func (d *Dismisser) Wait() {
	d.wg.Wait()
}

// Stop cancels pending transitions and drops all local state. Commands in flight still
// complete but no longer change anything.
func (d *Dismisser) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range d.animating {
		t.Stop()
	}
	d.animating = make(map[string]Timer)
	d.hidden = make(map[string]uint64)
	d.closed = true
}

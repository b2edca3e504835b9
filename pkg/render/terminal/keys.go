package terminal

import (
	"sort"
	"time"
	"unicode"

	"github.com/gdamore/tcell/v2"

	"github.com/opd-ai/go-spacefly/pkg/input"
)

// DefaultHold is how long a key counts as held after its last press or
// auto-repeat. It must outlast the terminal's initial repeat delay.
const DefaultHold = 300 * time.Millisecond

// TranslateKey maps a tcell key event to a host-independent key.
func TranslateKey(ev *tcell.EventKey) (input.Key, bool) {
	switch ev.Key() {
	case tcell.KeyUp:
		return input.ArrowUp, true
	case tcell.KeyDown:
		return input.ArrowDown, true
	case tcell.KeyLeft:
		return input.ArrowLeft, true
	case tcell.KeyRight:
		return input.ArrowRight, true
	case tcell.KeyRune:
	default:
		return "", false
	}

	switch unicode.ToLower(ev.Rune()) {
	case 'w':
		return input.KeyW, true
	case 's':
		return input.KeyS, true
	case 'a':
		return input.KeyA, true
	case 'd':
		return input.KeyD, true
	case 'c':
		return input.KeyC, true
	case 'q':
		return input.KeyQ, true
	case 'e':
		return input.KeyE, true
	case 'r':
		return input.KeyR, true
	case 'x':
		return input.KeyX, true
	case ' ':
		return input.Space, true
	}
	return "", false
}

// Repeater turns a stream of presses into press/release pairs. Terminals
// report key presses and auto-repeats but never releases, so a key is
// released once no press has arrived for the hold window.
type Repeater struct {
	hold     time.Duration
	deadline map[input.Key]time.Time
}

// NewRepeater creates a repeater; a non-positive hold selects DefaultHold.
func NewRepeater(hold time.Duration) *Repeater {
	if hold <= 0 {
		hold = DefaultHold
	}
	return &Repeater{hold: hold, deadline: make(map[input.Key]time.Time)}
}

// Press records a press at now. It returns a press event only for a key
// that was not already held.
func (r *Repeater) Press(key input.Key, now time.Time) (input.KeyEvent, bool) {
	_, held := r.deadline[key]
	r.deadline[key] = now.Add(r.hold)
	if held {
		return input.KeyEvent{}, false
	}
	return input.KeyEvent{Key: key, Pressed: true}, true
}

// Expire returns release events for keys whose hold window has passed,
// ordered by key.
func (r *Repeater) Expire(now time.Time) []input.KeyEvent {
	var released []input.KeyEvent
	for key, deadline := range r.deadline {
		if !now.Before(deadline) {
			released = append(released, input.KeyEvent{Key: key})
			delete(r.deadline, key)
		}
	}
	sort.Slice(released, func(i, j int) bool { return released[i].Key < released[j].Key })
	return released
}

// ReleaseAll returns release events for every held key.
func (r *Repeater) ReleaseAll() []input.KeyEvent {
	var far time.Time
	for _, d := range r.deadline {
		if d.After(far) {
			far = d
		}
	}
	return r.Expire(far)
}

// Held reports whether key is currently held.
func (r *Repeater) Held(key input.Key) bool {
	_, ok := r.deadline[key]
	return ok
}

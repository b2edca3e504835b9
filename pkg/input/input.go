// Package input turns raw key transitions into logical flight actions.
package input

// Key is a stable key identifier, independent of the host toolkit.
type Key string

// Key codes understood by the default bindings.
const (
	KeyW       Key = "KeyW"
	KeyS       Key = "KeyS"
	KeyA       Key = "KeyA"
	KeyD       Key = "KeyD"
	KeyC       Key = "KeyC"
	KeyQ       Key = "KeyQ"
	KeyE       Key = "KeyE"
	KeyR       Key = "KeyR"
	KeyX       Key = "KeyX"
	Space      Key = "Space"
	ArrowUp    Key = "ArrowUp"
	ArrowDown  Key = "ArrowDown"
	ArrowLeft  Key = "ArrowLeft"
	ArrowRight Key = "ArrowRight"
)

// KeyEvent is a single press or release.
type KeyEvent struct {
	Key     Key
	Pressed bool
}

// Action is a logical control.
type Action int

// Held actions are active while their key is down. Command actions fire
// once, on key release.
const (
	ActionNone Action = iota
	ThrustForward
	ThrustBackward
	StrafeLeft
	StrafeRight
	StrafeUp
	StrafeDown
	PitchUp
	PitchDown
	YawLeft
	YawRight
	RollLeft
	RollRight
	Restart
	Brake

	actionCount
)

var actionNames = [...]string{
	ActionNone:     "none",
	ThrustForward:  "thrust_forward",
	ThrustBackward: "thrust_backward",
	StrafeLeft:     "strafe_left",
	StrafeRight:    "strafe_right",
	StrafeUp:       "strafe_up",
	StrafeDown:     "strafe_down",
	PitchUp:        "pitch_up",
	PitchDown:      "pitch_down",
	YawLeft:        "yaw_left",
	YawRight:       "yaw_right",
	RollLeft:       "roll_left",
	RollRight:      "roll_right",
	Restart:        "restart",
	Brake:          "brake",
}

func (a Action) String() string {
	if a < 0 || a >= actionCount {
		return "unknown"
	}
	return actionNames[a]
}

// IsCommand reports whether the action fires on release rather than being held.
func (a Action) IsCommand() bool {
	return a == Restart || a == Brake
}

// ParseAction maps an action name back to its value.
func ParseAction(name string) (Action, bool) {
	for i, n := range actionNames {
		if n == name && Action(i) != ActionNone {
			return Action(i), true
		}
	}
	return ActionNone, false
}

// Bindings maps keys to actions.
type Bindings map[Key]Action

// DefaultBindings returns the standard layout: W/S forward and back, A/D
// strafe, Space/C up and down, arrows pitch and yaw, Q/E roll, R restart
// and X emergency brake.
func DefaultBindings() Bindings {
	return Bindings{
		KeyW:       ThrustForward,
		KeyS:       ThrustBackward,
		KeyA:       StrafeLeft,
		KeyD:       StrafeRight,
		Space:      StrafeUp,
		KeyC:       StrafeDown,
		ArrowUp:    PitchUp,
		ArrowDown:  PitchDown,
		ArrowLeft:  YawLeft,
		ArrowRight: YawRight,
		KeyQ:       RollLeft,
		KeyE:       RollRight,
		KeyR:       Restart,
		KeyX:       Brake,
	}
}

// State holds the held flags. Last write wins; there is no queue.
type State struct {
	bindings Bindings
	held     [actionCount]bool
}

// NewState creates a State. Nil bindings select DefaultBindings.
func NewState(b Bindings) *State {
	if b == nil {
		b = DefaultBindings()
	}
	return &State{bindings: b}
}

// Handle applies a key transition. For command actions it returns the
// action and true on release; held actions and unbound keys return false.
func (s *State) Handle(ev KeyEvent) (Action, bool) {
	action, ok := s.bindings[ev.Key]
	if !ok || action == ActionNone {
		return ActionNone, false
	}
	if action.IsCommand() {
		return action, !ev.Pressed
	}
	s.held[action] = ev.Pressed
	return ActionNone, false
}

// Active reports whether a held action is currently down.
func (s *State) Active(a Action) bool {
	if a <= ActionNone || a >= actionCount {
		return false
	}
	return s.held[a]
}

// Reset releases every held action.
func (s *State) Reset() {
	s.held = [actionCount]bool{}
}

// Bindings returns the key map in use.
func (s *State) Bindings() Bindings {
	return s.bindings
}

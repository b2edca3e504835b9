// pkg/render/engo/input.go
package engo

import (
	"sort"

	"github.com/EngoEngine/ecs"
	"github.com/EngoEngine/engo"
	"github.com/EngoEngine/engo/common"

	"github.com/opd-ai/go-spacefly/pkg/input"
)

// ButtonQuit closes the window.
const ButtonQuit = "quit"

// KeyPoster receives translated key events. host.Loop implements it.
type KeyPoster interface {
	PostKey(ev input.KeyEvent)
}

// keyCodes maps game keys to engo key codes. Each game key is registered as
// an engo button of the same name.
var keyCodes = map[input.Key]engo.Key{
	input.KeyW:       engo.KeyW,
	input.KeyS:       engo.KeyS,
	input.KeyA:       engo.KeyA,
	input.KeyD:       engo.KeyD,
	input.KeyC:       engo.KeyC,
	input.KeyQ:       engo.KeyQ,
	input.KeyE:       engo.KeyE,
	input.KeyR:       engo.KeyR,
	input.KeyX:       engo.KeyX,
	input.Space:      engo.KeySpace,
	input.ArrowUp:    engo.KeyArrowUp,
	input.ArrowDown:  engo.KeyArrowDown,
	input.ArrowLeft:  engo.KeyArrowLeft,
	input.ArrowRight: engo.KeyArrowRight,
}

// GameKeys returns the keys the window forwards, in a stable order.
func GameKeys() []input.Key {
	keys := make([]input.Key, 0, len(keyCodes))
	for k := range keyCodes {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// InputSystem turns button edges into key events for the frame loop.
type InputSystem struct {
	buttons ButtonState
	poster  KeyPoster
	keys    []input.Key
	onQuit  func()
}

// NewInputSystem creates an input system. A nil buttons reads engo's input;
// a nil onQuit calls engo.Exit.
func NewInputSystem(poster KeyPoster, buttons ButtonState, onQuit func()) *InputSystem {
	if buttons == nil {
		buttons = engoButtons{}
	}
	if onQuit == nil {
		onQuit = engo.Exit
	}
	return &InputSystem{
		buttons: buttons,
		poster:  poster,
		keys:    GameKeys(),
		onQuit:  onQuit,
	}
}

// Add satisfies the ecs.System interface
func (is *InputSystem) Add(basic *ecs.BasicEntity, render *common.RenderComponent, space *common.SpaceComponent) {
}

// Remove satisfies the ecs.System interface
func (is *InputSystem) Remove(basic ecs.BasicEntity) {}

// Update posts a press for every button that went down this frame and a
// release for every button that came up.
func (is *InputSystem) Update(dt float32) {
	if is.buttons.JustPressed(ButtonQuit) {
		is.onQuit()
		return
	}
	for _, k := range is.keys {
		name := string(k)
		if is.buttons.JustPressed(name) {
			is.poster.PostKey(input.KeyEvent{Key: k, Pressed: true})
		}
		if is.buttons.JustReleased(name) {
			is.poster.PostKey(input.KeyEvent{Key: k, Pressed: false})
		}
	}
}

// SetupInputBindings registers the game keys and the quit button.
func SetupInputBindings() {
	for k, code := range keyCodes {
		engo.Input.RegisterButton(string(k), code)
	}
	engo.Input.RegisterButton(ButtonQuit, engo.KeyEscape)
}

// Package input defines the window events the renderer consumes and the
// key state built from them.
package input

// Key is a keyboard key. Values are backend independent.
type Key int

const (
	KeyUnknown Key = iota
	KeyUp
	KeyDown
	KeyLeft
	KeyRight
	KeyEscape
)

func (k Key) String() string {
	switch k {
	case KeyUp:
		return "Up"
	case KeyDown:
		return "Down"
	case KeyLeft:
		return "Left"
	case KeyRight:
		return "Right"
	case KeyEscape:
		return "Escape"
	}
	return "Unknown"
}

type EventKind int

const (
	EventClose EventKind = iota
	EventResize
	EventKey
)

// Event is one window event. Width and Height are set for EventResize,
// Key and Pressed for EventKey.
type Event struct {
	Kind    EventKind
	Width   uint32
	Height  uint32
	Key     Key
	Pressed bool
}

// State tracks which keys are held down.
type State struct {
	down map[Key]bool
}

func NewState() *State {
	return &State{down: make(map[Key]bool)}
}

// Apply updates the key state from e. Events other than EventKey are ignored.
func (s *State) Apply(e Event) {
	if e.Kind != EventKey {
		return
	}
	if e.Pressed {
		s.down[e.Key] = true
	} else {
		delete(s.down, e.Key)
	}
}

func (s *State) IsKeyDown(k Key) bool { return s.down[k] }

// Axis returns -1, 0 or 1 depending on which of neg and pos is held.
func (s *State) Axis(neg, pos Key) float32 {
	var v float32
	if s.down[neg] {
		v--
	}
	if s.down[pos] {
		v++
	}
	return v
}

package hotkey

// Hotkey emits one trigger per Ctrl+Shift+Space press. Press-and-hold
// produces a single trigger; the state machine decides what a trigger
// means based on where the session currently is.
type Hotkey interface {
	Register() error
	Unregister()
	Triggers() <-chan struct{}
}

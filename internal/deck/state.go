package deck

// State is the externally visible phase of a deck.
//
//	Empty ──load──▶ Loading ──▶ Cueing ──▶ Ready ──play──▶ Playing ⇄ Stopped
//	                   ▲                                       │
//	                   └──────────── load ◀── Poofed ◀── EOF ──┘
//
// Closed is reachable from every state and is terminal.
type State int

const (
	StateEmpty State = iota
	StateLoading
	StateCueing
	StateReady
	StatePlaying
	StateStopped
	StatePoofed
	StateClosed
)

// String returns the state name for debugging.
func (s State) String() string {
	switch s {
	case StateEmpty:
		return "Empty"
	case StateLoading:
		return "Loading"
	case StateCueing:
		return "Cueing"
	case StateReady:
		return "Ready"
	case StatePlaying:
		return "Playing"
	case StateStopped:
		return "Stopped"
	case StatePoofed:
		return "Poofed"
	case StateClosed:
		return "Closed"
	default:
		return "Unknown"
	}
}

// CanPlay returns true if Play would put the deck on air.
func (s State) CanPlay() bool {
	return s == StateCueing || s == StateReady || s == StateStopped
}

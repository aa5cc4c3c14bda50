package rcon

// State is the per-connection session state (§4.3).
type State uint8

const (
	Unauthenticated State = iota
	Authenticated
	Closed
)

// String implements fmt.Stringer.
func (s State) String() string {
	switch s {
	case Unauthenticated:
		return "unauthenticated"
	case Authenticated:
		return "authenticated"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Class buckets an incoming wire type code into the four shapes the state
// machine cares about. Auth in the Unauthenticated state is handled outside
// the table because its transition also depends on the outcome of
// credential verification.
type Class uint8

const (
	ClassAuth Class = iota
	ClassExecCommand
	ClassResponseValue
	ClassOther
)

// ClassifyIncoming maps a received type_code to its Class. Any code other
// than the three defined incoming codes is ClassOther: a protocol
// violation, regardless of what a well-behaved client would send.
func ClassifyIncoming(typeCode int32) Class {
	switch typeCode {
	case TypeAuth:
		return ClassAuth
	case TypeExecCommand:
		return ClassExecCommand
	case TypeResponseValue:
		return ClassResponseValue
	default:
		return ClassOther
	}
}

// Action is one side effect the connection must perform after ApplyEvent.
type Action uint8

const (
	ActionAuthOK Action = iota
	ActionAuthFail
	ActionExec
	ActionIgnore
	ActionClose
)

// Result is the outcome of applying one packet to the state machine.
type Result struct {
	OldState State
	NewState State
	Actions  []Action
	Changed  bool
}

type stateClass struct {
	state State
	class Class
}

type transition struct {
	newState State
	actions  []Action
}

// fsmTable holds every transition except the two Auth-in-Unauthenticated
// outcomes, which ApplyEvent resolves directly because they depend on the
// verification result, not just the (state, class) pair.
//
// Diverges deliberately from a "missing entry means ignore" default: RCON
// is adversarial-input-facing, so any (state, class) pair not present here
// falls through ApplyEvent's default arm, which closes the connection
// rather than silently dropping the packet.
var fsmTable = map[stateClass]transition{
	{Unauthenticated, ClassExecCommand}:    {Closed, []Action{ActionClose}},
	{Unauthenticated, ClassResponseValue}:  {Closed, []Action{ActionClose}},
	{Unauthenticated, ClassOther}:          {Closed, []Action{ActionClose}},

	{Authenticated, ClassExecCommand}:   {Authenticated, []Action{ActionExec}},
	{Authenticated, ClassResponseValue}: {Authenticated, []Action{ActionIgnore}},
	// Re-authentication is refused, and per the hardened reading of the
	// open question in §9, no AuthResponse is sent first: the connection
	// simply closes, so an attacker cannot probe re-auth timing.
	{Authenticated, ClassAuth}:  {Closed, []Action{ActionClose}},
	{Authenticated, ClassOther}: {Closed, []Action{ActionClose}},

	{Closed, ClassAuth}:          {Closed, nil},
	{Closed, ClassExecCommand}:   {Closed, nil},
	{Closed, ClassResponseValue}: {Closed, nil},
	{Closed, ClassOther}:         {Closed, nil},
}

// ApplyEvent is a pure function from the current state and the classified
// incoming packet to the next state and the actions to perform. authOK is
// only consulted when state is Unauthenticated and class is ClassAuth; it
// is ignored otherwise (re-authentication never re-verifies).
func ApplyEvent(state State, class Class, authOK bool) Result {
	if state == Unauthenticated && class == ClassAuth {
		if authOK {
			return Result{OldState: state, NewState: Authenticated, Actions: []Action{ActionAuthOK}, Changed: true}
		}
		return Result{OldState: state, NewState: Closed, Actions: []Action{ActionAuthFail, ActionClose}, Changed: true}
	}

	t, ok := fsmTable[stateClass{state, class}]
	if !ok {
		return Result{OldState: state, NewState: Closed, Actions: []Action{ActionClose}, Changed: state != Closed}
	}

	return Result{OldState: state, NewState: t.newState, Actions: t.actions, Changed: t.newState != state}
}

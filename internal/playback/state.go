package playback

// Phase enumerates the player lifecycle states.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseLoading  Phase = "loading"
	PhaseReady    Phase = "ready"
	PhasePlaying  Phase = "playing"
	PhasePaused   Phase = "paused"
	PhaseFinished Phase = "finished"
	PhaseError    Phase = "error"
)

// State is the player lifecycle state. Message is set only in the
// error phase, which is terminal until a new load is attempted.
type State struct {
	Phase   Phase
	Message string
}

func Errored(message string) State {
	return State{Phase: PhaseError, Message: message}
}

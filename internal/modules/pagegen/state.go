package pagegen

// RunState is where a single generation run currently stands.
type RunState string

const (
	StatePending        RunState = "pending"
	StateTextReceived   RunState = "text_received"
	StateParsed         RunState = "parsed"
	StateImagesInFlight RunState = "images_in_flight"
	StateReconciled     RunState = "reconciled"
	StateDone           RunState = "done"

	StateTextGenerationFailed RunState = "text_generation_failed"
	StateParseFailed          RunState = "parse_failed"
	StatePersistenceFailed    RunState = "persistence_failed"
)

var transitions = map[RunState][]RunState{
	StatePending:        {StateTextReceived, StateTextGenerationFailed},
	StateTextReceived:   {StateParsed, StateParseFailed},
	StateParsed:         {StateImagesInFlight, StatePersistenceFailed},
	StateImagesInFlight: {StateReconciled},
	StateReconciled:     {StateDone, StatePersistenceFailed},
}

func (s RunState) Terminal() bool {
	switch s {
	case StateDone, StateTextGenerationFailed, StateParseFailed, StatePersistenceFailed:
		return true
	default:
		return false
	}
}

func (s RunState) Failed() bool {
	return s.Terminal() && s != StateDone
}

// CanTransition reports whether a run in s may move to next.
func (s RunState) CanTransition(next RunState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

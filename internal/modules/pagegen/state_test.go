package pagegen

import "testing"

func TestRunStateHappyPath(t *testing.T) {
	path := []RunState{StatePending, StateTextReceived, StateParsed, StateImagesInFlight, StateReconciled, StateDone}
	for i := 0; i+1 < len(path); i++ {
		if !path[i].CanTransition(path[i+1]) {
			t.Fatalf("%s -> %s should be allowed", path[i], path[i+1])
		}
	}
	if !StateDone.Terminal() || StateDone.Failed() {
		t.Fatalf("done: want terminal, not failed")
	}
}

func TestRunStateFailures(t *testing.T) {
	cases := []struct {
		from, to RunState
		ok       bool
	}{
		{StatePending, StateTextGenerationFailed, true},
		{StateTextReceived, StateParseFailed, true},
		{StateParsed, StatePersistenceFailed, true},
		{StateReconciled, StatePersistenceFailed, true},
		{StateImagesInFlight, StatePersistenceFailed, false},
		{StatePending, StateParsed, false},
		{StateDone, StatePending, false},
		{StateParseFailed, StateParsed, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: want=%v got=%v", tc.from, tc.to, tc.ok, got)
		}
	}
	for _, s := range []RunState{StateTextGenerationFailed, StateParseFailed, StatePersistenceFailed} {
		if !s.Failed() {
			t.Fatalf("%s: want failed", s)
		}
	}
}

package pipeline

import (
	"fmt"
)

// State is where a run currently is
type State int

const (
	Idle State = iota
	FactPending
	ScriptPending
	VoicePending
	VideoPending
	ComposePending
	Done
	Failed
)

var stateNames = [...]string{
	Idle:           "idle",
	FactPending:    "fact_pending",
	ScriptPending:  "script_pending",
	VoicePending:   "voice_pending",
	VideoPending:   "video_pending",
	ComposePending: "compose_pending",
	Done:           "done",
	Failed:         "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Terminal reports whether no further transition can happen
func (s State) Terminal() bool { return s == Done || s == Failed }

// StageError carries the stage a run failed in
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string { return e.Stage + ": " + e.Err.Error() }

func (e *StageError) Unwrap() error { return e.Err }

// Cause lets errors.Cause see through the stage wrapper
func (e *StageError) Cause() error { return e.Err }

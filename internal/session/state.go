// SPDX-License-Identifier: MIT

// Package session implements the recording session lifecycle: a small state
// machine driven by user commands and clock ticks, from countdown through
// capture to a completed or discarded recording.
package session

import "fmt"

// State is a lifecycle phase of a recording session.
type State string

const (
	StateIdle      State = "idle"
	StateCountdown State = "countdown"
	StateRecording State = "recording"
	StatePaused    State = "paused"
	StateCompleted State = "completed"
	StateDiscarded State = "discarded"
	StateShared    State = "shared"
)

// Event is a command or internal signal that moves a session between states.
type Event string

const (
	EventStart         Event = "start"
	EventCountdownDone Event = "countdown_done"
	EventCancel        Event = "cancel"
	EventPause         Event = "pause"
	EventResume        Event = "resume"
	EventStop          Event = "stop"
	EventDiscard       Event = "discard"
	EventShare         Event = "share"
)

// Transition is one legal edge of the lifecycle graph.
type Transition struct {
	From  State
	Event Event
	To    State
}

// transitions is the complete lifecycle. Anything not listed here is
// rejected; there are no implicit edges.
var transitions = []Transition{
	{StateIdle, EventStart, StateCountdown},
	{StateCountdown, EventCountdownDone, StateRecording},
	{StateCountdown, EventCancel, StateIdle},
	{StateRecording, EventPause, StatePaused},
	{StatePaused, EventResume, StateRecording},
	{StateRecording, EventStop, StateCompleted},
	{StatePaused, EventStop, StateCompleted},
	{StateRecording, EventDiscard, StateDiscarded},
	{StatePaused, EventDiscard, StateDiscarded},
	{StateCompleted, EventDiscard, StateDiscarded},
	{StateCompleted, EventShare, StateShared},
}

// TransitionError reports an event that is not legal in the current state.
type TransitionError struct {
	From  State
	Event Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("session: event %q not allowed in state %q", e.Event, e.From)
}

// Next returns the state reached by applying event in from, or a
// TransitionError when no edge matches.
func Next(from State, event Event) (State, error) {
	for _, t := range transitions {
		if t.From == from && t.Event == event {
			return t.To, nil
		}
	}
	return from, &TransitionError{From: from, Event: event}
}

// Terminal reports whether the state admits no further capture activity.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateDiscarded, StateShared:
		return true
	}
	return false
}

// Active reports whether the session holds live capture resources.
func (s State) Active() bool {
	switch s {
	case StateCountdown, StateRecording, StatePaused:
		return true
	}
	return false
}

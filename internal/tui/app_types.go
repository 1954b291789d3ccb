package tui

import "time"

// feedbackTTL is how long a success or error banner stays up.
const feedbackTTL = 4 * time.Second

// Completion messages carry the panel index so a result that lands after the
// user switched tabs still updates the right workspace.

type loadDoneMsg struct {
	panel int
	err   error
}

type formDoneMsg struct {
	panel int
	err   error
}

type actionDoneMsg struct {
	panel int
	err   error
}

type confirmDoneMsg struct {
	panel int
	err   error
}

type flashDoneMsg struct {
	panel int
	seq   uint64
}

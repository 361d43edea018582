package engine

import "time"

type (
	// Alert is a user-facing notification pushed through the UI
	// channel. The engine never logs; everything it wants a human to
	// see is an Alert. Alerts with the same Name replace each other in
	// a UI that keeps a list of them.
	Alert struct {
		Name     string
		Priority AlertPriority
		Message  string
		Duration time.Duration
	}

	AlertPriority int
)

const (
	None AlertPriority = iota
	Info
	Warning
	Error
)

const defaultAlertDuration = 5 * time.Second

package dto

import "time"

// ProcessResponse is the status of one supervised process.
type ProcessResponse struct {
	Name      string     `json:"name"`
	PID       int        `json:"pid"`
	State     string     `json:"state"`
	Restarts  int        `json:"restarts"`
	StartedAt *time.Time `json:"started_at,omitempty"`
	LastExit  string     `json:"last_exit,omitempty"`
}

// ErrorResponse represents a generic error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

package domain

import "errors"

var (
	// ErrEmptyDescription is returned when a run carries no description.
	ErrEmptyDescription = errors.New("description is required")
	// ErrNoAgents is returned when a run selects no agents.
	ErrNoAgents = errors.New("at least one agent is required")
	// ErrUnknownAgent is returned when a selected agent is not registered.
	ErrUnknownAgent = errors.New("unknown agent")
	// ErrUnauthorized is returned when an operation requires a verified token.
	ErrUnauthorized = errors.New("missing or invalid bearer token")
	// ErrNotFound is returned by store queries with no matching record.
	ErrNotFound = errors.New("not found")
)

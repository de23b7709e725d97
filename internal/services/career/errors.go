package career

import "errors"

var (
	// ErrSessionNotFound is returned when the target session does not exist
	ErrSessionNotFound = errors.New("session not found")
	// ErrTurnInProgress is returned when a chat turn is already running for the session
	ErrTurnInProgress = errors.New("chat turn already in progress")
	// ErrEmptyMessage is returned for turns with neither text nor audio
	ErrEmptyMessage = errors.New("message is empty")
	// ErrTurnFailed marks a chat turn that ended in a provider failure
	ErrTurnFailed = errors.New("chat turn failed")
	// ErrSculptFailed marks a document generation failure
	ErrSculptFailed = errors.New("document generation failed")
	// ErrMalformedOutput is returned when structured output cannot be parsed
	ErrMalformedOutput = errors.New("malformed structured output")
	// ErrNoValidItems is returned when structured output parsed but nothing survived validation
	ErrNoValidItems = errors.New("no valid items in structured output")
	// ErrGoalRequired is returned when a roadmap is requested without a goal
	ErrGoalRequired = errors.New("career goal is required")
	// ErrUnsupportedSessionType is returned when an operation does not apply to the session type
	ErrUnsupportedSessionType = errors.New("operation not supported for session type")
)

// Package services implements the business rules that span several repositories: the time
// entry validator and approval workflow, membership changes guarded by the last-admin rule,
// report aggregation, and best-effort activity recording.
// Handlers translate the errors defined here into HTTP responses.
package services

import (
	"errors"
)

// User-facing validation messages
const (
	MsgEndBeforeStart     = "End time must be after start time."
	MsgProjectRequired    = "Project is required by policy."
	MsgOverlap            = "Time entry overlaps with an existing entry."
	MsgPeriodLocked       = "This period is locked. Contact an admin."
	MsgEntryLocked        = "Entry is in a locked period."
	MsgUnknownProject     = "Unknown project."
	MsgUnknownActivity    = "Unknown activity."
	MsgOnlySubmittedApp   = "Only submitted entries can be approved."
	MsgOnlySubmittedRet   = "Only submitted entries can be returned."
	MsgOnlyDraftSubmitted = "Only draft or returned entries can be submitted."
	MsgLastAdmin          = "Cannot remove or demote the last admin."
	MsgInvalidRole        = "Invalid role."
	MsgInvalidStatus      = "Invalid status."
)

var (
	// ErrForbidden is returned when the caller lacks the role or ownership an action needs
	ErrForbidden = errors.New("access denied")
	// ErrNotFound is returned when a record is absent or belongs to another organization
	ErrNotFound = errors.New("not found")
	// ErrLastAdmin is returned when a change would leave an organization without an active admin
	ErrLastAdmin = &ValidationError{Message: MsgLastAdmin}
)

// ValidationError is a rule violation whose message is safe to show to the user
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Invalid returns a ValidationError carrying msg
func Invalid(msg string) error {
	return &ValidationError{Message: msg}
}

// ValidationMessage returns the user-facing message of err when it is a ValidationError
func ValidationMessage(err error) (string, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Message, true
	}
	return "", false
}

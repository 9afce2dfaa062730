package campaign

import (
	"errors"
	"fmt"
	"strings"

	"github.com/bvrai/campaign-console/pkg/sparkai"
)

// Error is a client-side failure that carries the same kind the API client
// assigns to backend errors, so callers can switch on sparkai.KindOf.
type Error struct {
	kind sparkai.ErrorKind
	msg  string
}

func (e *Error) Error() string           { return e.msg }
func (e *Error) Kind() sparkai.ErrorKind { return e.kind }

var (
	// ErrInsufficientCredits blocks billable actions at a zero balance
	ErrInsufficientCredits = &Error{kind: sparkai.KindInsufficientCredits, msg: "insufficient credits"}
	// ErrNoCampaign is returned when an action needs a loaded campaign
	ErrNoCampaign = &Error{kind: sparkai.KindValidation, msg: "no campaign loaded"}
	// ErrNotPersisted is returned when an action needs a saved campaign
	ErrNotPersisted = &Error{kind: sparkai.KindValidation, msg: "campaign has not been created yet"}
)

var (
	// ErrNotConfirmed means the user declined a confirmation prompt
	ErrNotConfirmed = errors.New("action not confirmed")
	// ErrLeadsOutOfSync matches any LeadsOutOfSyncError via errors.Is
	ErrLeadsOutOfSync = errors.New("leads out of sync")
)

// ValidationError rejects input before any network call
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Kind() sparkai.ErrorKind { return sparkai.KindValidation }

// NotEditableError is returned by edits on a campaign past draft
type NotEditableError struct {
	Reason string
}

func (e *NotEditableError) Error() string           { return "campaign is not editable: " + e.Reason }
func (e *NotEditableError) Kind() sparkai.ErrorKind { return sparkai.KindValidation }

// NotReadyError lists the launch requirements still missing
type NotReadyError struct {
	Missing []Requirement
}

func (e *NotReadyError) Error() string {
	names := make([]string, len(e.Missing))
	for i, r := range e.Missing {
		names[i] = string(r)
	}
	return "campaign is not ready to launch, missing: " + strings.Join(names, ", ")
}

func (e *NotReadyError) Kind() sparkai.ErrorKind { return sparkai.KindValidation }

// TransitionError rejects an action the current status does not allow
type TransitionError struct {
	Action Action
	From   sparkai.CampaignStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot %s a campaign that is %s", e.Action, e.From)
}

func (e *TransitionError) Kind() sparkai.ErrorKind { return sparkai.KindValidation }

// LeadsOutOfSyncError reports a local lead change the backend did not accept
type LeadsOutOfSyncError struct {
	Err error
}

func (e *LeadsOutOfSyncError) Error() string {
	return "leads changed locally but failed to save: " + sparkai.Message(e.Err)
}

func (e *LeadsOutOfSyncError) Unwrap() error { return e.Err }

func (e *LeadsOutOfSyncError) Is(target error) bool { return target == ErrLeadsOutOfSync }

package errors

import "fmt"

var (
	ErrValidation         = fmt.Errorf("invalid command input")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrForbidden          = fmt.Errorf("operation not permitted for this user")
	ErrSelfDeletion       = fmt.Errorf("an owner cannot delete their own account")
	ErrLastOwner          = fmt.Errorf("the last owner cannot be deleted")
	ErrEncoding           = fmt.Errorf("attachment encoding failed")
	ErrSync               = fmt.Errorf("presence sync failed")
	ErrNoSession          = fmt.Errorf("no active session")
	ErrSessionLocked      = fmt.Errorf("session is locked")
	ErrUnknownUser        = fmt.Errorf("unknown user")
	ErrTokenGeneration    = fmt.Errorf("unable to generate session token")
	ErrWorkerPanic        = fmt.Errorf("worker panic")
)

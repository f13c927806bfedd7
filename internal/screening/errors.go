package screening

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks input rejected before any state change.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks a lookup of something that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrUpstream marks a collaborator response that cannot be used.
	ErrUpstream = errors.New("upstream error")
)

var errInvitationClosed = fmt.Errorf("%w: invitation form is not open", ErrInvalidArgument)

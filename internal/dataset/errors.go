package dataset

import (
	"errors"
	"fmt"
)

// ErrMissingInput is matched by every MissingInputError.
var ErrMissingInput = errors.New("missing input")

// MissingInputError reports a role for which the index holds no file.
type MissingInputError struct {
	Role    Role
	Subject string
	Session string
}

func (e *MissingInputError) Error() string {
	if e.Session == "" {
		return fmt.Sprintf("no %s found for subject %s", e.Role, e.Subject)
	}
	return fmt.Sprintf("no %s found for subject %s, session %s", e.Role, e.Subject, e.Session)
}

func (e *MissingInputError) Unwrap() error {
	return ErrMissingInput
}

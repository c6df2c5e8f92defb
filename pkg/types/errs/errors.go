package errs

import (
	"errors"
	"fmt"
)

var (
	ErrRecordNotFound = errors.New("record not found")

	ErrValidation       = errors.New("validation failed")
	ErrMissingReference = fmt.Errorf("%w: invoice reference fields are required", ErrValidation)
	ErrNoLines          = fmt.Errorf("%w: invoice has no lines", ErrValidation)

	ErrUnknownEventType = errors.New("unknown event type")
)

package nn

import (
	"errors"
	"fmt"
)

// ErrModelUnavailable is matched (via errors.Is) by every ModelUnavailableError
var ErrModelUnavailable = errors.New("Model unavailable")

// ModelUnavailableError is returned by a detector when its model could not be loaded, or inference failed.
type ModelUnavailableError struct {
	Model string
	Err   error
}

func (e *ModelUnavailableError) Error() string {
	return fmt.Sprintf("Model %v unavailable: %v", e.Model, e.Err)
}

func (e *ModelUnavailableError) Unwrap() error {
	return e.Err
}

func (e *ModelUnavailableError) Is(target error) bool {
	return target == ErrModelUnavailable
}

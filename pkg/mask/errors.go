package mask

import (
	"fmt"

	"github.com/cyclopcam/redact/pkg/nn"
)

// CompositingError is returned when a mask layer cannot be built
type CompositingError struct {
	Detection nn.Detection
	Op        string // eg "logo", "blur"
	Err       error
}

func (e *CompositingError) Error() string {
	return fmt.Sprintf("Failed to build %v mask for %v: %v", e.Op, e.Detection, e.Err)
}

func (e *CompositingError) Unwrap() error {
	return e.Err
}

package op

import "fmt"

// ConfigurationError reports unsupported or malformed operator parameters:
// zero kernels, unequal strides where equality is required, non-zero pad on
// unpooling. Detected at construction, never silently corrected.
type ConfigurationError struct {
	Op  string
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: invalid configuration: %v", e.Op, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ShapeMismatchError reports disagreeing tensor shapes during shape
// inference, or a derived output dimension that is not positive. It aborts
// graph construction before any kernel runs: executing on inconsistent
// shapes would produce silently wrong gradients instead of a crash.
type ShapeMismatchError struct {
	Op  string
	Err error
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%s: shape mismatch: %v", e.Op, e.Err)
}

func (e *ShapeMismatchError) Unwrap() error { return e.Err }

// ArityError reports a wrong number of tensors passed to Forward or
// Backward. This is a programming-contract violation, not a data condition.
type ArityError struct {
	Op    string
	Stage string // e.g. "forward inputs"
	Want  int
	Got   int
}

func (e *ArityError) Error() string {
	return fmt.Sprintf("%s: %s: expected %d tensors, got %d", e.Op, e.Stage, e.Want, e.Got)
}

// checkArity returns an ArityError when got != want.
func checkArity(opName, stage string, want, got int) error {
	if got != want {
		return &ArityError{Op: opName, Stage: stage, Want: want, Got: got}
	}
	return nil
}

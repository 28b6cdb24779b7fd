package cli

import (
	"errors"
	"fmt"

	"github.com/yildizm/texwatch/internal/runner"
)

// ExitError carries a process exit status out of a command. Err is nil when
// the status is a signal to the host rather than a failure, as with 200.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit status %d", e.Code)
	}
	return e.Err.Error()
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExitCode maps an error returned by a command to the process exit status
func ExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return runner.ExitCode(err)
}

// ErrorMessage is what main prints for err; statuses without a failure
// print nothing
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return ""
	}
	return err.Error()
}

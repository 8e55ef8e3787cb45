package billing

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
)

var (
	ErrNotFound         = core.NewNotFoundError("payment")
	ErrExpenseNotFound  = core.NewNotFoundError("expense")
	ErrDuplicatePayment = errors.New("a monthly payment already exists for this student and month")
)

// ConfigurationError reports a student whose monthly amount cannot be determined.
type ConfigurationError struct {
	StudentID string
	Reason    string
}

func (err *ConfigurationError) Error() string {
	return fmt.Sprintf("cannot determine amount for student %s: %s", err.StudentID, err.Reason)
}

// RangeError reports a month range the school year does not cover.
type RangeError struct {
	SchoolYear string
	From, To   core.Month
}

func (err *RangeError) Error() string {
	if err.From == err.To {
		return fmt.Sprintf("school year %s does not cover %s", err.SchoolYear, err.From)
	}
	return fmt.Sprintf("school year %s does not cover %s to %s", err.SchoolYear, err.From, err.To)
}

// TransitionError reports a status change the payment lifecycle does not allow.
type TransitionError struct {
	From, To Status
}

func (err *TransitionError) Error() string {
	return fmt.Sprintf("cannot change a %s payment to %s", err.From, err.To)
}

// IsDomainError reports whether `err` is a billing rule violation to surface to the caller as is.
func IsDomainError(err error) bool {
	switch errors.Cause(err).(type) {
	case *ConfigurationError, *RangeError, *TransitionError:
		return true
	}
	return errors.Cause(err) == ErrDuplicatePayment
}

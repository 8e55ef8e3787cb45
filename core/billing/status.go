package billing

import (
	"time"

	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core"
)

// IsTerminal reports whether no transition leaves `s`.
func (s Status) IsTerminal() bool {
	return s == StatusPaid || s == StatusCancelled
}

func (s Status) IsValid() bool {
	for _, st := range Statuses {
		if s == st {
			return true
		}
	}
	return false
}

// EffectiveStatus is the status shown to readers on `today`:
// a pending payment whose due date has passed reads as OVERDUE. The stored status is left untouched.
func (p Payment) EffectiveStatus(today core.Date) Status {
	if p.Status == StatusPending && p.DueDate.Before(today) {
		return StatusOverdue
	}
	return p.Status
}

// MarkPaid moves a pending or overdue payment to PAID.
func (p *Payment) MarkPaid(method Method, reference null.String, paidAt time.Time) error {
	if p.Status.IsTerminal() {
		return &TransitionError{From: p.Status, To: StatusPaid}
	}
	p.Status = StatusPaid
	p.PaidDate = null.TimeFrom(paidAt.UTC())
	p.Method = null.StringFrom(string(method))
	p.Reference = reference
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Cancel moves a pending or overdue payment to CANCELLED.
func (p *Payment) Cancel() error {
	if p.Status.IsTerminal() {
		return &TransitionError{From: p.Status, To: StatusCancelled}
	}
	p.Status = StatusCancelled
	p.UpdatedAt = time.Now().UTC()
	return nil
}

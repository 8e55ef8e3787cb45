package billing

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/schoolyear"
	"github.com/trezcool/kelasi/core/student"
)

// GenerateParams holds everything needed to plan a student's monthly payments.
type GenerateParams struct {
	Student    student.Student
	Plan       *membership.Plan // nil when the student has no plan
	SchoolYear schoolyear.SchoolYear
	From, To   core.Month
	// DueDay is the day of month payments fall due on, clamped to the month's last day.
	DueDay int
	// Existing are the student's payments already stored.
	Existing []Payment
}

// ResolveAmount returns the monthly amount owed by `std`:
// the stored monthly due amount when set, otherwise the plan price minus the student's discount.
func ResolveAmount(std student.Student, plan *membership.Plan) (decimal.Decimal, error) {
	if std.MonthlyDueAmount.Valid {
		return core.RoundMoney(std.MonthlyDueAmount.Decimal), nil
	}
	if plan == nil {
		return decimal.Zero, &ConfigurationError{StudentID: std.ID, Reason: "no membership plan and no monthly due amount"}
	}
	due, err := membership.ComputeMonthlyDue(plan.MonthlyPrice, std.DiscountRate)
	if err != nil {
		return decimal.Zero, &ConfigurationError{StudentID: std.ID, Reason: err.Error()}
	}
	return due, nil
}

// PlanMissingPayments builds the PENDING monthly payments that should exist for every month of [From, To]
// and do not yet. Months before the student's enrollment month are skipped.
// A month counts as billed when any monthly payment of the student, whatever its status, falls due in it;
// registration and other non-monthly payments never block generation.
// Due dates of the school year's first and last months are clamped into [StartDate, EndDate].
func PlanMissingPayments(p GenerateParams) ([]Payment, error) {
	if !p.Student.IsActive {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "studentId", Error: "student is not active"})
	}
	if p.To.Before(p.From) {
		return nil, core.NewValidationError(nil, core.FieldError{Field: "toMonth", Error: "end month cannot be before start month"})
	}
	if !p.SchoolYear.Covers(p.From, p.To) {
		return nil, &RangeError{SchoolYear: p.SchoolYear.Name, From: p.From, To: p.To}
	}
	amount, err := ResolveAmount(p.Student, p.Plan)
	if err != nil {
		return nil, err
	}

	billed := make(map[core.Month]bool, len(p.Existing))
	for _, pmt := range p.Existing {
		if pmt.StudentID == p.Student.ID && pmt.PaymentType == PaymentMonthly {
			billed[core.MonthOf(pmt.DueDate.Time)] = true
		}
	}

	var enrolled core.Month
	if !p.Student.EnrollmentDate.IsZero() {
		enrolled = core.MonthOf(p.Student.EnrollmentDate.Time)
	}

	now := time.Now().UTC()
	var missing []Payment
	for _, m := range core.MonthsBetween(p.From, p.To) {
		if m.Before(enrolled) || billed[m] {
			continue
		}
		missing = append(missing, Payment{
			StudentID:    p.Student.ID,
			SchoolYearID: p.SchoolYear.ID,
			Amount:       amount,
			DueDate:      p.SchoolYear.Clamp(m.Day(p.DueDay)),
			Status:       StatusPending,
			PaymentType:  PaymentMonthly,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return missing, nil
}

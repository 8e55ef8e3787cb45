package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/schoolyear"
	"github.com/trezcool/kelasi/core/student"
)

func Dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func NullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(Dec(s))
}

func Month(t *testing.T, s string) core.Month {
	m, err := core.ParseMonth(s)
	if err != nil {
		t.Fatalf("Month() failed: %v", err)
	}
	return m
}

func Date(t *testing.T, s string) core.Date {
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("Date() failed: %v", err)
	}
	return d
}

func CreatePlan(t *testing.T, repo membership.Repository, name string, daysPerWeek int, price string) membership.Plan {
	now := time.Now().UTC()
	plan, err := repo.CreatePlan(context.Background(), membership.Plan{
		Name:         name,
		DaysPerWeek:  daysPerWeek,
		MonthlyPrice: Dec(price),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		t.Fatalf("CreatePlan() failed: %v", err)
	}
	return plan
}

func CreateSchoolYear(t *testing.T, repo schoolyear.Repository, name, start, end string) schoolyear.SchoolYear {
	now := time.Now().UTC()
	sy, err := repo.CreateSchoolYear(context.Background(), schoolyear.SchoolYear{
		Name:      name,
		StartDate: Date(t, start),
		EndDate:   Date(t, end),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateSchoolYear() failed: %v", err)
	}
	return sy
}

// StudentOption customizes a student fixture.
type StudentOption func(std *student.Student)

func WithPlan(plan membership.Plan) StudentOption {
	return func(std *student.Student) {
		std.MembershipPlanID = null.StringFrom(plan.ID)
	}
}

func WithDiscount(rate string) StudentOption {
	return func(std *student.Student) {
		std.DiscountRate = NullDec(rate)
	}
}

func WithMonthlyDue(amount string) StudentOption {
	return func(std *student.Student) {
		std.MonthlyDueAmount = NullDec(amount)
	}
}

func WithGuardian(name, email string) StudentOption {
	return func(std *student.Student) {
		std.GuardianName = null.StringFrom(name)
		std.GuardianEmail = null.StringFrom(email)
	}
}

func Enrolled(on core.Date) StudentOption {
	return func(std *student.Student) {
		std.EnrollmentDate = on
	}
}

func Inactive() StudentOption {
	return func(std *student.Student) {
		std.IsActive = false
	}
}

// CreateStudent stores an active student enrolled at the start of the school year.
func CreateStudent(t *testing.T, repo student.Repository, code, first, last string, sy schoolyear.SchoolYear, opts ...StudentOption) student.Student {
	now := time.Now().UTC()
	std := student.Student{
		StudentCode:    code,
		FirstName:      first,
		LastName:       last,
		SchoolYearID:   sy.ID,
		EnrollmentDate: sy.StartDate,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	for _, opt := range opts {
		opt(&std)
	}
	std, err := repo.CreateStudent(context.Background(), std)
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return std
}

func CreatePayment(
	t *testing.T,
	repo billing.PaymentRepository,
	std student.Student,
	amount string,
	dueDate core.Date,
	status billing.Status,
	paidAt ...time.Time,
) billing.Payment {
	now := time.Now().UTC()
	pmt := billing.Payment{
		StudentID:    std.ID,
		SchoolYearID: std.SchoolYearID,
		Amount:       Dec(amount),
		DueDate:      dueDate,
		Status:       status,
		PaymentType:  billing.PaymentMonthly,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if status == billing.StatusPaid {
		paid := now
		if len(paidAt) > 0 {
			paid = paidAt[0].UTC()
		}
		pmt.PaidDate = null.TimeFrom(paid)
		pmt.Method = null.StringFrom(string(billing.MethodCash))
	}
	pmt, err := repo.CreatePayment(context.Background(), pmt)
	if err != nil {
		t.Fatalf("CreatePayment() failed: %v", err)
	}
	return pmt
}

func CreateExpense(t *testing.T, repo billing.ExpenseRepository, typ billing.ExpenseType, amount string, date core.Date) billing.Expense {
	exp, err := repo.CreateExpense(context.Background(), billing.Expense{
		Type:        typ,
		Description: string(typ) + " expense",
		Amount:      Dec(amount),
		Date:        date,
		CreatedBy:   "tester",
		CreatedAt:   time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateExpense() failed: %v", err)
	}
	return exp
}

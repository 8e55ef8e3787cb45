package student

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/schoolyear"
)

var (
	ErrNotFound   = core.NewNotFoundError("student")
	ErrCodeExists = errors.New("a student with this code already exists")
)

type (
	Repository interface {
		// CheckCodeUniqueness returns ErrCodeExists when another student than `excludedIDs` uses `code`.
		CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error
		CreateStudent(ctx context.Context, std Student) (Student, error)
		GetStudent(ctx context.Context, id string) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error)
		CountStudents(ctx context.Context, filter *QueryFilter) (int, error)
		UpdateStudent(ctx context.Context, std Student) (Student, error)
	}

	PlanGetter interface {
		GetPlan(ctx context.Context, id string) (membership.Plan, error)
	}

	SchoolYearGetter interface {
		GetSchoolYear(ctx context.Context, id string) (schoolyear.SchoolYear, error)
	}

	Service struct {
		repo  Repository
		plans PlanGetter
		years SchoolYearGetter
	}
)

func NewService(repo Repository, plans PlanGetter, years SchoolYearGetter) *Service {
	return &Service{repo: repo, plans: plans, years: years}
}

func (svc *Service) checkUniqueness(ctx context.Context, code string, excludedIDs ...string) error {
	if err := svc.repo.CheckCodeUniqueness(ctx, code, excludedIDs...); err != nil {
		if errors.Cause(err) == ErrCodeExists {
			return core.NewValidationError(err, core.FieldError{Field: "studentCode", Error: err.Error()})
		}
		return err
	}
	return nil
}

// resolveDueAmount sets the student's stored monthly due amount.
// With a plan, it is derived from the plan price and discount; without one, the override is kept as is.
func (svc *Service) resolveDueAmount(ctx context.Context, std *Student, override decimal.NullDecimal) error {
	if !std.MembershipPlanID.Valid {
		if override.Valid {
			override.Decimal = core.RoundMoney(override.Decimal)
		}
		std.MonthlyDueAmount = override
		return nil
	}

	plan, err := svc.plans.GetPlan(ctx, std.MembershipPlanID.String)
	if err != nil {
		return err
	}
	due, err := membership.ComputeMonthlyDue(plan.MonthlyPrice, std.DiscountRate)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "discountRate", Error: err.Error()})
	}
	std.MonthlyDueAmount = decimal.NewNullDecimal(due)
	return nil
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := svc.checkUniqueness(ctx, ns.StudentCode); err != nil {
		return Student{}, err
	}
	if _, err := svc.years.GetSchoolYear(ctx, ns.SchoolYearID); err != nil {
		return Student{}, err
	}

	now := time.Now().UTC()
	std := Student{
		StudentCode:      ns.StudentCode,
		FirstName:        ns.FirstName,
		LastName:         ns.LastName,
		GuardianName:     ns.GuardianName,
		GuardianEmail:    ns.GuardianEmail,
		GuardianPhone:    ns.GuardianPhone,
		MembershipPlanID: ns.MembershipPlanID,
		DiscountRate:     ns.DiscountRate,
		SchoolYearID:     ns.SchoolYearID,
		EnrollmentDate:   ns.EnrollmentDate,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := svc.resolveDueAmount(ctx, &std, ns.MonthlyDueAmount); err != nil {
		return Student{}, err
	}

	std, err := svc.repo.CreateStudent(ctx, std)
	return std, errors.Wrap(err, "creating student")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	return svc.repo.GetStudent(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	return svc.repo.QueryStudents(ctx, filter, ordering)
}

// CountActive returns the number of active students.
func (svc *Service) CountActive(ctx context.Context) (int, error) {
	active := true
	return svc.repo.CountStudents(ctx, &QueryFilter{IsActive: &active})
}

// Update saves changes to a student and re-resolves their monthly due amount.
// Existing payments keep the amount they were created with.
func (svc *Service) Update(ctx context.Context, orig Student, us UpdateStudent) (Student, error) {
	std := orig
	if us.StudentCode != "" && us.StudentCode != orig.StudentCode {
		if err := svc.checkUniqueness(ctx, us.StudentCode, orig.ID); err != nil {
			return Student{}, err
		}
		std.StudentCode = us.StudentCode
	}
	if us.SchoolYearID != "" && us.SchoolYearID != orig.SchoolYearID {
		if _, err := svc.years.GetSchoolYear(ctx, us.SchoolYearID); err != nil {
			return Student{}, err
		}
		std.SchoolYearID = us.SchoolYearID
	}
	if us.FirstName != "" {
		std.FirstName = us.FirstName
	}
	if us.LastName != "" {
		std.LastName = us.LastName
	}
	if us.GuardianName.Valid {
		std.GuardianName = us.GuardianName
	}
	if us.GuardianEmail.Valid {
		std.GuardianEmail = us.GuardianEmail
	}
	if us.GuardianPhone.Valid {
		std.GuardianPhone = us.GuardianPhone
	}
	if !us.EnrollmentDate.IsZero() {
		std.EnrollmentDate = us.EnrollmentDate
	}
	if us.IsActive != nil {
		std.IsActive = *us.IsActive
	}

	switch {
	case us.ClearPlan:
		std.MembershipPlanID = null.String{}
	case us.MembershipPlanID.Valid:
		std.MembershipPlanID = us.MembershipPlanID
	}
	switch {
	case us.ClearDiscount:
		std.DiscountRate = decimal.NullDecimal{}
	case us.DiscountRate.Valid:
		std.DiscountRate = us.DiscountRate
	}

	// a stored amount is only an override when no plan derived it
	var override decimal.NullDecimal
	if !orig.MembershipPlanID.Valid && !us.ClearMonthlyDueAmount {
		override = orig.MonthlyDueAmount
	}
	if us.MonthlyDueAmount.Valid {
		override = us.MonthlyDueAmount
	}
	if err := svc.resolveDueAmount(ctx, &std, override); err != nil {
		return Student{}, err
	}
	std.UpdatedAt = time.Now().UTC()

	std, err := svc.repo.UpdateStudent(ctx, std)
	return std, errors.Wrap(err, "updating student")
}

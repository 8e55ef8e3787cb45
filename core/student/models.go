package student

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core"
)

type Student struct {
	ID               string              `json:"id" db:"id"`
	StudentCode      string              `json:"studentCode" db:"student_code"`
	FirstName        string              `json:"firstName" db:"first_name"`
	LastName         string              `json:"lastName" db:"last_name"`
	GuardianName     null.String         `json:"guardianName" db:"guardian_name"`
	GuardianEmail    null.String         `json:"guardianEmail" db:"guardian_email"`
	GuardianPhone    null.String         `json:"guardianPhone" db:"guardian_phone"`
	MembershipPlanID null.String         `json:"membershipPlanId" db:"membership_plan_id"`
	MonthlyDueAmount decimal.NullDecimal `json:"monthlyDueAmount" db:"monthly_due_amount"`
	DiscountRate     decimal.NullDecimal `json:"discountRate" db:"discount_rate"`
	SchoolYearID     string              `json:"schoolYearId" db:"school_year_id"`
	EnrollmentDate   core.Date           `json:"enrollmentDate" db:"enrollment_date"`
	IsActive         bool                `json:"isActive" db:"is_active"`
	CreatedAt        time.Time           `json:"createdAt" db:"created_at"` // UTC
	UpdatedAt        time.Time           `json:"updatedAt" db:"updated_at"` // UTC
}

func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// NewStudent contains information needed to create a new Student.
// MonthlyDueAmount is only kept for students without a membership plan.
type NewStudent struct {
	StudentCode      string              `json:"studentCode" validate:"required,max=30,code"`
	FirstName        string              `json:"firstName" validate:"required,max=100"`
	LastName         string              `json:"lastName" validate:"required,max=100"`
	GuardianName     null.String         `json:"guardianName" validate:"omitempty,max=200"`
	GuardianEmail    null.String         `json:"guardianEmail" validate:"omitempty,email"`
	GuardianPhone    null.String         `json:"guardianPhone" validate:"omitempty,max=30"`
	MembershipPlanID null.String         `json:"membershipPlanId"`
	MonthlyDueAmount decimal.NullDecimal `json:"monthlyDueAmount" validate:"omitempty,gte=0"`
	DiscountRate     decimal.NullDecimal `json:"discountRate" validate:"omitempty,gte=0,lte=100"`
	SchoolYearID     string              `json:"schoolYearId" validate:"required"`
	EnrollmentDate   core.Date           `json:"enrollmentDate" validate:"required"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.StudentCode = strings.ToUpper(core.CleanString(ns.StudentCode))
	ns.FirstName = core.CleanString(ns.FirstName)
	ns.LastName = core.CleanString(ns.LastName)
	ns.GuardianName = cleanNullString(ns.GuardianName)
	ns.GuardianEmail = cleanNullString(ns.GuardianEmail, true /* lower */)
	ns.GuardianPhone = cleanNullString(ns.GuardianPhone)
	ns.MembershipPlanID = cleanNullString(ns.MembershipPlanID)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Nullable fields are only changed when present in the payload.
type UpdateStudent struct {
	StudentCode      string              `json:"studentCode" validate:"omitempty,max=30,code"`
	FirstName        string              `json:"firstName" validate:"omitempty,max=100"`
	LastName         string              `json:"lastName" validate:"omitempty,max=100"`
	GuardianName     null.String         `json:"guardianName" validate:"omitempty,max=200"`
	GuardianEmail    null.String         `json:"guardianEmail" validate:"omitempty,email"`
	GuardianPhone    null.String         `json:"guardianPhone" validate:"omitempty,max=30"`
	MembershipPlanID null.String         `json:"membershipPlanId"`
	MonthlyDueAmount decimal.NullDecimal `json:"monthlyDueAmount" validate:"omitempty,gte=0"`
	DiscountRate     decimal.NullDecimal `json:"discountRate" validate:"omitempty,gte=0,lte=100"`
	SchoolYearID     string              `json:"schoolYearId"`
	EnrollmentDate   core.Date           `json:"enrollmentDate"`
	IsActive         *bool               `json:"isActive"`
	// ClearPlan detaches the student from their membership plan.
	ClearPlan bool `json:"clearPlan"`
	// ClearDiscount removes the student's discount.
	ClearDiscount bool `json:"clearDiscount"`
	// ClearMonthlyDueAmount removes the amount set on a student without a plan.
	ClearMonthlyDueAmount bool `json:"clearMonthlyDueAmount"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.StudentCode = strings.ToUpper(core.CleanString(us.StudentCode))
	us.FirstName = core.CleanString(us.FirstName)
	us.LastName = core.CleanString(us.LastName)
	us.GuardianName = cleanNullString(us.GuardianName)
	us.GuardianEmail = cleanNullString(us.GuardianEmail, true /* lower */)
	us.GuardianPhone = cleanNullString(us.GuardianPhone)
	us.MembershipPlanID = cleanNullString(us.MembershipPlanID)
	return validate.Struct(us)
}

type QueryFilter struct {
	// Search does a case-insensitive match on one of StudentCode, FirstName or LastName.
	Search           string
	MembershipPlanID string
	SchoolYearID     string
	IsActive         *bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.MembershipPlanID = core.CleanString(qf.MembershipPlanID)
	qf.SchoolYearID = core.CleanString(qf.SchoolYearID)
}

func cleanNullString(s null.String, lower ...bool) null.String {
	if !s.Valid {
		return s
	}
	cleaned := core.CleanString(s.String, lower...)
	return null.NewString(cleaned, cleaned != "")
}

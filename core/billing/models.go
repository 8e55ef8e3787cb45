package billing

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core"
)

// Status is the lifecycle state of a Payment.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
)

var Statuses = []Status{StatusPending, StatusPaid, StatusOverdue, StatusCancelled}

type PaymentType string

const (
	PaymentMonthly      PaymentType = "MONTHLY"
	PaymentRegistration PaymentType = "REGISTRATION"
	PaymentMaterials    PaymentType = "MATERIALS"
	PaymentOther        PaymentType = "OTHER"
)

// Method is how a payment was received.
type Method string

const (
	MethodCash         Method = "CASH"
	MethodCard         Method = "CARD"
	MethodBankTransfer Method = "BANK_TRANSFER"
	MethodMobileMoney  Method = "MOBILE_MONEY"
	MethodCheck        Method = "CHECK"
	MethodOther        Method = "OTHER"
)

type ExpenseType string

const (
	ExpenseService        ExpenseType = "SERVICE"
	ExpenseMaterials      ExpenseType = "MATERIALS"
	ExpenseDailyEmployees ExpenseType = "DAILY_EMPLOYEES"
)

var ExpenseTypes = []ExpenseType{ExpenseService, ExpenseMaterials, ExpenseDailyEmployees}

// Payment is one billing-period obligation of a student.
// DisplayStatus is derived at read time and never stored.
type Payment struct {
	ID            string          `json:"id" db:"id"`
	StudentID     string          `json:"studentId" db:"student_id"`
	SchoolYearID  string          `json:"schoolYearId" db:"school_year_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	DueDate       core.Date       `json:"dueDate" db:"due_date"`
	PaidDate      null.Time       `json:"paidDate" db:"paid_date"`
	Status        Status          `json:"status" db:"status"`
	DisplayStatus Status          `json:"displayStatus" db:"-"`
	PaymentType   PaymentType     `json:"paymentType" db:"payment_type"`
	Method        null.String     `json:"method" db:"method"`
	Reference     null.String     `json:"reference" db:"reference"`
	Notes         null.String     `json:"notes" db:"notes"`
	CreatedAt     time.Time       `json:"createdAt" db:"created_at"` // UTC
	UpdatedAt     time.Time       `json:"updatedAt" db:"updated_at"` // UTC
}

// PaymentDetail is a Payment joined with the student it belongs to.
type PaymentDetail struct {
	Payment
	StudentCode   string      `json:"studentCode" db:"student_code"`
	StudentName   string      `json:"studentName" db:"student_name"`
	GuardianName  null.String `json:"guardianName" db:"guardian_name"`
	GuardianEmail null.String `json:"guardianEmail" db:"guardian_email"`
}

// NewPayment contains information needed to record a payment manually.
type NewPayment struct {
	StudentID    string              `json:"studentId" validate:"required"`
	SchoolYearID string              `json:"schoolYearId"`
	Amount       decimal.NullDecimal `json:"amount" validate:"omitempty,gte=0"`
	DueDate      core.Date           `json:"dueDate" validate:"required"`
	PaymentType  PaymentType         `json:"paymentType" validate:"required,oneof=MONTHLY REGISTRATION MATERIALS OTHER"`
	Notes        null.String         `json:"notes" validate:"omitempty,max=500"`
}

func (np *NewPayment) Validate(validate *validator.Validate) error {
	np.StudentID = core.CleanString(np.StudentID)
	np.SchoolYearID = core.CleanString(np.SchoolYearID)
	if np.PaymentType == "" {
		np.PaymentType = PaymentMonthly
	}
	if err := validate.Struct(np); err != nil {
		return err
	}
	if np.PaymentType != PaymentMonthly && !np.Amount.Valid {
		return core.NewValidationError(nil, core.FieldError{Field: "amount", Error: "amount is required for non-monthly payments"})
	}
	return nil
}

// PayRequest records how a payment was received.
type PayRequest struct {
	Method    Method      `json:"method" validate:"required,oneof=CASH CARD BANK_TRANSFER MOBILE_MONEY CHECK OTHER"`
	Reference null.String `json:"reference" validate:"omitempty,max=100"`
	// PaidDate defaults to now.
	PaidDate null.Time `json:"paidDate"`
}

func (pr *PayRequest) Validate(validate *validator.Validate) error {
	if pr.Reference.Valid {
		ref := core.CleanString(pr.Reference.String)
		pr.Reference = null.NewString(ref, ref != "")
	}
	return validate.Struct(pr)
}

// GenerateRequest selects the student and the months to generate monthly payments for.
// Either Month or both FromMonth and ToMonth must be given.
type GenerateRequest struct {
	StudentID    string     `json:"studentId" validate:"required"`
	SchoolYearID string     `json:"schoolYearId"`
	Month        core.Month `json:"month"`
	FromMonth    core.Month `json:"fromMonth"`
	ToMonth      core.Month `json:"toMonth"`
}

func (gr *GenerateRequest) Validate(validate *validator.Validate) error {
	gr.StudentID = core.CleanString(gr.StudentID)
	gr.SchoolYearID = core.CleanString(gr.SchoolYearID)
	if err := validate.Struct(gr); err != nil {
		return err
	}
	if !gr.Month.IsZero() {
		gr.FromMonth, gr.ToMonth = gr.Month, gr.Month
	}
	switch {
	case gr.FromMonth.IsZero() && gr.ToMonth.IsZero():
		return core.NewValidationError(nil, core.FieldError{Field: "month", Error: "this field is required"})
	case gr.FromMonth.IsZero():
		return core.NewValidationError(nil, core.FieldError{Field: "fromMonth", Error: "this field is required"})
	case gr.ToMonth.IsZero():
		return core.NewValidationError(nil, core.FieldError{Field: "toMonth", Error: "this field is required"})
	case gr.ToMonth.Before(gr.FromMonth):
		return core.NewValidationError(nil, core.FieldError{Field: "toMonth", Error: "end month cannot be before start month"})
	}
	return nil
}

// GenerateBatchRequest triggers monthly payment generation for every active student of a school year.
type GenerateBatchRequest struct {
	Month        core.Month `json:"month" validate:"required"`
	SchoolYearID string     `json:"schoolYearId"`
}

func (gr *GenerateBatchRequest) Validate(validate *validator.Validate) error {
	gr.SchoolYearID = core.CleanString(gr.SchoolYearID)
	return validate.Struct(gr)
}

type PaymentFilter struct {
	StudentID    string
	SchoolYearID string
	// Status matches the display status, so OVERDUE includes past-due pending payments.
	Status      Status
	PaymentType PaymentType
	DueFrom     core.Date
	DueTo       core.Date
	// Today is the day display statuses are derived for. Set by the Service.
	Today core.Date
}

func (pf *PaymentFilter) Clean() {
	pf.StudentID = core.CleanString(pf.StudentID)
	pf.SchoolYearID = core.CleanString(pf.SchoolYearID)
}

// Expense is a manually entered ledger entry.
type Expense struct {
	ID          string          `json:"id" db:"id"`
	Type        ExpenseType     `json:"type" db:"type"`
	Description string          `json:"description" db:"description"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Date        core.Date       `json:"date" db:"date"`
	Category    null.String     `json:"category" db:"category"`
	Vendor      null.String     `json:"vendor" db:"vendor"`
	CreatedBy   string          `json:"createdBy" db:"created_by"`
	CreatedAt   time.Time       `json:"createdAt" db:"created_at"` // UTC
}

// NewExpense contains information needed to record a new Expense.
type NewExpense struct {
	Type        ExpenseType     `json:"type" validate:"required,oneof=SERVICE MATERIALS DAILY_EMPLOYEES"`
	Description string          `json:"description" validate:"required,max=500"`
	Amount      decimal.Decimal `json:"amount" validate:"gt=0"`
	Date        core.Date       `json:"date" validate:"required"`
	Category    null.String     `json:"category" validate:"omitempty,max=50"`
	Vendor      null.String     `json:"vendor" validate:"omitempty,max=100"`
}

func (ne *NewExpense) Validate(validate *validator.Validate) error {
	ne.Description = core.CleanString(ne.Description)
	return validate.Struct(ne)
}

type ExpenseFilter struct {
	Type     ExpenseType
	Category string
	From     core.Date
	To       core.Date
}

func (ef *ExpenseFilter) Clean() {
	ef.Category = core.CleanString(ef.Category)
}

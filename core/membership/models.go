package membership

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/trezcool/kelasi/core"
)

// Plan is a priced template (days per week, monthly price) students subscribe to.
type Plan struct {
	ID           string          `json:"id" db:"id"`
	Name         string          `json:"name" db:"name"`
	DaysPerWeek  int             `json:"daysPerWeek" db:"days_per_week"`
	MonthlyPrice decimal.Decimal `json:"monthlyPrice" db:"monthly_price"`
	IsActive     bool            `json:"isActive" db:"is_active"`
	CreatedAt    time.Time       `json:"createdAt" db:"created_at"` // UTC
	UpdatedAt    time.Time       `json:"updatedAt" db:"updated_at"` // UTC
}

// NewPlan contains information needed to create a new Plan.
type NewPlan struct {
	Name         string          `json:"name" validate:"required,max=100"`
	DaysPerWeek  int             `json:"daysPerWeek" validate:"required,min=1,max=7"`
	MonthlyPrice decimal.Decimal `json:"monthlyPrice" validate:"gte=0"`
}

func (np *NewPlan) Validate(validate *validator.Validate) error {
	np.Name = core.CleanString(np.Name)
	return validate.Struct(np)
}

// UpdatePlan defines what information may be provided to modify an existing Plan.
type UpdatePlan struct {
	Name         string              `json:"name" validate:"omitempty,max=100"`
	DaysPerWeek  int                 `json:"daysPerWeek" validate:"omitempty,min=1,max=7"`
	MonthlyPrice decimal.NullDecimal `json:"monthlyPrice" validate:"omitempty,gte=0"`
	IsActive     *bool               `json:"isActive"`
}

func (up *UpdatePlan) Validate(validate *validator.Validate) error {
	up.Name = core.CleanString(up.Name)
	return validate.Struct(up)
}

type QueryFilter struct {
	Search   string
	IsActive *bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

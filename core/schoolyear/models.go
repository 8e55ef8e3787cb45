package schoolyear

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/kelasi/core"
)

// SchoolYear defines the date window payments and enrollments are scoped to.
type SchoolYear struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	StartDate core.Date `json:"startDate" db:"start_date"`
	EndDate   core.Date `json:"endDate" db:"end_date"`
	IsActive  bool      `json:"isActive" db:"is_active"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"` // UTC
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"` // UTC
}

// Contains reports whether `d` falls within the school year, bounds included.
func (sy SchoolYear) Contains(d core.Date) bool {
	return !d.Before(sy.StartDate) && !d.After(sy.EndDate)
}

// Clamp moves `d` into the school year when it falls before its start or after its end.
func (sy SchoolYear) Clamp(d core.Date) core.Date {
	switch {
	case d.Before(sy.StartDate):
		return sy.StartDate
	case d.After(sy.EndDate):
		return sy.EndDate
	}
	return d
}

// Covers reports whether every month of [from, to] shares at least one day with the school year.
func (sy SchoolYear) Covers(from, to core.Month) bool {
	if to.Before(from) {
		return false
	}
	return !from.Last().Before(sy.StartDate) && !to.First().After(sy.EndDate)
}

// NewSchoolYear contains information needed to create a new SchoolYear.
type NewSchoolYear struct {
	Name      string    `json:"name" validate:"required,max=50"`
	StartDate core.Date `json:"startDate" validate:"required"`
	EndDate   core.Date `json:"endDate" validate:"required"`
}

func (ns *NewSchoolYear) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	if err := validate.Struct(ns); err != nil {
		return err
	}
	return checkDates(ns.StartDate, ns.EndDate)
}

// UpdateSchoolYear defines what information may be provided to modify an existing SchoolYear.
type UpdateSchoolYear struct {
	Name      string    `json:"name" validate:"omitempty,max=50"`
	StartDate core.Date `json:"startDate"`
	EndDate   core.Date `json:"endDate"`
	IsActive  *bool     `json:"isActive"`
}

func (us *UpdateSchoolYear) Validate(orig SchoolYear, validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	if err := validate.Struct(us); err != nil {
		return err
	}
	start, end := orig.StartDate, orig.EndDate
	if !us.StartDate.IsZero() {
		start = us.StartDate
	}
	if !us.EndDate.IsZero() {
		end = us.EndDate
	}
	return checkDates(start, end)
}

func checkDates(start, end core.Date) error {
	if end.Before(start) {
		return core.NewValidationError(nil, core.FieldError{Field: "endDate", Error: "end date cannot be before start date"})
	}
	return nil
}

type QueryFilter struct {
	IsActive *bool
	// Covering keeps the school years overlapping this month.
	Covering core.Month
}

package billing

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/schoolyear"
	"github.com/trezcool/kelasi/core/student"
)

var schoolYear2025 = schoolyear.SchoolYear{
	ID:        "sy-2025",
	Name:      "2024-2025",
	StartDate: core.NewDate(2024, time.September, 2),
	EndDate:   core.NewDate(2025, time.June, 27),
	IsActive:  true,
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newStudent(opts ...func(*student.Student)) student.Student {
	std := student.Student{
		ID:             "std-1",
		StudentCode:    "S001",
		FirstName:      "Amani",
		LastName:       "Kabila",
		SchoolYearID:   schoolYear2025.ID,
		EnrollmentDate: schoolYear2025.StartDate,
		IsActive:       true,
	}
	for _, opt := range opts {
		opt(&std)
	}
	return std
}

func monthlyDue(amount string) func(*student.Student) {
	return func(std *student.Student) { std.MonthlyDueAmount = decimal.NewNullDecimal(dec(amount)) }
}

func TestPlanMissingPayments_ThreeMonths(t *testing.T) {
	missing, err := PlanMissingPayments(GenerateParams{
		Student:    newStudent(monthlyDue("150")),
		SchoolYear: schoolYear2025,
		From:       core.NewMonth(2025, time.January),
		To:         core.NewMonth(2025, time.March),
		DueDay:     8,
	})
	require.NoError(t, err)
	require.Len(t, missing, 3)

	wantDue := []core.Date{
		core.NewDate(2025, time.January, 8),
		core.NewDate(2025, time.February, 8),
		core.NewDate(2025, time.March, 8),
	}
	for i, pmt := range missing {
		assert.Equal(t, StatusPending, pmt.Status)
		assert.Equal(t, PaymentMonthly, pmt.PaymentType)
		assert.True(t, dec("150.00").Equal(pmt.Amount), "amount: %s", pmt.Amount)
		assert.Equal(t, wantDue[i], pmt.DueDate)
		assert.Equal(t, "std-1", pmt.StudentID)
		assert.Equal(t, schoolYear2025.ID, pmt.SchoolYearID)
		assert.False(t, pmt.PaidDate.Valid)
	}
}

func TestPlanMissingPayments_SkipsBilledMonths(t *testing.T) {
	std := newStudent(monthlyDue("150"))
	existing := []Payment{
		// any status counts, whatever the day of month
		{StudentID: std.ID, PaymentType: PaymentMonthly, Status: StatusCancelled, DueDate: core.NewDate(2025, time.February, 15)},
		// other types and other students do not
		{StudentID: std.ID, PaymentType: PaymentMaterials, Status: StatusPending, DueDate: core.NewDate(2025, time.January, 8)},
		{StudentID: "std-2", PaymentType: PaymentMonthly, Status: StatusPaid, DueDate: core.NewDate(2025, time.March, 8)},
	}

	missing, err := PlanMissingPayments(GenerateParams{
		Student:    std,
		SchoolYear: schoolYear2025,
		From:       core.NewMonth(2025, time.January),
		To:         core.NewMonth(2025, time.March),
		DueDay:     8,
		Existing:   existing,
	})
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, core.NewDate(2025, time.January, 8), missing[0].DueDate)
	assert.Equal(t, core.NewDate(2025, time.March, 8), missing[1].DueDate)

	// planning again with everything billed yields nothing
	again, err := PlanMissingPayments(GenerateParams{
		Student:    std,
		SchoolYear: schoolYear2025,
		From:       core.NewMonth(2025, time.January),
		To:         core.NewMonth(2025, time.March),
		DueDay:     8,
		Existing:   append(existing, missing...),
	})
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestPlanMissingPayments_DueDayClampedToMonthEnd(t *testing.T) {
	missing, err := PlanMissingPayments(GenerateParams{
		Student:    newStudent(monthlyDue("100")),
		SchoolYear: schoolYear2025,
		From:       core.NewMonth(2025, time.January),
		To:         core.NewMonth(2025, time.February),
		DueDay:     31,
	})
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, core.NewDate(2025, time.January, 31), missing[0].DueDate)
	assert.Equal(t, core.NewDate(2025, time.February, 28), missing[1].DueDate)
}

func TestPlanMissingPayments_DueDateStaysInSchoolYear(t *testing.T) {
	tests := []struct {
		name      string
		dueDay    int
		wantFirst core.Date
		wantLast  core.Date
	}{
		{"after end", 28, core.NewDate(2024, time.September, 28), core.NewDate(2025, time.June, 27)},
		{"before start", 1, core.NewDate(2024, time.September, 2), core.NewDate(2025, time.June, 1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing, err := PlanMissingPayments(GenerateParams{
				Student:    newStudent(monthlyDue("100")),
				SchoolYear: schoolYear2025,
				From:       core.NewMonth(2024, time.September),
				To:         core.NewMonth(2025, time.June),
				DueDay:     tt.dueDay,
			})
			require.NoError(t, err)
			require.Len(t, missing, 10)
			assert.Equal(t, tt.wantFirst, missing[0].DueDate)
			assert.Equal(t, tt.wantLast, missing[9].DueDate)
			for _, pmt := range missing {
				assert.True(t, schoolYear2025.Contains(pmt.DueDate), "due %s outside school year", pmt.DueDate)
			}
		})
	}
}

func TestPlanMissingPayments_SkipsMonthsBeforeEnrollment(t *testing.T) {
	std := newStudent(monthlyDue("100"), func(s *student.Student) {
		s.EnrollmentDate = core.NewDate(2025, time.February, 20)
	})
	missing, err := PlanMissingPayments(GenerateParams{
		Student:    std,
		SchoolYear: schoolYear2025,
		From:       core.NewMonth(2025, time.January),
		To:         core.NewMonth(2025, time.March),
		DueDay:     8,
	})
	require.NoError(t, err)
	require.Len(t, missing, 2)
	assert.Equal(t, core.NewDate(2025, time.February, 8), missing[0].DueDate)
}

func TestPlanMissingPayments_Errors(t *testing.T) {
	plan := &membership.Plan{ID: "plan-1", MonthlyPrice: dec("160")}
	jan, mar := core.NewMonth(2025, time.January), core.NewMonth(2025, time.March)

	tests := []struct {
		name    string
		params  GenerateParams
		checkFn func(t *testing.T, err error)
	}{
		{
			name:   "no plan and no amount",
			params: GenerateParams{Student: newStudent(), SchoolYear: schoolYear2025, From: jan, To: mar, DueDay: 8},
			checkFn: func(t *testing.T, err error) {
				var cfgErr *ConfigurationError
				require.True(t, errors.As(err, &cfgErr), "got %v", err)
				assert.Equal(t, "std-1", cfgErr.StudentID)
			},
		},
		{
			name: "outside school year",
			params: GenerateParams{
				Student: newStudent(monthlyDue("150")), SchoolYear: schoolYear2025,
				From: core.NewMonth(2025, time.June), To: core.NewMonth(2025, time.July), DueDay: 8,
			},
			checkFn: func(t *testing.T, err error) {
				var rngErr *RangeError
				require.True(t, errors.As(err, &rngErr), "got %v", err)
				assert.Equal(t, core.NewMonth(2025, time.July), rngErr.To)
			},
		},
		{
			name: "inactive student",
			params: GenerateParams{
				Student: newStudent(monthlyDue("150"), func(s *student.Student) { s.IsActive = false }),
				SchoolYear: schoolYear2025, From: jan, To: mar, DueDay: 8,
			},
			checkFn: func(t *testing.T, err error) {
				var valErr *core.ValidationError
				require.True(t, errors.As(err, &valErr), "got %v", err)
			},
		},
		{
			name: "plan with invalid discount",
			params: GenerateParams{
				Student: newStudent(func(s *student.Student) {
					s.MembershipPlanID = null.StringFrom(plan.ID)
					s.DiscountRate = decimal.NewNullDecimal(dec("120"))
				}),
				Plan: plan, SchoolYear: schoolYear2025, From: jan, To: mar, DueDay: 8,
			},
			checkFn: func(t *testing.T, err error) {
				var cfgErr *ConfigurationError
				require.True(t, errors.As(err, &cfgErr), "got %v", err)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			missing, err := PlanMissingPayments(tt.params)
			require.Error(t, err)
			assert.Nil(t, missing)
			tt.checkFn(t, err)
		})
	}
}

func TestResolveAmount(t *testing.T) {
	plan := &membership.Plan{ID: "plan-1", MonthlyPrice: dec("160")}

	tests := []struct {
		name string
		std  student.Student
		plan *membership.Plan
		want string
	}{
		{name: "stored amount wins", std: newStudent(monthlyDue("99.5")), plan: plan, want: "99.50"},
		{
			name: "plan price minus discount",
			std:  newStudent(func(s *student.Student) { s.DiscountRate = decimal.NewNullDecimal(dec("25")) }),
			plan: plan,
			want: "120.00",
		},
		{name: "plan price without discount", std: newStudent(), plan: plan, want: "160"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAmount(tt.std, tt.plan)
			require.NoError(t, err)
			assert.True(t, dec(tt.want).Equal(got), "got %s, want %s", got, tt.want)
		})
	}
}

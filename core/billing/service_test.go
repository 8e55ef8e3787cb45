package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/schoolyear"
	"github.com/trezcool/kelasi/core/student"
	inmemdb "github.com/trezcool/kelasi/storage/database/inmem"
	testutil "github.com/trezcool/kelasi/tests"
)

type fixture struct {
	db       *inmemdb.DB
	svc      *billing.Service
	students student.Repository
	plans    membership.Repository
	years    schoolyear.Repository
	payments billing.PaymentRepository
	expenses billing.ExpenseRepository
	sy       schoolyear.SchoolYear
}

// now is mid-March 2025 for every fixture.
var now = time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) *fixture {
	db := inmemdb.Open()
	f := &fixture{
		db:       db,
		students: inmemdb.NewStudentRepository(db),
		plans:    inmemdb.NewPlanRepository(db),
		years:    inmemdb.NewSchoolYearRepository(db),
		payments: inmemdb.NewPaymentRepository(db),
		expenses: inmemdb.NewExpenseRepository(db),
	}
	planSvc := membership.NewService(f.plans)
	yearSvc := schoolyear.NewService(f.years)
	studentSvc := student.NewService(f.students, f.plans, f.years)
	f.svc = billing.NewService(f.payments, f.expenses, studentSvc, planSvc, yearSvc, billing.Options{
		DueDay:   8,
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})
	f.sy = testutil.CreateSchoolYear(t, f.years, "2024-2025", "2024-09-02", "2025-06-27")
	return f
}

func TestService_GenerateMissingPayments(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	std := testutil.CreateStudent(t, f.students, "S001", "Amani", "Kabila", f.sy, testutil.WithMonthlyDue("150"))

	req := billing.GenerateRequest{
		StudentID: std.ID,
		FromMonth: testutil.Month(t, "2025-01"),
		ToMonth:   testutil.Month(t, "2025-03"),
	}
	created, err := f.svc.GenerateMissingPayments(ctx, req)
	require.NoError(t, err)
	require.Len(t, created, 3)
	for _, pmt := range created {
		assert.NotEmpty(t, pmt.ID)
		assert.Equal(t, billing.StatusPending, pmt.Status)
		assert.True(t, testutil.Dec("150").Equal(pmt.Amount))
		assert.Equal(t, 8, pmt.DueDate.Day())
	}
	// January and February are past due on March 15
	assert.Equal(t, billing.StatusOverdue, created[0].DisplayStatus)
	assert.Equal(t, billing.StatusOverdue, created[1].DisplayStatus)
	assert.Equal(t, billing.StatusOverdue, created[2].DisplayStatus)

	t.Run("idempotent", func(t *testing.T) {
		again, err := f.svc.GenerateMissingPayments(ctx, req)
		require.NoError(t, err)
		assert.Empty(t, again)

		all, err := f.svc.QueryPayments(ctx, &billing.PaymentFilter{StudentID: std.ID}, nil)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})

	t.Run("extends range", func(t *testing.T) {
		more, err := f.svc.GenerateMissingPayments(ctx, billing.GenerateRequest{
			StudentID: std.ID,
			FromMonth: testutil.Month(t, "2025-03"),
			ToMonth:   testutil.Month(t, "2025-04"),
		})
		require.NoError(t, err)
		require.Len(t, more, 1)
		assert.Equal(t, testutil.Date(t, "2025-04-08"), more[0].DueDate)
		assert.Equal(t, billing.StatusPending, more[0].DisplayStatus)
	})
}

func TestService_GenerateMissingPayments_Errors(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	noAmount := testutil.CreateStudent(t, f.students, "S002", "Neema", "Mwamba", f.sy)
	std := testutil.CreateStudent(t, f.students, "S003", "Baraka", "Ilunga", f.sy, testutil.WithMonthlyDue("100"))

	tests := []struct {
		name    string
		req     billing.GenerateRequest
		checkFn func(err error) bool
	}{
		{
			name: "configuration error",
			req:  billing.GenerateRequest{StudentID: noAmount.ID, Month: testutil.Month(t, "2025-02")},
			checkFn: func(err error) bool {
				_, ok := errors.Cause(err).(*billing.ConfigurationError)
				return ok
			},
		},
		{
			name: "range error",
			req:  billing.GenerateRequest{StudentID: std.ID, Month: testutil.Month(t, "2025-08")},
			checkFn: func(err error) bool {
				_, ok := errors.Cause(err).(*billing.RangeError)
				return ok
			},
		},
		{
			name:    "unknown student",
			req:     billing.GenerateRequest{StudentID: "nope", Month: testutil.Month(t, "2025-02")},
			checkFn: core.IsNotFound,
		},
		{
			name:    "unknown school year",
			req:     billing.GenerateRequest{StudentID: std.ID, SchoolYearID: "nope", Month: testutil.Month(t, "2025-02")},
			checkFn: core.IsNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.GenerateMissingPayments(ctx, tt.req)
			require.Error(t, err)
			assert.True(t, tt.checkFn(err), "unexpected error: %v", err)
		})
	}
}

func TestService_GenerateMissingPayments_PlanCleared(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	studentSvc := student.NewService(f.students, f.plans, f.years)
	plan := testutil.CreatePlan(t, f.plans, "3 days", 3, "160")

	std, err := studentSvc.Create(ctx, student.NewStudent{
		StudentCode:      "S004",
		FirstName:        "Amani",
		LastName:         "Kabila",
		MembershipPlanID: null.StringFrom(plan.ID),
		SchoolYearID:     f.sy.ID,
		EnrollmentDate:   f.sy.StartDate,
	})
	require.NoError(t, err)
	require.Equal(t, "160.00", std.MonthlyDueAmount.Decimal.StringFixed(2))

	std, err = studentSvc.Update(ctx, std, student.UpdateStudent{ClearPlan: true})
	require.NoError(t, err)
	assert.False(t, std.MembershipPlanID.Valid)
	assert.False(t, std.MonthlyDueAmount.Valid, "plan price must not survive the plan")

	_, err = f.svc.GenerateMissingPayments(ctx, billing.GenerateRequest{StudentID: std.ID, Month: testutil.Month(t, "2025-02")})
	var cfgErr *billing.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr), "unexpected error: %v", err)
}

func TestService_GenerateForActiveStudents(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	plan := testutil.CreatePlan(t, f.plans, "3 days", 3, "160")
	s1 := testutil.CreateStudent(t, f.students, "S001", "Amani", "Kabila", f.sy, testutil.WithMonthlyDue("150"))
	s2 := testutil.CreateStudent(t, f.students, "S002", "Neema", "Mwamba", f.sy, testutil.WithPlan(plan), testutil.WithDiscount("25"))
	broken := testutil.CreateStudent(t, f.students, "S003", "Baraka", "Ilunga", f.sy)
	testutil.CreateStudent(t, f.students, "S004", "Furaha", "Tshala", f.sy, testutil.WithMonthlyDue("90"), testutil.Inactive())

	month := testutil.Month(t, "2025-03")
	res, err := f.svc.GenerateForActiveStudents(ctx, month, "")
	require.NoError(t, err)
	assert.Equal(t, f.sy.ID, res.SchoolYearID)
	assert.Equal(t, 3, res.Students)
	require.Len(t, res.Created, 2)
	require.Len(t, res.Failures, 1)
	assert.Equal(t, broken.ID, res.Failures[0].StudentID)
	assert.Equal(t, "S003", res.Failures[0].StudentCode)

	amounts := map[string]string{}
	for _, pmt := range res.Created {
		amounts[pmt.StudentID] = pmt.Amount.StringFixed(2)
	}
	assert.Equal(t, map[string]string{s1.ID: "150.00", s2.ID: "120.00"}, amounts)

	again, err := f.svc.GenerateForActiveStudents(ctx, month, "")
	require.NoError(t, err)
	assert.Empty(t, again.Created)

	_, err = f.svc.GenerateForActiveStudents(ctx, testutil.Month(t, "2025-08"), "")
	assert.True(t, core.IsNotFound(err), "no school year covers August: %v", err)

	_, err = f.svc.GenerateForActiveStudents(ctx, testutil.Month(t, "2025-08"), f.sy.ID)
	_, isRange := errors.Cause(err).(*billing.RangeError)
	assert.True(t, isRange, "got %v", err)
}

func TestService_CreatePayment(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	std := testutil.CreateStudent(t, f.students, "S001", "Amani", "Kabila", f.sy, testutil.WithMonthlyDue("150"))

	pmt, err := f.svc.CreatePayment(ctx, billing.NewPayment{
		StudentID:   std.ID,
		DueDate:     testutil.Date(t, "2025-04-20"),
		PaymentType: billing.PaymentMonthly,
	})
	require.NoError(t, err)
	assert.Equal(t, testutil.Date(t, "2025-04-08"), pmt.DueDate, "monthly payments fall due on the due day")
	assert.True(t, testutil.Dec("150").Equal(pmt.Amount))
	assert.Equal(t, f.sy.ID, pmt.SchoolYearID)

	_, err = f.svc.CreatePayment(ctx, billing.NewPayment{
		StudentID:   std.ID,
		DueDate:     testutil.Date(t, "2025-04-01"),
		PaymentType: billing.PaymentMonthly,
	})
	assert.Equal(t, billing.ErrDuplicatePayment, errors.Cause(err))

	reg, err := f.svc.CreatePayment(ctx, billing.NewPayment{
		StudentID:   std.ID,
		Amount:      testutil.NullDec("35.5"),
		DueDate:     testutil.Date(t, "2025-04-01"),
		PaymentType: billing.PaymentRegistration,
		Notes:       null.StringFrom("registration fee"),
	})
	require.NoError(t, err)
	assert.Equal(t, testutil.Date(t, "2025-04-01"), reg.DueDate)
	assert.Equal(t, "35.50", reg.Amount.StringFixed(2))
}

func TestService_PaymentLifecycle(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	std := testutil.CreateStudent(t, f.students, "S001", "Amani", "Kabila", f.sy)
	pmt := testutil.CreatePayment(t, f.payments, std, "150", testutil.Date(t, "2025-03-08"), billing.StatusPending)

	got, err := f.svc.GetPayment(ctx, pmt.ID)
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, got.Status)
	assert.Equal(t, billing.StatusOverdue, got.DisplayStatus)

	paid, err := f.svc.MarkPaid(ctx, pmt.ID, billing.PayRequest{Method: billing.MethodCash, Reference: null.StringFrom("R-1")})
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, paid.Status)
	assert.Equal(t, billing.StatusPaid, paid.DisplayStatus)
	assert.True(t, now.Equal(paid.PaidDate.Time))

	_, err = f.svc.Cancel(ctx, pmt.ID)
	assert.True(t, billing.IsDomainError(err), "got %v", err)

	_, err = f.svc.MarkPaid(ctx, "nope", billing.PayRequest{Method: billing.MethodCash})
	assert.True(t, core.IsNotFound(err))
}

func TestService_QueryPaymentsByDisplayStatus(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	std := testutil.CreateStudent(t, f.students, "S001", "Amani", "Kabila", f.sy, testutil.WithGuardian("Mama Amani", "mama@example.com"))
	overdue := testutil.CreatePayment(t, f.payments, std, "150", testutil.Date(t, "2025-02-08"), billing.StatusPending)
	pending := testutil.CreatePayment(t, f.payments, std, "150", testutil.Date(t, "2025-04-08"), billing.StatusPending)
	testutil.CreatePayment(t, f.payments, std, "150", testutil.Date(t, "2025-01-08"), billing.StatusPaid)

	got, err := f.svc.QueryPayments(ctx, &billing.PaymentFilter{Status: billing.StatusOverdue}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.ID, got[0].ID)

	got, err = f.svc.QueryPayments(ctx, &billing.PaymentFilter{Status: billing.StatusPending}, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)

	details, err := f.svc.OverduePayments(ctx)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, "S001", details[0].StudentCode)
	assert.Equal(t, "Amani Kabila", details[0].StudentName)
	assert.Equal(t, "mama@example.com", details[0].GuardianEmail.String)
	assert.Equal(t, billing.StatusOverdue, details[0].DisplayStatus)
}

func TestService_Stats(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	s1 := testutil.CreateStudent(t, f.students, "S001", "Amani", "Kabila", f.sy)
	s2 := testutil.CreateStudent(t, f.students, "S002", "Neema", "Mwamba", f.sy)
	testutil.CreateStudent(t, f.students, "S003", "Baraka", "Ilunga", f.sy, testutil.Inactive())

	testutil.CreatePayment(t, f.payments, s1, "150", testutil.Date(t, "2025-03-20"), billing.StatusPaid, now)
	testutil.CreatePayment(t, f.payments, s2, "150", testutil.Date(t, "2025-03-20"), billing.StatusPending)
	testutil.CreateExpense(t, f.expenses, billing.ExpenseService, "30", testutil.Date(t, "2025-03-02"))

	stats, err := f.svc.Stats(ctx, billing.MonthPeriod(testutil.Month(t, "2025-03")))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalStudents)
	assert.Equal(t, 1, stats.PayingStudents)
	assert.Equal(t, "50", stats.CollectionRate.String())
	assert.Equal(t, "150", stats.TotalRevenue.String())
	assert.Equal(t, "150", stats.MonthlyRevenue.String())
	assert.Equal(t, "120", stats.NetIncome.String())
}

func TestService_Expenses(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	exp, err := f.svc.CreateExpense(ctx, billing.NewExpense{
		Type:        billing.ExpenseMaterials,
		Description: "markers",
		Amount:      testutil.Dec("12.499"),
		Date:        testutil.Date(t, "2025-03-03"),
		Vendor:      null.StringFrom("Papeterie"),
	}, "Jo Accountant")
	require.NoError(t, err)
	assert.Equal(t, "12.50", exp.Amount.StringFixed(2))
	assert.Equal(t, "Jo Accountant", exp.CreatedBy)

	listed, err := f.svc.QueryExpenses(ctx, &billing.ExpenseFilter{Type: billing.ExpenseMaterials}, nil)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	require.NoError(t, f.svc.DeleteExpense(ctx, exp.ID))
	_, err = f.svc.GetExpense(ctx, exp.ID)
	assert.True(t, core.IsNotFound(err))
	assert.True(t, core.IsNotFound(f.svc.DeleteExpense(ctx, exp.ID)))
}

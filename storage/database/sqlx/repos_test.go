package sqlxrepos_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/student"
	sqlxrepos "github.com/trezcool/kelasi/storage/database/sqlx"
	testutil "github.com/trezcool/kelasi/tests"
)

func TestPlanRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewPlanRepository(db)
	ctx := context.Background()

	plan := testutil.CreatePlan(t, repo, "3 days", 3, "160")
	testutil.CreatePlan(t, repo, "5 days", 5, "240")

	got, err := repo.GetPlan(ctx, plan.ID)
	require.NoError(t, err)
	assert.Equal(t, "3 days", got.Name)
	assert.True(t, testutil.Dec("160").Equal(got.MonthlyPrice))

	_, err = repo.GetPlan(ctx, "nope")
	assert.Equal(t, membership.ErrNotFound, err)

	got.IsActive = false
	_, err = repo.UpdatePlan(ctx, got)
	require.NoError(t, err)

	active := true
	plans, err := repo.QueryPlans(ctx, &membership.QueryFilter{IsActive: &active}, nil)
	require.NoError(t, err)
	require.Len(t, plans, 1)
	assert.Equal(t, "5 days", plans[0].Name)

	plans, err = repo.QueryPlans(ctx, &membership.QueryFilter{Search: "DAYS"}, []core.DBOrdering{{Field: "monthly_price"}})
	require.NoError(t, err)
	require.Len(t, plans, 2)
	assert.Equal(t, "3 days", plans[0].Name)
}

func TestStudentRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewStudentRepository(db)
	years := sqlxrepos.NewSchoolYearRepository(db)
	ctx := context.Background()

	sy := testutil.CreateSchoolYear(t, years, "2024-2025", "2024-09-02", "2025-06-27")
	std := testutil.CreateStudent(t, repo, "S001", "Amani", "Kabila", sy, testutil.WithMonthlyDue("120"))
	testutil.CreateStudent(t, repo, "S002", "Neema", "Tshala", sy, testutil.Inactive())

	got, err := repo.GetStudent(ctx, std.ID)
	require.NoError(t, err)
	assert.Equal(t, "2024-09-02", got.EnrollmentDate.String())
	assert.Equal(t, "120.00", got.MonthlyDueAmount.Decimal.StringFixed(2))
	assert.False(t, got.MembershipPlanID.Valid)

	assert.Equal(t, student.ErrCodeExists, repo.CheckCodeUniqueness(ctx, "s001"))
	assert.NoError(t, repo.CheckCodeUniqueness(ctx, "s001", std.ID))

	_, err = repo.CreateStudent(ctx, student.Student{
		StudentCode: "S001", FirstName: "Dup", LastName: "Dup", SchoolYearID: sy.ID,
		EnrollmentDate: sy.StartDate, IsActive: true, CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC(),
	})
	assert.Equal(t, student.ErrCodeExists, err)

	active := true
	count, err := repo.CountStudents(ctx, &student.QueryFilter{IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	students, err := repo.QueryStudents(ctx, &student.QueryFilter{Search: "tsha"}, nil)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "S002", students[0].StudentCode)
}

func TestPaymentRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewPaymentRepository(db)
	students := sqlxrepos.NewStudentRepository(db)
	years := sqlxrepos.NewSchoolYearRepository(db)
	ctx := context.Background()

	sy := testutil.CreateSchoolYear(t, years, "2024-2025", "2024-09-02", "2025-06-27")
	std := testutil.CreateStudent(t, students, "S001", "Amani", "Kabila", sy, testutil.WithGuardian("Mama Amani", "mama@example.com"))

	now := time.Now().UTC()
	monthly := func(due string) billing.Payment {
		return billing.Payment{
			StudentID: std.ID, SchoolYearID: sy.ID, Amount: testutil.Dec("120"), DueDate: testutil.Date(t, due),
			Status: billing.StatusPending, PaymentType: billing.PaymentMonthly, CreatedAt: now, UpdatedAt: now,
		}
	}

	created, err := repo.InsertMissingPayments(ctx, []billing.Payment{monthly("2025-01-08"), monthly("2025-02-08")})
	require.NoError(t, err)
	require.Len(t, created, 2)

	// conflicting rows are skipped
	created, err = repo.InsertMissingPayments(ctx, []billing.Payment{monthly("2025-02-08"), monthly("2025-03-08")})
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "2025-03-08", created[0].DueDate.String())

	_, err = repo.CreatePayment(ctx, monthly("2025-03-08"))
	assert.Equal(t, billing.ErrDuplicatePayment, err)

	reg := monthly("2025-03-08")
	reg.PaymentType = billing.PaymentRegistration
	reg.Amount = testutil.Dec("50")
	reg, err = repo.CreatePayment(ctx, reg)
	require.NoError(t, err)

	jan, err := repo.QueryPayments(ctx, &billing.PaymentFilter{DueTo: testutil.Date(t, "2025-01-31")}, nil)
	require.NoError(t, err)
	require.Len(t, jan, 1)
	jan[0].Status = billing.StatusPaid
	jan[0].PaidDate = null.TimeFrom(now)
	jan[0].Method = null.StringFrom(string(billing.MethodCash))
	_, err = repo.UpdatePayment(ctx, jan[0])
	require.NoError(t, err)

	today := testutil.Date(t, "2025-03-01")
	overdue, err := repo.QueryPayments(ctx, &billing.PaymentFilter{Status: billing.StatusOverdue, Today: today}, nil)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "2025-02-08", overdue[0].DueDate.String())

	pending, err := repo.QueryPayments(ctx, &billing.PaymentFilter{Status: billing.StatusPending, Today: today}, nil)
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	details, err := repo.QueryPaymentDetails(ctx, &billing.PaymentFilter{PaymentType: billing.PaymentRegistration}, nil)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Equal(t, reg.ID, details[0].ID)
	assert.Equal(t, "S001", details[0].StudentCode)
	assert.Equal(t, "Amani Kabila", details[0].StudentName)
	assert.Equal(t, "mama@example.com", details[0].GuardianEmail.String)

	_, err = repo.GetPayment(ctx, "nope")
	assert.Equal(t, billing.ErrNotFound, err)
}

func TestExpenseRepository(t *testing.T) {
	db := testutil.PrepareDB(t)
	repo := sqlxrepos.NewExpenseRepository(db)
	ctx := context.Background()

	exp := testutil.CreateExpense(t, repo, billing.ExpenseService, "30", testutil.Date(t, "2025-03-10"))
	testutil.CreateExpense(t, repo, billing.ExpenseMaterials, "12.5", testutil.Date(t, "2025-02-10"))

	exps, err := repo.QueryExpenses(ctx, &billing.ExpenseFilter{From: testutil.Date(t, "2025-03-01")}, nil)
	require.NoError(t, err)
	require.Len(t, exps, 1)
	assert.Equal(t, exp.ID, exps[0].ID)

	require.NoError(t, repo.DeleteExpense(ctx, exp.ID))
	assert.Equal(t, billing.ErrExpenseNotFound, repo.DeleteExpense(ctx, exp.ID))
	_, err = repo.GetExpense(ctx, exp.ID)
	assert.Equal(t, billing.ErrExpenseNotFound, err)
}

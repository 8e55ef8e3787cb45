package billing

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/kelasi/core"
)

var statsNow = time.Date(2025, time.March, 15, 10, 0, 0, 0, time.UTC)

func payment(studentID, amount string, due core.Date, status Status, paidAt ...time.Time) Payment {
	p := Payment{StudentID: studentID, Amount: dec(amount), DueDate: due, Status: status, PaymentType: PaymentMonthly}
	if len(paidAt) > 0 {
		p.PaidDate = null.TimeFrom(paidAt[0])
	}
	return p
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "%s: got %s, want %s", field, got, want)
}

func TestComputeStats_Empty(t *testing.T) {
	for _, period := range []Period{MonthPeriod(core.MonthOf(statsNow)), YearPeriod(2025), AllTime()} {
		stats := ComputeStats(nil, nil, period, statsNow)

		for field, amt := range map[string]decimal.Decimal{
			"totalRevenue":   stats.TotalRevenue,
			"monthlyRevenue": stats.MonthlyRevenue,
			"pendingAmount":  stats.PendingAmount,
			"overdueAmount":  stats.OverdueAmount,
			"collectionRate": stats.CollectionRate,
			"totalExpenses":  stats.TotalExpenses,
			"netIncome":      stats.NetIncome,
		} {
			assertAmount(t, "0", amt, field)
		}
		assert.Zero(t, stats.PayingStudents)
		assert.Zero(t, stats.TotalStudents)
		assert.Len(t, stats.ExpensesByType, len(ExpenseTypes))
	}
}

func TestComputeStats_CollectionRate(t *testing.T) {
	due := core.NewDate(2025, time.March, 20) // not yet due on statsNow
	payments := []Payment{
		payment("a", "150", due, StatusPaid, statsNow.Add(-time.Hour)),
		payment("b", "150", due, StatusPending),
	}

	stats := ComputeStats(payments, nil, MonthPeriod(core.NewMonth(2025, time.March)), statsNow)

	assertAmount(t, "50", stats.CollectionRate, "collectionRate")
	assertAmount(t, "150", stats.PaidAmount, "paidAmount")
	assertAmount(t, "150", stats.PendingAmount, "pendingAmount")
	assertAmount(t, "0", stats.OverdueAmount, "overdueAmount")
	assertAmount(t, "300", stats.BilledAmount, "billedAmount")
	assert.Equal(t, 1, stats.PayingStudents)
}

func TestComputeStats_PastDuePendingReadsOverdue(t *testing.T) {
	pmt := payment("a", "150", core.NewDate(2025, time.March, 8), StatusPending)
	payments := []Payment{pmt}

	stats := ComputeStats(payments, nil, MonthPeriod(core.NewMonth(2025, time.March)), statsNow)

	assertAmount(t, "150", stats.OverdueAmount, "overdueAmount")
	assertAmount(t, "0", stats.PendingAmount, "pendingAmount")
	assertAmount(t, "0", stats.CollectionRate, "collectionRate")
	assert.Equal(t, 1, stats.OverdueCount)
	// read-time only
	assert.Equal(t, StatusPending, payments[0].Status)
}

func TestComputeStats_Periods(t *testing.T) {
	payments := []Payment{
		payment("a", "100", core.NewDate(2025, time.January, 8), StatusPaid, time.Date(2025, time.January, 9, 0, 0, 0, 0, time.UTC)),
		payment("a", "100", core.NewDate(2025, time.February, 8), StatusPaid, time.Date(2025, time.March, 2, 0, 0, 0, 0, time.UTC)),
		payment("a", "100", core.NewDate(2025, time.March, 8), StatusPending), // overdue
		payment("b", "80", core.NewDate(2025, time.March, 8), StatusCancelled),
		payment("b", "80", core.NewDate(2024, time.December, 8), StatusPaid, time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)),
		payment("b", "80", core.NewDate(2025, time.April, 8), StatusPending),
	}
	expenses := []Expense{
		{Type: ExpenseService, Amount: dec("40"), Date: core.NewDate(2025, time.March, 1)},
		{Type: ExpenseMaterials, Amount: dec("10.5"), Date: core.NewDate(2025, time.March, 3)},
		{Type: ExpenseDailyEmployees, Amount: dec("25"), Date: core.NewDate(2024, time.December, 3)},
	}

	t.Run("month", func(t *testing.T) {
		stats := ComputeStats(payments, expenses, MonthPeriod(core.NewMonth(2025, time.March)), statsNow)
		assertAmount(t, "280", stats.TotalRevenue, "totalRevenue")
		assertAmount(t, "100", stats.MonthlyRevenue, "monthlyRevenue") // paid in March, due in February
		assertAmount(t, "0", stats.PaidAmount, "paidAmount")
		assertAmount(t, "100", stats.OverdueAmount, "overdueAmount")
		assert.Equal(t, 1, stats.CancelledCount)
		assert.Equal(t, 0, stats.PayingStudents)
		assertAmount(t, "50.5", stats.TotalExpenses, "totalExpenses")
		assertAmount(t, "50.5", stats.MonthlyExpenses, "monthlyExpenses")
		assertAmount(t, "10.5", stats.ExpensesByType[ExpenseMaterials], "materials")
		assertAmount(t, "0", stats.ExpensesByType[ExpenseDailyEmployees], "daily employees")
		assertAmount(t, "-50.5", stats.NetIncome, "netIncome")
	})

	t.Run("year", func(t *testing.T) {
		stats := ComputeStats(payments, expenses, YearPeriod(2025), statsNow)
		assertAmount(t, "200", stats.PaidAmount, "paidAmount")
		assertAmount(t, "80", stats.PendingAmount, "pendingAmount")
		assertAmount(t, "100", stats.OverdueAmount, "overdueAmount")
		// 200 / 380
		assertAmount(t, "52.63", stats.CollectionRate, "collectionRate")
		assert.Equal(t, 1, stats.PayingStudents)
		assertAmount(t, "149.5", stats.NetIncome, "netIncome")
	})

	t.Run("all", func(t *testing.T) {
		stats := ComputeStats(payments, expenses, AllTime(), statsNow)
		assertAmount(t, "280", stats.PaidAmount, "paidAmount")
		assert.Equal(t, 2, stats.PayingStudents)
		assert.Equal(t, 3, stats.PaidCount)
		assertAmount(t, "75.5", stats.TotalExpenses, "totalExpenses")
	})
}

func TestComputeStats_JSONNumbers(t *testing.T) {
	stats := ComputeStats(
		[]Payment{payment("a", "150", core.NewDate(2025, time.March, 8), StatusPaid, statsNow)},
		nil, MonthPeriod(core.NewMonth(2025, time.March)), statsNow,
	)
	data, err := json.Marshal(stats)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, 150.0, got["totalRevenue"])
	assert.Equal(t, 100.0, got["collectionRate"])
	assert.Equal(t, "2025-03", got["period"].(map[string]interface{})["month"])
}

func TestParsePeriod(t *testing.T) {
	tests := []struct {
		name              string
		kind, month, year string
		want              Period
		wantErr           bool
	}{
		{name: "default", want: MonthPeriod(core.NewMonth(2025, time.March))},
		{name: "month", kind: "month", month: "2024-11", want: MonthPeriod(core.NewMonth(2024, time.November))},
		{name: "year default", kind: "YEAR", want: YearPeriod(2025)},
		{name: "year", kind: "year", year: "2024", want: YearPeriod(2024)},
		{name: "all", kind: "all", want: AllTime()},
		{name: "bad month", kind: "month", month: "2024-13", wantErr: true},
		{name: "bad year", kind: "year", year: "twenty", wantErr: true},
		{name: "bad kind", kind: "week", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePeriod(tt.kind, tt.month, tt.year, statsNow)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

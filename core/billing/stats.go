package billing

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/trezcool/kelasi/core"
)

type PeriodKind string

const (
	PeriodMonth PeriodKind = "month"
	PeriodYear  PeriodKind = "year"
	PeriodAll   PeriodKind = "all"
)

// Period is the window payments (by due date) and expenses (by date) are aggregated over.
type Period struct {
	Kind  PeriodKind `json:"kind"`
	Month core.Month `json:"month,omitempty"`
	Year  int        `json:"year,omitempty"`
}

func MonthPeriod(m core.Month) Period { return Period{Kind: PeriodMonth, Month: m} }
func YearPeriod(year int) Period      { return Period{Kind: PeriodYear, Year: year} }
func AllTime() Period                 { return Period{Kind: PeriodAll} }

// ParsePeriod reads a period from its query form. Missing month or year default to the ones of `now`.
func ParsePeriod(kind, month, year string, now time.Time) (Period, error) {
	switch PeriodKind(core.CleanString(kind, true /* lower */)) {
	case PeriodMonth, "":
		if month == "" {
			return MonthPeriod(core.MonthOf(now)), nil
		}
		m, err := core.ParseMonth(month)
		if err != nil {
			return Period{}, core.NewValidationError(err, core.FieldError{Field: "month", Error: err.Error()})
		}
		return MonthPeriod(m), nil
	case PeriodYear:
		if year == "" {
			return YearPeriod(now.Year()), nil
		}
		y, err := strconv.Atoi(core.CleanString(year))
		if err != nil || y < 1 {
			err = fmt.Errorf("invalid year %q", year)
			return Period{}, core.NewValidationError(err, core.FieldError{Field: "year", Error: err.Error()})
		}
		return YearPeriod(y), nil
	case PeriodAll:
		return AllTime(), nil
	}
	err := fmt.Errorf("invalid period %q: expected one of month, year, all", kind)
	return Period{}, core.NewValidationError(err, core.FieldError{Field: "period", Error: err.Error()})
}

func (p Period) Contains(d core.Date) bool {
	switch p.Kind {
	case PeriodMonth:
		return p.Month.Contains(d)
	case PeriodYear:
		return d.Year() == p.Year
	}
	return true
}

// FinancialStats is the dashboard roll-up of payments and expenses.
// Pending, overdue, paid and billed amounts only count payments due within Period.
type FinancialStats struct {
	Period Period `json:"period"`

	// TotalRevenue sums every PAID payment, whatever the period.
	TotalRevenue decimal.Decimal `json:"totalRevenue"`
	// MonthlyRevenue sums PAID payments paid during the current month.
	MonthlyRevenue decimal.Decimal `json:"monthlyRevenue"`

	PaidAmount    decimal.Decimal `json:"paidAmount"`
	PendingAmount decimal.Decimal `json:"pendingAmount"` // not yet due
	OverdueAmount decimal.Decimal `json:"overdueAmount"`
	BilledAmount  decimal.Decimal `json:"billedAmount"` // paid + pending + overdue
	// CollectionRate is PaidAmount / BilledAmount as a percentage, 0 when nothing was billed.
	CollectionRate decimal.Decimal `json:"collectionRate"`

	PaidCount      int `json:"paidCount"`
	PendingCount   int `json:"pendingCount"`
	OverdueCount   int `json:"overdueCount"`
	CancelledCount int `json:"cancelledCount"`

	TotalStudents  int `json:"totalStudents"`
	PayingStudents int `json:"payingStudents"`

	TotalExpenses   decimal.Decimal                 `json:"totalExpenses"`
	MonthlyExpenses decimal.Decimal                 `json:"monthlyExpenses"`
	ExpensesByType  map[ExpenseType]decimal.Decimal `json:"expensesByType"`
	// NetIncome is PaidAmount minus TotalExpenses.
	NetIncome decimal.Decimal `json:"netIncome"`
}

// ComputeStats aggregates `payments` and `expenses` over `period`.
// `now` fixes today (for overdue reclassification) and the current month, in now's location.
// TotalStudents is left for the caller to fill in.
func ComputeStats(payments []Payment, expenses []Expense, period Period, now time.Time) FinancialStats {
	today := core.DateOf(now)
	thisMonth := core.MonthOf(now)

	stats := FinancialStats{
		Period:          period,
		TotalRevenue:    decimal.Zero,
		MonthlyRevenue:  decimal.Zero,
		PaidAmount:      decimal.Zero,
		PendingAmount:   decimal.Zero,
		OverdueAmount:   decimal.Zero,
		BilledAmount:    decimal.Zero,
		CollectionRate:  decimal.Zero,
		TotalExpenses:   decimal.Zero,
		MonthlyExpenses: decimal.Zero,
		ExpensesByType:  make(map[ExpenseType]decimal.Decimal, len(ExpenseTypes)),
		NetIncome:       decimal.Zero,
	}
	for _, typ := range ExpenseTypes {
		stats.ExpensesByType[typ] = decimal.Zero
	}

	paying := make(map[string]struct{})
	for _, p := range payments {
		if p.Status == StatusPaid {
			stats.TotalRevenue = stats.TotalRevenue.Add(p.Amount)
			if p.PaidDate.Valid && thisMonth.Contains(core.DateOf(p.PaidDate.Time.In(now.Location()))) {
				stats.MonthlyRevenue = stats.MonthlyRevenue.Add(p.Amount)
			}
		}
		if !period.Contains(p.DueDate) {
			continue
		}

		switch p.EffectiveStatus(today) {
		case StatusPaid:
			stats.PaidAmount = stats.PaidAmount.Add(p.Amount)
			stats.PaidCount++
			paying[p.StudentID] = struct{}{}
		case StatusPending:
			stats.PendingAmount = stats.PendingAmount.Add(p.Amount)
			stats.PendingCount++
		case StatusOverdue:
			stats.OverdueAmount = stats.OverdueAmount.Add(p.Amount)
			stats.OverdueCount++
		case StatusCancelled:
			stats.CancelledCount++
		}
	}
	stats.PayingStudents = len(paying)

	for _, e := range expenses {
		if thisMonth.Contains(e.Date) {
			stats.MonthlyExpenses = stats.MonthlyExpenses.Add(e.Amount)
		}
		if !period.Contains(e.Date) {
			continue
		}
		stats.TotalExpenses = stats.TotalExpenses.Add(e.Amount)
		stats.ExpensesByType[e.Type] = stats.ExpensesByType[e.Type].Add(e.Amount)
	}

	stats.BilledAmount = stats.PaidAmount.Add(stats.PendingAmount).Add(stats.OverdueAmount)
	if !stats.BilledAmount.IsZero() {
		stats.CollectionRate = stats.PaidAmount.Mul(decimal.NewFromInt(100)).DivRound(stats.BilledAmount, 2)
	}
	stats.NetIncome = stats.PaidAmount.Sub(stats.TotalExpenses)

	stats.roundAmounts()
	return stats
}

func (s *FinancialStats) roundAmounts() {
	for _, amt := range []*decimal.Decimal{
		&s.TotalRevenue, &s.MonthlyRevenue, &s.PaidAmount, &s.PendingAmount, &s.OverdueAmount,
		&s.BilledAmount, &s.TotalExpenses, &s.MonthlyExpenses, &s.NetIncome,
	} {
		*amt = core.RoundMoney(*amt)
	}
	for typ, amt := range s.ExpensesByType {
		s.ExpensesByType[typ] = core.RoundMoney(amt)
	}
}

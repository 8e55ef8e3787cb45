package inmemdb

import (
	"sort"
	"strings"
	"sync"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/schoolyear"
	"github.com/trezcool/kelasi/core/student"
)

// DB is an in-memory store mirroring the SQL schema constraints (unique student codes, one monthly payment
// per student and due date). It serves tests and demo mode.
type DB struct {
	plan       *planTable
	schoolYear *schoolYearTable
	student    *studentTable
	payment    *paymentTable
	expense    *expenseTable
}

type (
	planTable struct {
		sync.RWMutex
		table map[string]*membership.Plan
	}

	schoolYearTable struct {
		sync.RWMutex
		table map[string]*schoolyear.SchoolYear
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	paymentTable struct {
		sync.RWMutex
		table map[string]*billing.Payment
	}

	expenseTable struct {
		sync.RWMutex
		table map[string]*billing.Expense
	}
)

func Open() *DB {
	return &DB{
		plan:       &planTable{table: make(map[string]*membership.Plan)},
		schoolYear: &schoolYearTable{table: make(map[string]*schoolyear.SchoolYear)},
		student:    &studentTable{table: make(map[string]*student.Student)},
		payment:    &paymentTable{table: make(map[string]*billing.Payment)},
		expense:    &expenseTable{table: make(map[string]*billing.Expense)},
	}
}

// comparator compares items i and j on `field`: -1, 0 or 1. ok is false for unknown fields.
type comparator func(field string, i, j int) (cmp int, ok bool)

// sortByOrdering sorts `slice` by the known ordering fields, falling back to `def`.
func sortByOrdering(slice interface{}, ordering []core.DBOrdering, cmp comparator, def func(i, j int) bool) {
	sort.SliceStable(slice, func(i, j int) bool {
		for _, ord := range ordering {
			c, ok := cmp(strings.TrimSpace(ord.Field), i, j)
			if !ok || c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return def(i, j)
	})
}

func compareStrings(a, b string) int {
	return strings.Compare(strings.ToLower(a), strings.ToLower(b))
}

func compareDates(a, b core.Date) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

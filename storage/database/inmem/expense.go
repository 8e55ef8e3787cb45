package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
)

type expenseRepository struct {
	db *expenseTable
}

var _ billing.ExpenseRepository = (*expenseRepository)(nil) // interface compliance check

func NewExpenseRepository(db *DB) *expenseRepository {
	return &expenseRepository{db: db.expense}
}

func (repo *expenseRepository) CreateExpense(_ context.Context, exp billing.Expense) (billing.Expense, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	exp.ID = uuid.New().String()
	repo.db.table[exp.ID] = &exp
	return exp, nil
}

func (repo *expenseRepository) GetExpense(_ context.Context, id string) (billing.Expense, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if exp, ok := repo.db.table[id]; ok {
		return *exp, nil
	}
	return billing.Expense{}, billing.ErrExpenseNotFound
}

func (repo *expenseRepository) QueryExpenses(_ context.Context, filter *billing.ExpenseFilter, ordering []core.DBOrdering) ([]billing.Expense, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	exps := make([]billing.Expense, 0, len(repo.db.table))
	for _, exp := range repo.db.table {
		if filter != nil {
			if filter.Type != "" && exp.Type != filter.Type {
				continue
			}
			if filter.Category != "" && !strings.EqualFold(exp.Category.String, filter.Category) {
				continue
			}
			if !filter.From.IsZero() && exp.Date.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && exp.Date.After(filter.To) {
				continue
			}
		}
		exps = append(exps, *exp)
	}

	sortByOrdering(exps, ordering,
		func(field string, i, j int) (int, bool) {
			switch field {
			case "date":
				return compareDates(exps[i].Date, exps[j].Date), true
			case "amount":
				return exps[i].Amount.Cmp(exps[j].Amount), true
			case "type":
				return compareStrings(string(exps[i].Type), string(exps[j].Type)), true
			}
			return 0, false
		},
		func(i, j int) bool {
			if !exps[i].Date.Equal(exps[j].Date) {
				return exps[i].Date.After(exps[j].Date)
			}
			return exps[i].CreatedAt.After(exps[j].CreatedAt)
		},
	)
	return exps, nil
}

func (repo *expenseRepository) DeleteExpense(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return billing.ErrExpenseNotFound
	}
	delete(repo.db.table, id)
	return nil
}

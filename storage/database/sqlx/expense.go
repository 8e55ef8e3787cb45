package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
)

const expenseColumns = "id, type, description, amount, date, category, vendor, created_by, created_at"

type expenseRepository struct {
	db *sqlx.DB
}

var _ billing.ExpenseRepository = (*expenseRepository)(nil) // interface compliance check

func NewExpenseRepository(db *sqlx.DB) *expenseRepository {
	return &expenseRepository{db: db}
}

func (repo expenseRepository) CreateExpense(ctx context.Context, exp billing.Expense) (billing.Expense, error) {
	exp.ID = uuid.New().String()
	q := `INSERT INTO expense (` + expenseColumns + `)
		VALUES (:id, :type, :description, :amount, :date, :category, :vendor, :created_by, :created_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, exp); err != nil {
		return billing.Expense{}, errors.Wrap(err, "inserting expense")
	}
	return exp, nil
}

func (repo expenseRepository) GetExpense(ctx context.Context, id string) (billing.Expense, error) {
	if _, err := uuid.Parse(id); err != nil {
		return billing.Expense{}, billing.ErrExpenseNotFound
	}
	var exp billing.Expense
	q := `SELECT ` + expenseColumns + ` FROM expense WHERE id = $1`
	if err := repo.db.GetContext(ctx, &exp, q, id); err != nil {
		return billing.Expense{}, trapNoRowsErr(err, billing.ErrExpenseNotFound, "finding expense")
	}
	return exp, nil
}

func (repo expenseRepository) QueryExpenses(ctx context.Context, filter *billing.ExpenseFilter, ordering []core.DBOrdering) ([]billing.Expense, error) {
	var w where
	if filter != nil {
		if filter.Type != "" {
			w.add("type = ?", filter.Type)
		}
		if filter.Category != "" {
			w.add("category ILIKE ?", filter.Category)
		}
		if !filter.From.IsZero() {
			w.add("date >= ?", filter.From)
		}
		if !filter.To.IsZero() {
			w.add("date <= ?", filter.To)
		}
	}

	exps := make([]billing.Expense, 0)
	q := repo.db.Rebind(`SELECT ` + expenseColumns + ` FROM expense` + w.String() + orderBy(ordering, "date DESC, created_at DESC"))
	if err := repo.db.SelectContext(ctx, &exps, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying expenses")
	}
	return exps, nil
}

func (repo expenseRepository) DeleteExpense(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return billing.ErrExpenseNotFound
	}
	res, err := repo.db.ExecContext(ctx, `DELETE FROM expense WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting expense")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.ErrExpenseNotFound
	}
	return nil
}

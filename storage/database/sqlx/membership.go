package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/membership"
)

const planColumns = "id, name, days_per_week, monthly_price, is_active, created_at, updated_at"

type planRepository struct {
	db *sqlx.DB
}

var _ membership.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *sqlx.DB) *planRepository {
	return &planRepository{db: db}
}

func (repo planRepository) CreatePlan(ctx context.Context, plan membership.Plan) (membership.Plan, error) {
	plan.ID = uuid.New().String()
	q := `INSERT INTO membership_plan (` + planColumns + `)
		VALUES (:id, :name, :days_per_week, :monthly_price, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, plan); err != nil {
		return membership.Plan{}, errors.Wrap(err, "inserting plan")
	}
	return plan, nil
}

func (repo planRepository) GetPlan(ctx context.Context, id string) (membership.Plan, error) {
	if _, err := uuid.Parse(id); err != nil {
		return membership.Plan{}, membership.ErrNotFound
	}
	var plan membership.Plan
	q := `SELECT ` + planColumns + ` FROM membership_plan WHERE id = $1`
	if err := repo.db.GetContext(ctx, &plan, q, id); err != nil {
		return membership.Plan{}, trapNoRowsErr(err, membership.ErrNotFound, "finding plan")
	}
	return plan, nil
}

func (repo planRepository) QueryPlans(ctx context.Context, filter *membership.QueryFilter, ordering []core.DBOrdering) ([]membership.Plan, error) {
	var w where
	if filter != nil {
		if filter.Search != "" {
			w.add("name ILIKE ?", "%"+filter.Search+"%")
		}
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
	}

	plans := make([]membership.Plan, 0)
	q := repo.db.Rebind(`SELECT ` + planColumns + ` FROM membership_plan` + w.String() + orderBy(ordering, "days_per_week ASC, name ASC"))
	if err := repo.db.SelectContext(ctx, &plans, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying plans")
	}
	return plans, nil
}

func (repo planRepository) UpdatePlan(ctx context.Context, plan membership.Plan) (membership.Plan, error) {
	q := `UPDATE membership_plan
		SET name = :name, days_per_week = :days_per_week, monthly_price = :monthly_price,
			is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, plan)
	if err != nil {
		return membership.Plan{}, errors.Wrap(err, "updating plan")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return membership.Plan{}, membership.ErrNotFound
	}
	return plan, nil
}

package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/membership"
)

type planRepository struct {
	db *planTable
}

var _ membership.Repository = (*planRepository)(nil) // interface compliance check

func NewPlanRepository(db *DB) *planRepository {
	return &planRepository{db: db.plan}
}

func (repo *planRepository) CreatePlan(_ context.Context, plan membership.Plan) (membership.Plan, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	plan.ID = uuid.New().String()
	repo.db.table[plan.ID] = &plan
	return plan, nil
}

func (repo *planRepository) GetPlan(_ context.Context, id string) (membership.Plan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if plan, ok := repo.db.table[id]; ok {
		return *plan, nil
	}
	return membership.Plan{}, membership.ErrNotFound
}

func (repo *planRepository) QueryPlans(_ context.Context, filter *membership.QueryFilter, ordering []core.DBOrdering) ([]membership.Plan, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	plans := make([]membership.Plan, 0, len(repo.db.table))
	for _, plan := range repo.db.table {
		if filter != nil {
			if filter.Search != "" && !containsFold(plan.Name, filter.Search) {
				continue
			}
			if filter.IsActive != nil && plan.IsActive != *filter.IsActive {
				continue
			}
		}
		plans = append(plans, *plan)
	}

	sortByOrdering(plans, ordering,
		func(field string, i, j int) (int, bool) {
			switch field {
			case "name":
				return compareStrings(plans[i].Name, plans[j].Name), true
			case "days_per_week":
				return compareInts(plans[i].DaysPerWeek, plans[j].DaysPerWeek), true
			case "monthly_price":
				return plans[i].MonthlyPrice.Cmp(plans[j].MonthlyPrice), true
			}
			return 0, false
		},
		func(i, j int) bool {
			if plans[i].DaysPerWeek != plans[j].DaysPerWeek {
				return plans[i].DaysPerWeek < plans[j].DaysPerWeek
			}
			return compareStrings(plans[i].Name, plans[j].Name) < 0
		},
	)
	return plans, nil
}

func (repo *planRepository) UpdatePlan(_ context.Context, plan membership.Plan) (membership.Plan, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[plan.ID]; !ok {
		return membership.Plan{}, membership.ErrNotFound
	}
	repo.db.table[plan.ID] = &plan
	return plan, nil
}

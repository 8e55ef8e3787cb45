package membership

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
)

var ErrNotFound = core.NewNotFoundError("membership plan")

type (
	Repository interface {
		CreatePlan(ctx context.Context, plan Plan) (Plan, error)
		GetPlan(ctx context.Context, id string) (Plan, error)
		QueryPlans(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Plan, error)
		UpdatePlan(ctx context.Context, plan Plan) (Plan, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, np NewPlan) (Plan, error) {
	now := time.Now().UTC()
	plan := Plan{
		Name:         np.Name,
		DaysPerWeek:  np.DaysPerWeek,
		MonthlyPrice: core.RoundMoney(np.MonthlyPrice),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	plan, err := svc.repo.CreatePlan(ctx, plan)
	return plan, errors.Wrap(err, "creating plan")
}

func (svc *Service) GetByID(ctx context.Context, id string) (Plan, error) {
	return svc.repo.GetPlan(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Plan, error) {
	return svc.repo.QueryPlans(ctx, filter, ordering)
}

// Update changes a plan. Students keep their stored monthly due amount until they are saved again.
func (svc *Service) Update(ctx context.Context, id string, up UpdatePlan) (Plan, error) {
	plan, err := svc.repo.GetPlan(ctx, id)
	if err != nil {
		return Plan{}, err
	}
	if up.Name != "" {
		plan.Name = up.Name
	}
	if up.DaysPerWeek != 0 {
		plan.DaysPerWeek = up.DaysPerWeek
	}
	if up.MonthlyPrice.Valid {
		plan.MonthlyPrice = core.RoundMoney(up.MonthlyPrice.Decimal)
	}
	if up.IsActive != nil {
		plan.IsActive = *up.IsActive
	}
	plan.UpdatedAt = time.Now().UTC()

	plan, err = svc.repo.UpdatePlan(ctx, plan)
	return plan, errors.Wrap(err, "updating plan")
}

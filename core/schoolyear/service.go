package schoolyear

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
)

var ErrNotFound = core.NewNotFoundError("school year")

type (
	Repository interface {
		CreateSchoolYear(ctx context.Context, sy SchoolYear) (SchoolYear, error)
		GetSchoolYear(ctx context.Context, id string) (SchoolYear, error)
		// QuerySchoolYears returns school years ordered by start date, most recent first.
		QuerySchoolYears(ctx context.Context, filter *QueryFilter) ([]SchoolYear, error)
		UpdateSchoolYear(ctx context.Context, sy SchoolYear) (SchoolYear, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) Create(ctx context.Context, ns NewSchoolYear) (SchoolYear, error) {
	now := time.Now().UTC()
	sy := SchoolYear{
		Name:      ns.Name,
		StartDate: ns.StartDate,
		EndDate:   ns.EndDate,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	sy, err := svc.repo.CreateSchoolYear(ctx, sy)
	return sy, errors.Wrap(err, "creating school year")
}

func (svc *Service) GetByID(ctx context.Context, id string) (SchoolYear, error) {
	return svc.repo.GetSchoolYear(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter) ([]SchoolYear, error) {
	return svc.repo.QuerySchoolYears(ctx, filter)
}

// Current returns the most recent active school year covering `m`.
func (svc *Service) Current(ctx context.Context, m core.Month) (SchoolYear, error) {
	active := true
	years, err := svc.repo.QuerySchoolYears(ctx, &QueryFilter{IsActive: &active, Covering: m})
	if err != nil {
		return SchoolYear{}, errors.Wrap(err, "querying school years")
	}
	if len(years) == 0 {
		return SchoolYear{}, ErrNotFound
	}
	return years[0], nil
}

func (svc *Service) Update(ctx context.Context, orig SchoolYear, us UpdateSchoolYear) (SchoolYear, error) {
	sy := orig
	if us.Name != "" {
		sy.Name = us.Name
	}
	if !us.StartDate.IsZero() {
		sy.StartDate = us.StartDate
	}
	if !us.EndDate.IsZero() {
		sy.EndDate = us.EndDate
	}
	if us.IsActive != nil {
		sy.IsActive = *us.IsActive
	}
	sy.UpdatedAt = time.Now().UTC()

	sy, err := svc.repo.UpdateSchoolYear(ctx, sy)
	return sy, errors.Wrap(err, "updating school year")
}

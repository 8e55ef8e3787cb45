package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kelasi/core/schoolyear"
)

type schoolYearRepository struct {
	db *schoolYearTable
}

var _ schoolyear.Repository = (*schoolYearRepository)(nil) // interface compliance check

func NewSchoolYearRepository(db *DB) *schoolYearRepository {
	return &schoolYearRepository{db: db.schoolYear}
}

func (repo *schoolYearRepository) CreateSchoolYear(_ context.Context, sy schoolyear.SchoolYear) (schoolyear.SchoolYear, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	sy.ID = uuid.New().String()
	repo.db.table[sy.ID] = &sy
	return sy, nil
}

func (repo *schoolYearRepository) GetSchoolYear(_ context.Context, id string) (schoolyear.SchoolYear, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if sy, ok := repo.db.table[id]; ok {
		return *sy, nil
	}
	return schoolyear.SchoolYear{}, schoolyear.ErrNotFound
}

func (repo *schoolYearRepository) QuerySchoolYears(_ context.Context, filter *schoolyear.QueryFilter) ([]schoolyear.SchoolYear, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	years := make([]schoolyear.SchoolYear, 0, len(repo.db.table))
	for _, sy := range repo.db.table {
		if filter != nil {
			if filter.IsActive != nil && sy.IsActive != *filter.IsActive {
				continue
			}
			if !filter.Covering.IsZero() && !sy.Covers(filter.Covering, filter.Covering) {
				continue
			}
		}
		years = append(years, *sy)
	}

	sortByOrdering(years, nil, nil, func(i, j int) bool {
		return years[i].StartDate.After(years[j].StartDate)
	})
	return years, nil
}

func (repo *schoolYearRepository) UpdateSchoolYear(_ context.Context, sy schoolyear.SchoolYear) (schoolyear.SchoolYear, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[sy.ID]; !ok {
		return schoolyear.SchoolYear{}, schoolyear.ErrNotFound
	}
	repo.db.table[sy.ID] = &sy
	return sy, nil
}

package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core/schoolyear"
)

const schoolYearColumns = "id, name, start_date, end_date, is_active, created_at, updated_at"

type schoolYearRepository struct {
	db *sqlx.DB
}

var _ schoolyear.Repository = (*schoolYearRepository)(nil) // interface compliance check

func NewSchoolYearRepository(db *sqlx.DB) *schoolYearRepository {
	return &schoolYearRepository{db: db}
}

func (repo schoolYearRepository) CreateSchoolYear(ctx context.Context, sy schoolyear.SchoolYear) (schoolyear.SchoolYear, error) {
	sy.ID = uuid.New().String()
	q := `INSERT INTO school_year (` + schoolYearColumns + `)
		VALUES (:id, :name, :start_date, :end_date, :is_active, :created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, sy); err != nil {
		return schoolyear.SchoolYear{}, errors.Wrap(err, "inserting school year")
	}
	return sy, nil
}

func (repo schoolYearRepository) GetSchoolYear(ctx context.Context, id string) (schoolyear.SchoolYear, error) {
	if _, err := uuid.Parse(id); err != nil {
		return schoolyear.SchoolYear{}, schoolyear.ErrNotFound
	}
	var sy schoolyear.SchoolYear
	q := `SELECT ` + schoolYearColumns + ` FROM school_year WHERE id = $1`
	if err := repo.db.GetContext(ctx, &sy, q, id); err != nil {
		return schoolyear.SchoolYear{}, trapNoRowsErr(err, schoolyear.ErrNotFound, "finding school year")
	}
	return sy, nil
}

func (repo schoolYearRepository) QuerySchoolYears(ctx context.Context, filter *schoolyear.QueryFilter) ([]schoolyear.SchoolYear, error) {
	var w where
	if filter != nil {
		if filter.IsActive != nil {
			w.add("is_active = ?", *filter.IsActive)
		}
		if !filter.Covering.IsZero() {
			w.add("start_date <= ? AND end_date >= ?", filter.Covering.Last(), filter.Covering.First())
		}
	}

	years := make([]schoolyear.SchoolYear, 0)
	q := repo.db.Rebind(`SELECT ` + schoolYearColumns + ` FROM school_year` + w.String() + ` ORDER BY start_date DESC`)
	if err := repo.db.SelectContext(ctx, &years, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying school years")
	}
	return years, nil
}

func (repo schoolYearRepository) UpdateSchoolYear(ctx context.Context, sy schoolyear.SchoolYear) (schoolyear.SchoolYear, error) {
	q := `UPDATE school_year
		SET name = :name, start_date = :start_date, end_date = :end_date, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, sy)
	if err != nil {
		return schoolyear.SchoolYear{}, errors.Wrap(err, "updating school year")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return schoolyear.SchoolYear{}, schoolyear.ErrNotFound
	}
	return sy, nil
}

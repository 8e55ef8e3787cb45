package sqlxrepos

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/student"
)

const studentColumns = `id, student_code, first_name, last_name, guardian_name, guardian_email, guardian_phone,
	membership_plan_id, monthly_due_amount, discount_rate, school_year_id, enrollment_date, is_active, created_at, updated_at`

type studentRepository struct {
	db *sqlx.DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) *studentRepository {
	return &studentRepository{db: db}
}

func (repo studentRepository) CheckCodeUniqueness(ctx context.Context, code string, excludedIDs ...string) error {
	var w where
	w.add("upper(student_code) = upper(?)", code)
	for _, id := range excludedIDs {
		w.add("id <> ?", id)
	}

	var found bool
	q := repo.db.Rebind(`SELECT EXISTS (SELECT 1 FROM student` + w.String() + `)`)
	if err := repo.db.GetContext(ctx, &found, q, w.args...); err != nil {
		return errors.Wrap(err, "checking student code uniqueness")
	}
	if found {
		return student.ErrCodeExists
	}
	return nil
}

func (repo studentRepository) CreateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	std.ID = uuid.New().String()
	q := `INSERT INTO student (` + studentColumns + `)
		VALUES (:id, :student_code, :first_name, :last_name, :guardian_name, :guardian_email, :guardian_phone,
			:membership_plan_id, :monthly_due_amount, :discount_rate, :school_year_id, :enrollment_date, :is_active,
			:created_at, :updated_at)`
	if _, err := repo.db.NamedExecContext(ctx, q, std); err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrCodeExists
		}
		return student.Student{}, errors.Wrap(err, "inserting student")
	}
	return std, nil
}

func (repo studentRepository) GetStudent(ctx context.Context, id string) (student.Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return student.Student{}, student.ErrNotFound
	}
	var std student.Student
	q := `SELECT ` + studentColumns + ` FROM student WHERE id = $1`
	if err := repo.db.GetContext(ctx, &std, q, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "finding student")
	}
	return std, nil
}

func (repo studentRepository) filter(filter *student.QueryFilter) where {
	var w where
	if filter == nil {
		return w
	}
	// students with StudentCode, FirstName or LastName matching the search keyword
	if filter.Search != "" {
		val := "%" + filter.Search + "%"
		w.add("(student_code ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?)", val, val, val)
	}
	if filter.MembershipPlanID != "" {
		w.add("membership_plan_id = ?", filter.MembershipPlanID)
	}
	if filter.SchoolYearID != "" {
		w.add("school_year_id = ?", filter.SchoolYearID)
	}
	if filter.IsActive != nil {
		w.add("is_active = ?", *filter.IsActive)
	}
	return w
}

func (repo studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	w := repo.filter(filter)
	students := make([]student.Student, 0)
	q := repo.db.Rebind(`SELECT ` + studentColumns + ` FROM student` + w.String() + orderBy(ordering, "last_name ASC, first_name ASC"))
	if err := repo.db.SelectContext(ctx, &students, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying students")
	}
	return students, nil
}

func (repo studentRepository) CountStudents(ctx context.Context, filter *student.QueryFilter) (int, error) {
	w := repo.filter(filter)
	var count int
	q := repo.db.Rebind(`SELECT COUNT(*) FROM student` + w.String())
	if err := repo.db.GetContext(ctx, &count, q, w.args...); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return count, nil
}

func (repo studentRepository) UpdateStudent(ctx context.Context, std student.Student) (student.Student, error) {
	q := `UPDATE student
		SET student_code = :student_code, first_name = :first_name, last_name = :last_name,
			guardian_name = :guardian_name, guardian_email = :guardian_email, guardian_phone = :guardian_phone,
			membership_plan_id = :membership_plan_id, monthly_due_amount = :monthly_due_amount,
			discount_rate = :discount_rate, school_year_id = :school_year_id, enrollment_date = :enrollment_date,
			is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, std)
	if err != nil {
		if isUniqueViolation(err) {
			return student.Student{}, student.ErrCodeExists
		}
		return student.Student{}, errors.Wrap(err, "updating student")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return student.Student{}, student.ErrNotFound
	}
	return std, nil
}

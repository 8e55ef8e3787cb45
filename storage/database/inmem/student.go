package inmemdb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/student"
)

type studentRepository struct {
	db *studentTable
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) *studentRepository {
	return &studentRepository{db: db.student}
}

// codeTaken must be called with the table lock held.
func (repo *studentRepository) codeTaken(code string, excludedIDs ...string) bool {
	for _, std := range repo.db.table {
		if !strings.EqualFold(std.StudentCode, code) {
			continue
		}
		excluded := false
		for _, id := range excludedIDs {
			if std.ID == id {
				excluded = true
				break
			}
		}
		if !excluded {
			return true
		}
	}
	return false
}

func (repo *studentRepository) CheckCodeUniqueness(_ context.Context, code string, excludedIDs ...string) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if repo.codeTaken(code, excludedIDs...) {
		return student.ErrCodeExists
	}
	return nil
}

func (repo *studentRepository) CreateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.codeTaken(std.StudentCode) {
		return student.Student{}, student.ErrCodeExists
	}
	std.ID = uuid.New().String()
	repo.db.table[std.ID] = &std
	return std, nil
}

func (repo *studentRepository) GetStudent(_ context.Context, id string) (student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if std, ok := repo.db.table[id]; ok {
		return *std, nil
	}
	return student.Student{}, student.ErrNotFound
}

func matchStudent(std *student.Student, filter *student.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.Search != "" &&
		!containsFold(std.StudentCode, filter.Search) &&
		!containsFold(std.FirstName, filter.Search) &&
		!containsFold(std.LastName, filter.Search) {
		return false
	}
	if filter.MembershipPlanID != "" && std.MembershipPlanID.String != filter.MembershipPlanID {
		return false
	}
	if filter.SchoolYearID != "" && std.SchoolYearID != filter.SchoolYearID {
		return false
	}
	if filter.IsActive != nil && std.IsActive != *filter.IsActive {
		return false
	}
	return true
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	students := make([]student.Student, 0, len(repo.db.table))
	for _, std := range repo.db.table {
		if matchStudent(std, filter) {
			students = append(students, *std)
		}
	}

	sortByOrdering(students, ordering,
		func(field string, i, j int) (int, bool) {
			switch field {
			case "student_code":
				return compareStrings(students[i].StudentCode, students[j].StudentCode), true
			case "first_name":
				return compareStrings(students[i].FirstName, students[j].FirstName), true
			case "last_name":
				return compareStrings(students[i].LastName, students[j].LastName), true
			case "enrollment_date":
				return compareDates(students[i].EnrollmentDate, students[j].EnrollmentDate), true
			}
			return 0, false
		},
		func(i, j int) bool {
			if c := compareStrings(students[i].LastName, students[j].LastName); c != 0 {
				return c < 0
			}
			return compareStrings(students[i].FirstName, students[j].FirstName) < 0
		},
	)
	return students, nil
}

func (repo *studentRepository) CountStudents(_ context.Context, filter *student.QueryFilter) (int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var count int
	for _, std := range repo.db.table {
		if matchStudent(std, filter) {
			count++
		}
	}
	return count, nil
}

func (repo *studentRepository) UpdateStudent(_ context.Context, std student.Student) (student.Student, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[std.ID]; !ok {
		return student.Student{}, student.ErrNotFound
	}
	if repo.codeTaken(std.StudentCode, std.ID) {
		return student.Student{}, student.ErrCodeExists
	}
	repo.db.table[std.ID] = &std
	return std, nil
}

package inmemdb

import (
	"context"

	"github.com/google/uuid"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
)

type paymentRepository struct {
	db       *paymentTable
	students *studentTable
}

var _ billing.PaymentRepository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) *paymentRepository {
	return &paymentRepository{db: db.payment, students: db.student}
}

// monthlyExists must be called with the table lock held.
func (repo *paymentRepository) monthlyExists(pmt billing.Payment) bool {
	if pmt.PaymentType != billing.PaymentMonthly {
		return false
	}
	for _, p := range repo.db.table {
		if p.PaymentType == billing.PaymentMonthly && p.StudentID == pmt.StudentID && p.DueDate.Equal(pmt.DueDate) {
			return true
		}
	}
	return false
}

func (repo *paymentRepository) CreatePayment(_ context.Context, pmt billing.Payment) (billing.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if repo.monthlyExists(pmt) {
		return billing.Payment{}, billing.ErrDuplicatePayment
	}
	pmt.ID = uuid.New().String()
	repo.db.table[pmt.ID] = &pmt
	return pmt, nil
}

func (repo *paymentRepository) GetPayment(_ context.Context, id string) (billing.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if pmt, ok := repo.db.table[id]; ok {
		return *pmt, nil
	}
	return billing.Payment{}, billing.ErrNotFound
}

func matchPayment(pmt *billing.Payment, filter *billing.PaymentFilter) bool {
	if filter == nil {
		return true
	}
	if filter.StudentID != "" && pmt.StudentID != filter.StudentID {
		return false
	}
	if filter.SchoolYearID != "" && pmt.SchoolYearID != filter.SchoolYearID {
		return false
	}
	if filter.PaymentType != "" && pmt.PaymentType != filter.PaymentType {
		return false
	}
	if !filter.DueFrom.IsZero() && pmt.DueDate.Before(filter.DueFrom) {
		return false
	}
	if !filter.DueTo.IsZero() && pmt.DueDate.After(filter.DueTo) {
		return false
	}
	if filter.Status != "" {
		status := pmt.Status
		if !filter.Today.IsZero() {
			status = pmt.EffectiveStatus(filter.Today)
		}
		if status != filter.Status {
			return false
		}
	}
	return true
}

func comparePayments(a, b *billing.Payment, field string) (int, bool) {
	switch field {
	case "due_date":
		return compareDates(a.DueDate, b.DueDate), true
	case "amount":
		return a.Amount.Cmp(b.Amount), true
	case "status":
		return compareStrings(string(a.Status), string(b.Status)), true
	case "created_at":
		return compareInts(int(a.CreatedAt.Sub(b.CreatedAt)), 0), true
	}
	return 0, false
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter *billing.PaymentFilter, ordering []core.DBOrdering) ([]billing.Payment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	pmts := make([]billing.Payment, 0, len(repo.db.table))
	for _, pmt := range repo.db.table {
		if matchPayment(pmt, filter) {
			pmts = append(pmts, *pmt)
		}
	}

	sortByOrdering(pmts, ordering,
		func(field string, i, j int) (int, bool) {
			return comparePayments(&pmts[i], &pmts[j], field)
		},
		func(i, j int) bool {
			if !pmts[i].DueDate.Equal(pmts[j].DueDate) {
				return pmts[i].DueDate.After(pmts[j].DueDate)
			}
			return pmts[i].CreatedAt.After(pmts[j].CreatedAt)
		},
	)
	return pmts, nil
}

func (repo *paymentRepository) QueryPaymentDetails(_ context.Context, filter *billing.PaymentFilter, ordering []core.DBOrdering) ([]billing.PaymentDetail, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	repo.students.RLock()
	defer repo.students.RUnlock()

	details := make([]billing.PaymentDetail, 0, len(repo.db.table))
	for _, pmt := range repo.db.table {
		if !matchPayment(pmt, filter) {
			continue
		}
		std, ok := repo.students.table[pmt.StudentID]
		if !ok {
			continue // inner join
		}
		details = append(details, billing.PaymentDetail{
			Payment:       *pmt,
			StudentCode:   std.StudentCode,
			StudentName:   std.FullName(),
			GuardianName:  std.GuardianName,
			GuardianEmail: std.GuardianEmail,
		})
	}

	sortByOrdering(details, ordering,
		func(field string, i, j int) (int, bool) {
			switch field {
			case "student_code":
				return compareStrings(details[i].StudentCode, details[j].StudentCode), true
			case "student_name":
				return compareStrings(details[i].StudentName, details[j].StudentName), true
			}
			return comparePayments(&details[i].Payment, &details[j].Payment, field)
		},
		func(i, j int) bool {
			if !details[i].DueDate.Equal(details[j].DueDate) {
				return details[i].DueDate.After(details[j].DueDate)
			}
			return compareStrings(details[i].StudentCode, details[j].StudentCode) < 0
		},
	)
	return details, nil
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, pmt billing.Payment) (billing.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[pmt.ID]
	if !ok {
		return billing.Payment{}, billing.ErrNotFound
	}
	// student, school year and type are immutable
	pmt.StudentID, pmt.SchoolYearID, pmt.PaymentType, pmt.CreatedAt = orig.StudentID, orig.SchoolYearID, orig.PaymentType, orig.CreatedAt
	pmt.DisplayStatus = ""
	repo.db.table[pmt.ID] = &pmt
	return pmt, nil
}

func (repo *paymentRepository) InsertMissingPayments(_ context.Context, pmts []billing.Payment) ([]billing.Payment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	created := make([]billing.Payment, 0, len(pmts))
	for _, pmt := range pmts {
		if repo.monthlyExists(pmt) {
			continue
		}
		pmt.ID = uuid.New().String()
		stored := pmt
		repo.db.table[pmt.ID] = &stored
		created = append(created, pmt)
	}
	return created, nil
}

package sqlxrepos

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
)

const (
	paymentColumns = `id, student_id, school_year_id, amount, due_date, paid_date, status, payment_type,
	method, reference, notes, created_at, updated_at`

	paymentDetailsView = `(SELECT p.id, p.student_id, p.school_year_id, p.amount, p.due_date, p.paid_date, p.status,
		p.payment_type, p.method, p.reference, p.notes, p.created_at, p.updated_at,
		s.student_code, s.first_name || ' ' || s.last_name AS student_name, s.guardian_name, s.guardian_email
	FROM payment p JOIN student s ON s.id = p.student_id) d`

	insertPayment = `INSERT INTO payment (` + paymentColumns + `)
		VALUES (:id, :student_id, :school_year_id, :amount, :due_date, :paid_date, :status, :payment_type,
			:method, :reference, :notes, :created_at, :updated_at)`

	insertMissingPayment = `INSERT INTO payment (` + paymentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		ON CONFLICT (student_id, due_date) WHERE payment_type = 'MONTHLY' DO NOTHING
		RETURNING id`
)

type paymentRepository struct {
	db *sqlx.DB
}

var _ billing.PaymentRepository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) *paymentRepository {
	return &paymentRepository{db: db}
}

func (repo paymentRepository) CreatePayment(ctx context.Context, pmt billing.Payment) (billing.Payment, error) {
	pmt.ID = uuid.New().String()
	if _, err := repo.db.NamedExecContext(ctx, insertPayment, pmt); err != nil {
		if isUniqueViolation(err) {
			return billing.Payment{}, billing.ErrDuplicatePayment
		}
		return billing.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return pmt, nil
}

func (repo paymentRepository) GetPayment(ctx context.Context, id string) (billing.Payment, error) {
	if _, err := uuid.Parse(id); err != nil {
		return billing.Payment{}, billing.ErrNotFound
	}
	var pmt billing.Payment
	q := `SELECT ` + paymentColumns + ` FROM payment WHERE id = $1`
	if err := repo.db.GetContext(ctx, &pmt, q, id); err != nil {
		return billing.Payment{}, trapNoRowsErr(err, billing.ErrNotFound, "finding payment")
	}
	return pmt, nil
}

func (repo paymentRepository) filter(filter *billing.PaymentFilter) where {
	var w where
	if filter == nil {
		return w
	}
	if filter.StudentID != "" {
		w.add("student_id = ?", filter.StudentID)
	}
	if filter.SchoolYearID != "" {
		w.add("school_year_id = ?", filter.SchoolYearID)
	}
	if filter.PaymentType != "" {
		w.add("payment_type = ?", filter.PaymentType)
	}
	if !filter.DueFrom.IsZero() {
		w.add("due_date >= ?", filter.DueFrom)
	}
	if !filter.DueTo.IsZero() {
		w.add("due_date <= ?", filter.DueTo)
	}

	// status matches the display status when today is known
	switch {
	case filter.Status == "":
	case filter.Today.IsZero():
		w.add("status = ?", filter.Status)
	case filter.Status == billing.StatusOverdue:
		w.add("(status = ? OR (status = ? AND due_date < ?))", billing.StatusOverdue, billing.StatusPending, filter.Today)
	case filter.Status == billing.StatusPending:
		w.add("status = ? AND due_date >= ?", billing.StatusPending, filter.Today)
	default:
		w.add("status = ?", filter.Status)
	}
	return w
}

func (repo paymentRepository) QueryPayments(ctx context.Context, filter *billing.PaymentFilter, ordering []core.DBOrdering) ([]billing.Payment, error) {
	w := repo.filter(filter)
	pmts := make([]billing.Payment, 0)
	q := repo.db.Rebind(`SELECT ` + paymentColumns + ` FROM payment` + w.String() + orderBy(ordering, "due_date DESC, created_at DESC"))
	if err := repo.db.SelectContext(ctx, &pmts, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying payments")
	}
	return pmts, nil
}

func (repo paymentRepository) QueryPaymentDetails(ctx context.Context, filter *billing.PaymentFilter, ordering []core.DBOrdering) ([]billing.PaymentDetail, error) {
	w := repo.filter(filter)
	details := make([]billing.PaymentDetail, 0)
	q := repo.db.Rebind(`SELECT * FROM ` + paymentDetailsView + w.String() + orderBy(ordering, "due_date DESC, student_code ASC"))
	if err := repo.db.SelectContext(ctx, &details, q, w.args...); err != nil {
		return nil, errors.Wrap(err, "querying payment details")
	}
	return details, nil
}

func (repo paymentRepository) UpdatePayment(ctx context.Context, pmt billing.Payment) (billing.Payment, error) {
	q := `UPDATE payment
		SET amount = :amount, due_date = :due_date, paid_date = :paid_date, status = :status,
			method = :method, reference = :reference, notes = :notes, updated_at = :updated_at
		WHERE id = :id`
	res, err := repo.db.NamedExecContext(ctx, q, pmt)
	if err != nil {
		return billing.Payment{}, errors.Wrap(err, "updating payment")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return billing.Payment{}, billing.ErrNotFound
	}
	return pmt, nil
}

// InsertMissingPayments relies on the monthly payment unique index: rows conflicting with a payment
// inserted concurrently are skipped, not failed.
func (repo paymentRepository) InsertMissingPayments(ctx context.Context, pmts []billing.Payment) (created []billing.Payment, err error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "beginning transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	created = make([]billing.Payment, 0, len(pmts))
	for _, pmt := range pmts {
		pmt.ID = uuid.New().String()
		var id string
		err = tx.QueryRowxContext(ctx, insertMissingPayment,
			pmt.ID, pmt.StudentID, pmt.SchoolYearID, pmt.Amount, pmt.DueDate, pmt.PaidDate, pmt.Status, pmt.PaymentType,
			pmt.Method, pmt.Reference, pmt.Notes, pmt.CreatedAt, pmt.UpdatedAt,
		).Scan(&id)
		switch {
		case err == sql.ErrNoRows:
			err = nil // already exists
			continue
		case err != nil:
			return nil, errors.Wrap(err, "inserting payment")
		}
		created = append(created, pmt)
	}

	if err = tx.Commit(); err != nil {
		return nil, errors.Wrap(err, "committing payments")
	}
	return created, nil
}

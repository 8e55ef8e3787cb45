package billing

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/schoolyear"
	"github.com/trezcool/kelasi/core/student"
)

type (
	PaymentRepository interface {
		// CreatePayment returns ErrDuplicatePayment when a monthly payment of the student is already due that day.
		CreatePayment(ctx context.Context, pmt Payment) (Payment, error)
		GetPayment(ctx context.Context, id string) (Payment, error)
		// QueryPayments applies AND operation on available PaymentFilter fields.
		QueryPayments(ctx context.Context, filter *PaymentFilter, ordering []core.DBOrdering) ([]Payment, error)
		QueryPaymentDetails(ctx context.Context, filter *PaymentFilter, ordering []core.DBOrdering) ([]PaymentDetail, error)
		UpdatePayment(ctx context.Context, pmt Payment) (Payment, error)
		// InsertMissingPayments stores `pmts` atomically, silently skipping monthly payments that already exist,
		// and returns those actually inserted.
		InsertMissingPayments(ctx context.Context, pmts []Payment) ([]Payment, error)
	}

	ExpenseRepository interface {
		CreateExpense(ctx context.Context, exp Expense) (Expense, error)
		GetExpense(ctx context.Context, id string) (Expense, error)
		QueryExpenses(ctx context.Context, filter *ExpenseFilter, ordering []core.DBOrdering) ([]Expense, error)
		DeleteExpense(ctx context.Context, id string) error
	}

	StudentFinder interface {
		GetByID(ctx context.Context, id string) (student.Student, error)
		Query(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering) ([]student.Student, error)
		CountActive(ctx context.Context) (int, error)
	}

	PlanFinder interface {
		GetByID(ctx context.Context, id string) (membership.Plan, error)
	}

	SchoolYearFinder interface {
		GetByID(ctx context.Context, id string) (schoolyear.SchoolYear, error)
		Current(ctx context.Context, m core.Month) (schoolyear.SchoolYear, error)
	}

	Options struct {
		// DueDay is the day of month monthly payments fall due on.
		DueDay int
		// Location defines "today" and "this month".
		Location *time.Location
		Now      func() time.Time // mockable
	}

	Service struct {
		payments PaymentRepository
		expenses ExpenseRepository
		students StudentFinder
		plans    PlanFinder
		years    SchoolYearFinder
		opts     Options
	}
)

func NewService(
	payments PaymentRepository,
	expenses ExpenseRepository,
	students StudentFinder,
	plans PlanFinder,
	years SchoolYearFinder,
	opts Options,
) *Service {
	if opts.DueDay < 1 {
		opts.DueDay = 1
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		payments: payments,
		expenses: expenses,
		students: students,
		plans:    plans,
		years:    years,
		opts:     opts,
	}
}

func (svc *Service) now() time.Time {
	return svc.opts.Now().In(svc.opts.Location)
}

// Now is the current time in the billing location.
func (svc *Service) Now() time.Time {
	return svc.now()
}

func (svc *Service) today() core.Date {
	return core.DateOf(svc.now())
}

// CurrentMonth is the month of now in the billing location.
func (svc *Service) CurrentMonth() core.Month {
	return core.MonthOf(svc.now())
}

func withDisplayStatus(pmts []Payment, today core.Date) []Payment {
	for i := range pmts {
		pmts[i].DisplayStatus = pmts[i].EffectiveStatus(today)
	}
	return pmts
}

func (svc *Service) planOf(ctx context.Context, std student.Student) (*membership.Plan, error) {
	if !std.MembershipPlanID.Valid {
		return nil, nil
	}
	plan, err := svc.plans.GetByID(ctx, std.MembershipPlanID.String)
	if err != nil {
		return nil, errors.Wrap(err, "getting membership plan")
	}
	return &plan, nil
}

func (svc *Service) schoolYearOf(ctx context.Context, std student.Student, id string) (schoolyear.SchoolYear, error) {
	if id == "" {
		id = std.SchoolYearID
	}
	sy, err := svc.years.GetByID(ctx, id)
	return sy, errors.Wrap(err, "getting school year")
}

// GenerateMissingPayments creates the student's missing monthly payments over the requested months
// and returns those created. Calling it again with the same request creates nothing.
func (svc *Service) GenerateMissingPayments(ctx context.Context, req GenerateRequest) ([]Payment, error) {
	from, to := req.FromMonth, req.ToMonth
	if !req.Month.IsZero() {
		from, to = req.Month, req.Month
	}

	std, err := svc.students.GetByID(ctx, req.StudentID)
	if err != nil {
		return nil, errors.Wrap(err, "getting student")
	}
	sy, err := svc.schoolYearOf(ctx, std, req.SchoolYearID)
	if err != nil {
		return nil, err
	}
	plan, err := svc.planOf(ctx, std)
	if err != nil {
		return nil, err
	}
	existing, err := svc.payments.QueryPayments(ctx, &PaymentFilter{
		StudentID:   std.ID,
		PaymentType: PaymentMonthly,
		DueFrom:     from.First(),
		DueTo:       to.Last(),
	}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "querying existing payments")
	}

	missing, err := PlanMissingPayments(GenerateParams{
		Student:    std,
		Plan:       plan,
		SchoolYear: sy,
		From:       from,
		To:         to,
		DueDay:     svc.opts.DueDay,
		Existing:   existing,
	})
	if err != nil {
		return nil, err
	}
	if len(missing) == 0 {
		return []Payment{}, nil
	}

	created, err := svc.payments.InsertMissingPayments(ctx, missing)
	if err != nil {
		return nil, errors.Wrap(err, "inserting payments")
	}
	return withDisplayStatus(created, svc.today()), nil
}

// BatchFailure is a student the batch could not bill.
type BatchFailure struct {
	StudentID   string `json:"studentId"`
	StudentCode string `json:"studentCode"`
	Error       string `json:"error"`
}

type BatchResult struct {
	Month        core.Month     `json:"month"`
	SchoolYearID string         `json:"schoolYearId"`
	Students     int            `json:"students"`
	Created      []Payment      `json:"created"`
	Failures     []BatchFailure `json:"failures"`
}

// GenerateForActiveStudents generates the monthly payment of `month` for every active student of the school year
// (by default, the active school year covering the month).
// Students whose amount cannot be determined are reported in the result and do not stop the batch.
func (svc *Service) GenerateForActiveStudents(ctx context.Context, month core.Month, schoolYearID string) (BatchResult, error) {
	var (
		sy  schoolyear.SchoolYear
		err error
	)
	if schoolYearID != "" {
		sy, err = svc.years.GetByID(ctx, schoolYearID)
	} else {
		sy, err = svc.years.Current(ctx, month)
	}
	if err != nil {
		return BatchResult{}, errors.Wrap(err, "getting school year")
	}
	if !sy.Covers(month, month) {
		return BatchResult{}, &RangeError{SchoolYear: sy.Name, From: month, To: month}
	}

	active := true
	students, err := svc.students.Query(ctx, &student.QueryFilter{SchoolYearID: sy.ID, IsActive: &active}, nil)
	if err != nil {
		return BatchResult{}, errors.Wrap(err, "querying students")
	}

	res := BatchResult{
		Month:        month,
		SchoolYearID: sy.ID,
		Students:     len(students),
		Created:      []Payment{},
		Failures:     []BatchFailure{},
	}
	for _, std := range students {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		created, err := svc.GenerateMissingPayments(ctx, GenerateRequest{
			StudentID:    std.ID,
			SchoolYearID: sy.ID,
			Month:        month,
		})
		if err != nil {
			if !isStudentFailure(err) {
				return res, err
			}
			res.Failures = append(res.Failures, BatchFailure{StudentID: std.ID, StudentCode: std.StudentCode, Error: err.Error()})
			continue
		}
		res.Created = append(res.Created, created...)
	}
	return res, nil
}

func isStudentFailure(err error) bool {
	if IsDomainError(err) || core.IsNotFound(err) {
		return true
	}
	_, ok := errors.Cause(err).(*core.ValidationError)
	return ok
}

// CreatePayment records a payment manually. Monthly payments fall due on the configured day of their month,
// and their amount defaults to the student's monthly amount.
func (svc *Service) CreatePayment(ctx context.Context, np NewPayment) (Payment, error) {
	std, err := svc.students.GetByID(ctx, np.StudentID)
	if err != nil {
		return Payment{}, errors.Wrap(err, "getting student")
	}
	sy, err := svc.schoolYearOf(ctx, std, np.SchoolYearID)
	if err != nil {
		return Payment{}, err
	}

	dueDate := np.DueDate
	if np.PaymentType == PaymentMonthly {
		month := core.MonthOf(np.DueDate.Time)
		dueDate = month.Day(svc.opts.DueDay)
		existing, err := svc.payments.QueryPayments(ctx, &PaymentFilter{
			StudentID:   std.ID,
			PaymentType: PaymentMonthly,
			DueFrom:     month.First(),
			DueTo:       month.Last(),
		}, nil)
		if err != nil {
			return Payment{}, errors.Wrap(err, "querying existing payments")
		}
		if len(existing) > 0 {
			return Payment{}, ErrDuplicatePayment
		}
	}

	amount := np.Amount.Decimal
	if !np.Amount.Valid {
		plan, err := svc.planOf(ctx, std)
		if err != nil {
			return Payment{}, err
		}
		if amount, err = ResolveAmount(std, plan); err != nil {
			return Payment{}, err
		}
	}

	now := time.Now().UTC()
	pmt, err := svc.payments.CreatePayment(ctx, Payment{
		StudentID:    std.ID,
		SchoolYearID: sy.ID,
		Amount:       core.RoundMoney(amount),
		DueDate:      dueDate,
		Status:       StatusPending,
		PaymentType:  np.PaymentType,
		Notes:        np.Notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return Payment{}, errors.Wrap(err, "creating payment")
	}
	pmt.DisplayStatus = pmt.EffectiveStatus(svc.today())
	return pmt, nil
}

func (svc *Service) GetPayment(ctx context.Context, id string) (Payment, error) {
	pmt, err := svc.payments.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	pmt.DisplayStatus = pmt.EffectiveStatus(svc.today())
	return pmt, nil
}

func (svc *Service) QueryPayments(ctx context.Context, filter *PaymentFilter, ordering []core.DBOrdering) ([]Payment, error) {
	today := svc.today()
	if filter == nil {
		filter = &PaymentFilter{}
	}
	filter.Today = today
	pmts, err := svc.payments.QueryPayments(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}
	return withDisplayStatus(pmts, today), nil
}

// QueryPaymentDetails lists payments along with their student, for exports and reminders.
func (svc *Service) QueryPaymentDetails(ctx context.Context, filter *PaymentFilter, ordering []core.DBOrdering) ([]PaymentDetail, error) {
	today := svc.today()
	if filter == nil {
		filter = &PaymentFilter{}
	}
	filter.Today = today
	details, err := svc.payments.QueryPaymentDetails(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}
	for i := range details {
		details[i].DisplayStatus = details[i].EffectiveStatus(today)
	}
	return details, nil
}

// OverduePayments lists every payment reading as OVERDUE today, oldest first.
func (svc *Service) OverduePayments(ctx context.Context) ([]PaymentDetail, error) {
	return svc.QueryPaymentDetails(
		ctx,
		&PaymentFilter{Status: StatusOverdue},
		[]core.DBOrdering{{Field: "due_date", Ascending: true}},
	)
}

// MarkPaid records the reception of a pending or overdue payment.
func (svc *Service) MarkPaid(ctx context.Context, id string, pr PayRequest) (Payment, error) {
	pmt, err := svc.payments.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	paidAt := svc.now()
	if pr.PaidDate.Valid {
		paidAt = pr.PaidDate.Time
	}
	if err := pmt.MarkPaid(pr.Method, pr.Reference, paidAt); err != nil {
		return Payment{}, err
	}
	pmt, err = svc.payments.UpdatePayment(ctx, pmt)
	if err != nil {
		return Payment{}, errors.Wrap(err, "updating payment")
	}
	pmt.DisplayStatus = pmt.EffectiveStatus(svc.today())
	return pmt, nil
}

func (svc *Service) Cancel(ctx context.Context, id string) (Payment, error) {
	pmt, err := svc.payments.GetPayment(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	if err := pmt.Cancel(); err != nil {
		return Payment{}, err
	}
	pmt, err = svc.payments.UpdatePayment(ctx, pmt)
	if err != nil {
		return Payment{}, errors.Wrap(err, "updating payment")
	}
	pmt.DisplayStatus = pmt.EffectiveStatus(svc.today())
	return pmt, nil
}

// Stats computes the financial dashboard figures over `period`.
func (svc *Service) Stats(ctx context.Context, period Period) (FinancialStats, error) {
	pmts, err := svc.payments.QueryPayments(ctx, &PaymentFilter{}, nil)
	if err != nil {
		return FinancialStats{}, errors.Wrap(err, "querying payments")
	}
	exps, err := svc.expenses.QueryExpenses(ctx, &ExpenseFilter{}, nil)
	if err != nil {
		return FinancialStats{}, errors.Wrap(err, "querying expenses")
	}
	total, err := svc.students.CountActive(ctx)
	if err != nil {
		return FinancialStats{}, errors.Wrap(err, "counting students")
	}

	stats := ComputeStats(pmts, exps, period, svc.now())
	stats.TotalStudents = total
	return stats, nil
}

func (svc *Service) CreateExpense(ctx context.Context, ne NewExpense, createdBy string) (Expense, error) {
	exp, err := svc.expenses.CreateExpense(ctx, Expense{
		Type:        ne.Type,
		Description: ne.Description,
		Amount:      core.RoundMoney(ne.Amount),
		Date:        ne.Date,
		Category:    ne.Category,
		Vendor:      ne.Vendor,
		CreatedBy:   createdBy,
		CreatedAt:   time.Now().UTC(),
	})
	return exp, errors.Wrap(err, "creating expense")
}

func (svc *Service) GetExpense(ctx context.Context, id string) (Expense, error) {
	return svc.expenses.GetExpense(ctx, id)
}

func (svc *Service) QueryExpenses(ctx context.Context, filter *ExpenseFilter, ordering []core.DBOrdering) ([]Expense, error) {
	return svc.expenses.QueryExpenses(ctx, filter, ordering)
}

func (svc *Service) DeleteExpense(ctx context.Context, id string) error {
	return svc.expenses.DeleteExpense(ctx, id)
}

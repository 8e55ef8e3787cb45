// Package schedulersvc runs the periodic billing jobs.
package schedulersvc

import (
	"context"
	"fmt"
	"net/mail"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
)

const (
	reminderTemplate = "payment_reminder"
	jobTimeout       = 10 * time.Minute
)

// Biller is the part of the billing service the jobs need.
type Biller interface {
	CurrentMonth() core.Month
	GenerateForActiveStudents(ctx context.Context, month core.Month, schoolYearID string) (billing.BatchResult, error)
	OverduePayments(ctx context.Context) ([]billing.PaymentDetail, error)
}

type Scheduler struct {
	cron     *cron.Cron
	biller   Biller
	mailer   core.EmailService
	logger   core.Logger
	currency string
}

// New registers the monthly generation and the overdue reminder jobs on a cron running in the billing time zone.
func New(conf *core.Config, biller Biller, mailer core.EmailService, logger core.Logger) (*Scheduler, error) {
	cl := cronLogger{logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(conf.Billing.Location()),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		biller:   biller,
		mailer:   mailer,
		logger:   logger,
		currency: conf.Billing.Currency,
	}

	if _, err := s.cron.AddFunc(conf.Scheduler.GenerateSpec, s.job("generate", func(ctx context.Context) error {
		_, err := s.GenerateMonthly(ctx)
		return err
	})); err != nil {
		return nil, errors.Wrap(err, "scheduling payment generation")
	}
	if _, err := s.cron.AddFunc(conf.Scheduler.RemindSpec, s.job("remind", func(ctx context.Context) error {
		_, err := s.RemindOverdue(ctx)
		return err
	})); err != nil {
		return nil, errors.Wrap(err, "scheduling overdue reminders")
	}
	return s, nil
}

func (s *Scheduler) job(name string, run func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		if err := run(ctx); err != nil {
			s.logger.Error(fmt.Sprintf("job %s: %v", name, err), err, map[string]interface{}{"job": name})
		}
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops the cron; the returned context is done once running jobs complete.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

// GenerateMonthly creates the current month's payment of every active student.
func (s *Scheduler) GenerateMonthly(ctx context.Context) (billing.BatchResult, error) {
	month := s.biller.CurrentMonth()
	res, err := s.biller.GenerateForActiveStudents(ctx, month, "")
	if err != nil {
		return res, errors.Wrapf(err, "generating payments for %s", month)
	}

	s.logger.Info(
		fmt.Sprintf("generated %d payments for %s", len(res.Created), month),
		map[string]interface{}{"month": month.String(), "students": res.Students, "created": len(res.Created), "failures": len(res.Failures)},
	)
	for _, f := range res.Failures {
		s.logger.Warn(
			fmt.Sprintf("cannot bill student %s: %s", f.StudentCode, f.Error),
			map[string]interface{}{"month": month.String(), "studentId": f.StudentID},
		)
	}
	return res, nil
}

type (
	reminderLine struct {
		Amount  string
		DueDate string
	}

	reminderData struct {
		GuardianName string
		StudentName  string
		StudentCode  string
		Payments     []reminderLine
		Total        string
		Currency     string
	}
)

// RemindOverdue emails each guardian the list of their student's overdue payments, and returns the number of emails sent.
// Students without a guardian email are skipped.
func (s *Scheduler) RemindOverdue(ctx context.Context) (int, error) {
	overdue, err := s.biller.OverduePayments(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "querying overdue payments")
	}

	messages := ReminderMessages(overdue, s.currency)
	if len(messages) > 0 {
		s.mailer.SendMessages(messages...)
	}
	s.logger.Info(
		fmt.Sprintf("sent %d overdue reminders", len(messages)),
		map[string]interface{}{"overduePayments": len(overdue), "reminders": len(messages)},
	)
	return len(messages), nil
}

// ReminderMessages builds one message per student, in the order students first appear in `overdue`.
func ReminderMessages(overdue []billing.PaymentDetail, currency string) []*core.EmailMessage {
	var (
		order   []string
		grouped = make(map[string][]billing.PaymentDetail)
	)
	for _, pmt := range overdue {
		if !pmt.GuardianEmail.Valid || pmt.GuardianEmail.String == "" {
			continue
		}
		if _, ok := grouped[pmt.StudentID]; !ok {
			order = append(order, pmt.StudentID)
		}
		grouped[pmt.StudentID] = append(grouped[pmt.StudentID], pmt)
	}

	messages := make([]*core.EmailMessage, 0, len(order))
	for _, id := range order {
		pmts := grouped[id]
		first := pmts[0]
		guardian := first.GuardianName.String
		if guardian == "" {
			guardian = "Guardian"
		}

		data := reminderData{
			GuardianName: guardian,
			StudentName:  first.StudentName,
			StudentCode:  first.StudentCode,
			Currency:     currency,
		}
		total := decimal.Zero
		for _, pmt := range pmts {
			total = total.Add(pmt.Amount)
			data.Payments = append(data.Payments, reminderLine{
				Amount:  pmt.Amount.StringFixed(2),
				DueDate: pmt.DueDate.String(),
			})
		}
		data.Total = total.StringFixed(2)

		messages = append(messages, &core.EmailMessage{
			To:           []mail.Address{{Name: first.GuardianName.String, Address: first.GuardianEmail.String}},
			Subject:      fmt.Sprintf("Overdue payments for %s", first.StudentName),
			TemplateName: reminderTemplate,
			TemplateData: data,
		})
	}
	return messages
}

// cronLogger routes cron's own logs to the app logger.
type cronLogger struct {
	logger core.Logger
}

var _ cron.Logger = cronLogger{}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, kvFields(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, err, kvFields(keysAndValues))
}

func kvFields(keysAndValues []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

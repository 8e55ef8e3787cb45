package dig_container

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/kelasi/apps/api/echo"
	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/schoolyear"
	"github.com/trezcool/kelasi/core/student"
	emailsvc "github.com/trezcool/kelasi/services/email"
	logsvc "github.com/trezcool/kelasi/services/logger"
	schedulersvc "github.com/trezcool/kelasi/services/scheduler"
	"github.com/trezcool/kelasi/storage/database"
	sqlxrepos "github.com/trezcool/kelasi/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

func newLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(os.Stdout, "API", conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	return logsvc.NewRollbarLogger(os.Stdout, "DB", conf)
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, *sql.DB) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db.DB
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newStudentService(repo student.Repository, plans membership.Repository, years schoolyear.Repository) *student.Service {
	return student.NewService(repo, plans, years)
}

func newBillingService(
	conf *core.Config,
	payments billing.PaymentRepository,
	expenses billing.ExpenseRepository,
	students *student.Service,
	plans *membership.Service,
	years *schoolyear.Service,
) *billing.Service {
	return billing.NewService(payments, expenses, students, plans, years, billing.Options{
		DueDay:   conf.Billing.DueDay,
		Location: conf.Billing.Location(),
	})
}

func newScheduler(conf *core.Config, svc *billing.Service, mailer core.EmailService, logger core.Logger) (*schedulersvc.Scheduler, error) {
	return schedulersvc.New(conf, svc, mailer, logger)
}

type serverParams struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	PlanSvc       *membership.Service
	SchoolYearSvc *schoolyear.Service
	StudentSvc    *student.Service
	BillingSvc    *billing.Service
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		PlanSvc:       p.PlanSvc,
		SchoolYearSvc: p.SchoolYearSvc,
		StudentSvc:    p.StudentSvc,
		BillingSvc:    p.BillingSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(sqlxrepos.NewPlanRepository, dig.As(new(membership.Repository))))
	must(c.Provide(sqlxrepos.NewSchoolYearRepository, dig.As(new(schoolyear.Repository))))
	must(c.Provide(sqlxrepos.NewStudentRepository, dig.As(new(student.Repository))))
	must(c.Provide(sqlxrepos.NewPaymentRepository, dig.As(new(billing.PaymentRepository))))
	must(c.Provide(sqlxrepos.NewExpenseRepository, dig.As(new(billing.ExpenseRepository))))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))
	must(c.Provide(membership.NewService))
	must(c.Provide(schoolyear.NewService))
	must(c.Provide(newStudentService))
	must(c.Provide(newBillingService))
	must(c.Provide(newScheduler))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}

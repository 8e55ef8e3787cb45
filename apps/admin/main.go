package main

import (
	"fmt"
	"os"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/schoolyear"
	"github.com/trezcool/kelasi/core/student"
	logsvc "github.com/trezcool/kelasi/services/logger"
	"github.com/trezcool/kelasi/storage/database"
	sqlxrepos "github.com/trezcool/kelasi/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}
	logger = logsvc.NewRollbarLogger(os.Stdout, "ADMIN", conf)

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	plans := sqlxrepos.NewPlanRepository(db)
	years := sqlxrepos.NewSchoolYearRepository(db)
	studentSvc := student.NewService(sqlxrepos.NewStudentRepository(db), plans, years)
	billingSvc := billing.NewService(
		sqlxrepos.NewPaymentRepository(db),
		sqlxrepos.NewExpenseRepository(db),
		studentSvc,
		membership.NewService(plans),
		schoolyear.NewService(years),
		billing.Options{DueDay: conf.Billing.DueDay, Location: conf.Billing.Location()},
	)

	// start CLI
	cli := commandLine{
		conf:    conf,
		db:      db.DB,
		billing: billingSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %s", err), err)
		}
		db.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}

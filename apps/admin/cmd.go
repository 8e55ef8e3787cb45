package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
)

var errHelp = errors.New("help provided")

// batchGenerator is the part of the billing service the generate command needs.
type batchGenerator interface {
	CurrentMonth() core.Month
	GenerateForActiveStudents(ctx context.Context, month core.Month, schoolYearID string) (billing.BatchResult, error)
}

type commandLine struct {
	conf    *core.Config
	db      *sql.DB
	billing batchGenerator
	out     io.Writer
}

func (cli *commandLine) printUsage() {
	fmt.Println("Usage:")
	fmt.Println("  migrate COMMAND [ARGS] - run a database migration command (up, down, status, redo, version...)")
	fmt.Println("  generate [-month YYYY-MM] [-school-year ID] - generate the monthly payments of every active student")
	fmt.Println("  token -id ID -name NAME -role ROLE [-role ROLE...] [-ttl DURATION] - issue a staff API token")
}

func (cli *commandLine) writer() io.Writer {
	if cli.out != nil {
		return cli.out
	}
	return os.Stdout
}

type rolesFlag []string

func (rf *rolesFlag) String() string { return fmt.Sprint(*rf) }

func (rf *rolesFlag) Set(role string) error {
	*rf = append(*rf, role)
	return nil
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	generateCmd := flag.NewFlagSet("generate", flag.ContinueOnError)
	generateMonth := generateCmd.String("month", "", "The month to bill, YYYY-MM. Defaults to the current month.")
	generateYear := generateCmd.String("school-year", "", "The school year ID. Defaults to the one covering the month.")

	tokenCmd := flag.NewFlagSet("token", flag.ContinueOnError)
	tokenID := tokenCmd.String("id", "", "The staff member ID.")
	tokenName := tokenCmd.String("name", "", "The staff member name.")
	tokenTTL := tokenCmd.Duration("ttl", 0, "How long the token is valid. Defaults to the configured JWT expiration.")
	var tokenRoles rolesFlag
	tokenCmd.Var(&tokenRoles, "role", "A staff role, repeatable.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "generate":
		if err := generateCmd.Parse(args[2:]); err != nil {
			return err
		}
		return cli.generate(*generateMonth, *generateYear)
	case "token":
		if err := tokenCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *tokenID == "" || *tokenName == "" || len(tokenRoles) == 0 {
			tokenCmd.Usage()
			return errHelp
		}
		return cli.token(*tokenID, *tokenName, tokenRoles, *tokenTTL)
	default:
		cli.printUsage()
		return errHelp
	}
}

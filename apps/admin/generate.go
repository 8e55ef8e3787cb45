package main

import (
	"context"
	"fmt"

	"github.com/trezcool/kelasi/core"
)

func (cli *commandLine) generate(month, schoolYearID string) error {
	m := cli.billing.CurrentMonth()
	if month != "" {
		var err error
		if m, err = core.ParseMonth(month); err != nil {
			return err
		}
	}

	res, err := cli.billing.GenerateForActiveStudents(context.Background(), m, schoolYearID)
	if err != nil {
		return err
	}

	out := cli.writer()
	fmt.Fprintf(out, "%s: %d payment(s) created for %d active student(s)\n", m, len(res.Created), res.Students)
	for _, f := range res.Failures {
		fmt.Fprintf(out, "  skipped %s: %s\n", f.StudentCode, f.Error)
	}
	return nil
}

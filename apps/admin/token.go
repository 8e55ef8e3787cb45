package main

import (
	"fmt"
	"time"

	echoapi "github.com/trezcool/kelasi/apps/api/echo"
	"github.com/trezcool/kelasi/core/staff"
)

func (cli *commandLine) token(id, name string, roles []string, ttl time.Duration) error {
	for _, role := range roles {
		if !staff.IsValidRole(role) {
			return fmt.Errorf("%q: no such role", role)
		}
	}

	tkn, err := echoapi.GenerateToken(cli.conf, echoapi.NewStaffClaims(cli.conf, id, name, roles, ttl))
	if err != nil {
		return err
	}
	fmt.Fprintln(cli.writer(), tkn)
	return nil
}

package echoapi

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/kelasi/core"
)

var orderingParam = "ordering"

type Ordering struct {
	Orderings []core.DBOrdering
}

func (ord *Ordering) Bind(ctx echo.Context) {
	data := ctx.QueryParams()
	if len(data) == 0 {
		return
	}
	val, ok := data[orderingParam]
	if !ok || len(val) == 0 || val[0] == "" {
		return
	}

	for _, field := range strings.Split(val[0], ",") {
		field = strings.TrimSpace(field)
		descending := strings.HasPrefix(field, "-")
		if descending {
			field = field[1:] // drop "-"
		}
		ord.Orderings = append(ord.Orderings, core.DBOrdering{Field: field, Ascending: !descending})
	}
}

// Allowed keeps the orderings on `allowed` API fields, mapped to their column names.
func (ord *Ordering) Allowed(allowed map[string]string) []core.DBOrdering {
	return core.FilterOrderings(ord.Orderings, allowed)
}

// queryParams parses typed query params, collecting one field error per invalid value.
type queryParams struct {
	ctx    echo.Context
	errors []core.FieldError
}

func newQueryParams(ctx echo.Context) *queryParams {
	return &queryParams{ctx: ctx}
}

func (qp *queryParams) String(name string) string {
	return core.CleanString(qp.ctx.QueryParam(name))
}

func (qp *queryParams) Bool(name string) *bool {
	val := qp.String(name)
	if val == "" {
		return nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		qp.errors = append(qp.errors, core.FieldError{Field: name, Error: "must be true or false"})
		return nil
	}
	return &b
}

func (qp *queryParams) Date(name string) core.Date {
	val := qp.String(name)
	if val == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(val)
	if err != nil {
		qp.errors = append(qp.errors, core.FieldError{Field: name, Error: err.Error()})
	}
	return d
}

func (qp *queryParams) Month(name string) core.Month {
	val := qp.String(name)
	if val == "" {
		return core.Month{}
	}
	m, err := core.ParseMonth(val)
	if err != nil {
		qp.errors = append(qp.errors, core.FieldError{Field: name, Error: err.Error()})
	}
	return m
}

// OneOf returns the upper-cased value of `name` when it is one of `choices`.
func (qp *queryParams) OneOf(name string, choices ...string) string {
	val := strings.ToUpper(qp.String(name))
	if val == "" {
		return ""
	}
	for _, c := range choices {
		if val == c {
			return val
		}
	}
	qp.errors = append(qp.errors, core.FieldError{Field: name, Error: "must be one of " + strings.Join(choices, ", ")})
	return ""
}

func (qp *queryParams) Err() error {
	if len(qp.errors) == 0 {
		return nil
	}
	return core.NewValidationError(nil, qp.errors...)
}

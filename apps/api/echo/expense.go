package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core/billing"
	"github.com/trezcool/kelasi/core/staff"
)

var expenseOrderings = map[string]string{
	"date":   "date",
	"amount": "amount",
	"type":   "type",
}

type expenseApi struct {
	svc      *billing.Service
	validate *validator.Validate
}

func registerExpenseAPI(g *echo.Group, svc *billing.Service, validate *validator.Validate) {
	api := expenseApi{svc: svc, validate: validate}

	eg := g.Group("/expenses", roleMiddleware(staff.BillingRoles...))
	eg.GET("", api.query)
	eg.POST("", api.create)
	eg.GET("/:id", api.retrieve)
	eg.DELETE("/:id", api.destroy)
}

func (api *expenseApi) create(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}

	var data billing.NewExpense
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewExpense")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	exp, err := api.svc.CreateExpense(ctx.Request().Context(), data, claims.Subject)
	if err != nil {
		return errors.Wrap(err, "creating expense")
	}
	return ctx.JSON(http.StatusCreated, exp)
}

func (api *expenseApi) query(ctx echo.Context) error {
	qp := newQueryParams(ctx)
	filter := &billing.ExpenseFilter{
		Type: billing.ExpenseType(qp.OneOf(
			"type",
			string(billing.ExpenseService), string(billing.ExpenseMaterials), string(billing.ExpenseDailyEmployees),
		)),
		Category: qp.String("category"),
		From:     qp.Date("from"),
		To:       qp.Date("to"),
	}
	if err := qp.Err(); err != nil {
		return err
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	exps, err := api.svc.QueryExpenses(ctx.Request().Context(), filter, ordering.Allowed(expenseOrderings))
	if err != nil {
		return errors.Wrap(err, "querying expenses")
	}
	if exps == nil {
		exps = []billing.Expense{}
	}
	return ctx.JSON(http.StatusOK, exps)
}

func (api *expenseApi) retrieve(ctx echo.Context) error {
	exp, err := api.svc.GetExpense(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting expense")
	}
	return ctx.JSON(http.StatusOK, exp)
}

func (api *expenseApi) destroy(ctx echo.Context) error {
	if err := api.svc.DeleteExpense(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting expense")
	}
	return ctx.NoContent(http.StatusNoContent)
}

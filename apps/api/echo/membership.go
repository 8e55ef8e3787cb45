package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/staff"
)

var planOrderings = map[string]string{
	"name":         "name",
	"daysPerWeek":  "days_per_week",
	"monthlyPrice": "monthly_price",
}

type planApi struct {
	svc      *membership.Service
	validate *validator.Validate
}

func registerPlanAPI(g *echo.Group, svc *membership.Service, validate *validator.Validate) {
	api := planApi{svc: svc, validate: validate}

	pg := g.Group("/plans")
	pg.GET("", api.query)
	pg.POST("", api.create, roleMiddleware(staff.RoleAdmin))
	pg.GET("/:id", api.retrieve)
	pg.PUT("/:id", api.update, roleMiddleware(staff.RoleAdmin))
}

func (api *planApi) create(ctx echo.Context) error {
	var data membership.NewPlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPlan")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	plan, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating plan")
	}
	return ctx.JSON(http.StatusCreated, plan)
}

func (api *planApi) query(ctx echo.Context) error {
	qp := newQueryParams(ctx)
	filter := &membership.QueryFilter{
		Search:   qp.String("search"),
		IsActive: qp.Bool("isActive"),
	}
	if err := qp.Err(); err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	plans, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Allowed(planOrderings))
	if err != nil {
		return errors.Wrap(err, "querying plans")
	}
	if plans == nil {
		plans = []membership.Plan{}
	}
	return ctx.JSON(http.StatusOK, plans)
}

func (api *planApi) retrieve(ctx echo.Context) error {
	plan, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

func (api *planApi) update(ctx echo.Context) error {
	var data membership.UpdatePlan
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdatePlan")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	plan, err := api.svc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating plan")
	}
	return ctx.JSON(http.StatusOK, plan)
}

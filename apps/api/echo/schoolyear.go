package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core/schoolyear"
	"github.com/trezcool/kelasi/core/staff"
)

type schoolYearApi struct {
	svc      *schoolyear.Service
	validate *validator.Validate
}

func registerSchoolYearAPI(g *echo.Group, svc *schoolyear.Service, validate *validator.Validate) {
	api := schoolYearApi{svc: svc, validate: validate}

	yg := g.Group("/school-years")
	yg.GET("", api.query)
	yg.POST("", api.create, roleMiddleware(staff.RoleAdmin))
	yg.GET("/:id", api.retrieve)
	yg.PUT("/:id", api.update, roleMiddleware(staff.RoleAdmin))
}

func (api *schoolYearApi) create(ctx echo.Context) error {
	var data schoolyear.NewSchoolYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewSchoolYear")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	sy, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating school year")
	}
	return ctx.JSON(http.StatusCreated, sy)
}

func (api *schoolYearApi) query(ctx echo.Context) error {
	qp := newQueryParams(ctx)
	filter := &schoolyear.QueryFilter{
		IsActive: qp.Bool("isActive"),
		Covering: qp.Month("month"),
	}
	if err := qp.Err(); err != nil {
		return err
	}

	years, err := api.svc.Query(ctx.Request().Context(), filter)
	if err != nil {
		return errors.Wrap(err, "querying school years")
	}
	if years == nil {
		years = []schoolyear.SchoolYear{}
	}
	return ctx.JSON(http.StatusOK, years)
}

func (api *schoolYearApi) retrieve(ctx echo.Context) error {
	sy, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting school year")
	}
	return ctx.JSON(http.StatusOK, sy)
}

func (api *schoolYearApi) update(ctx echo.Context) error {
	sy, err := api.svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting school year")
	}

	var data schoolyear.UpdateSchoolYear
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateSchoolYear")
	}
	if err := data.Validate(sy, api.validate); err != nil {
		return err
	}

	sy, err = api.svc.Update(ctx.Request().Context(), sy, data)
	if err != nil {
		return errors.Wrap(err, "updating school year")
	}
	return ctx.JSON(http.StatusOK, sy)
}

package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core/billing"
	"github.com/trezcool/kelasi/core/staff"
)

type statsApi struct {
	svc *billing.Service
}

func registerStatsAPI(g *echo.Group, svc *billing.Service) {
	api := statsApi{svc: svc}

	sg := g.Group("/stats", roleMiddleware(staff.BillingRoles...))
	sg.GET("/financial", api.financial)
}

// financial serves GET /stats/financial?period=month|year|all&month=YYYY-MM&year=YYYY
func (api *statsApi) financial(ctx echo.Context) error {
	period, err := billing.ParsePeriod(
		ctx.QueryParam("period"),
		ctx.QueryParam("month"),
		ctx.QueryParam("year"),
		api.svc.Now(),
	)
	if err != nil {
		return err
	}

	stats, err := api.svc.Stats(ctx.Request().Context(), period)
	if err != nil {
		return errors.Wrap(err, "computing financial stats")
	}
	return ctx.JSON(http.StatusOK, stats)
}

package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core/billing"
	"github.com/trezcool/kelasi/core/staff"
	"github.com/trezcool/kelasi/core/student"
)

var studentOrderings = map[string]string{
	"studentCode":    "student_code",
	"firstName":      "first_name",
	"lastName":       "last_name",
	"enrollmentDate": "enrollment_date",
}

type studentApi struct {
	svc        *student.Service
	billingSvc *billing.Service
	validate   *validator.Validate
}

func registerStudentAPI(g *echo.Group, svc *student.Service, billingSvc *billing.Service, validate *validator.Validate) {
	api := studentApi{svc: svc, billingSvc: billingSvc, validate: validate}

	sg := g.Group("/students")
	sg.GET("", api.query)
	sg.POST("", api.create, roleMiddleware(staff.FrontDeskRoles...))

	// detail endpoints
	dg := sg.Group("/:id", objectMiddleware(svc))
	dg.GET("", api.retrieve)
	dg.PUT("", api.update, roleMiddleware(staff.FrontDeskRoles...))
	dg.GET("/payments", api.queryPayments)
}

func (api *studentApi) create(ctx echo.Context) error {
	var data student.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err := api.svc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, std)
}

func (api *studentApi) query(ctx echo.Context) error {
	qp := newQueryParams(ctx)
	filter := &student.QueryFilter{
		Search:           qp.String("search"),
		MembershipPlanID: qp.String("membershipPlanId"),
		SchoolYearID:     qp.String("schoolYearId"),
		IsActive:         qp.Bool("isActive"),
	}
	if err := qp.Err(); err != nil {
		return err
	}
	filter.Clean()
	ordering := new(Ordering)
	ordering.Bind(ctx)

	students, err := api.svc.Query(ctx.Request().Context(), filter, ordering.Allowed(studentOrderings))
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []student.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *studentApi) retrieve(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) update(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}

	var data student.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	std, err = api.svc.Update(ctx.Request().Context(), std, data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, std)
}

func (api *studentApi) queryPayments(ctx echo.Context) error {
	std, err := contextStudent(ctx)
	if err != nil {
		return err
	}
	filter, err := bindPaymentFilter(ctx)
	if err != nil {
		return err
	}
	filter.StudentID = std.ID
	ordering := new(Ordering)
	ordering.Bind(ctx)

	pmts, err := api.billingSvc.QueryPayments(ctx.Request().Context(), filter, ordering.Allowed(paymentOrderings))
	if err != nil {
		return errors.Wrap(err, "querying student payments")
	}
	if pmts == nil {
		pmts = []billing.Payment{}
	}
	return ctx.JSON(http.StatusOK, pmts)
}

// objectMiddleware loads the student of the `:id` path param into the context.
func objectMiddleware(svc *student.Service) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			std, err := svc.GetByID(ctx.Request().Context(), ctx.Param("id"))
			if err != nil {
				return errors.Wrap(err, "finding student by ID")
			}
			ctx.Set("object", std)
			return next(ctx)
		}
	}
}

var errStdNotFoundInCtx = errors.New("student object not found in echo.Context")

func contextStudent(ctx echo.Context) (student.Student, error) {
	std, ok := ctx.Get("object").(student.Student)
	if !ok {
		return student.Student{}, errors.Wrap(errStdNotFoundInCtx, "retrieving object from context")
	}
	return std, nil
}

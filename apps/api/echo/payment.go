package echoapi

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/kelasi/core/billing"
	"github.com/trezcool/kelasi/core/staff"
	reportsvc "github.com/trezcool/kelasi/services/report"
)

const xlsxMIME = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var (
	paymentOrderings = map[string]string{
		"dueDate":   "due_date",
		"amount":    "amount",
		"status":    "status",
		"createdAt": "created_at",
	}
	paymentDetailOrderings = map[string]string{
		"dueDate":     "due_date",
		"amount":      "amount",
		"status":      "status",
		"createdAt":   "created_at",
		"studentCode": "student_code",
		"studentName": "student_name",
	}

	statusChoices = []string{
		string(billing.StatusPending),
		string(billing.StatusPaid),
		string(billing.StatusOverdue),
		string(billing.StatusCancelled),
	}
	paymentTypeChoices = []string{
		string(billing.PaymentMonthly),
		string(billing.PaymentRegistration),
		string(billing.PaymentMaterials),
		string(billing.PaymentOther),
	}
)

type paymentApi struct {
	svc      *billing.Service
	validate *validator.Validate
	currency string
}

func registerPaymentAPI(g *echo.Group, svc *billing.Service, validate *validator.Validate, currency string) {
	api := paymentApi{svc: svc, validate: validate, currency: currency}
	billingOnly := roleMiddleware(staff.BillingRoles...)

	pg := g.Group("/payments")
	pg.GET("", api.query)
	pg.POST("", api.create, billingOnly)
	pg.GET("/export", api.export, billingOnly)
	pg.POST("/generate", api.generate, billingOnly)
	pg.POST("/generate-all", api.generateAll, billingOnly)
	pg.GET("/:id", api.retrieve)
	pg.POST("/:id/pay", api.pay, billingOnly)
	pg.POST("/:id/cancel", api.cancel, billingOnly)
}

func bindPaymentFilter(ctx echo.Context) (*billing.PaymentFilter, error) {
	qp := newQueryParams(ctx)
	filter := &billing.PaymentFilter{
		StudentID:    qp.String("studentId"),
		SchoolYearID: qp.String("schoolYearId"),
		Status:       billing.Status(qp.OneOf("status", statusChoices...)),
		PaymentType:  billing.PaymentType(qp.OneOf("paymentType", paymentTypeChoices...)),
		DueFrom:      qp.Date("dueFrom"),
		DueTo:        qp.Date("dueTo"),
	}
	if m := qp.Month("month"); !m.IsZero() {
		filter.DueFrom, filter.DueTo = m.First(), m.Last()
	}
	if err := qp.Err(); err != nil {
		return nil, err
	}
	filter.Clean()
	return filter, nil
}

func (api *paymentApi) query(ctx echo.Context) error {
	filter, err := bindPaymentFilter(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	pmts, err := api.svc.QueryPayments(ctx.Request().Context(), filter, ordering.Allowed(paymentOrderings))
	if err != nil {
		return errors.Wrap(err, "querying payments")
	}
	if pmts == nil {
		pmts = []billing.Payment{}
	}
	return ctx.JSON(http.StatusOK, pmts)
}

func (api *paymentApi) create(ctx echo.Context) error {
	var data billing.NewPayment
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewPayment")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pmt, err := api.svc.CreatePayment(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating payment")
	}
	return ctx.JSON(http.StatusCreated, pmt)
}

func (api *paymentApi) export(ctx echo.Context) error {
	filter, err := bindPaymentFilter(ctx)
	if err != nil {
		return err
	}
	ordering := new(Ordering)
	ordering.Bind(ctx)

	details, err := api.svc.QueryPaymentDetails(ctx.Request().Context(), filter, ordering.Allowed(paymentDetailOrderings))
	if err != nil {
		return errors.Wrap(err, "querying payment details")
	}

	var buf bytes.Buffer
	if err := reportsvc.WritePaymentsXLSX(&buf, details, api.currency); err != nil {
		return errors.Wrap(err, "writing payments export")
	}
	fileName := fmt.Sprintf("payments_%s.xlsx", api.svc.Now().Format("20060102_150405"))
	ctx.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename="+fileName)
	return ctx.Blob(http.StatusOK, xlsxMIME, buf.Bytes())
}

func (api *paymentApi) generate(ctx echo.Context) error {
	var data billing.GenerateRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	created, err := api.svc.GenerateMissingPayments(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "generating payments")
	}
	return ctx.JSON(http.StatusOK, created)
}

func (api *paymentApi) generateAll(ctx echo.Context) error {
	var data billing.GenerateBatchRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to GenerateBatchRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	res, err := api.svc.GenerateForActiveStudents(ctx.Request().Context(), data.Month, data.SchoolYearID)
	if err != nil {
		return errors.Wrap(err, "generating payments for active students")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *paymentApi) retrieve(ctx echo.Context) error {
	pmt, err := api.svc.GetPayment(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *paymentApi) pay(ctx echo.Context) error {
	var data billing.PayRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to PayRequest")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	pmt, err := api.svc.MarkPaid(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "marking payment paid")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

func (api *paymentApi) cancel(ctx echo.Context) error {
	pmt, err := api.svc.Cancel(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "cancelling payment")
	}
	return ctx.JSON(http.StatusOK, pmt)
}

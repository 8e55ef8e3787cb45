package echoapi_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	. "github.com/trezcool/kelasi/apps/api/echo"
	"github.com/trezcool/kelasi/core"
	"github.com/trezcool/kelasi/core/billing"
	"github.com/trezcool/kelasi/core/membership"
	"github.com/trezcool/kelasi/core/schoolyear"
	"github.com/trezcool/kelasi/core/staff"
	"github.com/trezcool/kelasi/core/student"
	logsvc "github.com/trezcool/kelasi/services/logger"
	inmemdb "github.com/trezcool/kelasi/storage/database/inmem"
	testutil "github.com/trezcool/kelasi/tests"
)

// now is mid-March 2025 for the billing service.
var now = time.Date(2025, time.March, 15, 9, 0, 0, 0, time.UTC)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type env struct {
	conf     *core.Config
	app      *Server
	plans    membership.Repository
	years    schoolyear.Repository
	students student.Repository
	payments billing.PaymentRepository
	expenses billing.ExpenseRepository
	sy       schoolyear.SchoolYear

	adminToken      string
	accountantToken string
	receptionToken  string
	staffToken      string
}

func setup(t *testing.T) *env {
	conf := &core.Config{
		TestMode:  true,
		AppName:   "Kelasi",
		SecretKey: "t3st-s3cr3t",
		LogLevel:  "error",
		Server:    core.ServerConfig{JWTExpirationDelta: time.Hour},
		Billing:   core.BillingConfig{DueDay: 8, Currency: "USD"},
	}

	db := inmemdb.Open()
	e := &env{
		conf:     conf,
		plans:    inmemdb.NewPlanRepository(db),
		years:    inmemdb.NewSchoolYearRepository(db),
		students: inmemdb.NewStudentRepository(db),
		payments: inmemdb.NewPaymentRepository(db),
		expenses: inmemdb.NewExpenseRepository(db),
	}

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)

	planSvc := membership.NewService(e.plans)
	yearSvc := schoolyear.NewService(e.years)
	studentSvc := student.NewService(e.students, e.plans, e.years)
	billingSvc := billing.NewService(e.payments, e.expenses, studentSvc, planSvc, yearSvc, billing.Options{
		DueDay:   conf.Billing.DueDay,
		Location: time.UTC,
		Now:      func() time.Time { return now },
	})

	e.app = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logsvc.NewRollbarLogger(io.Discard, "API", conf),
		Validate:       validate,
		Translator:     translator,
		PlanSvc:        planSvc,
		SchoolYearSvc:  yearSvc,
		StudentSvc:     studentSvc,
		BillingSvc:     billingSvc,
		DisableReqLogs: true,
	})
	e.sy = testutil.CreateSchoolYear(t, e.years, "2024-2025", "2024-09-02", "2025-06-27")

	e.adminToken = getToken(t, conf, staff.RoleAdminOwner)
	e.accountantToken = getToken(t, conf, staff.RoleStaffAccountant)
	e.receptionToken = getToken(t, conf, staff.RoleStaffReception)
	e.staffToken = getToken(t, conf, staff.RoleStaff)
	return e
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func (e *env) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	e.app.ServeHTTP(rec, req)
	return rec
}

func getToken(t *testing.T, conf *core.Config, roles ...string) string {
	claims := NewStaffClaims(conf, "staff-"+roles[0], "Tester", roles)
	token, err := GenerateToken(conf, claims)
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj() failed: %v", err)
	}
	return data
}

func unmarshal(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("unmarshal() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ObjectsAreEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, e *env, tests []httpTest) {
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := e.do(tt.method, tt.path, tt.token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

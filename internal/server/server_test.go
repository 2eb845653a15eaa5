package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	cashregisterservice "github.com/Girosmedia/tendo-app-sub002/internal/cashregister/service"
	"github.com/Girosmedia/tendo-app-sub002/internal/clock"
	"github.com/Girosmedia/tendo-app-sub002/internal/config"
	customerdomain "github.com/Girosmedia/tendo-app-sub002/internal/customer/domain"
	documentservice "github.com/Girosmedia/tendo-app-sub002/internal/document/service"
	orgdomain "github.com/Girosmedia/tendo-app-sub002/internal/organization/domain"
	payabledomain "github.com/Girosmedia/tendo-app-sub002/internal/payable/domain"
	payableservice "github.com/Girosmedia/tendo-app-sub002/internal/payable/service"
	receivabledomain "github.com/Girosmedia/tendo-app-sub002/internal/receivable/domain"
	receivableservice "github.com/Girosmedia/tendo-app-sub002/internal/receivable/service"
	subscriptionservice "github.com/Girosmedia/tendo-app-sub002/internal/subscription/service"

	cashregisterdomain "github.com/Girosmedia/tendo-app-sub002/internal/cashregister/domain"
	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type testServer struct {
	engine     *gin.Engine
	db         *gorm.DB
	node       *snowflake.Node
	clock      *clock.FakeClock
	orgID      snowflake.ID
	actorID    snowflake.ID
	customerID snowflake.ID
	supplierID snowflake.ID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&orgdomain.Organization{},
		&customerdomain.Customer{},
		&receivabledomain.Credit{},
		&receivabledomain.Payment{},
		&payabledomain.AccountPayable{},
		&payabledomain.PayableApplication{},
		&payabledomain.Supplier{},
		&cashregisterdomain.Shift{},
		&cashregisterdomain.Sale{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))
	log := zap.NewNop()
	policy := config.NewStaticPolicyHolder(config.DefaultPolicy())

	metrics := NewMetrics()
	engine := NewEngine(log, metrics)

	NewServer(ServerParams{
		Gin:     engine,
		Cfg:     config.Config{AppName: "tendo-test"},
		Metrics: metrics,
		DocumentSvc: documentservice.NewService(documentservice.ServiceParam{
			Log: log,
		}),
		CashRegisterSvc: cashregisterservice.NewService(cashregisterservice.ServiceParam{
			DB: db, Log: log, GenID: node, Clock: fake, Policy: policy,
		}),
		ReceivableSvc: receivableservice.NewService(receivableservice.ServiceParam{
			DB: db, Log: log, GenID: node, Clock: fake,
		}),
		PayableSvc: payableservice.NewService(payableservice.ServiceParam{
			DB: db, Log: log, GenID: node, Clock: fake,
		}),
		SubscriptionSvc: subscriptionservice.NewService(subscriptionservice.ServiceParam{
			DB: db, Log: log, GenID: node, Clock: fake, Policy: policy,
		}),
	})

	orgID := node.Generate()
	actorID := node.Generate()
	customerID := node.Generate()
	supplierID := node.Generate()
	require.NoError(t, db.Create(&orgdomain.Organization{
		ID: orgID, Name: "corner store", Status: orgdomain.OrganizationStatusActive,
	}).Error)
	require.NoError(t, db.Create(&customerdomain.Customer{
		ID: customerID, OrgID: orgID, Name: "walk-in",
	}).Error)
	require.NoError(t, db.Create(&payabledomain.Supplier{
		ID: supplierID, OrgID: orgID, Name: "main distributor",
	}).Error)

	return &testServer{
		engine:     engine,
		db:         db,
		node:       node,
		clock:      fake,
		orgID:      orgID,
		actorID:    actorID,
		customerID: customerID,
		supplierID: supplierID,
	}
}

func (ts *testServer) request(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderOrg, ts.orgID.String())
	req.Header.Set(HeaderActor, ts.actorID.String())

	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out any) {
	t.Helper()
	var envelope struct {
		Data json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, out))
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAPIRequiresOrgHeader(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/credits", nil)
	w := httptest.NewRecorder()
	ts.engine.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestComputeDocumentTotals(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodPost, "/api/documents/totals", gin.H{
		"items": []gin.H{
			{"quantity": 2, "unit_price": 1000, "tax_rate_percent": 19},
			{"quantity": 1, "unit_price": 500, "tax_rate_percent": 19},
			{"quantity": 1, "unit_price": 2000, "tax_rate_percent": 19},
		},
		"header_discount": 500,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var totals struct {
		Total                 int64 `json:"total"`
		TaxAmount             int64 `json:"tax_amount"`
		GlobalDiscountApplied int64 `json:"global_discount_applied"`
	}
	decodeData(t, w, &totals)
	assert.Equal(t, int64(4000), totals.Total)
	assert.Equal(t, int64(639), totals.TaxAmount)
	assert.Equal(t, int64(500), totals.GlobalDiscountApplied)
}

func TestComputeDocumentTotals_RejectsBadInput(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodPost, "/api/documents/totals", gin.H{
		"items": []gin.H{
			{"quantity": -1, "unit_price": 1000, "tax_rate_percent": 19},
		},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreditPaymentFlow(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodPost, "/api/credits", gin.H{
		"customer_id": ts.customerID.String(),
		"amount":      10000,
		"due_date":    ts.clock.Now().AddDate(0, 1, 0).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var credit struct {
		ID snowflake.ID `json:"ID"`
	}
	decodeData(t, w, &credit)
	require.NotZero(t, credit.ID)

	w = ts.request(t, http.MethodPost, "/api/credits/"+credit.ID.String()+"/payments", gin.H{
		"amount": 4000,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result struct {
		Balance int64  `json:"balance"`
		Status  string `json:"status"`
	}
	decodeData(t, w, &result)
	assert.Equal(t, int64(6000), result.Balance)
	assert.Equal(t, "ACTIVE", result.Status)

	// Overpaying maps to a conflict, not a validation error.
	w = ts.request(t, http.MethodPost, "/api/credits/"+credit.ID.String()+"/payments", gin.H{
		"amount": 7000,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ts.request(t, http.MethodPost, "/api/credits/"+credit.ID.String()+"/payments", gin.H{
		"amount": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestShiftLifecycleOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodPost, "/api/shifts", gin.H{"opening_cash": 10000})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var shift struct {
		ID snowflake.ID `json:"ID"`
	}
	decodeData(t, w, &shift)

	w = ts.request(t, http.MethodPost, "/api/shifts/"+shift.ID.String()+"/sales", gin.H{
		"method": "CASH", "total": 1049,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = ts.request(t, http.MethodPost, "/api/shifts/"+shift.ID.String()+"/close", gin.H{
		"actual_cash": 11050,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var closed struct {
		Status        string `json:"Status"`
		ExpectedCash  *int64 `json:"ExpectedCash"`
		Difference    *int64 `json:"Difference"`
		VarianceClass string `json:"VarianceClass"`
	}
	decodeData(t, w, &closed)
	assert.Equal(t, "CLOSED", closed.Status)
	require.NotNil(t, closed.ExpectedCash)
	assert.Equal(t, int64(11050), *closed.ExpectedCash)
	assert.Equal(t, int64(0), *closed.Difference)
	assert.Equal(t, "OK", closed.VarianceClass)

	// Closing again conflicts.
	w = ts.request(t, http.MethodPost, "/api/shifts/"+shift.ID.String()+"/close", gin.H{
		"actual_cash": 11050,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestPayableNotFoundOverHTTP(t *testing.T) {
	ts := newTestServer(t)

	w := ts.request(t, http.MethodGet, "/api/payables/"+ts.node.Generate().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

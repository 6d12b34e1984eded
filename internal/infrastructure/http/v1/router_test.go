package v1_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"lotkeeper/internal/app"
	"lotkeeper/internal/app/apptest"
	"lotkeeper/internal/core/apperror"
	"lotkeeper/internal/core/id"
	"lotkeeper/internal/core/types"
	"lotkeeper/internal/domain/catalogs/customer"
	v1 "lotkeeper/internal/infrastructure/http/v1"
	"lotkeeper/internal/infrastructure/http/v1/middleware"
	"lotkeeper/internal/infrastructure/storage/memory"
	"lotkeeper/pkg/logger"
)

func newRouter(t *testing.T, modify ...func(*app.Stores, *app.Config)) (*gin.Engine, *apptest.Env) {
	t.Helper()
	env := apptest.New(t, modify...)
	r := v1.NewRouter(v1.RouterConfig{
		App:         env.App,
		Logger:      logger.NewNop(),
		Idempotency: memory.NewIdempotencyStore(time.Hour),
		StoreMode:   "memory",
	})
	return r, env
}

func do(t *testing.T, r http.Handler, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

type saleBody struct {
	Sale struct {
		ID     id.ID       `json:"id"`
		Number string      `json:"number"`
		Total  types.Money `json:"total"`
		Items  []struct {
			ID       id.ID       `json:"id"`
			UnitCost types.Money `json:"unitCostAtSaleTime"`
		} `json:"items"`
	} `json:"sale"`
}

func stockUp(t *testing.T, r http.Handler, qty int) id.ID {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/v1/products", map[string]any{
		"name": "Rice 1kg", "costPrice": "5.00", "retailPrice": "8.00",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var p struct {
		ID id.ID `json:"id"`
	}
	decode(t, w, &p)

	w = do(t, r, http.MethodPost, "/api/v1/receipts", map[string]any{
		"kind":         "PURCHASE",
		"supplierName": "Atacadao",
		"paid":         true,
		"date":         apptest.Day0,
		"lines":        []map[string]any{{"productId": p.ID, "quantity": qty, "unitCost": "5"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return p.ID
}

func TestHealth(t *testing.T) {
	r, _ := newRouter(t)
	w := do(t, r, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"store":"memory"`)
	assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))
}

func TestSaleLifecycle(t *testing.T) {
	r, _ := newRouter(t)
	productID := stockUp(t, r, 10)

	w := do(t, r, http.MethodPost, "/api/v1/sales", map[string]any{
		"paymentMethod": "CASH",
		"date":          apptest.Day0.AddDate(0, 0, 1),
		"lines":         []map[string]any{{"productId": productID, "quantity": "4", "unitPrice": "8.00"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created saleBody
	decode(t, w, &created)
	assert.Equal(t, "V-2026-00001", created.Sale.Number)
	assert.Equal(t, "32.00", created.Sale.Total.StringFixed(2))
	require.Len(t, created.Sale.Items, 1)
	assert.Equal(t, "5.0000", created.Sale.Items[0].UnitCost.StringFixed(4))

	w = do(t, r, http.MethodPost, "/api/v1/sales/"+created.Sale.ID.String()+"/returns", map[string]any{
		"lines": []map[string]any{{"itemId": created.Sale.Items[0].ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodPost, "/api/v1/sales/"+created.Sale.ID.String()+"/void", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"status":"CANCELED"`)

	w = do(t, r, http.MethodGet, "/api/v1/products/"+productID.String()+"/reconciliation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec struct {
		Projection types.Quantity `json:"projection"`
		Consistent bool           `json:"consistent"`
	}
	decode(t, w, &rec)
	assert.True(t, rec.Consistent)
	assert.Equal(t, types.NewQuantity(10), rec.Projection)
}

func TestSale_InsufficientStock(t *testing.T) {
	r, _ := newRouter(t)
	productID := stockUp(t, r, 2)

	w := do(t, r, http.MethodPost, "/api/v1/sales", map[string]any{
		"paymentMethod": "PIX",
		"lines":         []map[string]any{{"productId": productID, "quantity": 3, "unitPrice": "8.00"}},
	})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body map[string]any
	decode(t, w, &body)
	assert.Equal(t, apperror.CodeInsufficientStock, body["code"])
	details := body["details"].(map[string]any)
	assert.Equal(t, productID.String(), details["product_id"])
}

func TestSale_IdempotentReplay(t *testing.T) {
	r, env := newRouter(t)
	productID := stockUp(t, r, 10)
	body := map[string]any{
		"paymentMethod": "CARD",
		"lines":         []map[string]any{{"productId": productID, "quantity": 2, "unitPrice": "8.00"}},
	}

	first := do(t, r, http.MethodPost, "/api/v1/sales", body, middleware.HeaderIdempotencyKey, "pos-1-0001")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := do(t, r, http.MethodPost, "/api/v1/sales", body, middleware.HeaderIdempotencyKey, "pos-1-0001")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, types.NewQuantity(8), env.OnHand(t, productID))

	body["lines"] = []map[string]any{{"productId": productID, "quantity": 3, "unitPrice": "8.00"}}
	third := do(t, r, http.MethodPost, "/api/v1/sales", body, middleware.HeaderIdempotencyKey, "pos-1-0001")
	assert.Equal(t, http.StatusUnprocessableEntity, third.Code)
	assert.Equal(t, types.NewQuantity(8), env.OnHand(t, productID))
}

type failingDebt struct {
	customer.Repository
}

func (failingDebt) SetDebtBalance(context.Context, id.ID, types.Money) error {
	return errors.New("customer store unavailable")
}

func TestSale_PartialSuccessIs207(t *testing.T) {
	r, env := newRouter(t, func(st *app.Stores, _ *app.Config) {
		st.Customers = failingDebt{st.Customers}
	})
	productID := stockUp(t, r, 5)
	c := env.Customer(t, "Joao")

	w := do(t, r, http.MethodPost, "/api/v1/sales", map[string]any{
		"paymentMethod": "FIADO",
		"customerId":    c.ID,
		"lines":         []map[string]any{{"productId": productID, "quantity": 2, "unitPrice": "8.00"}},
	})
	require.Equal(t, http.StatusMultiStatus, w.Code, w.Body.String())

	var body struct {
		Result   saleBody `json:"result"`
		Warnings []struct {
			Code string `json:"code"`
		} `json:"warnings"`
	}
	decode(t, w, &body)
	assert.Equal(t, "16.00", body.Result.Sale.Total.StringFixed(2))
	require.Len(t, body.Warnings, 1)
	assert.Equal(t, apperror.CodePartialSuccess, body.Warnings[0].Code)
	assert.Equal(t, types.NewQuantity(3), env.OnHand(t, productID))
}

func TestReceipt_UnknownKindAndBadID(t *testing.T) {
	r, _ := newRouter(t)

	w := do(t, r, http.MethodPost, "/api/v1/receipts", map[string]any{
		"kind":  "GIFT",
		"lines": []map[string]any{{"productId": id.New(), "quantity": 1, "unitCost": "1"}},
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), apperror.CodeValidation)

	w = do(t, r, http.MethodPost, "/api/v1/receipts/not-a-uuid/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/sales/"+id.New().String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReceipt_CreditInstallmentsThenCancel(t *testing.T) {
	r, _ := newRouter(t)
	w := do(t, r, http.MethodPost, "/api/v1/products", map[string]any{"name": "Coffee 500g"})
	require.Equal(t, http.StatusCreated, w.Code)
	var p struct {
		ID id.ID `json:"id"`
	}
	decode(t, w, &p)

	w = do(t, r, http.MethodPost, "/api/v1/receipts", map[string]any{
		"kind":         "PURCHASE",
		"supplierName": "Cafe Bom",
		"installments": 3,
		"total":        "90.00",
		"lines":        []map[string]any{{"productId": p.ID, "quantity": 6, "unitCost": "15"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var res struct {
		Receipt struct {
			ID id.ID `json:"id"`
		} `json:"receipt"`
		Transactions []struct {
			Status string `json:"status"`
		} `json:"transactions"`
	}
	decode(t, w, &res)
	require.Len(t, res.Transactions, 3)
	for _, tx := range res.Transactions {
		assert.Equal(t, "PENDING", tx.Status)
	}

	w = do(t, r, http.MethodPost, "/api/v1/receipts/"+res.Receipt.ID.String()+"/cancel", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/ledger?status=PENDING", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())
}

func TestBatch_DiscardWritesOffRemainingStock(t *testing.T) {
	r, _ := newRouter(t)
	productID := stockUp(t, r, 10)

	w := do(t, r, http.MethodPost, "/api/v1/sales", map[string]any{
		"paymentMethod": "CASH",
		"date":          apptest.Day0.AddDate(0, 0, 1),
		"lines":         []map[string]any{{"productId": productID, "quantity": "4", "unitPrice": "8.00"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = do(t, r, http.MethodGet, "/api/v1/products/"+productID.String()+"/batches", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var lots struct {
		Items []struct {
			ID id.ID `json:"id"`
		} `json:"items"`
	}
	decode(t, w, &lots)
	require.Len(t, lots.Items, 1)
	path := "/api/v1/batches/" + lots.Items[0].ID.String()

	w = do(t, r, http.MethodDelete, path, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var res struct {
		WrittenOff types.Quantity `json:"writtenOff"`
		Value      types.Money    `json:"value"`
	}
	decode(t, w, &res)
	assert.Equal(t, types.NewQuantity(6), res.WrittenOff)
	assert.Equal(t, "30.00", res.Value.StringFixed(2))

	w = do(t, r, http.MethodGet, "/api/v1/products/"+productID.String()+"/reconciliation", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rec struct {
		Projection types.Quantity `json:"projection"`
		Consistent bool           `json:"consistent"`
	}
	decode(t, w, &rec)
	assert.True(t, rec.Consistent)
	assert.True(t, rec.Projection.IsZero())

	w = do(t, r, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRequestLoggerReachesDomainLogs(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	env := apptest.New(t)
	r := v1.NewRouter(v1.RouterConfig{
		App:       env.App,
		Logger:    &logger.Logger{SugaredLogger: zap.New(core).Sugar()},
		StoreMode: "memory",
	})
	productID := stockUp(t, r, 2)

	w := do(t, r, http.MethodPost, "/api/v1/sales", map[string]any{
		"paymentMethod": "PIX",
		"lines":         []map[string]any{{"productId": productID, "quantity": "1", "unitPrice": "8.00"}},
	}, middleware.HeaderRequestID, "req-42")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	completed := logs.FilterMessage("sale completed").All()
	require.Len(t, completed, 1)
	assert.Equal(t, "req-42", completed[0].ContextMap()["request_id"])
	assert.Equal(t, "sale.complete", completed[0].ContextMap()["operation"])
}

package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"godwillpos/backend/internal/domain"
	"godwillpos/backend/internal/obs"
	"godwillpos/backend/internal/persist"
	"godwillpos/backend/internal/service"
	"godwillpos/backend/internal/store/memory"
)

const (
	testSystemPassword    = "till-secret-1"
	testInventoryPassword = "stock-secret-2"
	testAuthSecret        = "test-secret-that-is-long-enough-000"
)

// testNow is late evening UTC, already the next day on the shop's clock.
var (
	testLocation = time.FixedZone("EAT", 3*3600)
	testNow      = time.Date(2026, 10, 17, 22, 30, 0, 0, time.UTC)
)

func newTestAPI(t *testing.T) *API {
	t.Helper()
	defaults, err := service.DefaultSettings("GODWILL SHOP", testSystemPassword, testInventoryPassword)
	if err != nil {
		t.Fatalf("default settings: %v", err)
	}
	registry := prometheus.NewRegistry()
	svc := service.New(memory.NewSeeded(defaults), persist.Noop{}, service.Config{
		Logger:   zerolog.Nop(),
		Metrics:  obs.NewMetrics("test", registry),
		Location: testLocation,
		Defaults: defaults,
		Now:      func() time.Time { return testNow },
	})
	auth := NewAuthManager(testAuthSecret, time.Hour, svc)
	return New(svc, auth, Options{
		AllowedOrigins: []string{"http://127.0.0.1:3000"},
		Logger:         zerolog.Nop(),
		Gatherer:       registry,
	})
}

type testClient struct {
	t       *testing.T
	handler http.Handler
	token   string
	headers map[string]string
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	c := &testClient{t: t, handler: newTestAPI(t).Handler(), headers: map[string]string{}}
	res := c.do(http.MethodPost, "/api/v1/auth/unlock", domain.UnlockRequest{Password: testSystemPassword})
	if res.Code != http.StatusOK {
		t.Fatalf("unlock failed: %d %s", res.Code, res.Body.String())
	}
	var unlocked domain.UnlockResponse
	decodeBody(t, res, &unlocked)
	c.token = unlocked.AccessToken
	return c
}

func (c *testClient) do(method string, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = strings.NewReader(v)
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}
	res := httptest.NewRecorder()
	c.handler.ServeHTTP(res, req)
	return res
}

func decodeBody(t *testing.T, res *httptest.ResponseRecorder, dest any) {
	t.Helper()
	if err := json.Unmarshal(res.Body.Bytes(), dest); err != nil {
		t.Fatalf("decode response %q: %v", res.Body.String(), err)
	}
}

func errorBody(t *testing.T, res *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	decodeBody(t, res, &body)
	return body
}

func TestHandleHealth(t *testing.T) {
	api := newTestAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()

	api.Handler().ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", res.Code)
	}
	var body map[string]any
	decodeBody(t, res, &body)
	if body["ok"] != true {
		t.Fatalf("expected ok=true, got %#v", body["ok"])
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	api := newTestAPI(t)
	for _, path := range []string{"/api/v1/products", "/api/v1/cart", "/api/v1/sales", "/api/v1/dashboard"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		res := httptest.NewRecorder()
		api.Handler().ServeHTTP(res, req)
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", path, res.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/products", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	res := httptest.NewRecorder()
	api.Handler().ServeHTTP(res, req)
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", res.Code)
	}
}

func TestCheckoutCashFlow(t *testing.T) {
	c := newTestClient(t)

	for iter := 0; iter < 2; iter++ {
		res := c.do(http.MethodPost, "/api/v1/cart/items", domain.AddCartItemRequest{ProductID: "p1"})
		if res.Code != http.StatusOK {
			t.Fatalf("add to cart: %d %s", res.Code, res.Body.String())
		}
	}
	var view domain.CartView
	decodeBody(t, c.do(http.MethodGet, "/api/v1/cart", nil), &view)
	if len(view.Items) != 1 || !view.Subtotal.Equal(decimal.NewFromInt(420)) {
		t.Fatalf("unexpected cart %+v", view)
	}

	res := c.do(http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{
		PaymentMethod:  "Cash",
		AmountReceived: decimal.NewFromInt(500),
	})
	if res.Code != http.StatusCreated {
		t.Fatalf("checkout: %d %s", res.Code, res.Body.String())
	}
	var out domain.CheckoutResponse
	decodeBody(t, res, &out)
	if !strings.HasPrefix(out.Sale.ID, "GW-") {
		t.Fatalf("unexpected sale id %q", out.Sale.ID)
	}
	if !out.Sale.Change.Equal(decimal.NewFromInt(80)) {
		t.Fatalf("expected change 80, got %s", out.Sale.Change)
	}
	if out.Sale.Cashier != service.DefaultCashier {
		t.Fatalf("expected default cashier, got %q", out.Sale.Cashier)
	}
	if out.EscposBase64 == "" {
		t.Fatalf("expected auto-print payload")
	}

	var product domain.Product
	decodeBody(t, c.do(http.MethodGet, "/api/v1/products/p1", nil), &product)
	if !product.Stock.Equal(decimal.NewFromInt(43)) {
		t.Fatalf("expected stock 43, got %s", product.Stock)
	}

	receiptRes := c.do(http.MethodGet, "/api/v1/sales/"+out.Sale.ID+"/receipt", nil)
	if receiptRes.Code != http.StatusOK {
		t.Fatalf("receipt: %d", receiptRes.Code)
	}
	if !strings.Contains(receiptRes.Body.String(), "GODWILL SHOP - RECEIPT") {
		t.Fatalf("unexpected receipt text: %s", receiptRes.Body.String())
	}

	var hardware domain.HardwareReceiptResponse
	decodeBody(t, c.do(http.MethodGet, "/api/v1/sales/"+out.Sale.ID+"/receipt?format=escpos", nil), &hardware)
	if hardware.SaleID != out.Sale.ID || hardware.EscposBase64 == "" {
		t.Fatalf("unexpected hardware receipt %+v", hardware)
	}

	var sales []domain.Sale
	decodeBody(t, c.do(http.MethodGet, "/api/v1/sales?q=maize", nil), &sales)
	if len(sales) != 1 || sales[0].ID != out.Sale.ID {
		t.Fatalf("expected search hit, got %+v", sales)
	}
}

func TestCheckoutRejectionsMapToStatus(t *testing.T) {
	c := newTestClient(t)

	res := c.do(http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{PaymentMethod: "Cash"})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("empty cart: expected 422, got %d", res.Code)
	}
	if kind := errorBody(t, res)["kind"]; kind != "validation" {
		t.Fatalf("expected validation kind, got %v", kind)
	}

	c.do(http.MethodPost, "/api/v1/cart/items", domain.AddCartItemRequest{ProductID: "p3"})
	res = c.do(http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{PaymentMethod: "Cash", AmountReceived: decimal.NewFromInt(10)})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("short cash: expected 422, got %d", res.Code)
	}

	if res := c.do(http.MethodPost, "/api/v1/day/close", nil); res.Code != http.StatusOK {
		t.Fatalf("close day: %d %s", res.Code, res.Body.String())
	}
	res = c.do(http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{PaymentMethod: "Mpesa"})
	if res.Code != http.StatusConflict {
		t.Fatalf("closed day: expected 409, got %d", res.Code)
	}
	if kind := errorBody(t, res)["kind"]; kind != "conflict" {
		t.Fatalf("expected conflict kind, got %v", kind)
	}

	if res := c.do(http.MethodPost, "/api/v1/day/close", nil); res.Code != http.StatusConflict {
		t.Fatalf("second close: expected 409, got %d", res.Code)
	}
	if res := c.do(http.MethodPost, "/api/v1/cart/items", domain.AddCartItemRequest{ProductID: "p1"}); res.Code != http.StatusConflict {
		t.Fatalf("add while closed: expected 409, got %d", res.Code)
	}
}

func TestCartRejectsQuantityBeyondStock(t *testing.T) {
	c := newTestClient(t)
	c.do(http.MethodPost, "/api/v1/cart/items", domain.AddCartItemRequest{ProductID: "p8"})

	res := c.do(http.MethodPatch, "/api/v1/cart/items/p8", domain.ChangeQuantityRequest{Delta: decimal.NewFromInt(5)})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d %s", res.Code, res.Body.String())
	}

	res = c.do(http.MethodPatch, "/api/v1/cart/items/p8", domain.ChangeQuantityRequest{Delta: decimal.NewFromInt(-1)})
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var view domain.CartView
	decodeBody(t, res, &view)
	if len(view.Items) != 0 {
		t.Fatalf("expected item removed at zero quantity, got %+v", view.Items)
	}

	res = c.do(http.MethodPost, "/api/v1/cart/items", domain.AddCartItemRequest{ProductID: "missing"})
	if res.Code != http.StatusNotFound {
		t.Fatalf("unknown product: expected 404, got %d", res.Code)
	}
}

func TestZReportEndpoints(t *testing.T) {
	c := newTestClient(t)

	if res := c.do(http.MethodGet, "/api/v1/zreports/current", nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before close, got %d", res.Code)
	}

	c.do(http.MethodPost, "/api/v1/cart/items", domain.AddCartItemRequest{ProductID: "p7"})
	c.do(http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{PaymentMethod: "Mpesa"})

	var report domain.ZReport
	decodeBody(t, c.do(http.MethodPost, "/api/v1/day/close", nil), &report)
	if report.TotalSales != 1 || !report.MpesaTotal.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("unexpected z-report %+v", report)
	}

	text := c.do(http.MethodGet, "/api/v1/zreports/current?format=text", nil)
	if text.Code != http.StatusOK || !strings.Contains(text.Body.String(), "SHIFT OFFICIALLY ARCHIVED") {
		t.Fatalf("unexpected text report %d: %s", text.Code, text.Body.String())
	}

	var history []domain.ZReport
	decodeBody(t, c.do(http.MethodGet, "/api/v1/zreports", nil), &history)
	if len(history) != 1 {
		t.Fatalf("expected one archived report, got %d", len(history))
	}
	if res := c.do(http.MethodGet, "/api/v1/zreports/0", nil); res.Code != http.StatusOK {
		t.Fatalf("expected archived text, got %d", res.Code)
	}
	if res := c.do(http.MethodGet, "/api/v1/zreports/7", nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for missing index, got %d", res.Code)
	}

	if res := c.do(http.MethodPost, "/api/v1/day/reopen", nil); res.Code != http.StatusOK {
		t.Fatalf("reopen: %d", res.Code)
	}
	if res := c.do(http.MethodPost, "/api/v1/day/reopen", nil); res.Code != http.StatusConflict {
		t.Fatalf("second reopen: expected 409, got %d", res.Code)
	}
}

func TestInventoryMutationsRequirePassword(t *testing.T) {
	c := newTestClient(t)
	product := domain.Product{
		ID:          "p11",
		Name:        "Bread 400g",
		Unit:        domain.UnitPiece,
		Stock:       decimal.NewFromInt(20),
		CostPrice:   decimal.NewFromInt(50),
		NormalPrice: decimal.NewFromInt(65),
	}

	if res := c.do(http.MethodPost, "/api/v1/products", product); res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without inventory password, got %d", res.Code)
	}
	c.headers[inventoryPasswordHeader] = "wrong"
	if res := c.do(http.MethodDelete, "/api/v1/products/p1", nil); res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 with wrong inventory password, got %d", res.Code)
	}

	c.headers[inventoryPasswordHeader] = testInventoryPassword
	if res := c.do(http.MethodPost, "/api/v1/products", product); res.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", res.Code, res.Body.String())
	}
	if res := c.do(http.MethodPost, "/api/v1/products", product); res.Code != http.StatusConflict {
		t.Fatalf("duplicate: expected 409, got %d", res.Code)
	}

	product.NormalPrice = decimal.NewFromInt(70)
	if res := c.do(http.MethodPut, "/api/v1/products/p11", product); res.Code != http.StatusOK {
		t.Fatalf("update: %d %s", res.Code, res.Body.String())
	}
	if res := c.do(http.MethodDelete, "/api/v1/products/p11", nil); res.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", res.Code)
	}
	if res := c.do(http.MethodGet, "/api/v1/products/p11", nil); res.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", res.Code)
	}

	bad := product
	bad.ID = "p12"
	bad.Name = ""
	res := c.do(http.MethodPost, "/api/v1/products/import", []domain.Product{product, bad})
	if res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("import with invalid record: expected 422, got %d", res.Code)
	}
	var result domain.ImportResult
	decodeBody(t, c.do(http.MethodPost, "/api/v1/products/import", []domain.Product{product}), &result)
	if result.Inserted != 1 {
		t.Fatalf("unexpected import result %+v", result)
	}
}

func TestMalformedJSONReturns400(t *testing.T) {
	c := newTestClient(t)
	res := c.do(http.MethodPost, "/api/v1/cart/items", `{"productId":`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	res = c.do(http.MethodPost, "/api/v1/cart/items", `{"productId":"p1","extra":true}`)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", res.Code)
	}
}

func TestReportsAndExports(t *testing.T) {
	c := newTestClient(t)
	c.do(http.MethodPost, "/api/v1/cart/items", domain.AddCartItemRequest{ProductID: "p5"})
	c.do(http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{PaymentMethod: "Cash", AmountReceived: decimal.NewFromInt(200)})

	var summary domain.SalesSummary
	decodeBody(t, c.do(http.MethodGet, "/api/v1/reports/summary", nil), &summary)
	if summary.Transactions != 1 || !summary.Revenue.Equal(decimal.NewFromInt(190)) {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if res := c.do(http.MethodGet, "/api/v1/reports/unknown", nil); res.Code != http.StatusNotFound {
		t.Fatalf("unknown report: expected 404, got %d", res.Code)
	}
	if res := c.do(http.MethodGet, "/api/v1/reports/summary?from=2026-10-20&to=2026-10-02", nil); res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("inverted range: expected 422, got %d", res.Code)
	}

	var stats domain.DashboardStats
	decodeBody(t, c.do(http.MethodGet, "/api/v1/dashboard", nil), &stats)
	if stats.Transactions != 1 || len(stats.Trend) != 7 {
		t.Fatalf("unexpected dashboard %+v", stats)
	}

	csvRes := c.do(http.MethodGet, "/api/v1/sales/export", nil)
	if got := csvRes.Header().Get("Content-Disposition"); !strings.Contains(got, "sales-2026-10-18.csv") {
		t.Fatalf("expected filename dated by the shop clock, got %q", got)
	}
	if !strings.HasPrefix(csvRes.Header().Get("Content-Type"), "text/csv") {
		t.Fatalf("unexpected content type %q", csvRes.Header().Get("Content-Type"))
	}
	if !strings.HasPrefix(csvRes.Body.String(), "Receipt No,Date,Total,Payment,Items") {
		t.Fatalf("unexpected csv: %s", csvRes.Body.String())
	}

	backup := c.do(http.MethodGet, "/api/v1/backup", nil)
	if !strings.Contains(backup.Header().Get("Content-Disposition"), "godwill-backup-2026-10-18.json") {
		t.Fatalf("expected backup attachment, got %q", backup.Header().Get("Content-Disposition"))
	}
	var bundle domain.Backup
	decodeBody(t, backup, &bundle)
	if len(bundle.Sales) != 1 || len(bundle.Products) != 10 {
		t.Fatalf("unexpected backup bundle: %d sales, %d products", len(bundle.Sales), len(bundle.Products))
	}
}

func TestRestorePurgeAndReset(t *testing.T) {
	c := newTestClient(t)
	c.headers[inventoryPasswordHeader] = testInventoryPassword

	if res := c.do(http.MethodPost, "/api/v1/restore", `[1,2]`); res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("malformed bundle: expected 422, got %d", res.Code)
	}

	res := c.do(http.MethodPost, "/api/v1/restore", `{"isDayClosed":true,"products":"oops"}`)
	if res.Code != http.StatusOK {
		t.Fatalf("partial restore: %d %s", res.Code, res.Body.String())
	}
	var restored domain.RestoreResult
	decodeBody(t, res, &restored)
	if len(restored.Applied) != 1 || restored.Applied[0] != "isDayClosed" || len(restored.Warnings) != 1 {
		t.Fatalf("unexpected restore result %+v", restored)
	}
	var stats domain.DashboardStats
	decodeBody(t, c.do(http.MethodGet, "/api/v1/dashboard", nil), &stats)
	if !stats.IsDayClosed {
		t.Fatalf("expected restored day flag")
	}

	if res := c.do(http.MethodPost, "/api/v1/system/reset", nil); res.Code != http.StatusOK {
		t.Fatalf("reset: %d", res.Code)
	}
	decodeBody(t, c.do(http.MethodGet, "/api/v1/dashboard", nil), &stats)
	if stats.IsDayClosed {
		t.Fatalf("expected reset to reopen the day")
	}

	c.do(http.MethodPost, "/api/v1/cart/items", domain.AddCartItemRequest{ProductID: "p7"})
	c.do(http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{PaymentMethod: "Split"})
	var purged map[string]int
	decodeBody(t, c.do(http.MethodDelete, "/api/v1/sales", nil), &purged)
	if purged["purged"] != 1 {
		t.Fatalf("expected one purged sale, got %v", purged)
	}
}

func TestSettingsHideSecrets(t *testing.T) {
	c := newTestClient(t)
	c.headers[inventoryPasswordHeader] = testInventoryPassword
	footer := "Karibu tena"
	res := c.do(http.MethodPut, "/api/v1/settings", domain.SettingsUpdateRequest{Footer: &footer})
	if res.Code != http.StatusOK {
		t.Fatalf("update settings: %d %s", res.Code, res.Body.String())
	}
	var settings domain.ShopSettings
	decodeBody(t, c.do(http.MethodGet, "/api/v1/settings", nil), &settings)
	if settings.Footer != footer {
		t.Fatalf("expected footer %q, got %q", footer, settings.Footer)
	}
	if settings.SystemPassword != "" || settings.InventoryPassword != "" {
		t.Fatalf("settings leaked secrets: %+v", settings)
	}

	short := "abc"
	if res := c.do(http.MethodPut, "/api/v1/settings", domain.SettingsUpdateRequest{SystemPassword: &short}); res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("short password: expected 422, got %d", res.Code)
	}
}

func TestSettingsChangeNeedsInventoryPassword(t *testing.T) {
	c := newTestClient(t)
	chosen := "chosen-by-till-9"

	res := c.do(http.MethodPut, "/api/v1/settings", domain.SettingsUpdateRequest{InventoryPassword: &chosen})
	if res.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without inventory password, got %d", res.Code)
	}

	c.headers[inventoryPasswordHeader] = chosen
	if res := c.do(http.MethodDelete, "/api/v1/sales", nil); res.Code != http.StatusForbidden {
		t.Fatalf("rejected settings change must not grant access, got %d", res.Code)
	}

	c.headers[inventoryPasswordHeader] = testInventoryPassword
	if res := c.do(http.MethodPut, "/api/v1/settings", domain.SettingsUpdateRequest{InventoryPassword: &chosen}); res.Code != http.StatusOK {
		t.Fatalf("rotation with current password: %d %s", res.Code, res.Body.String())
	}
	c.headers[inventoryPasswordHeader] = chosen
	if res := c.do(http.MethodDelete, "/api/v1/sales", nil); res.Code != http.StatusOK {
		t.Fatalf("expected rotated password to work, got %d", res.Code)
	}
}

func TestAuditLogsRecordUnlockedActor(t *testing.T) {
	c := newTestClient(t)
	c.do(http.MethodPost, "/api/v1/cart/items", domain.AddCartItemRequest{ProductID: "p7"})
	c.do(http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{PaymentMethod: "Mpesa"})

	var logs []domain.AuditLog
	decodeBody(t, c.do(http.MethodGet, "/api/v1/audit-logs", nil), &logs)
	if len(logs) == 0 {
		t.Fatalf("expected audit entries")
	}
	if logs[0].ActorUsername != terminalName || logs[0].ActorRole != operatorRole {
		t.Fatalf("unexpected actor on %+v", logs[0])
	}
	if res := c.do(http.MethodGet, "/api/v1/audit-logs?date=17-10-2026", nil); res.Code != http.StatusUnprocessableEntity {
		t.Fatalf("bad date: expected 422, got %d", res.Code)
	}
}

func TestMetricsEndpointIsPublic(t *testing.T) {
	c := newTestClient(t)
	c.do(http.MethodPost, "/api/v1/cart/items", domain.AddCartItemRequest{ProductID: "p7"})
	c.do(http.MethodPost, "/api/v1/checkout", domain.CheckoutRequest{PaymentMethod: "Mpesa"})

	c.token = ""
	res := c.do(http.MethodGet, "/metrics", nil)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if !strings.Contains(res.Body.String(), "test_sales_total") {
		t.Fatalf("expected sales counter in exposition")
	}
}

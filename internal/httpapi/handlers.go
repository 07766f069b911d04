package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"godwillpos/backend/internal/domain"
)

func (a *API) handleUnlock(w http.ResponseWriter, r *http.Request) {
	if !a.unlockLimiter.Allow(r.Context(), clientKey(r)) {
		writeError(w, http.StatusTooManyRequests, errors.New("too many unlock attempts, try again later"))
		return
	}

	var req domain.UnlockRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	res, err := a.auth.Unlock(r.Context(), req)
	if err != nil {
		a.logger.Warn().Str("client", clientKey(r)).Msg("unlock rejected")
		writeError(w, http.StatusUnauthorized, errBadPassword)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	query := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("q")))
	if query != "" {
		filtered := make([]domain.Product, 0, len(products))
		for _, p := range products {
			if strings.Contains(strings.ToLower(p.Name), query) || strings.Contains(strings.ToLower(p.SKU), query) {
				filtered = append(filtered, p)
			}
		}
		products = filtered
	}
	writeJSON(w, http.StatusOK, products)
}

func (a *API) handleExportProducts(w http.ResponseWriter, r *http.Request) {
	products, err := a.service.ListProducts(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="inventory.json"`)
	writeJSON(w, http.StatusOK, products)
}

func (a *API) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := a.service.GetProduct(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (a *API) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := decodeJSON(r, &product); err != nil {
		writeDecodeError(w, err)
		return
	}
	created, err := a.service.CreateProduct(r.Context(), product)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (a *API) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var product domain.Product
	if err := decodeJSON(r, &product); err != nil {
		writeDecodeError(w, err)
		return
	}
	updated, err := a.service.UpdateProduct(r.Context(), chi.URLParam(r, "id"), product)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (a *API) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := a.service.DeleteProduct(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleImportProducts(w http.ResponseWriter, r *http.Request) {
	var products []domain.Product
	if err := decodeJSON(r, &products); err != nil {
		writeDecodeError(w, err)
		return
	}
	result, err := a.service.ImportProducts(r.Context(), products)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleGetCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.service.Cart())
}

func (a *API) handleClearCart(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.service.ClearCart())
}

func (a *API) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	var req domain.AddCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	view, err := a.service.AddToCart(r.Context(), req.ProductID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleChangeCartItem(w http.ResponseWriter, r *http.Request) {
	var req domain.ChangeQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	view, err := a.service.ChangeCartQuantity(r.Context(), chi.URLParam(r, "productID"), req.Delta)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (a *API) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req domain.CheckoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	res, err := a.service.Checkout(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func (a *API) handleListSales(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 200, 5000)
	sales, err := a.service.ListSales(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sales)
}

func (a *API) handleExportSales(w http.ResponseWriter, r *http.Request) {
	body, err := a.service.ExportSalesCSV(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	filename := fmt.Sprintf("sales-%s.csv", a.service.Today())
	writeText(w, "text/csv; charset=utf-8", filename, body)
}

func (a *API) handleGetSale(w http.ResponseWriter, r *http.Request) {
	sale, err := a.service.GetSale(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sale)
}

func (a *API) handleSaleReceipt(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if strings.EqualFold(r.URL.Query().Get("format"), "escpos") {
		res, err := a.service.HardwareReceipt(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
		return
	}
	text, err := a.service.ReceiptText(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeText(w, "text/plain; charset=utf-8", "", text)
}

func (a *API) handleCloseDay(w http.ResponseWriter, r *http.Request) {
	report, err := a.service.CloseDay(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleReopenDay(w http.ResponseWriter, r *http.Request) {
	if err := a.service.ReopenDay(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"isDayClosed": false})
}

func (a *API) handleListZReports(w http.ResponseWriter, r *http.Request) {
	reports, err := a.service.ListZReports(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (a *API) handleCurrentZReport(w http.ResponseWriter, r *http.Request) {
	if strings.EqualFold(r.URL.Query().Get("format"), "text") {
		a.writeZReportText(w, r, -1)
		return
	}
	report, err := a.service.CurrentZReport(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleZReportByIndex renders one archived report as text. Index 0 is the
// oldest entry in the history.
func (a *API) handleZReportByIndex(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, errors.New("invalid report index"))
		return
	}
	a.writeZReportText(w, r, index)
}

func (a *API) writeZReportText(w http.ResponseWriter, r *http.Request, index int) {
	text, err := a.service.ZReportText(r.Context(), index)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeText(w, "text/plain; charset=utf-8", "", text)
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	result, err := a.service.Report(r.Context(), chi.URLParam(r, "kind"), query.Get("from"), query.Get("to"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := a.service.Dashboard(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := a.service.GetSettings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req domain.SettingsUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	settings, err := a.service.UpdateSettings(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, settings)
}

func (a *API) handleBackup(w http.ResponseWriter, r *http.Request) {
	body, err := a.service.ExportBackup(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	filename := fmt.Sprintf("godwill-backup-%s.json", a.service.Today())
	writeText(w, "application/json", filename, string(body))
}

func (a *API) handleRestore(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeDecodeError(w, err)
		return
	}
	result, err := a.service.Restore(r.Context(), body)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (a *API) handlePurgeSales(w http.ResponseWriter, r *http.Request) {
	purged, err := a.service.PurgeSales(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"purged": purged})
}

func (a *API) handleReset(w http.ResponseWriter, r *http.Request) {
	if err := a.service.Reset(r.Context()); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (a *API) handleAuditLogs(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveLimit(r.URL.Query().Get("limit"), 100, 1000)
	logs, err := a.service.ListAuditLogs(r.Context(), r.URL.Query().Get("date"), limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"godwillpos/backend/internal/domain"
	"godwillpos/backend/internal/obs"
	"godwillpos/backend/internal/service"
)

const (
	inventoryPasswordHeader = "X-Inventory-Password"
	defaultUnlockRate       = "5-M"
	jsonBodyLimit           = 1 << 20
	bundleBodyLimit         = 32 << 20
)

type Options struct {
	AllowedOrigins []string
	Logger         zerolog.Logger
	// UnlockRate is a limiter rate such as "5-M" applied per client address.
	UnlockRate string
	Gatherer   prometheus.Gatherer
}

type API struct {
	service        *service.Service
	auth           *AuthManager
	allowedOrigins []string
	logger         zerolog.Logger
	unlockLimiter  *attemptLimiter
	gatherer       prometheus.Gatherer
}

func New(svc *service.Service, auth *AuthManager, opts Options) *API {
	limiter, err := newAttemptLimiter(opts.UnlockRate)
	if err != nil {
		opts.Logger.Warn().Err(err).Str("rate", opts.UnlockRate).Msg("invalid unlock rate, using default")
		limiter, _ = newAttemptLimiter(defaultUnlockRate)
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	return &API{
		service:        svc,
		auth:           auth,
		allowedOrigins: opts.AllowedOrigins,
		logger:         opts.Logger,
		unlockLimiter:  limiter,
		gatherer:       opts.Gatherer,
	}
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}

func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(obs.RequestLogger{Logger: a.logger}.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   a.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", inventoryPasswordHeader},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(securityHeaders)

	r.Get("/healthz", a.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	r.MethodNotAllowed(writeMethodNotAllowed)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, errors.New("route not found"))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/unlock", a.handleUnlock)

		r.Group(func(r chi.Router) {
			r.Use(a.requireAuth)

			r.Get("/products", a.handleListProducts)
			r.Get("/products/export", a.handleExportProducts)
			r.Get("/products/{id}", a.handleGetProduct)
			r.Group(func(r chi.Router) {
				r.Use(a.requireInventoryPassword)
				r.Post("/products", a.handleCreateProduct)
				r.Post("/products/import", a.handleImportProducts)
				r.Put("/products/{id}", a.handleUpdateProduct)
				r.Delete("/products/{id}", a.handleDeleteProduct)
			})

			r.Get("/cart", a.handleGetCart)
			r.Delete("/cart", a.handleClearCart)
			r.Post("/cart/items", a.handleAddCartItem)
			r.Patch("/cart/items/{productID}", a.handleChangeCartItem)
			r.Post("/checkout", a.handleCheckout)

			r.Get("/sales", a.handleListSales)
			r.Get("/sales/export", a.handleExportSales)
			r.Get("/sales/{id}", a.handleGetSale)
			r.Get("/sales/{id}/receipt", a.handleSaleReceipt)

			r.Post("/day/close", a.handleCloseDay)
			r.Post("/day/reopen", a.handleReopenDay)
			r.Get("/zreports", a.handleListZReports)
			r.Get("/zreports/current", a.handleCurrentZReport)
			r.Get("/zreports/{index}", a.handleZReportByIndex)

			r.Get("/reports/{kind}", a.handleReport)
			r.Get("/dashboard", a.handleDashboard)

			r.Get("/settings", a.handleGetSettings)
			r.Get("/backup", a.handleBackup)
			r.Get("/audit-logs", a.handleAuditLogs)

			r.Group(func(r chi.Router) {
				r.Use(a.requireInventoryPassword)
				r.Put("/settings", a.handleUpdateSettings)
				r.Post("/restore", a.handleRestore)
				r.Delete("/sales", a.handlePurgeSales)
				r.Post("/system/reset", a.handleReset)
			})
		})
	})
	return r
}

func (a *API) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
		if authHeader == "" || !strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
			writeError(w, http.StatusUnauthorized, ErrUnauthorized)
			return
		}
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		actor, err := a.auth.ParseToken(token)
		if err != nil {
			writeError(w, http.StatusUnauthorized, ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(service.WithActor(r.Context(), actor)))
	})
}

// requireInventoryPassword guards catalog and destructive operations behind
// the second shop secret.
func (a *API) requireInventoryPassword(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.service.VerifyInventoryPassword(r.Context(), r.Header.Get(inventoryPasswordHeader)) {
			writeError(w, http.StatusForbidden, errors.New("inventory password required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")

		if r.Body != nil && (r.Method == http.MethodPost || r.Method == http.MethodPatch || r.Method == http.MethodPut) {
			r.Body = http.MaxBytesReader(w, r.Body, bodyLimit(r))
		}
		next.ServeHTTP(w, r)
	})
}

// bodyLimit allows full bundles on restore and import.
func bodyLimit(r *http.Request) int64 {
	switch strings.TrimSuffix(r.URL.Path, "/") {
	case "/api/v1/restore", "/api/v1/products/import":
		return bundleBodyLimit
	}
	return jsonBodyLimit
}

func (a *API) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

func decodeJSON(r *http.Request, dest any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		return err
	}
	return nil
}

// writeDecodeError distinguishes an oversized body from malformed JSON.
func writeDecodeError(w http.ResponseWriter, err error) {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		writeError(w, http.StatusRequestEntityTooLarge, errors.New("request body too large"))
		return
	}
	writeError(w, http.StatusBadRequest, errors.New("invalid json body"))
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

func writeMethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, errors.New("method not allowed"))
}

// statusFor maps the domain error roots onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrValidation):
		return "validation"
	}
	return ""
}

// writeServiceError renders a service failure. Stock shortages carry the
// offending product so the till can refresh it.
func writeServiceError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		writeError(w, status, err)
		return
	}
	body := map[string]any{
		"error": err.Error(),
		"kind":  errorKind(err),
	}
	var shortage *domain.StockShortage
	if errors.As(err, &shortage) {
		body["productId"] = shortage.ProductID
		body["requested"] = shortage.Requested
		body["available"] = shortage.Available
	}
	writeJSON(w, status, body)
}

func writeError(w http.ResponseWriter, status int, err error) {
	// 5xx bodies stay generic; the cause goes to the log only.
	msg := err.Error()
	if status >= 500 {
		log.Error().Err(err).Int("status", status).Msg("internal error")
		msg = "internal server error"
	}
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeText(w http.ResponseWriter, contentType string, filename string, body string) {
	w.Header().Set("Content-Type", contentType)
	if filename != "" {
		w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(body))
}

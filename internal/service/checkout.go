package service

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"godwillpos/backend/internal/domain"
	"godwillpos/backend/internal/receipt"
	"godwillpos/backend/internal/snapshot"
)

func (s *Service) Cart() domain.CartView {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	return s.cart.View()
}

// AddToCart refuses new units while the day is closed.
func (s *Service) AddToCart(ctx context.Context, productID string) (domain.CartView, error) {
	closed, err := s.repo.IsDayClosed(ctx)
	if err != nil {
		return domain.CartView{}, err
	}
	if closed {
		return domain.CartView{}, domain.ErrDayClosed
	}
	product, err := s.repo.GetProduct(ctx, strings.TrimSpace(productID))
	if err != nil {
		return domain.CartView{}, err
	}

	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	if _, err := s.cart.AddItem(*product); err != nil {
		return domain.CartView{}, err
	}
	return s.cart.View(), nil
}

func (s *Service) ChangeCartQuantity(_ context.Context, productID string, delta decimal.Decimal) (domain.CartView, error) {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	if _, err := s.cart.ChangeQuantity(strings.TrimSpace(productID), delta); err != nil {
		return domain.CartView{}, err
	}
	return s.cart.View(), nil
}

func (s *Service) ClearCart() domain.CartView {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()
	s.cart.Clear()
	return s.cart.View()
}

// Checkout turns the active cart into a sale. Preconditions are checked in
// order: non-empty cart, open day, stock for every line, then tender. The
// store re-checks the day flag and stock under its own lock when committing.
// On any rejection the cart and the catalog are left untouched.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (domain.CheckoutResponse, error) {
	s.cartMu.Lock()
	defer s.cartMu.Unlock()

	if s.cart.IsEmpty() {
		return domain.CheckoutResponse{}, s.reject("empty_cart", domain.ErrEmptyCart)
	}

	closed, err := s.repo.IsDayClosed(ctx)
	if err != nil {
		return domain.CheckoutResponse{}, err
	}
	if closed {
		return domain.CheckoutResponse{}, s.reject("day_closed", domain.ErrDayClosed)
	}

	items := s.cart.Items()
	for _, item := range items {
		live, err := s.repo.GetProduct(ctx, item.Product.ID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return domain.CheckoutResponse{}, err
		}
		if live == nil || item.Quantity.GreaterThan(live.Stock) {
			available := decimal.Zero
			if live != nil {
				available = live.Stock
			}
			return domain.CheckoutResponse{}, s.reject("inventory_conflict", &domain.StockShortage{
				Err:       domain.ErrInventoryConflict,
				ProductID: item.Product.ID,
				Name:      item.Product.Name,
				Requested: item.Quantity.String(),
				Available: available.String(),
			})
		}
	}

	method, ok := domain.ParsePaymentMethod(req.PaymentMethod)
	if !ok {
		return domain.CheckoutResponse{}, s.reject("invalid_payment", fmt.Errorf("%w: %q", domain.ErrInvalidPayment, req.PaymentMethod))
	}

	total := s.cart.Total()
	amountReceived := req.AmountReceived
	change := decimal.Zero
	if method == domain.PaymentCash {
		if amountReceived.LessThan(total) {
			return domain.CheckoutResponse{}, s.reject("insufficient_cash", domain.ErrInsufficientCash)
		}
		change = amountReceived.Sub(total)
	} else {
		amountReceived = total
	}

	cashier := strings.TrimSpace(req.Cashier)
	if cashier == "" {
		cashier = DefaultCashier
	}

	cogs := decimal.Zero
	isRetail := true
	for _, item := range items {
		cogs = cogs.Add(item.Product.CostPrice.Mul(item.Quantity))
		if item.IsWholesale {
			isRetail = false
		}
	}

	sale, err := s.repo.CommitSale(ctx, domain.Sale{
		Timestamp:       s.now().UTC(),
		Cashier:         cashier,
		Items:           items,
		Subtotal:        s.cart.Subtotal(),
		Tax:             s.cart.Tax(),
		Discount:        decimal.Zero,
		Total:           total,
		PaymentMethod:   method,
		AmountReceived:  amountReceived,
		Change:          change,
		IsRetail:        isRetail,
		CostOfGoodsSold: cogs,
	})
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrDayClosed):
			s.metrics.CheckoutRejections.WithLabelValues("day_closed").Inc()
		case errors.Is(err, domain.ErrInventoryConflict):
			s.metrics.CheckoutRejections.WithLabelValues("inventory_conflict").Inc()
		}
		return domain.CheckoutResponse{}, err
	}
	s.cart.Clear()

	totalFloat, _ := sale.Total.Float64()
	s.metrics.Sales.WithLabelValues(string(sale.PaymentMethod)).Inc()
	s.metrics.SaleAmount.Observe(totalFloat)
	s.log.Info().Str("sale_id", sale.ID).Str("payment_method", string(sale.PaymentMethod)).Str("total", sale.Total.String()).Int("items", len(sale.Items)).Msg("sale committed")
	s.logAudit(ctx, "sale_create", "sale", sale.ID, fmt.Sprintf("total=%s,method=%s,cashier=%s", sale.Total, sale.PaymentMethod, sale.Cashier))
	s.persist(ctx, snapshot.KeySales, snapshot.KeyProducts)
	s.maybeAutoBackup(ctx)

	layout := s.layout(ctx)
	resp := domain.CheckoutResponse{Sale: *sale, ReceiptText: layout.Receipt(*sale)}
	if settings, err := s.repo.GetSettings(ctx); err == nil && settings.AutoPrintReceipts {
		resp.EscposBase64 = base64.StdEncoding.EncodeToString(receipt.ESCPOS(resp.ReceiptText))
	}
	return resp, nil
}

func (s *Service) reject(reason string, err error) error {
	s.metrics.CheckoutRejections.WithLabelValues(reason).Inc()
	return err
}

package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type UnitType string

const (
	UnitPiece UnitType = "Piece"
	UnitKg    UnitType = "Kg"
	UnitLitre UnitType = "Litre"
)

// ParseUnit accepts the canonical names case-insensitively along with the
// common spellings found in older exports.
func ParseUnit(raw string) (UnitType, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "piece", "pc", "pcs":
		return UnitPiece, true
	case "kg", "kilogram":
		return UnitKg, true
	case "litre", "liter", "l":
		return UnitLitre, true
	}
	return UnitType(strings.TrimSpace(raw)), false
}

func (u *UnitType) UnmarshalText(text []byte) error {
	parsed, _ := ParseUnit(string(text))
	*u = parsed
	return nil
}

type PaymentMethod string

const (
	PaymentCash  PaymentMethod = "Cash"
	PaymentMpesa PaymentMethod = "Mpesa"
	PaymentSplit PaymentMethod = "Split"
)

func ParsePaymentMethod(raw string) (PaymentMethod, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "cash":
		return PaymentCash, true
	case "mpesa", "m-pesa":
		return PaymentMpesa, true
	case "split":
		return PaymentSplit, true
	}
	return PaymentMethod(strings.TrimSpace(raw)), false
}

// UnmarshalText keeps unknown methods verbatim so archived sales with a
// method this build does not track still load.
func (m *PaymentMethod) UnmarshalText(text []byte) error {
	parsed, _ := ParsePaymentMethod(string(text))
	*m = parsed
	return nil
}

type Product struct {
	ID                 string          `json:"id" validate:"required"`
	Name               string          `json:"name" validate:"required"`
	SKU                string          `json:"sku"`
	Category           string          `json:"category"`
	Unit               UnitType        `json:"unit" validate:"oneof=Piece Kg Litre"`
	Stock              decimal.Decimal `json:"stock" validate:"gte=0"`
	CostPrice          decimal.Decimal `json:"costPrice" validate:"gte=0"`
	NormalPrice        decimal.Decimal `json:"normalPrice" validate:"gte=0"`
	WholesaleThreshold decimal.Decimal `json:"wholesaleThreshold" validate:"gte=0"`
	WholesalePrice     decimal.Decimal `json:"wholesalePrice" validate:"gte=0"`
	ReorderLevel       decimal.Decimal `json:"reorderLevel" validate:"gte=0"`
	Image              string          `json:"image,omitempty"`
}

func (p Product) HasImage() bool {
	return strings.TrimSpace(p.Image) != ""
}

type CartItem struct {
	Product     Product         `json:"product"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	IsWholesale bool            `json:"isWholesale"`
	Total       decimal.Decimal `json:"total"`
}

type Sale struct {
	ID              string          `json:"id"`
	Timestamp       time.Time       `json:"timestamp"`
	Cashier         string          `json:"cashier"`
	Items           []CartItem      `json:"items"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Discount        decimal.Decimal `json:"discount"`
	Total           decimal.Decimal `json:"total"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	AmountReceived  decimal.Decimal `json:"amountReceived"`
	Change          decimal.Decimal `json:"change"`
	IsRetail        bool            `json:"isRetail"`
	CostOfGoodsSold decimal.Decimal `json:"costOfGoodsSold"`
	DayClosed       bool            `json:"dayClosed,omitempty"`
}

type TopItem struct {
	Name string          `json:"name"`
	Qty  decimal.Decimal `json:"qty"`
}

type ZReport struct {
	Date       string          `json:"date"`
	OpenTime   string          `json:"openTime"`
	CloseTime  string          `json:"closeTime"`
	TotalSales int             `json:"totalSales"`
	GrossSales decimal.Decimal `json:"grossSales"`
	Discounts  decimal.Decimal `json:"discounts"`
	NetSales   decimal.Decimal `json:"netSales"`
	CashTotal  decimal.Decimal `json:"cashTotal"`
	MpesaTotal decimal.Decimal `json:"mpesaTotal"`
	SplitTotal decimal.Decimal `json:"splitTotal"`
	TopItems   []TopItem       `json:"topItems"`
}

type ShopSettings struct {
	Name                string `json:"name"`
	Footer              string `json:"footer"`
	AutoBackupThreshold int    `json:"autoBackupThreshold"`
	AutoPrintReceipts   bool   `json:"autoPrintReceipts"`
	SystemPassword      string `json:"systemPassword"`
	InventoryPassword   string `json:"inventoryPassword"`
}

// Redacted hides the stored secrets before settings leave the process.
func (s ShopSettings) Redacted() ShopSettings {
	s.SystemPassword = ""
	s.InventoryPassword = ""
	return s
}

type SettingsUpdateRequest struct {
	Name                *string `json:"name,omitempty"`
	Footer              *string `json:"footer,omitempty"`
	AutoBackupThreshold *int    `json:"autoBackupThreshold,omitempty"`
	AutoPrintReceipts   *bool   `json:"autoPrintReceipts,omitempty"`
	SystemPassword      *string `json:"systemPassword,omitempty"`
	InventoryPassword   *string `json:"inventoryPassword,omitempty"`
}

// Backup is the full export bundle.
type Backup struct {
	Products       []Product    `json:"products"`
	Sales          []Sale       `json:"sales"`
	ShopSettings   ShopSettings `json:"shopSettings"`
	CurrentZReport *ZReport     `json:"currentZReport"`
	IsDayClosed    bool         `json:"isDayClosed"`
	ZReportHistory []ZReport    `json:"zReportHistory"`
}

type Actor struct {
	Username string `json:"username"`
	Role     string `json:"role"`
}

type AuditLog struct {
	ID            string    `json:"id"`
	ActorUsername string    `json:"actorUsername"`
	ActorRole     string    `json:"actorRole"`
	Action        string    `json:"action"`
	EntityType    string    `json:"entityType"`
	EntityID      string    `json:"entityId"`
	Detail        string    `json:"detail"`
	CreatedAt     time.Time `json:"createdAt"`
}

type UnlockRequest struct {
	Password string `json:"password"`
}

type UnlockResponse struct {
	AccessToken string `json:"accessToken"`
	Role        string `json:"role"`
	ExpiresAt   string `json:"expiresAt"`
}

type AddCartItemRequest struct {
	ProductID string `json:"productId"`
}

type ChangeQuantityRequest struct {
	Delta decimal.Decimal `json:"delta"`
}

type CartView struct {
	Items    []CartItem      `json:"items"`
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

type CheckoutRequest struct {
	PaymentMethod  string          `json:"paymentMethod"`
	AmountReceived decimal.Decimal `json:"amountReceived"`
	Cashier        string          `json:"cashier,omitempty"`
}

type CheckoutResponse struct {
	Sale         Sale   `json:"sale"`
	ReceiptText  string `json:"receiptText"`
	EscposBase64 string `json:"escposBase64,omitempty"`
}

type HardwareReceiptResponse struct {
	SaleID       string `json:"saleId"`
	EscposBase64 string `json:"escposBase64"`
	PreviewText  string `json:"previewText"`
	FileName     string `json:"fileName"`
}

type ImportResult struct {
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

type RestoreResult struct {
	Applied  []string `json:"applied"`
	Warnings []string `json:"warnings,omitempty"`
}

// Report rows.

type SalesSummary struct {
	Revenue          decimal.Decimal `json:"revenue"`
	Transactions     int             `json:"transactions"`
	ItemsSold        decimal.Decimal `json:"itemsSold"`
	RetailRevenue    decimal.Decimal `json:"retailRevenue"`
	WholesaleRevenue decimal.Decimal `json:"wholesaleRevenue"`
	RetailCount      int             `json:"retailCount"`
	WholesaleCount   int             `json:"wholesaleCount"`
}

type ProfitReport struct {
	Revenue       decimal.Decimal `json:"revenue"`
	CostOfGoods   decimal.Decimal `json:"costOfGoods"`
	Profit        decimal.Decimal `json:"profit"`
	MarginPercent decimal.Decimal `json:"marginPercent"`
}

type CashierStat struct {
	Cashier       string          `json:"cashier"`
	Transactions  int             `json:"transactions"`
	Revenue       decimal.Decimal `json:"revenue"`
	AverageTicket decimal.Decimal `json:"averageTicket"`
}

type StockValuation struct {
	CostValue   decimal.Decimal `json:"costValue"`
	RetailValue decimal.Decimal `json:"retailValue"`
	Products    int             `json:"products"`
}

type PaymentTotal struct {
	PaymentMethod PaymentMethod   `json:"paymentMethod"`
	Transactions  int             `json:"transactions"`
	Revenue       decimal.Decimal `json:"revenue"`
}

type DiscountReport struct {
	TotalDiscount decimal.Decimal `json:"totalDiscount"`
	Sales         []Sale          `json:"sales"`
}

type StockMovement struct {
	SaleID      string          `json:"saleId"`
	Timestamp   time.Time       `json:"timestamp"`
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        UnitType        `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
	IsWholesale bool            `json:"isWholesale"`
	Total       decimal.Decimal `json:"total"`
}

type TrendPoint struct {
	Date    string          `json:"date"`
	Revenue decimal.Decimal `json:"revenue"`
}

type DashboardStats struct {
	Date          string          `json:"date"`
	Revenue       decimal.Decimal `json:"revenue"`
	Profit        decimal.Decimal `json:"profit"`
	Transactions  int             `json:"transactions"`
	LowStockCount int             `json:"lowStockCount"`
	Trend         []TrendPoint    `json:"trend"`
	IsDayClosed   bool            `json:"isDayClosed"`
}

// Normalize applies the record defaults: trimmed text, Piece when the unit is
// missing, and stock never below zero.
func (p Product) Normalize() Product {
	p.ID = strings.TrimSpace(p.ID)
	p.Name = strings.TrimSpace(p.Name)
	p.SKU = strings.ToUpper(strings.TrimSpace(p.SKU))
	p.Category = strings.TrimSpace(p.Category)
	p.Image = strings.TrimSpace(p.Image)
	if p.Unit == "" {
		p.Unit = UnitPiece
	}
	if p.Stock.IsNegative() {
		p.Stock = decimal.Zero
	}
	return p
}

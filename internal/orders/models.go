package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

type PaymentMethod string

const (
	PayCreditCard     PaymentMethod = "credit_card"
	PayPayPal         PaymentMethod = "paypal"
	PayStripe         PaymentMethod = "stripe"
	PayCashOnDelivery PaymentMethod = "cash_on_delivery"
)

type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
	Country string `json:"country"`
}

// Customer is copied into the order at creation time and never re-read from anywhere else.
type Customer struct {
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	Phone   string  `json:"phone"`
	Address Address `json:"address"`
}

// ProductSummary is the live product data shown next to an item. Nil once the product is deleted.
type ProductSummary struct {
	ID     uuid.UUID       `json:"id"`
	Name   string          `json:"name"`
	Price  decimal.Decimal `json:"price"`
	Images []string        `json:"images"`
}

type Item struct {
	ProductID uuid.UUID       `json:"productId"`
	Product   *ProductSummary `json:"product,omitempty"`
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Color     string          `json:"color"`
	Size      string          `json:"size"`
	Image     string          `json:"image,omitempty"`
}

type Order struct {
	ID             uuid.UUID       `json:"id"`
	OrderNumber    string          `json:"orderNumber"`
	Customer       Customer        `json:"customer"`
	Items          []Item          `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Tax            decimal.Decimal `json:"tax"`
	Shipping       decimal.Decimal `json:"shipping"`
	Discount       decimal.Decimal `json:"discount"`
	Total          decimal.Decimal `json:"total"`
	Status         Status          `json:"status"`
	PaymentStatus  PaymentStatus   `json:"paymentStatus"`
	PaymentMethod  PaymentMethod   `json:"paymentMethod"`
	Notes          string          `json:"notes,omitempty"`
	TrackingNumber string          `json:"trackingNumber,omitempty"`
	ShippedAt      *time.Time      `json:"shippedAt,omitempty"`
	DeliveredAt    *time.Time      `json:"deliveredAt,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// RestoresStockOnDelete reports whether deleting the order gives its items back to stock.
func (o *Order) RestoresStockOnDelete() bool {
	return o.Status == StatusCancelled || o.Status == StatusRefunded
}

// CustomerSummary is one row of the per-email customer aggregation.
type CustomerSummary struct {
	Name          string          `json:"name"`
	Email         string          `json:"email"`
	Phone         string          `json:"phone"`
	Address       Address         `json:"address"`
	TotalOrders   int             `json:"totalOrders"`
	TotalSpent    decimal.Decimal `json:"totalSpent"`
	LastOrderDate time.Time       `json:"lastOrderDate"`
}

package orders

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ariefcatur/go-shop-backoffice/internal/apperr"
)

type AddressInput struct {
	Street  string `json:"street" validate:"required"`
	City    string `json:"city" validate:"required"`
	State   string `json:"state" validate:"required"`
	ZipCode string `json:"zipCode" validate:"required"`
	Country string `json:"country"`
}

type CustomerInput struct {
	Name    string       `json:"name" validate:"required"`
	Email   string       `json:"email" validate:"required,email"`
	Phone   string       `json:"phone" validate:"required"`
	Address AddressInput `json:"address"`
}

type ItemInput struct {
	ProductID string `json:"product" validate:"required,uuid"`
	Quantity  int    `json:"quantity" validate:"min=1"`
	Color     string `json:"color"`
	Size      string `json:"size"`
	// Price is what the client saw. Only the storefront path compares it.
	Price *decimal.Decimal `json:"price,omitempty"`
}

type CreateRequest struct {
	Customer      CustomerInput `json:"customer"`
	Items         []ItemInput   `json:"items" validate:"required,min=1,dive"`
	PaymentMethod string        `json:"paymentMethod" validate:"omitempty,oneof=credit_card paypal stripe cash_on_delivery"`
	Notes         string        `json:"notes" validate:"max=2000"`
}

func (r *CreateRequest) normalize() {
	c := &r.Customer
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
	c.Phone = strings.TrimSpace(c.Phone)
	c.Address.Country = strings.TrimSpace(c.Address.Country)
	if c.Address.Country == "" {
		c.Address.Country = "US"
	}
	r.Notes = strings.TrimSpace(r.Notes)
}

// validate checks the request before anything touches the store.
func (r *CreateRequest) validate(public bool) error {
	r.normalize()
	if len(r.Items) == 0 {
		return apperr.Invalid("items", "order must contain at least one item")
	}
	if err := apperr.CheckStruct(r); err != nil {
		return err
	}
	if public {
		for i, it := range r.Items {
			if it.Price == nil {
				return apperr.Invalid("items", "item %d: price is required", i)
			}
		}
	}
	return nil
}

func (r *CreateRequest) paymentMethod(public bool) PaymentMethod {
	if r.PaymentMethod != "" {
		return PaymentMethod(r.PaymentMethod)
	}
	if public {
		return PayCashOnDelivery
	}
	return PayCreditCard
}

func (r *CreateRequest) productIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(r.Items))
	out := make([]uuid.UUID, 0, len(r.Items))
	for _, it := range r.Items {
		id := uuid.MustParse(it.ProductID) // sudah lolos validasi uuid
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (c CustomerInput) snapshot() Customer {
	return Customer{
		Name:  c.Name,
		Email: c.Email,
		Phone: c.Phone,
		Address: Address{
			Street:  c.Address.Street,
			City:    c.Address.City,
			State:   c.Address.State,
			ZipCode: c.Address.ZipCode,
			Country: c.Address.Country,
		},
	}
}

package domain

import (
	"strings"
	"time"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderOnHold     OrderStatus = "on-hold"
	OrderProcessing OrderStatus = "processing"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderFailed     OrderStatus = "failed"
	OrderExpired    OrderStatus = "expired"
)

// Metadata keys written onto host orders.
const (
	MetaProcessorOrderID   = "processor-order-id"
	MetaProcessorReference = "processor-reference"
)

// IsPaid reports whether the status already reflects a confirmed payment.
func (s OrderStatus) IsPaid() bool {
	return s == OrderProcessing || s == OrderCompleted
}

// IsTerminal reports whether no processor event may move the order anymore.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderProcessing, OrderCompleted, OrderCancelled, OrderExpired:
		return true
	}
	return false
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderOnHold, OrderProcessing, OrderCompleted, OrderCancelled, OrderFailed, OrderExpired:
		return true
	}
	return false
}

// Order is the host platform's order as pushed to this service. Amounts are
// decimal strings in major units, exactly as the host reports them.
type Order struct {
	ID              string            `json:"id"`
	Currency        string            `json:"currency"`
	Items           []LineItem        `json:"items"`
	Taxes           []TaxLine         `json:"taxes,omitempty"`
	Fees            []FeeLine         `json:"fees,omitempty"`
	Discounts       []DiscountLine    `json:"discounts,omitempty"`
	Shipping        []ShippingLine    `json:"shipping,omitempty"`
	Customer        Customer          `json:"customer"`
	ShippingAddress Address           `json:"shipping_address"`
	PaymentMethod   string            `json:"payment_method,omitempty"`
	Status          OrderStatus       `json:"status"`
	Meta            map[string]string `json:"meta,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

func (o *Order) MetaValue(key string) string {
	if o.Meta == nil {
		return ""
	}
	return o.Meta[key]
}

type LineItem struct {
	Name      string `json:"name"`
	SKU       string `json:"sku,omitempty"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Tax       string `json:"tax,omitempty"`
}

type TaxLine struct {
	Label  string `json:"label"`
	Amount string `json:"amount"`
}

// FeeLine is a cart fee. Negative amounts are discounts in disguise.
type FeeLine struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type DiscountLine struct {
	Code   string `json:"code"`
	Amount string `json:"amount"`
}

type ShippingLine struct {
	Method  string `json:"method"`
	Carrier string `json:"carrier,omitempty"`
	Amount  string `json:"amount"`
}

type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

func (c Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type Address struct {
	Receiver   string `json:"receiver,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Street1    string `json:"street1,omitempty"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
}

// IsEmpty is true when no address field carries a value. Receiver and phone
// alone do not make an address.
func (a Address) IsEmpty() bool {
	return strings.TrimSpace(a.Street1+a.Street2+a.City+a.State+a.Country+a.PostalCode) == ""
}

type OrderNote struct {
	OrderID   string
	Note      string
	CreatedAt time.Time
}

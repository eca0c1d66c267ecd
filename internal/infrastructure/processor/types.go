package processor

// Wire shapes of the processor's v2.1 order API. Amounts are integers in the
// currency's minor unit.

type OrderRequest struct {
	Currency        string            `json:"currency"`
	Checkout        *CheckoutRequest  `json:"checkout,omitempty"`
	Charges         []ChargeRequest   `json:"charges,omitempty"`
	ShippingLines   []ShippingLine    `json:"shipping_lines,omitempty"`
	DiscountLines   []DiscountLine    `json:"discount_lines,omitempty"`
	TaxLines        []TaxLine         `json:"tax_lines,omitempty"`
	CustomerInfo    CustomerInfo      `json:"customer_info"`
	LineItems       []LineItem        `json:"line_items"`
	ShippingContact *ShippingContact  `json:"shipping_contact,omitempty"`
	Metadata        map[string]string `json:"metadata"`
}

type CheckoutRequest struct {
	AllowedPaymentMethods []string `json:"allowed_payment_methods"`
	SuccessURL            string   `json:"success_url"`
	FailureURL            string   `json:"failure_url"`
	Name                  string   `json:"name"`
	Type                  string   `json:"type"`
	RedirectionTime       int      `json:"redirection_time"`
	ExpiresAt             int64    `json:"expires_at"`
}

type ChargeRequest struct {
	PaymentMethod ChargePaymentMethod `json:"payment_method"`
	ReferenceID   string              `json:"reference_id"`
}

type ChargePaymentMethod struct {
	Type      string `json:"type"`
	ExpiresAt int64  `json:"expires_at"`
}

type LineItem struct {
	Name      string `json:"name"`
	UnitPrice int64  `json:"unit_price"`
	Quantity  int    `json:"quantity"`
	SKU       string `json:"sku,omitempty"`
}

type TaxLine struct {
	Description string `json:"description"`
	Amount      int64  `json:"amount"`
}

type DiscountLine struct {
	Code   string `json:"code"`
	Amount int64  `json:"amount"`
	Type   string `json:"type"`
}

type ShippingLine struct {
	Amount  int64  `json:"amount"`
	Carrier string `json:"carrier"`
	Method  string `json:"method"`
}

type CustomerInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type ShippingContact struct {
	Phone    string          `json:"phone,omitempty"`
	Receiver string          `json:"receiver,omitempty"`
	Address  ShippingAddress `json:"address"`
}

type ShippingAddress struct {
	Street1    string `json:"street1"`
	Street2    string `json:"street2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

const (
	PaymentStatusPending  = "pending_payment"
	PaymentStatusPaid     = "paid"
	PaymentStatusExpired  = "expired"
	PaymentStatusCanceled = "canceled"
)

// Order is the processor's view of an order.
type Order struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status,omitempty"`
	Currency      string            `json:"currency,omitempty"`
	Amount        int64             `json:"amount,omitempty"`
	Checkout      *Checkout         `json:"checkout,omitempty"`
	Charges       ChargeList        `json:"charges"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

type Checkout struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

type ChargeList struct {
	Data []Charge `json:"data"`
}

type Charge struct {
	ID            string        `json:"id"`
	Status        string        `json:"status,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method"`
}

const ObjectCashPayment = "cash_payment"

type PaymentMethod struct {
	Object      string `json:"object"`
	Type        string `json:"type,omitempty"`
	ProductType string `json:"product_type,omitempty"`
	Reference   string `json:"reference,omitempty"`
	BarcodeURL  string `json:"barcode_url,omitempty"`
	Agreement   string `json:"agreement,omitempty"`
	ExpiresAt   int64  `json:"expires_at,omitempty"`
}

// Reference returns the first charge's human payment reference, if any.
func (o *Order) Reference() string {
	if len(o.Charges.Data) == 0 {
		return ""
	}
	return o.Charges.Data[0].PaymentMethod.Reference
}

type EventType string

const (
	EventWebhookPing   EventType = "webhook_ping"
	EventPing          EventType = "ping"
	EventOrderPaid     EventType = "order.paid"
	EventOrderExpired  EventType = "order.expired"
	EventOrderCanceled EventType = "order.canceled"
)

// Event is a webhook delivery. Data.Object carries the order it refers to.
type Event struct {
	ID       string    `json:"id"`
	Type     EventType `json:"type"`
	Livemode bool      `json:"livemode"`
	Data     EventData `json:"data"`
}

type EventData struct {
	Object Order `json:"object"`
}

type Webhook struct {
	ID     string `json:"id,omitempty"`
	URL    string `json:"url"`
	Status string `json:"status,omitempty"`
}

type WebhookList struct {
	Data []Webhook `json:"data"`
}

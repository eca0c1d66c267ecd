// Package translator turns host orders into processor order requests.
package translator

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"conekta-checkout/internal/domain"
	"conekta-checkout/internal/infrastructure/processor"

	"github.com/shopspring/decimal"
)

// Reserved metadata keys. They are written after caller fields and always win.
const (
	MetaPaymentMethod   = "payment_method"
	MetaPlatformVersion = "platform_version"
	MetaClientVersion   = "plugin_conekta_version"
)

const (
	DiscountTypeCoupon   = "coupon"
	DiscountTypeCampaign = "campaign"

	checkoutType            = "HostedPayment"
	checkoutRedirectSeconds = 10
	paymentMethodBNPL       = "bnpl"
	paymentMethodCash       = "cash"
)

var (
	minorUnit = decimal.NewFromInt(100)
	minCents  = decimal.NewFromInt(math.MinInt64)
	maxCents  = decimal.NewFromInt(math.MaxInt64)
)

type Options struct {
	GatewayName     string
	PlatformVersion string
	ClientVersion   string
	// ReturnURL is where the hosted checkout sends the customer back.
	ReturnURL string
	// Metadata holds caller fields copied into the request.
	Metadata map[string]string
	// Now overrides the clock. Nil means time.Now.
	Now func() time.Time
}

// Translate builds the processor request for one payment attempt.
// expirationDays is trusted: the config layer clamps it to [1,30].
func Translate(order *domain.Order, kind domain.GatewayKind, expirationDays int, opts Options) (processor.OrderRequest, error) {
	if !kind.Valid() {
		return processor.OrderRequest{}, &domain.TranslationError{OrderID: order.ID, Field: "gateway", Err: fmt.Errorf("unknown kind %q", kind)}
	}
	if len(order.Items) == 0 {
		return processor.OrderRequest{}, &domain.TranslationError{OrderID: order.ID, Field: "items", Err: fmt.Errorf("order has no line items")}
	}

	t := &translation{orderID: order.ID}

	lineItems := t.lineItems(order.Items)
	taxLines := t.taxLines(order.Taxes)
	feeTaxes, feeDiscounts := t.fees(order.Fees)
	discountLines := append(t.discountLines(order.Discounts), feeDiscounts...)
	shippingLines := t.shippingLines(order.Shipping)
	if t.err != nil {
		return processor.OrderRequest{}, t.err
	}

	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	expiresAt := now().Add(time.Duration(expirationDays) * 24 * time.Hour).Unix()

	customer := processor.CustomerInfo{
		Name:  order.Customer.FullName(),
		Email: order.Customer.Email,
		Phone: order.Customer.Phone,
	}

	req := processor.OrderRequest{
		Currency:        strings.ToUpper(order.Currency),
		ShippingLines:   shippingLines,
		DiscountLines:   discountLines,
		TaxLines:        append(taxLines, feeTaxes...),
		CustomerInfo:    customer,
		LineItems:       lineItems,
		ShippingContact: shippingContact(order),
		Metadata:        metadata(order, opts),
	}

	switch kind {
	case domain.GatewayBNPL:
		req.Checkout = &processor.CheckoutRequest{
			AllowedPaymentMethods: []string{paymentMethodBNPL},
			SuccessURL:            opts.ReturnURL,
			FailureURL:            opts.ReturnURL,
			Name:                  fmt.Sprintf("Compra de %s", customer.Name),
			Type:                  checkoutType,
			RedirectionTime:       checkoutRedirectSeconds,
			ExpiresAt:             expiresAt,
		}
	case domain.GatewayCash:
		req.Charges = []processor.ChargeRequest{{
			PaymentMethod: processor.ChargePaymentMethod{Type: paymentMethodCash, ExpiresAt: expiresAt},
			ReferenceID:   order.ID,
		}}
	}
	return req, nil
}

// translation accumulates the first amount error so the line builders stay flat.
type translation struct {
	orderID string
	err     error
}

func (t *translation) cents(field, amount string) int64 {
	if t.err != nil {
		return 0
	}
	v, err := ToMinorUnits(amount)
	if err != nil {
		t.err = &domain.TranslationError{OrderID: t.orderID, Field: field, Err: err}
	}
	return v
}

func (t *translation) lineItems(items []domain.LineItem) []processor.LineItem {
	out := make([]processor.LineItem, 0, len(items))
	for i, it := range items {
		if it.Quantity <= 0 && t.err == nil {
			t.err = &domain.TranslationError{OrderID: t.orderID, Field: "items[" + strconv.Itoa(i) + "].quantity", Err: fmt.Errorf("quantity %d", it.Quantity)}
		}
		out = append(out, processor.LineItem{
			Name:      it.Name,
			UnitPrice: t.cents("items["+strconv.Itoa(i)+"].unit_price", it.UnitPrice),
			Quantity:  it.Quantity,
			SKU:       it.SKU,
		})
	}
	return out
}

func (t *translation) taxLines(taxes []domain.TaxLine) []processor.TaxLine {
	var out []processor.TaxLine
	for i, tax := range taxes {
		out = append(out, processor.TaxLine{
			Description: tax.Label,
			Amount:      t.cents("taxes["+strconv.Itoa(i)+"].amount", tax.Amount),
		})
	}
	return out
}

// fees splits fee lines: positive ones ride along with the taxes, negative
// ones are discounts.
func (t *translation) fees(fees []domain.FeeLine) ([]processor.TaxLine, []processor.DiscountLine) {
	var (
		taxes     []processor.TaxLine
		discounts []processor.DiscountLine
	)
	for i, fee := range fees {
		amount := t.cents("fees["+strconv.Itoa(i)+"].amount", fee.Amount)
		switch {
		case amount < 0:
			discounts = append(discounts, processor.DiscountLine{Code: fee.Name, Amount: -amount, Type: DiscountTypeCampaign})
		case amount > 0:
			taxes = append(taxes, processor.TaxLine{Description: fee.Name, Amount: amount})
		}
	}
	return taxes, discounts
}

func (t *translation) discountLines(discounts []domain.DiscountLine) []processor.DiscountLine {
	var out []processor.DiscountLine
	for i, d := range discounts {
		amount := t.cents("discounts["+strconv.Itoa(i)+"].amount", d.Amount)
		if amount < 0 {
			amount = -amount
		}
		out = append(out, processor.DiscountLine{Code: d.Code, Amount: amount, Type: DiscountTypeCoupon})
	}
	return out
}

func (t *translation) shippingLines(lines []domain.ShippingLine) []processor.ShippingLine {
	var out []processor.ShippingLine
	for i, s := range lines {
		carrier := s.Carrier
		if carrier == "" {
			carrier = s.Method
		}
		out = append(out, processor.ShippingLine{
			Amount:  t.cents("shipping["+strconv.Itoa(i)+"].amount", s.Amount),
			Carrier: carrier,
			Method:  s.Method,
		})
	}
	return out
}

func shippingContact(order *domain.Order) *processor.ShippingContact {
	addr := order.ShippingAddress
	if addr.IsEmpty() {
		return nil
	}
	receiver := addr.Receiver
	if receiver == "" {
		receiver = order.Customer.FullName()
	}
	phone := addr.Phone
	if phone == "" {
		phone = order.Customer.Phone
	}
	return &processor.ShippingContact{
		Phone:    phone,
		Receiver: receiver,
		Address: processor.ShippingAddress{
			Street1:    addr.Street1,
			Street2:    addr.Street2,
			City:       addr.City,
			State:      addr.State,
			Country:    addr.Country,
			PostalCode: addr.PostalCode,
		},
	}
}

func metadata(order *domain.Order, opts Options) map[string]string {
	md := make(map[string]string, len(opts.Metadata)+4)
	md["reference_id"] = order.ID
	for k, v := range opts.Metadata {
		md[k] = v
	}
	md[MetaPaymentMethod] = opts.GatewayName
	md[MetaPlatformVersion] = opts.PlatformVersion
	md[MetaClientVersion] = opts.ClientVersion
	return md
}

// ToMinorUnits converts a major-unit decimal string ("12.5") to minor units
// (1250), rounding half away from zero. Empty strings are zero.
func ToMinorUnits(amount string) (int64, error) {
	amount = strings.TrimSpace(amount)
	if amount == "" {
		return 0, nil
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	r := d.Mul(minorUnit).Round(0)
	if r.LessThan(minCents) || r.GreaterThan(maxCents) {
		return 0, fmt.Errorf("amount %q out of range", amount)
	}
	return r.IntPart(), nil
}

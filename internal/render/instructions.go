// Package render turns a processor cash order into the payment instructions
// shown to the customer after checkout. It produces data, not markup.
package render

import "conekta-checkout/internal/infrastructure/processor"

type ProductType string

const (
	ProductCashIn       ProductType = "cash_in"
	ProductPespayCashIn ProductType = "pespay_cash_in"
	ProductOxxo         ProductType = "oxxo"
	ProductBBVACashIn   ProductType = "bbva_cash_in"
)

type Layout string

const (
	LayoutCashIn Layout = "cash_in"
	LayoutOxxo   Layout = "oxxo"
	LayoutBBVA   Layout = "bbva"
)

// Layout picks the block arrangement for a product type. Types without a
// dedicated layout use the cash-in one.
func (p ProductType) Layout() Layout {
	switch p {
	case ProductOxxo:
		return LayoutOxxo
	case ProductBBVACashIn:
		return LayoutBBVA
	default:
		return LayoutCashIn
	}
}

// Instructions is everything needed to display one cash charge.
type Instructions struct {
	ProductType ProductType `json:"product_type"`
	Layout      Layout      `json:"layout"`
	Header      string      `json:"header"`
	Logos       []string    `json:"logos,omitempty"`
	Reference   string      `json:"reference"`
	BarcodeURL  string      `json:"barcode_url,omitempty"`
	Agreement   string      `json:"agreement,omitempty"`
	Notes       []string    `json:"notes,omitempty"`
	Steps       []string    `json:"steps,omitempty"`
	CopyLabel   string      `json:"copy_label"`
}

// Render builds instructions for every cash charge of the order that names a
// product type. Other charges are skipped.
func Render(order processor.Order, catalog Catalog) []Instructions {
	var out []Instructions
	for _, charge := range order.Charges.Data {
		pm := charge.PaymentMethod
		if pm.Object != processor.ObjectCashPayment || pm.ProductType == "" {
			continue
		}
		out = append(out, renderCharge(ProductType(pm.ProductType), pm, catalog))
	}
	return out
}

func renderCharge(pt ProductType, pm processor.PaymentMethod, c Catalog) Instructions {
	in := Instructions{
		ProductType: pt,
		Layout:      pt.Layout(),
		Header:      c.header(pt),
		Logos:       c.Logos[pt],
		Reference:   pm.Reference,
		Steps:       c.Steps[pt],
		CopyLabel:   c.CopyLabel,
	}

	switch in.Layout {
	case LayoutBBVA:
		in.Agreement = pm.Agreement
		in.Notes = []string{
			c.Commission[ProductBBVACashIn],
			c.AgreementLabel + " " + pm.Agreement,
			c.ReferenceLabel + " " + pm.Reference,
		}
	case LayoutOxxo:
		in.BarcodeURL = pm.BarcodeURL
	default:
		in.BarcodeURL = pm.BarcodeURL
		in.Notes = []string{c.CashInNote, c.Commission[""]}
	}
	return in
}

package render

// Catalog holds the customer-facing copy. Commission and Header fall back to
// the "" key when a product type has no entry of its own.
type Catalog struct {
	Header         map[ProductType]string
	Logos          map[ProductType][]string
	Steps          map[ProductType][]string
	Commission     map[ProductType]string
	CashInNote     string
	AgreementLabel string
	ReferenceLabel string
	CopyLabel      string
}

func (c Catalog) header(pt ProductType) string {
	if h, ok := c.Header[pt]; ok {
		return h
	}
	return c.Header[""]
}

const assetBase = "https://assets.conekta.com/checkout/img/logos/"

var cashInSteps = []string{
	"Acude a cualquier tienda participante.",
	"Indica en caja que quieres realizar un pago en efectivo de Conekta.",
	"Dicta al cajero el número de referencia en esta ficha.",
	"Realiza el pago correspondiente con dinero en efectivo.",
	"Conserva el ticket para cualquier aclaración.",
}

// Spanish is the default catalog.
var Spanish = Catalog{
	Header: map[ProductType]string{
		"":                "Paga en efectivo",
		ProductOxxo:       "Paga en OXXO",
		ProductBBVACashIn: "Paga en BBVA",
	},
	Logos: map[ProductType][]string{
		ProductCashIn:       {assetBase + "seven_eleven.svg", assetBase + "walmart.svg", assetBase + "soriana.svg"},
		ProductPespayCashIn: {assetBase + "farmacias_ahorro.svg", assetBase + "circle_k.svg"},
		ProductOxxo:         {assetBase + "oxxo.svg"},
		ProductBBVACashIn:   {assetBase + "bbva.svg"},
	},
	Steps: map[ProductType][]string{
		ProductCashIn:       cashInSteps,
		ProductPespayCashIn: cashInSteps,
		ProductOxxo: {
			"Acude a la tienda OXXO más cercana.",
			"Indica en caja que quieres realizar un pago de OXXOPay.",
			"Dicta al cajero el número de referencia en esta ficha o muestra el código de barras.",
			"Realiza el pago correspondiente con dinero en efectivo.",
			"Al confirmar tu pago, el cajero te entregará un comprobante impreso.",
		},
		ProductBBVACashIn: {
			"Acude a cualquier sucursal o practicaja BBVA.",
			"Selecciona la opción de pago de servicios.",
			"Ingresa el número de convenio y la referencia.",
			"Realiza el pago con dinero en efectivo.",
			"Conserva el comprobante para cualquier aclaración.",
		},
	},
	Commission: map[ProductType]string{
		"":                "La tienda cobrará una comisión al momento de realizar el pago.",
		ProductBBVACashIn: "BBVA cobrará una comisión al momento de realizar el pago.",
	},
	CashInNote:     "Consulta las tiendas participantes en conekta.com/tiendas.",
	AgreementLabel: "Convenio:",
	ReferenceLabel: "Referencia:",
	CopyLabel:      "Copiar referencia",
}

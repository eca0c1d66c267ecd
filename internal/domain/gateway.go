package domain

import "slices"

type GatewayKind string

const (
	GatewayCash GatewayKind = "cash"
	GatewayBNPL GatewayKind = "bnpl"
)

// Gateway ids double as the webhook routing parameter (wc-api).
const (
	CashGatewayID = "conekta_cash"
	BNPLGatewayID = "conekta_bnpl"
)

// Gateway names are stamped into processor order metadata and used to decide
// whether a webhook belongs to a gateway.
const (
	CashGatewayName = "WC_Conekta_Cash_Gateway"
	BNPLGatewayName = "WC_Conekta_Bnpl_Gateway"
)

func (k GatewayKind) Valid() bool {
	return k == GatewayCash || k == GatewayBNPL
}

func (k GatewayKind) Currencies() []string {
	switch k {
	case GatewayCash:
		return []string{"MXN", "USD"}
	case GatewayBNPL:
		return []string{"MXN"}
	}
	return nil
}

func (k GatewayKind) SupportsCurrency(currency string) bool {
	return slices.Contains(k.Currencies(), currency)
}

// InitialStatus is the status an order takes once the processor accepted it.
func (k GatewayKind) InitialStatus() OrderStatus {
	if k == GatewayCash {
		return OrderOnHold
	}
	return OrderPending
}

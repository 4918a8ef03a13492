// Package shipping quotes delivery cost and lead time. The store ships from
// Belo Horizonte, so Minas Gerais gets free standard shipping.
package shipping

import (
	"strings"

	pkgerrors "github.com/beloribh/belori-backend/pkg/errors"
	"github.com/beloribh/belori-backend/pkg/types"
	"github.com/shopspring/decimal"
)

// Method selects between the two delivery speeds offered at checkout.
type Method string

const (
	MethodStandard Method = "standard"
	MethodExpress  Method = "express"
)

// IsValid reports whether the method is one we quote.
func (m Method) IsValid() bool {
	return m == MethodStandard || m == MethodExpress
}

// Quote is a priced delivery option.
type Quote struct {
	Method       Method          `json:"method"`
	Cost         decimal.Decimal `json:"cost"`
	DeliveryDays int             `json:"delivery_days"`
}

var (
	mgStandardCost = decimal.Zero
	mgExpressCost  = decimal.RequireFromString("10.00")
	standardCost   = decimal.RequireFromString("15.90")
	expressCost    = decimal.RequireFromString("25.90")
)

// localRegion reports whether the destination is in Minas Gerais. CEPs
// starting with 3 cover the state, so either signal is enough.
func localRegion(state, postalCode string) bool {
	if strings.EqualFold(strings.TrimSpace(state), "MG") {
		return true
	}
	digits := types.DigitsOnly(postalCode)
	return len(digits) > 0 && digits[0] == '3'
}

// Estimate returns both delivery options for the destination.
func Estimate(state, postalCode string) []Quote {
	if localRegion(state, postalCode) {
		return []Quote{
			{Method: MethodStandard, Cost: mgStandardCost, DeliveryDays: 3},
			{Method: MethodExpress, Cost: mgExpressCost, DeliveryDays: 1},
		}
	}
	return []Quote{
		{Method: MethodStandard, Cost: standardCost, DeliveryDays: 7},
		{Method: MethodExpress, Cost: expressCost, DeliveryDays: 3},
	}
}

// QuoteFor returns the single quote for the chosen method.
func QuoteFor(method Method, state, postalCode string) (Quote, error) {
	if !method.IsValid() {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown shipping method")
	}
	for _, quote := range Estimate(state, postalCode) {
		if quote.Method == method {
			return quote, nil
		}
	}
	return Quote{}, pkgerrors.New(pkgerrors.CodeInternal, "shipping method not quoted")
}

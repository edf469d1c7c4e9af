package domain

import (
	"time"

	"github.com/globalbooks/fulfillment-system/shared/models"
	"github.com/shopspring/decimal"
)

// ShippingMethod represents a delivery service level
type ShippingMethod string

const (
	MethodSameDay   ShippingMethod = "SAME_DAY"
	MethodOvernight ShippingMethod = "OVERNIGHT"
	MethodTwoDay    ShippingMethod = "TWO_DAY"
	MethodExpress   ShippingMethod = "EXPRESS"
	MethodStandard  ShippingMethod = "STANDARD"
	MethodEconomy   ShippingMethod = "ECONOMY"
)

// CostCurrency is the currency shipping rates are tabulated in.
const CostCurrency = "USD"

// perUnitWeightRate is charged per weight unit on top of the method base.
var perUnitWeightRate = decimal.RequireFromString("2.00")

var baseCosts = map[ShippingMethod]decimal.Decimal{
	MethodSameDay:   decimal.RequireFromString("25.00"),
	MethodOvernight: decimal.RequireFromString("20.00"),
	MethodTwoDay:    decimal.RequireFromString("15.00"),
	MethodExpress:   decimal.RequireFromString("12.00"),
	MethodStandard:  decimal.RequireFromString("8.00"),
	MethodEconomy:   decimal.RequireFromString("5.00"),
}

var leadTimes = map[ShippingMethod]time.Duration{
	MethodSameDay:   8 * time.Hour,
	MethodOvernight: 24 * time.Hour,
	MethodTwoDay:    2 * 24 * time.Hour,
	MethodExpress:   3 * 24 * time.Hour,
	MethodStandard:  5 * 24 * time.Hour,
	MethodEconomy:   7 * 24 * time.Hour,
}

// IsValidMethod reports whether m names a shipping method.
func IsValidMethod(m ShippingMethod) bool {
	_, ok := baseCosts[m]
	return ok
}

// Cost computes the shipping charge, method base plus weight rate.
func Cost(method ShippingMethod, weight decimal.Decimal) models.Money {
	amount := baseCosts[method].Add(weight.Mul(perUnitWeightRate))
	return models.NewMoney(amount, CostCurrency)
}

// EstimatedDelivery returns when a shipment dispatched at the given
// time should arrive.
func EstimatedDelivery(method ShippingMethod, from time.Time) time.Time {
	return from.Add(leadTimes[method])
}

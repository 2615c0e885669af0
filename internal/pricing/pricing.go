// Package pricing derives offer price breakdowns from a flight's base price
// and an optional fare rule. All math is on integer cents so a breakdown can
// be replayed bit-for-bit from persisted inputs.
package pricing

import (
	"math"

	"github.com/Domenick1991/airretail/internal/domain"
)

type Calculator struct {
	taxRate  float64
	currency string
}

func NewCalculator(taxRate float64, currency string) *Calculator {
	return &Calculator{taxRate: taxRate, currency: currency}
}

// Price computes the per-passenger and total breakdown. multiplier is the
// fare rule's price multiplier, or 1.0 when no rule applies.
func (c *Calculator) Price(baseCents int64, multiplier float64, passengers int) domain.PriceBreakdown {
	basePerPax := int64(math.Round(float64(baseCents) * multiplier))
	baseTotal := basePerPax * int64(passengers)
	tax := int64(math.Round(float64(baseTotal) * c.taxRate))

	return domain.PriceBreakdown{
		BasePerPaxCents: basePerPax,
		BaseTotalCents:  baseTotal,
		TaxCents:        tax,
		TotalCents:      baseTotal + tax,
		Currency:        c.currency,
		PassengerCount:  passengers,
	}
}

// UpgradeDifference prorates a cabin change: only the base-price delta is
// charged, the original breakdown is never repriced.
func UpgradeDifference(currentBaseCents, targetBaseCents int64, passengers int) int64 {
	return (targetBaseCents - currentBaseCents) * int64(passengers)
}

// BundledServices maps fare-rule flags to bundled-service descriptors. With
// no fare rule, cabin-based defaults apply.
func BundledServices(rule *domain.FareRule, cabin domain.CabinClass) []domain.BundledService {
	if rule == nil {
		business := cabin == domain.CabinBusiness
		baggage := "BAG20"
		if business {
			baggage = "BAG30"
		}
		return []domain.BundledService{
			{Code: baggage, Name: "Checked baggage", Included: true},
			{Code: "MEAL", Name: "Meal", Included: business},
			{Code: "LOUNGE", Name: "Lounge access", Included: business},
			{Code: "SEAT", Name: "Seat selection", Included: business},
			{Code: "REFUND", Name: "Refundable fare", Included: false},
			{Code: "CHANGE", Name: "Changeable fare", Included: false},
		}
	}

	return []domain.BundledService{
		{Code: "BAG", Name: "Checked baggage", Included: rule.BaggageKg > 0},
		{Code: "MEAL", Name: "Meal", Included: rule.HasMeal},
		{Code: "LOUNGE", Name: "Lounge access", Included: rule.HasLounge},
		{Code: "SEAT", Name: "Seat selection", Included: rule.SeatSelection},
		{Code: "REFUND", Name: "Refundable fare", Included: rule.Refundable},
		{Code: "CHANGE", Name: "Changeable fare", Included: rule.Changeable},
	}
}

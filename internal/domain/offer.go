package domain

import "time"

type OfferStatus string

const (
	OfferStatusActive    OfferStatus = "ACTIVE"
	OfferStatusSelected  OfferStatus = "SELECTED"
	OfferStatusOrdered   OfferStatus = "ORDERED"
	OfferStatusExpired   OfferStatus = "EXPIRED"
	OfferStatusCancelled OfferStatus = "CANCELLED"
)

// Consumable reports whether the offer may still be exchanged for an order.
func (s OfferStatus) Consumable() bool {
	return s == OfferStatusActive || s == OfferStatusSelected
}

// PriceBreakdown keeps the decomposition an offer was priced with. All
// amounts are integer cents. Totals are never recomputed from scratch later;
// order changes adjust them incrementally against this breakdown.
type PriceBreakdown struct {
	BasePerPaxCents int64  `json:"base_per_pax_cents"`
	BaseTotalCents  int64  `json:"base_total_cents"`
	TaxCents        int64  `json:"tax_cents"`
	TotalCents      int64  `json:"total_cents"`
	Currency        string `json:"currency"`
	PassengerCount  int    `json:"passenger_count"`
}

type Segment struct {
	FlightID      int64      `json:"flight_id"`
	FlightNumber  string     `json:"flight_number"`
	CarrierCode   string     `json:"carrier_code"`
	OriginCode    string     `json:"origin_code"`
	DestCode      string     `json:"dest_code"`
	DepartureTime time.Time  `json:"departure_time"`
	ArrivalTime   time.Time  `json:"arrival_time"`
	AircraftType  string     `json:"aircraft_type"`
	Cabin         CabinClass `json:"cabin"`
	FareCode      string     `json:"fare_code"`
	DurationMin   int        `json:"duration_min"`
}

// BundledService describes a benefit bundled into the fare (baggage, meal,
// lounge and so on), not a purchasable ancillary.
type BundledService struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	Included bool   `json:"included"`
}

type Offer struct {
	ID            string           `json:"id"`
	ResponseID    string           `json:"response_id"`
	OriginID      int64            `json:"origin_id"`
	DestinationID int64            `json:"destination_id"`
	DepartureDate time.Time        `json:"departure_date"`
	ReturnDate    *time.Time       `json:"return_date,omitempty"`
	AirlineID     int64            `json:"airline_id"`
	FareRuleID    *int64           `json:"fare_rule_id,omitempty"`
	Cabin         CabinClass       `json:"cabin"`
	Passengers    int              `json:"passengers"`
	Pricing       PriceBreakdown   `json:"pricing"`
	Segments      []Segment        `json:"segments"`
	Services      []BundledService `json:"services"`
	Status        OfferStatus      `json:"status"`
	Channel       string           `json:"channel,omitempty"`
	ExpiresAt     time.Time        `json:"expires_at"`
	CreatedAt     time.Time        `json:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at"`

	// Resolved display names, filled on read.
	AirlineName     string `json:"airline_name,omitempty"`
	OriginCode      string `json:"origin_code,omitempty"`
	DestinationCode string `json:"destination_code,omitempty"`
	FareRuleName    string `json:"fare_rule_name,omitempty"`
}

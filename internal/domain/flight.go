package domain

import "time"

type CabinClass string

const (
	CabinEconomy  CabinClass = "ECONOMY"
	CabinBusiness CabinClass = "BUSINESS"
)

// Valid reports whether the value is one of the known cabin classes.
func (c CabinClass) Valid() bool {
	return c == CabinEconomy || c == CabinBusiness
}

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusDeparted  FlightStatus = "DEPARTED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
)

type Airport struct {
	ID   int64
	Code string
	Name string
	City string
}

type Airline struct {
	ID   int64
	Code string
	Name string
}

type Flight struct {
	ID                int64
	FlightNumber      string
	AirlineID         int64
	OriginID          int64
	DestinationID     int64
	DepartureTime     time.Time
	ArrivalTime       time.Time
	AircraftType      string
	Status            FlightStatus
	EconomySeats      int
	BusinessSeats     int
	EconomyAvailable  int
	BusinessAvailable int
	EconomyBaseCents  int64
	BusinessBaseCents int64
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Available returns the free-seat counter for the given cabin.
func (f *Flight) Available(cabin CabinClass) int {
	if cabin == CabinBusiness {
		return f.BusinessAvailable
	}
	return f.EconomyAvailable
}

// BaseCents returns the per-passenger base price for the given cabin.
func (f *Flight) BaseCents(cabin CabinClass) int64 {
	if cabin == CabinBusiness {
		return f.BusinessBaseCents
	}
	return f.EconomyBaseCents
}

// FareRule is an airline+cabin pricing and benefit policy applied when an
// offer is priced. Higher Priority wins when several rules are active.
type FareRule struct {
	ID              int64
	AirlineID       int64
	Cabin           CabinClass
	Name            string
	PriceMultiplier float64
	BaggageKg       int
	HasMeal         bool
	HasLounge       bool
	SeatSelection   bool
	Refundable      bool
	Changeable      bool
	ChangeFeeCents  int64
	Priority        int
	Active          bool
}

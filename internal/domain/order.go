package domain

import "time"

type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "PENDING"
	OrderStatusConfirmed         OrderStatus = "CONFIRMED"
	OrderStatusTicketed          OrderStatus = "TICKETED"
	OrderStatusPartiallyTicketed OrderStatus = "PARTIALLY_TICKETED"
	OrderStatusChanged           OrderStatus = "CHANGED"
	OrderStatusCancelled         OrderStatus = "CANCELLED"
	OrderStatusRefunded          OrderStatus = "REFUNDED"
)

// Terminal reports whether no further lifecycle operation is allowed.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCancelled || s == OrderStatusRefunded
}

// Serviceable reports whether the order may be changed or receive ancillary
// additions.
func (s OrderStatus) Serviceable() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusTicketed:
		return true
	}
	return false
}

type PassengerType string

const (
	PassengerAdult  PassengerType = "ADULT"
	PassengerChild  PassengerType = "CHILD"
	PassengerInfant PassengerType = "INFANT"
)

type Passenger struct {
	Type           PassengerType `json:"type"`
	FirstName      string        `json:"first_name"`
	LastName       string        `json:"last_name"`
	DateOfBirth    string        `json:"date_of_birth,omitempty"`
	Gender         string        `json:"gender,omitempty"`
	DocumentType   string        `json:"document_type,omitempty"`
	DocumentNumber string        `json:"document_number,omitempty"`
	FrequentFlyer  string        `json:"frequent_flyer,omitempty"`
}

type ContactInfo struct {
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address,omitempty"`
}

// HistoryEntry is one record of the order's append-only servicing trail.
type HistoryEntry struct {
	Action    string    `json:"action"`
	Timestamp time.Time `json:"timestamp"`
	Detail    string    `json:"detail,omitempty"`
}

type ReservationStatus string

const (
	ReservationStatusPending   ReservationStatus = "PENDING"
	ReservationStatusConfirmed ReservationStatus = "CONFIRMED"
	ReservationStatusCancelled ReservationStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
)

// Reservation is the seat-bearing booking row an order's lifecycle mutates.
// Seats are debited from the flight's counters only once PaymentStatus is
// PAID; cancellation credits them back under the same condition.
type Reservation struct {
	ID             int64
	FlightID       int64
	Cabin          CabinClass
	PassengerCount int
	TotalCents     int64
	Currency       string
	Status         ReservationStatus
	PaymentStatus  PaymentStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type Order struct {
	ID            string         `json:"id"`
	OfferID       string         `json:"offer_id"`
	ReservationID int64          `json:"reservation_id"`
	Passengers    []Passenger    `json:"passengers"`
	Contact       ContactInfo    `json:"contact"`
	PaymentMethod string         `json:"payment_method,omitempty"`
	TotalCents    int64          `json:"total_cents"`
	Currency      string         `json:"currency"`
	Status        OrderStatus    `json:"status"`
	Channel       string         `json:"channel,omitempty"`
	DistributorID string         `json:"distributor_id,omitempty"`
	TicketNumbers []string       `json:"ticket_numbers"`
	ServiceDocs   []string       `json:"service_docs"`
	History       []HistoryEntry `json:"history"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// AncillaryService is a purchasable catalog entry (bag, meal, seat...).
type AncillaryService struct {
	Code           string
	Name           string
	UnitPriceCents int64
	Currency       string
	Active         bool
}

// ServiceRequest is one requested ancillary line on addServices.
type ServiceRequest struct {
	Code     string `json:"code"`
	Quantity int    `json:"quantity"`
}

package validation

import (
	"fmt"
	"regexp"
	"time"

	"github.com/Domenick1991/airretail/internal/domain"
)

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

type SearchRequest struct {
	OriginID       int64             `json:"origin_id"`
	DestinationID  int64             `json:"destination_id"`
	DepartureDate  string            `json:"departure_date"`
	ReturnDate     string            `json:"return_date,omitempty"`
	PassengerCount int               `json:"passenger_count"`
	Cabin          domain.CabinClass `json:"cabin"`
	Channel        string            `json:"channel,omitempty"`
}

type CreateOrderRequest struct {
	OfferID       string             `json:"offer_id"`
	Passengers    []domain.Passenger `json:"passengers"`
	Contact       domain.ContactInfo `json:"contact"`
	PaymentMethod string             `json:"payment_method,omitempty"`
	Channel       string             `json:"channel,omitempty"`
	DistributorID string             `json:"distributor_id,omitempty"`
}

// ValidateSearch checks an AirShopping-class request. It accumulates every
// violation so callers can surface all of them at once.
func ValidateSearch(req SearchRequest, now time.Time) error {
	var violations []string

	if req.OriginID <= 0 {
		violations = append(violations, "origin_id must be a positive identifier")
	}
	if req.DestinationID <= 0 {
		violations = append(violations, "destination_id must be a positive identifier")
	}
	if req.OriginID > 0 && req.OriginID == req.DestinationID {
		violations = append(violations, "origin and destination must differ")
	}
	if req.DepartureDate == "" {
		violations = append(violations, "departure_date is required")
	} else if dep, err := time.Parse("2006-01-02", req.DepartureDate); err != nil {
		violations = append(violations, "departure_date must be formatted YYYY-MM-DD")
	} else if dep.Before(now.Truncate(24 * time.Hour)) {
		violations = append(violations, "departure_date must not be in the past")
	}
	if req.PassengerCount < 1 || req.PassengerCount > 9 {
		violations = append(violations, "passenger_count must be between 1 and 9")
	}
	if req.Cabin == "" {
		violations = append(violations, "cabin is required")
	} else if !req.Cabin.Valid() {
		violations = append(violations, "cabin must be ECONOMY or BUSINESS")
	}

	if len(violations) > 0 {
		return &domain.ValidationError{Violations: violations}
	}
	return nil
}

// ValidateCreateOrder checks an OrderCreate-class request.
func ValidateCreateOrder(req CreateOrderRequest) error {
	var violations []string

	if req.OfferID == "" {
		violations = append(violations, "offer_id is required")
	}
	if n := len(req.Passengers); n < 1 || n > 9 {
		violations = append(violations, "passengers must contain between 1 and 9 entries")
	}

	adults, infants := 0, 0
	for i, p := range req.Passengers {
		if p.FirstName == "" {
			violations = append(violations, fmt.Sprintf("passengers[%d].first_name is required", i))
		}
		if p.LastName == "" {
			violations = append(violations, fmt.Sprintf("passengers[%d].last_name is required", i))
		}
		switch p.Type {
		case domain.PassengerAdult:
			adults++
		case domain.PassengerInfant:
			infants++
		case domain.PassengerChild:
		default:
			violations = append(violations, fmt.Sprintf("passengers[%d].type must be ADULT, CHILD or INFANT", i))
		}
	}
	if len(req.Passengers) > 0 && adults == 0 {
		violations = append(violations, "at least one adult passenger is required")
	}
	if infants > adults {
		violations = append(violations, "infant count must not exceed adult count")
	}

	if req.Contact.Email == "" || !emailRe.MatchString(req.Contact.Email) {
		violations = append(violations, "contact.email must be a valid email address")
	}
	if req.Contact.Phone == "" {
		violations = append(violations, "contact.phone is required")
	}

	if len(violations) > 0 {
		return &domain.ValidationError{Violations: violations}
	}
	return nil
}

package offers

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/Domenick1991/airretail/internal/domain"
	"github.com/Domenick1991/airretail/internal/kafka"
	"github.com/Domenick1991/airretail/internal/pricing"
	"github.com/Domenick1991/airretail/internal/repository"
	"github.com/Domenick1991/airretail/internal/validation"
	"github.com/google/uuid"
)

type OfferUseCase interface {
	SearchOffers(ctx context.Context, req validation.SearchRequest) ([]domain.Offer, error)
	GetOfferPrice(ctx context.Context, offerID string) (*domain.Offer, error)
	ExpireStaleOffers(ctx context.Context) (int64, error)
}

// ReferenceCache fronts the airline/airport lookup maps.
type ReferenceCache interface {
	GetAirlines(ctx context.Context) (map[int64]domain.Airline, error)
	SetAirlines(ctx context.Context, airlines map[int64]domain.Airline) error
	GetAirports(ctx context.Context) (map[int64]domain.Airport, error)
	SetAirports(ctx context.Context, airports map[int64]domain.Airport) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type OfferService struct {
	offers      repository.OfferRepository
	flights     repository.FlightRepository
	cache       ReferenceCache
	calc        *pricing.Calculator
	offerTTL    time.Duration
	producer    Producer
	eventsTopic string
}

type OfferServiceOption func(*OfferService)

func WithEventProducer(producer Producer, topic string) OfferServiceOption {
	return func(s *OfferService) {
		s.producer = producer
		s.eventsTopic = topic
	}
}

func NewOfferService(offers repository.OfferRepository, flights repository.FlightRepository, cache ReferenceCache, calc *pricing.Calculator, offerTTL time.Duration, opts ...OfferServiceOption) *OfferService {
	s := &OfferService{
		offers:   offers,
		flights:  flights,
		cache:    cache,
		calc:     calc,
		offerTTL: offerTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SearchOffers generates time-limited priced offers from live inventory. One
// offer per (flight, fare rule) pair; a flight without active fare rules
// yields a single default-priced offer. An empty result is not an error.
func (s *OfferService) SearchOffers(ctx context.Context, req validation.SearchRequest) ([]domain.Offer, error) {
	if err := validation.ValidateSearch(req, time.Now()); err != nil {
		return nil, err
	}

	day, err := time.Parse("2006-01-02", req.DepartureDate)
	if err != nil {
		return nil, &domain.ValidationError{Violations: []string{"departure_date must be formatted YYYY-MM-DD"}}
	}
	var returnDate *time.Time
	if req.ReturnDate != "" {
		rd, err := time.Parse("2006-01-02", req.ReturnDate)
		if err != nil {
			return nil, &domain.ValidationError{Violations: []string{"return_date must be formatted YYYY-MM-DD"}}
		}
		returnDate = &rd
	}

	flights, err := s.flights.SearchScheduled(ctx, req.OriginID, req.DestinationID, day)
	if err != nil {
		return nil, &domain.DependencyError{Op: "search flights", Err: err}
	}

	airlines, airports, err := s.referenceMaps(ctx)
	if err != nil {
		return nil, &domain.DependencyError{Op: "load reference data", Err: err}
	}

	responseID := uuid.NewString()
	now := time.Now()
	result := make([]domain.Offer, 0)

	for i := range flights {
		flight := &flights[i]
		if flight.Available(req.Cabin) < req.PassengerCount {
			continue
		}

		rules, err := s.flights.ActiveFareRules(ctx, flight.AirlineID, req.Cabin)
		if err != nil {
			return nil, &domain.DependencyError{Op: "load fare rules", Err: err}
		}

		if len(rules) == 0 {
			offer := s.buildOffer(flight, nil, req, responseID, now, returnDate, airlines, airports)
			if err := s.offers.Create(ctx, &offer); err != nil {
				return nil, &domain.DependencyError{Op: "persist offer", Err: err}
			}
			result = append(result, offer)
			continue
		}

		for j := range rules {
			offer := s.buildOffer(flight, &rules[j], req, responseID, now, returnDate, airlines, airports)
			if err := s.offers.Create(ctx, &offer); err != nil {
				return nil, &domain.DependencyError{Op: "persist offer", Err: err}
			}
			result = append(result, offer)
		}
	}

	return result, nil
}

func (s *OfferService) buildOffer(flight *domain.Flight, rule *domain.FareRule, req validation.SearchRequest,
	responseID string, now time.Time, returnDate *time.Time,
	airlines map[int64]domain.Airline, airports map[int64]domain.Airport) domain.Offer {

	multiplier := 1.0
	fareCode := "DEFAULT"
	var fareRuleID *int64
	fareRuleName := ""
	if rule != nil {
		multiplier = rule.PriceMultiplier
		fareCode = rule.Name
		fareRuleID = &rule.ID
		fareRuleName = rule.Name
	}

	breakdown := s.calc.Price(flight.BaseCents(req.Cabin), multiplier, req.PassengerCount)

	segment := domain.Segment{
		FlightID:      flight.ID,
		FlightNumber:  flight.FlightNumber,
		CarrierCode:   airlines[flight.AirlineID].Code,
		OriginCode:    airports[flight.OriginID].Code,
		DestCode:      airports[flight.DestinationID].Code,
		DepartureTime: flight.DepartureTime,
		ArrivalTime:   flight.ArrivalTime,
		AircraftType:  flight.AircraftType,
		Cabin:         req.Cabin,
		FareCode:      fareCode,
		DurationMin:   int(flight.ArrivalTime.Sub(flight.DepartureTime).Minutes()),
	}

	return domain.Offer{
		ID:              uuid.NewString(),
		ResponseID:      responseID,
		OriginID:        req.OriginID,
		DestinationID:   req.DestinationID,
		DepartureDate:   flight.DepartureTime,
		ReturnDate:      returnDate,
		AirlineID:       flight.AirlineID,
		FareRuleID:      fareRuleID,
		Cabin:           req.Cabin,
		Passengers:      req.PassengerCount,
		Pricing:         breakdown,
		Segments:        []domain.Segment{segment},
		Services:        pricing.BundledServices(rule, req.Cabin),
		Status:          domain.OfferStatusActive,
		Channel:         req.Channel,
		ExpiresAt:       now.Add(s.offerTTL),
		AirlineName:     airlines[flight.AirlineID].Name,
		OriginCode:      airports[flight.OriginID].Code,
		DestinationCode: airports[flight.DestinationID].Code,
		FareRuleName:    fareRuleName,
	}
}

// GetOfferPrice returns the fully reconstructed offer. Reading an ACTIVE
// offer past its expiry persists the EXPIRED transition before the call
// fails; the state change is real even though the request errors.
func (s *OfferService) GetOfferPrice(ctx context.Context, offerID string) (*domain.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if expired, err := s.checkAndExpire(ctx, offer); err != nil {
		return nil, err
	} else if expired {
		return nil, domain.NewConflict("offer %s has expired", offerID)
	}
	switch offer.Status {
	case domain.OfferStatusExpired, domain.OfferStatusCancelled:
		return nil, domain.NewConflict("offer %s is %s and no longer usable", offerID, offer.Status)
	}
	return offer, nil
}

// checkAndExpire is the lazy read-path expiry: the transition is persisted as
// a named side effect so callers and tests can rely on it.
func (s *OfferService) checkAndExpire(ctx context.Context, offer *domain.Offer) (bool, error) {
	if offer.Status != domain.OfferStatusActive || time.Now().Before(offer.ExpiresAt) {
		return false, nil
	}
	if err := s.offers.MarkExpired(ctx, offer.ID); err != nil {
		return false, &domain.DependencyError{Op: "expire offer", Err: err}
	}
	offer.Status = domain.OfferStatusExpired
	return true, nil
}

// ConsumableOffer loads an offer for order creation, applying the same lazy
// expiry check and rejecting terminal or already-consumed offers.
func (s *OfferService) ConsumableOffer(ctx context.Context, offerID string) (*domain.Offer, error) {
	offer, err := s.offers.GetByID(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if expired, err := s.checkAndExpire(ctx, offer); err != nil {
		return nil, err
	} else if expired {
		return nil, domain.NewConflict("offer %s has expired", offerID)
	}
	if !offer.Status.Consumable() {
		return nil, domain.NewConflict("offer %s is %s and cannot be ordered", offerID, offer.Status)
	}
	return offer, nil
}

// ExpireStaleOffers is the administrative sweep: one batched update, not a
// row-by-row loop. A non-empty sweep emits one offers_expired event carrying
// the count.
func (s *OfferService) ExpireStaleOffers(ctx context.Context) (int64, error) {
	n, err := s.offers.ExpireStale(ctx, time.Now())
	if err != nil {
		return 0, &domain.DependencyError{Op: "expire offers", Err: err}
	}
	if n > 0 {
		s.publishExpired(ctx, n)
	}
	return n, nil
}

func (s *OfferService) publishExpired(ctx context.Context, count int64) {
	if s.producer == nil || s.eventsTopic == "" {
		return
	}
	event := kafka.OrderEvent{
		Type:       "offers_expired",
		Count:      count,
		OccurredAt: time.Now(),
	}
	if err := s.producer.Publish(ctx, s.eventsTopic, "offers_expired", event); err != nil {
		log.Printf("WARNING: failed to publish offers_expired event: %v", err)
	}
}

func (s *OfferService) referenceMaps(ctx context.Context) (map[int64]domain.Airline, map[int64]domain.Airport, error) {
	var airlines map[int64]domain.Airline
	var airports map[int64]domain.Airport

	if s.cache != nil {
		if cached, err := s.cache.GetAirlines(ctx); err == nil && cached != nil {
			airlines = cached
		}
		if cached, err := s.cache.GetAirports(ctx); err == nil && cached != nil {
			airports = cached
		}
	}

	if airlines == nil {
		loaded, err := s.flights.Airlines(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load airlines: %w", err)
		}
		airlines = loaded
		if s.cache != nil {
			_ = s.cache.SetAirlines(ctx, airlines)
		}
	}
	if airports == nil {
		loaded, err := s.flights.Airports(ctx)
		if err != nil {
			return nil, nil, fmt.Errorf("load airports: %w", err)
		}
		airports = loaded
		if s.cache != nil {
			_ = s.cache.SetAirports(ctx, airports)
		}
	}
	return airlines, airports, nil
}

var _ OfferUseCase = (*OfferService)(nil)

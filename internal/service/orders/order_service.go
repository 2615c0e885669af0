package orders

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/Domenick1991/airretail/internal/domain"
	"github.com/Domenick1991/airretail/internal/kafka"
	"github.com/Domenick1991/airretail/internal/pricing"
	"github.com/Domenick1991/airretail/internal/repository"
	"github.com/Domenick1991/airretail/internal/validation"
	"github.com/google/uuid"
)

type OrderUseCase interface {
	CreateOrder(ctx context.Context, req validation.CreateOrderRequest) (*domain.Order, error)
	GetOrder(ctx context.Context, orderID string) (*domain.Order, error)
	ConfirmOrder(ctx context.Context, orderID string) (*domain.Order, error)
	CancelOrder(ctx context.Context, orderID, reason string) (*domain.Order, error)
	ChangeOrder(ctx context.Context, orderID string, input ChangeOrderInput) (*domain.Order, error)
	AddServices(ctx context.Context, orderID string, services []domain.ServiceRequest) (*domain.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int64, error)
	Statistics(ctx context.Context) (*Statistics, error)
}

// OfferSource hands out offers that are still consumable, applying the lazy
// expiry check on the way.
type OfferSource interface {
	ConsumableOffer(ctx context.Context, offerID string) (*domain.Offer, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// PassengerPatch updates named fields on one passenger by index. Nil fields
// stay untouched.
type PassengerPatch struct {
	Index          int     `json:"index"`
	FirstName      *string `json:"first_name,omitempty"`
	LastName       *string `json:"last_name,omitempty"`
	DocumentType   *string `json:"document_type,omitempty"`
	DocumentNumber *string `json:"document_number,omitempty"`
}

// ContactPatch shallow-merges provided fields into the stored contact.
type ContactPatch struct {
	Email   *string `json:"email,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Address *string `json:"address,omitempty"`
}

// ChangeOrderInput carries the composable sub-changes of one changeOrder
// call. Every present field is applied; all of them commit together.
type ChangeOrderInput struct {
	PassengerUpdates []PassengerPatch   `json:"passenger_updates,omitempty"`
	Contact          *ContactPatch      `json:"contact,omitempty"`
	NewDepartureDate string             `json:"new_departure_date,omitempty"`
	UpgradeCabin     *domain.CabinClass `json:"upgrade_cabin,omitempty"`
}

type Statistics struct {
	OffersByStatus   map[domain.OfferStatus]int64 `json:"offers_by_status"`
	OrdersByStatus   map[domain.OrderStatus]int64 `json:"orders_by_status"`
	OrdersByChannel  map[string]int64             `json:"orders_by_channel"`
	RevenueByChannel map[string]int64             `json:"revenue_by_channel_cents"`
}

type OrderService struct {
	orders             repository.OrderRepository
	offers             repository.OfferRepository
	flights            repository.FlightRepository
	offerSource        OfferSource
	producer           Producer
	ordersTopic        string
	notificationsTopic string
}

type OrderServiceOption func(*OrderService)

func WithNotificationsTopic(topic string) OrderServiceOption {
	return func(s *OrderService) {
		s.notificationsTopic = topic
	}
}

func NewOrderService(
	orders repository.OrderRepository,
	offers repository.OfferRepository,
	flights repository.FlightRepository,
	offerSource OfferSource,
	producer Producer,
	ordersTopic string,
	opts ...OrderServiceOption,
) *OrderService {
	s := &OrderService{
		orders:      orders,
		offers:      offers,
		flights:     flights,
		offerSource: offerSource,
		producer:    producer,
		ordersTopic: ordersTopic,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateOrder converts a consumable offer into a pending order. The offer is
// consumed exclusively here; the seat debit is deferred to ConfirmOrder so an
// abandoned pre-payment order carries no inventory penalty.
func (s *OrderService) CreateOrder(ctx context.Context, req validation.CreateOrderRequest) (*domain.Order, error) {
	if err := validation.ValidateCreateOrder(req); err != nil {
		return nil, err
	}

	offer, err := s.offerSource.ConsumableOffer(ctx, req.OfferID)
	if err != nil {
		return nil, err
	}

	flightID := offer.Segments[0].FlightID
	channel := req.Channel
	if channel == "" {
		channel = offer.Channel
	}

	reservation := &domain.Reservation{
		FlightID:       flightID,
		Cabin:          offer.Cabin,
		PassengerCount: len(req.Passengers),
		TotalCents:     offer.Pricing.TotalCents,
		Currency:       offer.Pricing.Currency,
	}

	order := &domain.Order{
		ID:            uuid.NewString(),
		OfferID:       offer.ID,
		Passengers:    req.Passengers,
		Contact:       req.Contact,
		PaymentMethod: req.PaymentMethod,
		TotalCents:    offer.Pricing.TotalCents,
		Currency:      offer.Pricing.Currency,
		Channel:       channel,
		DistributorID: req.DistributorID,
		TicketNumbers: []string{},
		ServiceDocs:   []string{},
		History: []domain.HistoryEntry{{
			Action:    "OrderCreate",
			Timestamp: time.Now(),
			Detail:    fmt.Sprintf("created from offer %s, %d passengers", offer.ID, len(req.Passengers)),
		}},
	}

	if err := s.orders.CreateFromOffer(ctx, order, reservation); err != nil {
		return nil, err
	}

	s.publish(ctx, "order_created", order, "")
	return order, nil
}

func (s *OrderService) GetOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	return s.orders.GetByID(ctx, orderID)
}

// ConfirmOrder is the deferred-debit hook the payment-confirmation step
// calls once capture succeeds: seats are debited and the reservation is
// marked paid.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID string) (*domain.Order, error) {
	entry := domain.HistoryEntry{
		Action:    "OrderConfirm",
		Timestamp: time.Now(),
		Detail:    "payment confirmed, inventory debited",
	}
	order, err := s.orders.Confirm(ctx, orderID, entry)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "order_confirmed", order, "")
	return order, nil
}

func (s *OrderService) CancelOrder(ctx context.Context, orderID, reason string) (*domain.Order, error) {
	entry := domain.HistoryEntry{
		Action:    "OrderCancel",
		Timestamp: time.Now(),
		Detail:    reason,
	}
	order, err := s.orders.Cancel(ctx, orderID, entry)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "order_cancelled", order, reason)
	return order, nil
}

// ChangeOrder applies the requested sub-changes in one transaction. A cabin
// upgrade is the only sub-change that touches money: the new total is exactly
// the old total plus the prorated base-price difference.
func (s *OrderService) ChangeOrder(ctx context.Context, orderID string, input ChangeOrderInput) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Serviceable() {
		return nil, domain.NewConflict("order %s is %s and cannot be changed", orderID, order.Status)
	}

	reservation, err := s.orders.GetReservation(ctx, order.ReservationID)
	if err != nil {
		return nil, err
	}

	change := repository.OrderChange{}
	var details []string

	if len(input.PassengerUpdates) > 0 {
		passengers := make([]domain.Passenger, len(order.Passengers))
		copy(passengers, order.Passengers)
		for _, patch := range input.PassengerUpdates {
			if patch.Index < 0 || patch.Index >= len(passengers) {
				return nil, &domain.ValidationError{Violations: []string{fmt.Sprintf("passenger index %d out of range", patch.Index)}}
			}
			p := &passengers[patch.Index]
			if patch.FirstName != nil {
				p.FirstName = *patch.FirstName
			}
			if patch.LastName != nil {
				p.LastName = *patch.LastName
			}
			if patch.DocumentType != nil {
				p.DocumentType = *patch.DocumentType
			}
			if patch.DocumentNumber != nil {
				p.DocumentNumber = *patch.DocumentNumber
			}
		}
		change.Passengers = passengers
		details = append(details, fmt.Sprintf("updated %d passenger(s)", len(input.PassengerUpdates)))
	}

	if input.Contact != nil {
		contact := order.Contact
		if input.Contact.Email != nil {
			contact.Email = *input.Contact.Email
		}
		if input.Contact.Phone != nil {
			contact.Phone = *input.Contact.Phone
		}
		if input.Contact.Address != nil {
			contact.Address = *input.Contact.Address
		}
		change.Contact = &contact
		details = append(details, "updated contact info")
	}

	// Only the flight-touching sub-changes need the flight row.
	var currentFlight *domain.Flight
	if input.NewDepartureDate != "" || input.UpgradeCabin != nil {
		currentFlight, err = s.flights.GetByID(ctx, reservation.FlightID)
		if err != nil {
			return nil, &domain.DependencyError{Op: "load flight", Err: err}
		}
	}

	if input.NewDepartureDate != "" {
		day, err := time.Parse("2006-01-02", input.NewDepartureDate)
		if err != nil {
			return nil, &domain.ValidationError{Violations: []string{"new_departure_date must be formatted YYYY-MM-DD"}}
		}
		replacement, err := s.findReplacementFlight(ctx, currentFlight, reservation, day)
		if err != nil {
			return nil, err
		}
		change.NewFlightID = &replacement.ID
		currentFlight = replacement
		details = append(details, fmt.Sprintf("moved to flight %s on %s", replacement.FlightNumber, input.NewDepartureDate))
	}

	if input.UpgradeCabin != nil {
		target := *input.UpgradeCabin
		if !target.Valid() {
			return nil, &domain.ValidationError{Violations: []string{"upgrade_cabin must be ECONOMY or BUSINESS"}}
		}
		if target == reservation.Cabin {
			return nil, domain.NewConflict("reservation is already in %s", target)
		}
		delta := pricing.UpgradeDifference(currentFlight.BaseCents(reservation.Cabin), currentFlight.BaseCents(target), reservation.PassengerCount)
		change.NewCabin = &target
		change.PriceDeltaCents = delta
		details = append(details, fmt.Sprintf("cabin upgrade to %s, price difference %d %s", target, delta, order.Currency))
	}

	if len(details) == 0 {
		return nil, &domain.ValidationError{Violations: []string{"no changes requested"}}
	}

	change.Entry = domain.HistoryEntry{
		Action:    "OrderChange",
		Timestamp: time.Now(),
		Detail:    strings.Join(details, "; "),
	}

	updated, err := s.orders.ApplyChange(ctx, orderID, change)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "order_changed", updated, change.Entry.Detail)
	return updated, nil
}

// findReplacementFlight looks for a same-route flight on the new day with
// room for the existing party in the existing cabin. A pure date change
// never touches the order total.
func (s *OrderService) findReplacementFlight(ctx context.Context, current *domain.Flight, reservation *domain.Reservation, day time.Time) (*domain.Flight, error) {
	candidates, err := s.flights.SearchScheduled(ctx, current.OriginID, current.DestinationID, day)
	if err != nil {
		return nil, &domain.DependencyError{Op: "search replacement flights", Err: err}
	}
	for i := range candidates {
		c := &candidates[i]
		if c.ID == current.ID {
			continue
		}
		if c.Available(reservation.Cabin) >= reservation.PassengerCount {
			return c, nil
		}
	}
	return nil, domain.NewNotFound("flight on requested date", day.Format("2006-01-02"))
}

// AddServices attaches ancillary lines from the catalog, accumulates their
// cost into the order total and issues one service document per line.
func (s *OrderService) AddServices(ctx context.Context, orderID string, services []domain.ServiceRequest) (*domain.Order, error) {
	if len(services) == 0 {
		return nil, &domain.ValidationError{Violations: []string{"services must not be empty"}}
	}

	lines := make([]repository.AncillaryLine, 0, len(services))
	var totalDelta int64
	var summary []string
	for _, req := range services {
		qty := req.Quantity
		if qty <= 0 {
			qty = 1
		}
		svc, err := s.orders.GetAncillaryService(ctx, req.Code)
		if err != nil {
			return nil, err
		}
		line := repository.AncillaryLine{
			Code:           svc.Code,
			Name:           svc.Name,
			Quantity:       qty,
			UnitPriceCents: svc.UnitPriceCents,
			TotalCents:     svc.UnitPriceCents * int64(qty),
			DocumentNumber: "EMD-" + uuid.NewString(),
		}
		lines = append(lines, line)
		totalDelta += line.TotalCents
		summary = append(summary, fmt.Sprintf("%dx %s", qty, svc.Code))
	}

	entry := domain.HistoryEntry{
		Action:    "AddServices",
		Timestamp: time.Now(),
		Detail:    fmt.Sprintf("added %s for %d", strings.Join(summary, ", "), totalDelta),
	}

	order, err := s.orders.AddServices(ctx, orderID, lines, entry)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "services_added", order, entry.Detail)
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int64, error) {
	return s.orders.List(ctx, filter)
}

func (s *OrderService) Statistics(ctx context.Context) (*Statistics, error) {
	offersByStatus, err := s.offers.CountByStatus(ctx)
	if err != nil {
		return nil, &domain.DependencyError{Op: "count offers", Err: err}
	}
	ordersByStatus, err := s.orders.CountByStatus(ctx)
	if err != nil {
		return nil, &domain.DependencyError{Op: "count orders", Err: err}
	}
	ordersByChannel, err := s.orders.CountByChannel(ctx)
	if err != nil {
		return nil, &domain.DependencyError{Op: "count orders by channel", Err: err}
	}
	revenue, err := s.orders.RevenueByChannel(ctx)
	if err != nil {
		return nil, &domain.DependencyError{Op: "sum revenue", Err: err}
	}
	return &Statistics{
		OffersByStatus:   offersByStatus,
		OrdersByStatus:   ordersByStatus,
		OrdersByChannel:  ordersByChannel,
		RevenueByChannel: revenue,
	}, nil
}

func (s *OrderService) publish(ctx context.Context, eventType string, order *domain.Order, detail string) {
	if s.producer == nil || s.ordersTopic == "" {
		return
	}
	event := kafka.OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		OfferID:    order.OfferID,
		Status:     string(order.Status),
		Email:      order.Contact.Email,
		TotalCents: order.TotalCents,
		Currency:   order.Currency,
		Channel:    order.Channel,
		Detail:     detail,
		OccurredAt: time.Now(),
	}
	if err := s.producer.Publish(ctx, s.ordersTopic, order.ID, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for order %s: %v", eventType, order.ID, err)
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, order.ID, event); err != nil {
			log.Printf("WARNING: failed to publish notification for order %s: %v", order.ID, err)
		}
	}
}

var _ OrderUseCase = (*OrderService)(nil)

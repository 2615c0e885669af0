package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/airretail/internal/domain"
	"github.com/Domenick1991/airretail/internal/repository"
	"github.com/Domenick1991/airretail/internal/validation"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockOrderRepository struct {
	mock.Mock
}

func (m *MockOrderRepository) CreateFromOffer(ctx context.Context, order *domain.Order, reservation *domain.Reservation) error {
	args := m.Called(ctx, order, reservation)
	return args.Error(0)
}

func (m *MockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) GetReservation(ctx context.Context, id int64) (*domain.Reservation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reservation), args.Error(1)
}

func (m *MockOrderRepository) Confirm(ctx context.Context, orderID string, entry domain.HistoryEntry) (*domain.Order, error) {
	args := m.Called(ctx, orderID, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) Cancel(ctx context.Context, orderID string, entry domain.HistoryEntry) (*domain.Order, error) {
	args := m.Called(ctx, orderID, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) ApplyChange(ctx context.Context, orderID string, change repository.OrderChange) (*domain.Order, error) {
	args := m.Called(ctx, orderID, change)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) AddServices(ctx context.Context, orderID string, lines []repository.AncillaryLine, entry domain.HistoryEntry) (*domain.Order, error) {
	args := m.Called(ctx, orderID, lines, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *MockOrderRepository) GetAncillaryService(ctx context.Context, code string) (*domain.AncillaryService, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AncillaryService), args.Error(1)
}

func (m *MockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]domain.Order), args.Get(1).(int64), args.Error(2)
}

func (m *MockOrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[domain.OrderStatus]int64), args.Error(1)
}

func (m *MockOrderRepository) CountByChannel(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[string]int64), args.Error(1)
}

func (m *MockOrderRepository) RevenueByChannel(ctx context.Context) (map[string]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[string]int64), args.Error(1)
}

type MockOfferRepository struct {
	mock.Mock
}

func (m *MockOfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	args := m.Called(ctx, offer)
	return args.Error(0)
}

func (m *MockOfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

func (m *MockOfferRepository) MarkExpired(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOfferRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockOfferRepository) CountByStatus(ctx context.Context) (map[domain.OfferStatus]int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[domain.OfferStatus]int64), args.Error(1)
}

type MockFlightRepository struct {
	mock.Mock
}

func (m *MockFlightRepository) SearchScheduled(ctx context.Context, originID, destinationID int64, day time.Time) ([]domain.Flight, error) {
	args := m.Called(ctx, originID, destinationID, day)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightRepository) ActiveFareRules(ctx context.Context, airlineID int64, cabin domain.CabinClass) ([]domain.FareRule, error) {
	args := m.Called(ctx, airlineID, cabin)
	return args.Get(0).([]domain.FareRule), args.Error(1)
}

func (m *MockFlightRepository) Airlines(ctx context.Context) (map[int64]domain.Airline, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[int64]domain.Airline), args.Error(1)
}

func (m *MockFlightRepository) Airports(ctx context.Context) (map[int64]domain.Airport, error) {
	args := m.Called(ctx)
	return args.Get(0).(map[int64]domain.Airport), args.Error(1)
}

type MockOfferSource struct {
	mock.Mock
}

func (m *MockOfferSource) ConsumableOffer(ctx context.Context, offerID string) (*domain.Offer, error) {
	args := m.Called(ctx, offerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Offer), args.Error(1)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

func newTestService(orderRepo *MockOrderRepository, offerRepo *MockOfferRepository, flightRepo *MockFlightRepository, source *MockOfferSource, producer *MockProducer) *OrderService {
	return NewOrderService(orderRepo, offerRepo, flightRepo, source, producer, "order-events")
}

func consumableOffer() *domain.Offer {
	return &domain.Offer{
		ID:        "offer-1",
		Status:    domain.OfferStatusActive,
		Cabin:     domain.CabinEconomy,
		Channel:   "web",
		ExpiresAt: time.Now().Add(time.Hour),
		Pricing:   domain.PriceBreakdown{TotalCents: 138000, Currency: "SAR", PassengerCount: 2},
		Segments:  []domain.Segment{{FlightID: 7, FlightNumber: "SV1020"}},
	}
}

func createRequest() validation.CreateOrderRequest {
	return validation.CreateOrderRequest{
		OfferID: "offer-1",
		Passengers: []domain.Passenger{
			{Type: domain.PassengerAdult, FirstName: "Sara", LastName: "Alghamdi"},
			{Type: domain.PassengerAdult, FirstName: "Omar", LastName: "Alghamdi"},
		},
		Contact:       domain.ContactInfo{Email: "sara@example.com", Phone: "+966500000000"},
		PaymentMethod: "card",
	}
}

func TestCreateOrder_Success(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	source := &MockOfferSource{}
	producer := &MockProducer{}
	service := newTestService(orderRepo, &MockOfferRepository{}, &MockFlightRepository{}, source, producer)

	ctx := context.Background()
	source.On("ConsumableOffer", ctx, "offer-1").Return(consumableOffer(), nil)
	orderRepo.On("CreateFromOffer", ctx, mock.AnythingOfType("*domain.Order"), mock.AnythingOfType("*domain.Reservation")).Return(nil).Once()
	producer.On("Publish", ctx, "order-events", mock.Anything, mock.Anything).Return(nil)

	order, err := service.CreateOrder(ctx, createRequest())

	assert.NoError(t, err)
	assert.NotNil(t, order)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "offer-1", order.OfferID)
	assert.Equal(t, int64(138000), order.TotalCents)
	assert.Equal(t, "SAR", order.Currency)
	assert.Len(t, order.Passengers, 2)
	assert.Len(t, order.History, 1)
	assert.Equal(t, "OrderCreate", order.History[0].Action)

	reservation := orderRepo.Calls[0].Arguments.Get(2).(*domain.Reservation)
	assert.Equal(t, int64(7), reservation.FlightID)
	assert.Equal(t, domain.CabinEconomy, reservation.Cabin)
	assert.Equal(t, 2, reservation.PassengerCount)
	assert.Equal(t, int64(138000), reservation.TotalCents)

	orderRepo.AssertExpectations(t)
	producer.AssertExpectations(t)
}

func TestCreateOrder_ValidationFailure(t *testing.T) {
	service := newTestService(&MockOrderRepository{}, &MockOfferRepository{}, &MockFlightRepository{}, &MockOfferSource{}, nil)

	req := createRequest()
	req.Passengers = nil

	_, err := service.CreateOrder(context.Background(), req)

	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestCreateOrder_ConsumedOfferConflict(t *testing.T) {
	source := &MockOfferSource{}
	service := newTestService(&MockOrderRepository{}, &MockOfferRepository{}, &MockFlightRepository{}, source, nil)

	ctx := context.Background()
	source.On("ConsumableOffer", ctx, "offer-1").Return(nil, domain.NewConflict("offer offer-1 is ORDERED and cannot be ordered"))

	_, err := service.CreateOrder(ctx, createRequest())

	var cerr *domain.ConflictError
	assert.True(t, errors.As(err, &cerr))
}

func TestCreateOrder_RaceLoserGetsConflict(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	source := &MockOfferSource{}
	service := newTestService(orderRepo, &MockOfferRepository{}, &MockFlightRepository{}, source, nil)

	ctx := context.Background()
	// Both callers saw the offer as active; the compare-and-set in the
	// repository decides the winner.
	source.On("ConsumableOffer", ctx, "offer-1").Return(consumableOffer(), nil)
	orderRepo.On("CreateFromOffer", ctx, mock.Anything, mock.Anything).
		Return(domain.NewConflict("offer offer-1 is not in a state that allows transition to ORDERED"))

	_, err := service.CreateOrder(ctx, createRequest())

	var cerr *domain.ConflictError
	assert.True(t, errors.As(err, &cerr))
}

func TestConfirmOrder_PublishesEvent(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	producer := &MockProducer{}
	service := newTestService(orderRepo, &MockOfferRepository{}, &MockFlightRepository{}, &MockOfferSource{}, producer)

	ctx := context.Background()
	confirmed := &domain.Order{ID: "order-1", Status: domain.OrderStatusConfirmed, TotalCents: 138000}
	orderRepo.On("Confirm", ctx, "order-1", mock.AnythingOfType("domain.HistoryEntry")).Return(confirmed, nil)
	producer.On("Publish", ctx, "order-events", "order-1", mock.Anything).Return(nil).Once()

	order, err := service.ConfirmOrder(ctx, "order-1")

	assert.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, order.Status)
	producer.AssertExpectations(t)
}

func TestCancelOrder_AlreadyTerminal(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	service := newTestService(orderRepo, &MockOfferRepository{}, &MockFlightRepository{}, &MockOfferSource{}, nil)

	ctx := context.Background()
	orderRepo.On("Cancel", ctx, "order-1", mock.Anything).Return(nil, domain.NewConflict("order order-1 is already CANCELLED"))

	_, err := service.CancelOrder(ctx, "order-1", "changed my mind")

	var cerr *domain.ConflictError
	assert.True(t, errors.As(err, &cerr))
}

func serviceableOrder() *domain.Order {
	return &domain.Order{
		ID:            "order-1",
		OfferID:       "offer-1",
		ReservationID: 11,
		Status:        domain.OrderStatusConfirmed,
		TotalCents:    138000,
		Currency:      "SAR",
		Passengers: []domain.Passenger{
			{Type: domain.PassengerAdult, FirstName: "Sara", LastName: "Alghamdi"},
			{Type: domain.PassengerAdult, FirstName: "Omar", LastName: "Alghamdi"},
		},
		Contact: domain.ContactInfo{Email: "sara@example.com", Phone: "+966500000000"},
	}
}

func testReservation() *domain.Reservation {
	return &domain.Reservation{
		ID:             11,
		FlightID:       7,
		Cabin:          domain.CabinEconomy,
		PassengerCount: 2,
		TotalCents:     138000,
		Currency:       "SAR",
		Status:         domain.ReservationStatusConfirmed,
		PaymentStatus:  domain.PaymentStatusPaid,
	}
}

func testFlight() *domain.Flight {
	return &domain.Flight{
		ID:                7,
		FlightNumber:      "SV1020",
		OriginID:          10,
		DestinationID:     20,
		EconomyBaseCents:  50000,
		BusinessBaseCents: 120000,
		EconomyAvailable:  5,
		BusinessAvailable: 3,
	}
}

func TestChangeOrder_CabinUpgradeProratesPrice(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	flightRepo := &MockFlightRepository{}
	producer := &MockProducer{}
	service := newTestService(orderRepo, &MockOfferRepository{}, flightRepo, &MockOfferSource{}, producer)

	ctx := context.Background()
	orderRepo.On("GetByID", ctx, "order-1").Return(serviceableOrder(), nil)
	orderRepo.On("GetReservation", ctx, int64(11)).Return(testReservation(), nil)
	flightRepo.On("GetByID", ctx, int64(7)).Return(testFlight(), nil)

	// (120000 - 50000) * 2 passengers
	expectedDelta := int64(140000)
	updated := serviceableOrder()
	updated.Status = domain.OrderStatusChanged
	updated.TotalCents = 138000 + expectedDelta
	orderRepo.On("ApplyChange", ctx, "order-1", mock.MatchedBy(func(change repository.OrderChange) bool {
		return change.NewCabin != nil && *change.NewCabin == domain.CabinBusiness && change.PriceDeltaCents == expectedDelta
	})).Return(updated, nil).Once()
	producer.On("Publish", ctx, "order-events", mock.Anything, mock.Anything).Return(nil)

	business := domain.CabinBusiness
	order, err := service.ChangeOrder(ctx, "order-1", ChangeOrderInput{UpgradeCabin: &business})

	assert.NoError(t, err)
	assert.Equal(t, int64(278000), order.TotalCents)
	assert.Equal(t, domain.OrderStatusChanged, order.Status)
	orderRepo.AssertExpectations(t)
}

func TestChangeOrder_UpgradeInsufficientInventory(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	flightRepo := &MockFlightRepository{}
	service := newTestService(orderRepo, &MockOfferRepository{}, flightRepo, &MockOfferSource{}, nil)

	ctx := context.Background()
	orderRepo.On("GetByID", ctx, "order-1").Return(serviceableOrder(), nil)
	orderRepo.On("GetReservation", ctx, int64(11)).Return(testReservation(), nil)
	flightRepo.On("GetByID", ctx, int64(7)).Return(testFlight(), nil)
	orderRepo.On("ApplyChange", ctx, "order-1", mock.Anything).
		Return(nil, &domain.InsufficientInventoryError{FlightID: 7, Cabin: domain.CabinBusiness, Requested: 2})

	business := domain.CabinBusiness
	_, err := service.ChangeOrder(ctx, "order-1", ChangeOrderInput{UpgradeCabin: &business})

	var ierr *domain.InsufficientInventoryError
	assert.True(t, errors.As(err, &ierr))
}

func TestChangeOrder_RejectsTerminalOrder(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	service := newTestService(orderRepo, &MockOfferRepository{}, &MockFlightRepository{}, &MockOfferSource{}, nil)

	ctx := context.Background()
	cancelled := serviceableOrder()
	cancelled.Status = domain.OrderStatusCancelled
	orderRepo.On("GetByID", ctx, "order-1").Return(cancelled, nil)

	business := domain.CabinBusiness
	_, err := service.ChangeOrder(ctx, "order-1", ChangeOrderInput{UpgradeCabin: &business})

	var cerr *domain.ConflictError
	assert.True(t, errors.As(err, &cerr))
}

func TestChangeOrder_ContactOnlySkipsFlightLookup(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	flightRepo := &MockFlightRepository{}
	producer := &MockProducer{}
	service := newTestService(orderRepo, &MockOfferRepository{}, flightRepo, &MockOfferSource{}, producer)

	ctx := context.Background()
	orderRepo.On("GetByID", ctx, "order-1").Return(serviceableOrder(), nil)
	orderRepo.On("GetReservation", ctx, int64(11)).Return(testReservation(), nil)

	updated := serviceableOrder()
	updated.Status = domain.OrderStatusChanged
	updated.Contact.Phone = "+966555555555"
	orderRepo.On("ApplyChange", ctx, "order-1", mock.MatchedBy(func(change repository.OrderChange) bool {
		return change.Contact != nil && change.Contact.Phone == "+966555555555" && change.PriceDeltaCents == 0
	})).Return(updated, nil).Once()
	producer.On("Publish", ctx, "order-events", mock.Anything, mock.Anything).Return(nil)

	phone := "+966555555555"
	order, err := service.ChangeOrder(ctx, "order-1", ChangeOrderInput{Contact: &ContactPatch{Phone: &phone}})

	assert.NoError(t, err)
	assert.Equal(t, domain.OrderStatusChanged, order.Status)
	flightRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	orderRepo.AssertExpectations(t)
}

func TestChangeOrder_UnknownUpgradeCabin(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	flightRepo := &MockFlightRepository{}
	service := newTestService(orderRepo, &MockOfferRepository{}, flightRepo, &MockOfferSource{}, nil)

	ctx := context.Background()
	orderRepo.On("GetByID", ctx, "order-1").Return(serviceableOrder(), nil)
	orderRepo.On("GetReservation", ctx, int64(11)).Return(testReservation(), nil)
	flightRepo.On("GetByID", ctx, int64(7)).Return(testFlight(), nil)

	first := domain.CabinClass("FIRST")
	_, err := service.ChangeOrder(ctx, "order-1", ChangeOrderInput{UpgradeCabin: &first})

	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
	orderRepo.AssertNotCalled(t, "ApplyChange", mock.Anything, mock.Anything, mock.Anything)
}

func TestChangeOrder_PassengerIndexOutOfRange(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	service := newTestService(orderRepo, &MockOfferRepository{}, &MockFlightRepository{}, &MockOfferSource{}, nil)

	ctx := context.Background()
	orderRepo.On("GetByID", ctx, "order-1").Return(serviceableOrder(), nil)
	orderRepo.On("GetReservation", ctx, int64(11)).Return(testReservation(), nil)

	name := "Updated"
	_, err := service.ChangeOrder(ctx, "order-1", ChangeOrderInput{
		PassengerUpdates: []PassengerPatch{{Index: 5, FirstName: &name}},
	})

	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))
}

func TestChangeOrder_DateChangeNoFlightFound(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	flightRepo := &MockFlightRepository{}
	service := newTestService(orderRepo, &MockOfferRepository{}, flightRepo, &MockOfferSource{}, nil)

	ctx := context.Background()
	orderRepo.On("GetByID", ctx, "order-1").Return(serviceableOrder(), nil)
	orderRepo.On("GetReservation", ctx, int64(11)).Return(testReservation(), nil)
	flightRepo.On("GetByID", ctx, int64(7)).Return(testFlight(), nil)
	flightRepo.On("SearchScheduled", ctx, int64(10), int64(20), mock.Anything).Return([]domain.Flight{}, nil)

	_, err := service.ChangeOrder(ctx, "order-1", ChangeOrderInput{NewDepartureDate: "2030-07-01"})

	var nferr *domain.NotFoundError
	assert.True(t, errors.As(err, &nferr))
}

func TestChangeOrder_DateChangeReassignsFlight(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	flightRepo := &MockFlightRepository{}
	producer := &MockProducer{}
	service := newTestService(orderRepo, &MockOfferRepository{}, flightRepo, &MockOfferSource{}, producer)

	ctx := context.Background()
	orderRepo.On("GetByID", ctx, "order-1").Return(serviceableOrder(), nil)
	orderRepo.On("GetReservation", ctx, int64(11)).Return(testReservation(), nil)
	flightRepo.On("GetByID", ctx, int64(7)).Return(testFlight(), nil)

	replacement := *testFlight()
	replacement.ID = 8
	replacement.FlightNumber = "SV1030"
	flightRepo.On("SearchScheduled", ctx, int64(10), int64(20), mock.Anything).Return([]domain.Flight{replacement}, nil)

	updated := serviceableOrder()
	updated.Status = domain.OrderStatusChanged
	orderRepo.On("ApplyChange", ctx, "order-1", mock.MatchedBy(func(change repository.OrderChange) bool {
		// A pure date change reassigns the flight and leaves money alone.
		return change.NewFlightID != nil && *change.NewFlightID == int64(8) && change.PriceDeltaCents == 0
	})).Return(updated, nil).Once()
	producer.On("Publish", ctx, "order-events", mock.Anything, mock.Anything).Return(nil)

	order, err := service.ChangeOrder(ctx, "order-1", ChangeOrderInput{NewDepartureDate: "2030-07-01"})

	assert.NoError(t, err)
	assert.Equal(t, int64(138000), order.TotalCents)
	orderRepo.AssertExpectations(t)
}

func TestAddServices_AccumulatesTotalsAndDocs(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	producer := &MockProducer{}
	service := newTestService(orderRepo, &MockOfferRepository{}, &MockFlightRepository{}, &MockOfferSource{}, producer)

	ctx := context.Background()
	orderRepo.On("GetAncillaryService", ctx, "XBAG").Return(&domain.AncillaryService{Code: "XBAG", Name: "Extra baggage", UnitPriceCents: 15000, Currency: "SAR", Active: true}, nil)
	orderRepo.On("GetAncillaryService", ctx, "MEAL").Return(&domain.AncillaryService{Code: "MEAL", Name: "Premium meal", UnitPriceCents: 4500, Currency: "SAR", Active: true}, nil)

	updated := serviceableOrder()
	updated.TotalCents = 138000 + 2*15000 + 4500
	orderRepo.On("AddServices", ctx, "order-1", mock.MatchedBy(func(lines []repository.AncillaryLine) bool {
		if len(lines) != 2 {
			return false
		}
		return lines[0].TotalCents == 30000 && lines[1].TotalCents == 4500 &&
			lines[0].DocumentNumber != "" && lines[1].DocumentNumber != ""
	}), mock.AnythingOfType("domain.HistoryEntry")).Return(updated, nil).Once()
	producer.On("Publish", ctx, "order-events", mock.Anything, mock.Anything).Return(nil)

	order, err := service.AddServices(ctx, "order-1", []domain.ServiceRequest{
		{Code: "XBAG", Quantity: 2},
		{Code: "MEAL", Quantity: 1},
	})

	assert.NoError(t, err)
	assert.Equal(t, int64(172500), order.TotalCents)
	orderRepo.AssertExpectations(t)
}

func TestAddServices_UnknownCode(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	service := newTestService(orderRepo, &MockOfferRepository{}, &MockFlightRepository{}, &MockOfferSource{}, nil)

	ctx := context.Background()
	orderRepo.On("GetAncillaryService", ctx, "NOPE").Return(nil, domain.NewNotFound("service", "NOPE"))

	_, err := service.AddServices(ctx, "order-1", []domain.ServiceRequest{{Code: "NOPE", Quantity: 1}})

	var nferr *domain.NotFoundError
	assert.True(t, errors.As(err, &nferr))
	orderRepo.AssertNotCalled(t, "AddServices", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestStatistics_Aggregates(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	offerRepo := &MockOfferRepository{}
	service := newTestService(orderRepo, offerRepo, &MockFlightRepository{}, &MockOfferSource{}, nil)

	ctx := context.Background()
	offerRepo.On("CountByStatus", ctx).Return(map[domain.OfferStatus]int64{domain.OfferStatusActive: 3, domain.OfferStatusExpired: 9}, nil)
	orderRepo.On("CountByStatus", ctx).Return(map[domain.OrderStatus]int64{domain.OrderStatusConfirmed: 4}, nil)
	orderRepo.On("CountByChannel", ctx).Return(map[string]int64{"web": 4}, nil)
	orderRepo.On("RevenueByChannel", ctx).Return(map[string]int64{"web": 552000}, nil)

	stats, err := service.Statistics(ctx)

	assert.NoError(t, err)
	assert.Equal(t, int64(3), stats.OffersByStatus[domain.OfferStatusActive])
	assert.Equal(t, int64(4), stats.OrdersByStatus[domain.OrderStatusConfirmed])
	assert.Equal(t, int64(552000), stats.RevenueByChannel["web"])
}

func TestGetOrder_PassesThrough(t *testing.T) {
	orderRepo := &MockOrderRepository{}
	service := newTestService(orderRepo, &MockOfferRepository{}, &MockFlightRepository{}, &MockOfferSource{}, nil)

	ctx := context.Background()
	orderRepo.On("GetByID", ctx, "missing").Return(nil, domain.NewNotFound("order", "missing"))

	_, err := service.GetOrder(ctx, "missing")

	var nferr *domain.NotFoundError
	assert.True(t, errors.As(err, &nferr))
}

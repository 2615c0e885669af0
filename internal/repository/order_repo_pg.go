package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/airretail/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderChange is the precomputed, composable set of sub-changes applied to an
// order in one transaction. Nil fields mean "unchanged".
type OrderChange struct {
	Passengers      []domain.Passenger
	Contact         *domain.ContactInfo
	NewFlightID     *int64
	NewCabin        *domain.CabinClass
	PriceDeltaCents int64
	Entry           domain.HistoryEntry
}

// AncillaryLine is one resolved service line attached by AddServices.
type AncillaryLine struct {
	Code           string
	Name           string
	Quantity       int
	UnitPriceCents int64
	TotalCents     int64
	DocumentNumber string
}

type OrderFilter struct {
	AirlineID     int64
	Status        domain.OrderStatus
	Channel       string
	DistributorID string
	DateFrom      *time.Time
	DateTo        *time.Time
	Page          int
	Limit         int
}

type OrderRepository interface {
	CreateFromOffer(ctx context.Context, order *domain.Order, reservation *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	GetReservation(ctx context.Context, id int64) (*domain.Reservation, error)
	Confirm(ctx context.Context, orderID string, entry domain.HistoryEntry) (*domain.Order, error)
	Cancel(ctx context.Context, orderID string, entry domain.HistoryEntry) (*domain.Order, error)
	ApplyChange(ctx context.Context, orderID string, change OrderChange) (*domain.Order, error)
	AddServices(ctx context.Context, orderID string, lines []AncillaryLine, entry domain.HistoryEntry) (*domain.Order, error)
	GetAncillaryService(ctx context.Context, code string) (*domain.AncillaryService, error)
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int64, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error)
	CountByChannel(ctx context.Context) (map[string]int64, error)
	RevenueByChannel(ctx context.Context) (map[string]int64, error)
}

type PGOrderRepository struct {
	db *pgxpool.Pool
}

func NewOrderRepository(db *pgxpool.Pool) OrderRepository {
	return &PGOrderRepository{db: db}
}

const orderColumns = `id, offer_id, reservation_id, passengers, contact, payment_method, total_cents, currency, status, channel, distributor_id, ticket_numbers, service_docs, history, created_at, updated_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	var passengers, contact, history []byte
	err := row.Scan(&o.ID, &o.OfferID, &o.ReservationID, &passengers, &contact, &o.PaymentMethod, &o.TotalCents,
		&o.Currency, &o.Status, &o.Channel, &o.DistributorID, &o.TicketNumbers, &o.ServiceDocs, &history,
		&o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(passengers, &o.Passengers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(contact, &o.Contact); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(history, &o.History); err != nil {
		return nil, err
	}
	return &o, nil
}

func historyPayload(entry domain.HistoryEntry) ([]byte, error) {
	return json.Marshal([]domain.HistoryEntry{entry})
}

// CreateFromOffer exchanges offer exclusivity for a new order: the offer's
// status moves to ORDERED with a compare-and-set, the reservation row and its
// passenger rows are created, and the order is persisted, all in one
// transaction. Losing a race on the offer surfaces as ConflictError. Seats
// are NOT debited here; that happens at payment confirmation.
func (r *PGOrderRepository) CreateFromOffer(ctx context.Context, order *domain.Order, reservation *domain.Reservation) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := transitionOfferStatus(ctx, tx, order.OfferID, []domain.OfferStatus{domain.OfferStatusActive, domain.OfferStatusSelected}, domain.OfferStatusOrdered); err != nil {
		return err
	}

	reservation.Status = domain.ReservationStatusPending
	reservation.PaymentStatus = domain.PaymentStatusUnpaid
	if err := tx.QueryRow(ctx, `INSERT INTO reservations (flight_id, cabin, passenger_count, total_cents, currency, status, payment_status)
		VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at, updated_at`,
		reservation.FlightID, reservation.Cabin, reservation.PassengerCount, reservation.TotalCents, reservation.Currency,
		reservation.Status, reservation.PaymentStatus).
		Scan(&reservation.ID, &reservation.CreatedAt, &reservation.UpdatedAt); err != nil {
		return err
	}

	if err := insertPassengers(ctx, tx, reservation.ID, order.Passengers); err != nil {
		return err
	}

	passengers, err := json.Marshal(order.Passengers)
	if err != nil {
		return err
	}
	contact, err := json.Marshal(order.Contact)
	if err != nil {
		return err
	}
	history, err := json.Marshal(order.History)
	if err != nil {
		return err
	}

	order.ReservationID = reservation.ID
	order.Status = domain.OrderStatusPending
	if err := tx.QueryRow(ctx, `INSERT INTO orders
		(id, offer_id, reservation_id, passengers, contact, payment_method, total_cents, currency, status, channel, distributor_id, ticket_numbers, service_docs, history)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		RETURNING created_at, updated_at`,
		order.ID, order.OfferID, order.ReservationID, passengers, contact, order.PaymentMethod, order.TotalCents,
		order.Currency, order.Status, order.Channel, order.DistributorID, order.TicketNumbers, order.ServiceDocs, history).
		Scan(&order.CreatedAt, &order.UpdatedAt); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func insertPassengers(ctx context.Context, q dbtx, reservationID int64, passengers []domain.Passenger) error {
	for _, p := range passengers {
		if _, err := q.Exec(ctx, `INSERT INTO passengers (reservation_id, type, first_name, last_name, date_of_birth, gender, document_type, document_number, frequent_flyer)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
			reservationID, p.Type, p.FirstName, p.LastName, p.DateOfBirth, p.Gender, p.DocumentType, p.DocumentNumber, p.FrequentFlyer); err != nil {
			return err
		}
	}
	return nil
}

func (r *PGOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("order", id)
		}
		return nil, err
	}
	return order, nil
}

const reservationColumns = `id, flight_id, cabin, passenger_count, total_cents, currency, status, payment_status, created_at, updated_at`

func scanReservation(row pgx.Row) (*domain.Reservation, error) {
	var res domain.Reservation
	err := row.Scan(&res.ID, &res.FlightID, &res.Cabin, &res.PassengerCount, &res.TotalCents, &res.Currency,
		&res.Status, &res.PaymentStatus, &res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (r *PGOrderRepository) GetReservation(ctx context.Context, id int64) (*domain.Reservation, error) {
	res, err := scanReservation(r.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("reservation", fmt.Sprint(id))
		}
		return nil, err
	}
	return res, nil
}

// lockOrder loads the order row FOR UPDATE inside tx.
func lockOrder(ctx context.Context, tx pgx.Tx, id string) (*domain.Order, error) {
	order, err := scanOrder(tx.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("order", id)
		}
		return nil, err
	}
	return order, nil
}

func lockReservation(ctx context.Context, tx pgx.Tx, id int64) (*domain.Reservation, error) {
	res, err := scanReservation(tx.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("reservation", fmt.Sprint(id))
		}
		return nil, err
	}
	return res, nil
}

// Confirm performs the deferred inventory debit: reservation seats are
// conditionally debited and the order moves PENDING -> CONFIRMED. Called by
// the external payment-confirmation step.
func (r *PGOrderRepository) Confirm(ctx context.Context, orderID string, entry domain.HistoryEntry) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPending {
		return nil, domain.NewConflict("order %s is %s, only pending orders can be confirmed", orderID, order.Status)
	}

	reservation, err := lockReservation(ctx, tx, order.ReservationID)
	if err != nil {
		return nil, err
	}

	if err := debitSeats(ctx, tx, reservation.FlightID, reservation.Cabin, reservation.PassengerCount); err != nil {
		return nil, err
	}

	if _, err := tx.Exec(ctx, `UPDATE reservations SET status=$2, payment_status=$3, updated_at=now() WHERE id=$1`,
		reservation.ID, domain.ReservationStatusConfirmed, domain.PaymentStatusPaid); err != nil {
		return nil, err
	}

	hist, err := historyPayload(entry)
	if err != nil {
		return nil, err
	}
	order, err = scanOrder(tx.QueryRow(ctx, `UPDATE orders SET status=$2, history = history || $3::jsonb, updated_at=now() WHERE id=$1 RETURNING `+orderColumns,
		orderID, domain.OrderStatusConfirmed, hist))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

// Cancel moves the order to CANCELLED, cancels the reservation, credits back
// any seats that were actually debited (paid reservations only) and retires
// the consumed offer. Already-terminal orders fail with ConflictError, so
// seats can never be restored twice.
func (r *PGOrderRepository) Cancel(ctx context.Context, orderID string, entry domain.HistoryEntry) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status.Terminal() {
		return nil, domain.NewConflict("order %s is already %s", orderID, order.Status)
	}

	reservation, err := lockReservation(ctx, tx, order.ReservationID)
	if err != nil {
		return nil, err
	}
	if reservation.Status != domain.ReservationStatusCancelled {
		if _, err := tx.Exec(ctx, `UPDATE reservations SET status=$2, updated_at=now() WHERE id=$1`,
			reservation.ID, domain.ReservationStatusCancelled); err != nil {
			return nil, err
		}
		if reservation.PaymentStatus == domain.PaymentStatusPaid {
			if err := creditSeats(ctx, tx, reservation.FlightID, reservation.Cabin, reservation.PassengerCount); err != nil {
				return nil, err
			}
		}
	}

	// The consumed offer is no longer representable as purchasable.
	if _, err := tx.Exec(ctx, `UPDATE offers SET status=$2, updated_at=now() WHERE id=$1 AND status=$3`,
		order.OfferID, domain.OfferStatusCancelled, domain.OfferStatusOrdered); err != nil {
		return nil, err
	}

	hist, err := historyPayload(entry)
	if err != nil {
		return nil, err
	}
	order, err = scanOrder(tx.QueryRow(ctx, `UPDATE orders SET status=$2, history = history || $3::jsonb, updated_at=now() WHERE id=$1 RETURNING `+orderColumns,
		orderID, domain.OrderStatusCancelled, hist))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

// ApplyChange applies all requested sub-changes in one transaction and moves
// the order to CHANGED. A cabin upgrade on a paid reservation swaps the seat
// debit between cabins; on an unpaid one it only verifies availability.
func (r *PGOrderRepository) ApplyChange(ctx context.Context, orderID string, change OrderChange) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Serviceable() {
		return nil, domain.NewConflict("order %s is %s and cannot be changed", orderID, order.Status)
	}

	reservation, err := lockReservation(ctx, tx, order.ReservationID)
	if err != nil {
		return nil, err
	}

	if change.NewFlightID != nil {
		if _, err := tx.Exec(ctx, `UPDATE reservations SET flight_id=$2, updated_at=now() WHERE id=$1`,
			reservation.ID, *change.NewFlightID); err != nil {
			return nil, err
		}
		reservation.FlightID = *change.NewFlightID
	}

	if change.NewCabin != nil {
		if reservation.PaymentStatus == domain.PaymentStatusPaid {
			if err := debitSeats(ctx, tx, reservation.FlightID, *change.NewCabin, reservation.PassengerCount); err != nil {
				return nil, err
			}
			if err := creditSeats(ctx, tx, reservation.FlightID, reservation.Cabin, reservation.PassengerCount); err != nil {
				return nil, err
			}
		} else {
			var available int
			if err := tx.QueryRow(ctx, `SELECT `+seatColumn(*change.NewCabin)+` FROM flights WHERE id=$1`, reservation.FlightID).Scan(&available); err != nil {
				return nil, err
			}
			if available < reservation.PassengerCount {
				return nil, &domain.InsufficientInventoryError{FlightID: reservation.FlightID, Cabin: *change.NewCabin, Requested: reservation.PassengerCount}
			}
		}
		if _, err := tx.Exec(ctx, `UPDATE reservations SET cabin=$2, total_cents = total_cents + $3, updated_at=now() WHERE id=$1`,
			reservation.ID, *change.NewCabin, change.PriceDeltaCents); err != nil {
			return nil, err
		}
	}

	if change.Passengers != nil {
		passengers, err := json.Marshal(change.Passengers)
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET passengers=$2 WHERE id=$1`, orderID, passengers); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `DELETE FROM passengers WHERE reservation_id=$1`, reservation.ID); err != nil {
			return nil, err
		}
		if err := insertPassengers(ctx, tx, reservation.ID, change.Passengers); err != nil {
			return nil, err
		}
	}

	if change.Contact != nil {
		contact, err := json.Marshal(*change.Contact)
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, `UPDATE orders SET contact=$2 WHERE id=$1`, orderID, contact); err != nil {
			return nil, err
		}
	}

	hist, err := historyPayload(change.Entry)
	if err != nil {
		return nil, err
	}
	order, err = scanOrder(tx.QueryRow(ctx, `UPDATE orders SET status=$2, total_cents = total_cents + $3, history = history || $4::jsonb, updated_at=now() WHERE id=$1 RETURNING `+orderColumns,
		orderID, domain.OrderStatusChanged, change.PriceDeltaCents, hist))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

// AddServices attaches resolved ancillary lines to the reservation and rolls
// their cost and document numbers into the order, all in one transaction.
func (r *PGOrderRepository) AddServices(ctx context.Context, orderID string, lines []AncillaryLine, entry domain.HistoryEntry) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	order, err := lockOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	if !order.Status.Serviceable() {
		return nil, domain.NewConflict("order %s is %s and cannot receive services", orderID, order.Status)
	}

	var totalDelta int64
	docs := make([]string, 0, len(lines))
	for _, line := range lines {
		if _, err := tx.Exec(ctx, `INSERT INTO reservation_ancillaries (reservation_id, code, name, quantity, unit_price_cents, total_cents, document_number, status)
			VALUES ($1,$2,$3,$4,$5,$6,$7,'ACTIVE')`,
			order.ReservationID, line.Code, line.Name, line.Quantity, line.UnitPriceCents, line.TotalCents, line.DocumentNumber); err != nil {
			return nil, err
		}
		totalDelta += line.TotalCents
		docs = append(docs, line.DocumentNumber)
	}

	if _, err := tx.Exec(ctx, `UPDATE reservations SET total_cents = total_cents + $2, updated_at=now() WHERE id=$1`,
		order.ReservationID, totalDelta); err != nil {
		return nil, err
	}

	hist, err := historyPayload(entry)
	if err != nil {
		return nil, err
	}
	order, err = scanOrder(tx.QueryRow(ctx, `UPDATE orders SET total_cents = total_cents + $2, service_docs = service_docs || $3, history = history || $4::jsonb, updated_at=now() WHERE id=$1 RETURNING `+orderColumns,
		orderID, totalDelta, docs, hist))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *PGOrderRepository) GetAncillaryService(ctx context.Context, code string) (*domain.AncillaryService, error) {
	row := r.db.QueryRow(ctx, `SELECT code, name, unit_price_cents, currency, active FROM ancillary_services WHERE code=$1 AND active`, code)
	var svc domain.AncillaryService
	if err := row.Scan(&svc.Code, &svc.Name, &svc.UnitPriceCents, &svc.Currency, &svc.Active); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("service", code)
		}
		return nil, err
	}
	return &svc, nil
}

func (r *PGOrderRepository) List(ctx context.Context, filter OrderFilter) ([]domain.Order, int64, error) {
	where := " WHERE 1=1"
	args := []any{}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.AirlineID != 0 {
		where += ` AND o.offer_id IN (SELECT id FROM offers WHERE airline_id = ` + arg(filter.AirlineID) + `)`
	}
	if filter.Status != "" {
		where += ` AND o.status = ` + arg(filter.Status)
	}
	if filter.Channel != "" {
		where += ` AND o.channel = ` + arg(filter.Channel)
	}
	if filter.DistributorID != "" {
		where += ` AND o.distributor_id = ` + arg(filter.DistributorID)
	}
	if filter.DateFrom != nil {
		where += ` AND o.created_at >= ` + arg(*filter.DateFrom)
	}
	if filter.DateTo != nil {
		where += ` AND o.created_at <= ` + arg(*filter.DateTo)
	}

	var total int64
	if err := r.db.QueryRow(ctx, `SELECT count(*) FROM orders o`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	query := `SELECT ` + orderColumnsQualified + ` FROM orders o` + where +
		` ORDER BY o.created_at DESC LIMIT ` + arg(limit) + ` OFFSET ` + arg((page-1)*limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, *o)
	}
	return orders, total, rows.Err()
}

const orderColumnsQualified = `o.id, o.offer_id, o.reservation_id, o.passengers, o.contact, o.payment_method, o.total_cents, o.currency, o.status, o.channel, o.distributor_id, o.ticket_numbers, o.service_docs, o.history, o.created_at, o.updated_at`

func (r *PGOrderRepository) CountByStatus(ctx context.Context) (map[domain.OrderStatus]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, count(*) FROM orders GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.OrderStatus]int64)
	for rows.Next() {
		var status domain.OrderStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

func (r *PGOrderRepository) CountByChannel(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT channel, count(*) FROM orders GROUP BY channel`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var channel string
		var n int64
		if err := rows.Scan(&channel, &n); err != nil {
			return nil, err
		}
		counts[channel] = n
	}
	return counts, rows.Err()
}

func (r *PGOrderRepository) RevenueByChannel(ctx context.Context) (map[string]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT channel, COALESCE(sum(total_cents), 0) FROM orders WHERE status NOT IN ($1, $2) GROUP BY channel`,
		domain.OrderStatusCancelled, domain.OrderStatusRefunded)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	revenue := make(map[string]int64)
	for rows.Next() {
		var channel string
		var cents int64
		if err := rows.Scan(&channel, &cents); err != nil {
			return nil, err
		}
		revenue[channel] = cents
	}
	return revenue, rows.Err()
}

var _ OrderRepository = (*PGOrderRepository)(nil)

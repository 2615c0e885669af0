package repository

import (
	"context"
	"strconv"
	"time"

	"github.com/Domenick1991/airretail/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository interface {
	SearchScheduled(ctx context.Context, originID, destinationID int64, day time.Time) ([]domain.Flight, error)
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	ActiveFareRules(ctx context.Context, airlineID int64, cabin domain.CabinClass) ([]domain.FareRule, error)
	Airlines(ctx context.Context) (map[int64]domain.Airline, error)
	Airports(ctx context.Context) (map[int64]domain.Airport, error)
}

type PGFlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db}
}

const flightColumns = `id, flight_number, airline_id, origin_id, destination_id, departure_time, arrival_time, aircraft_type, status, economy_seats, business_seats, economy_available, business_available, economy_base_cents, business_base_cents, created_at, updated_at`

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	err := row.Scan(&f.ID, &f.FlightNumber, &f.AirlineID, &f.OriginID, &f.DestinationID, &f.DepartureTime, &f.ArrivalTime, &f.AircraftType, &f.Status, &f.EconomySeats, &f.BusinessSeats, &f.EconomyAvailable, &f.BusinessAvailable, &f.EconomyBaseCents, &f.BusinessBaseCents, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// SearchScheduled returns SCHEDULED flights on the route departing within the
// given calendar day. Availability filtering is left to the caller, which
// knows the requested cabin.
func (r *PGFlightRepository) SearchScheduled(ctx context.Context, originID, destinationID int64, day time.Time) ([]domain.Flight, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE origin_id=$1 AND destination_id=$2 AND status=$3 AND departure_time >= $4 AND departure_time < $5
		ORDER BY departure_time`, originID, destinationID, domain.FlightStatusScheduled, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	return flights, rows.Err()
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	return scanFlight(r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id))
}

func (r *PGFlightRepository) ActiveFareRules(ctx context.Context, airlineID int64, cabin domain.CabinClass) ([]domain.FareRule, error) {
	rows, err := r.db.Query(ctx, `SELECT id, airline_id, cabin, name, price_multiplier, baggage_kg, has_meal, has_lounge, seat_selection, refundable, changeable, change_fee_cents, priority, active
		FROM fare_rules WHERE airline_id=$1 AND cabin=$2 AND active ORDER BY priority DESC`, airlineID, cabin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []domain.FareRule
	for rows.Next() {
		var fr domain.FareRule
		if err := rows.Scan(&fr.ID, &fr.AirlineID, &fr.Cabin, &fr.Name, &fr.PriceMultiplier, &fr.BaggageKg, &fr.HasMeal, &fr.HasLounge, &fr.SeatSelection, &fr.Refundable, &fr.Changeable, &fr.ChangeFeeCents, &fr.Priority, &fr.Active); err != nil {
			return nil, err
		}
		rules = append(rules, fr)
	}
	return rules, rows.Err()
}

func (r *PGFlightRepository) Airlines(ctx context.Context) (map[int64]domain.Airline, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name FROM airlines`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	airlines := make(map[int64]domain.Airline)
	for rows.Next() {
		var a domain.Airline
		if err := rows.Scan(&a.ID, &a.Code, &a.Name); err != nil {
			return nil, err
		}
		airlines[a.ID] = a
	}
	return airlines, rows.Err()
}

func (r *PGFlightRepository) Airports(ctx context.Context) (map[int64]domain.Airport, error) {
	rows, err := r.db.Query(ctx, `SELECT id, code, name, city FROM airports`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	airports := make(map[int64]domain.Airport)
	for rows.Next() {
		var a domain.Airport
		if err := rows.Scan(&a.ID, &a.Code, &a.Name, &a.City); err != nil {
			return nil, err
		}
		airports[a.ID] = a
	}
	return airports, rows.Err()
}

func seatColumn(cabin domain.CabinClass) string {
	if cabin == domain.CabinBusiness {
		return "business_available"
	}
	return "economy_available"
}

// debitSeats is a conditional decrement: it only succeeds while the cabin
// still has count free seats, so concurrent debits can never drive the
// counter negative.
func debitSeats(ctx context.Context, q dbtx, flightID int64, cabin domain.CabinClass, count int) error {
	col := seatColumn(cabin)
	res, err := q.Exec(ctx, `UPDATE flights SET `+col+` = `+col+` - $2, updated_at = now() WHERE id=$1 AND `+col+` >= $2`, flightID, count)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return &domain.InsufficientInventoryError{FlightID: flightID, Cabin: cabin, Requested: count}
	}
	return nil
}

func creditSeats(ctx context.Context, q dbtx, flightID int64, cabin domain.CabinClass, count int) error {
	col := seatColumn(cabin)
	res, err := q.Exec(ctx, `UPDATE flights SET `+col+` = `+col+` + $2, updated_at = now() WHERE id=$1`, flightID, count)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewNotFound("flight", strconv.FormatInt(flightID, 10))
	}
	return nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)

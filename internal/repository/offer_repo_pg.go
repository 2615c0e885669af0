package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/Domenick1991/airretail/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type OfferRepository interface {
	Create(ctx context.Context, offer *domain.Offer) error
	GetByID(ctx context.Context, id string) (*domain.Offer, error)
	// MarkExpired flips a single ACTIVE offer past its expiry to EXPIRED.
	// Used by the lazy read-path check; a no-op when the offer was already
	// transitioned.
	MarkExpired(ctx context.Context, id string) error
	// ExpireStale batch-transitions every ACTIVE offer past its expiry and
	// returns the number of rows moved.
	ExpireStale(ctx context.Context, now time.Time) (int64, error)
	CountByStatus(ctx context.Context) (map[domain.OfferStatus]int64, error)
}

type PGOfferRepository struct {
	db *pgxpool.Pool
}

func NewOfferRepository(db *pgxpool.Pool) OfferRepository {
	return &PGOfferRepository{db: db}
}

func (r *PGOfferRepository) Create(ctx context.Context, offer *domain.Offer) error {
	pricing, err := json.Marshal(offer.Pricing)
	if err != nil {
		return err
	}
	segments, err := json.Marshal(offer.Segments)
	if err != nil {
		return err
	}
	services, err := json.Marshal(offer.Services)
	if err != nil {
		return err
	}

	return r.db.QueryRow(ctx, `INSERT INTO offers
		(id, response_id, origin_id, destination_id, departure_date, return_date, airline_id, fare_rule_id, cabin, passengers, pricing, segments, services, status, channel, expires_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
		RETURNING created_at, updated_at`,
		offer.ID, offer.ResponseID, offer.OriginID, offer.DestinationID, offer.DepartureDate, offer.ReturnDate,
		offer.AirlineID, offer.FareRuleID, offer.Cabin, offer.Passengers, pricing, segments, services,
		offer.Status, offer.Channel, offer.ExpiresAt).
		Scan(&offer.CreatedAt, &offer.UpdatedAt)
}

func (r *PGOfferRepository) GetByID(ctx context.Context, id string) (*domain.Offer, error) {
	row := r.db.QueryRow(ctx, `SELECT o.id, o.response_id, o.origin_id, o.destination_id, o.departure_date, o.return_date,
			o.airline_id, o.fare_rule_id, o.cabin, o.passengers, o.pricing, o.segments, o.services, o.status, o.channel,
			o.expires_at, o.created_at, o.updated_at,
			al.name, orig.code, dest.code, COALESCE(fr.name, '')
		FROM offers o
		JOIN airlines al ON al.id = o.airline_id
		JOIN airports orig ON orig.id = o.origin_id
		JOIN airports dest ON dest.id = o.destination_id
		LEFT JOIN fare_rules fr ON fr.id = o.fare_rule_id
		WHERE o.id=$1`, id)

	var o domain.Offer
	var pricing, segments, services []byte
	err := row.Scan(&o.ID, &o.ResponseID, &o.OriginID, &o.DestinationID, &o.DepartureDate, &o.ReturnDate,
		&o.AirlineID, &o.FareRuleID, &o.Cabin, &o.Passengers, &pricing, &segments, &services, &o.Status, &o.Channel,
		&o.ExpiresAt, &o.CreatedAt, &o.UpdatedAt,
		&o.AirlineName, &o.OriginCode, &o.DestinationCode, &o.FareRuleName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFound("offer", id)
		}
		return nil, err
	}

	if err := json.Unmarshal(pricing, &o.Pricing); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(segments, &o.Segments); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(services, &o.Services); err != nil {
		return nil, err
	}
	return &o, nil
}

// transitionOfferStatus is a compare-and-set on the status column: the update
// applies only if the current status is one of from. Returns ConflictError
// when the offer was already moved by a concurrent transaction.
func transitionOfferStatus(ctx context.Context, q dbtx, id string, from []domain.OfferStatus, to domain.OfferStatus) error {
	res, err := q.Exec(ctx, `UPDATE offers SET status=$2, updated_at=now() WHERE id=$1 AND status = ANY($3)`, id, to, statusStrings(from))
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return domain.NewConflict("offer %s is not in a state that allows transition to %s", id, to)
	}
	return nil
}

func statusStrings(statuses []domain.OfferStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func (r *PGOfferRepository) MarkExpired(ctx context.Context, id string) error {
	_, err := r.db.Exec(ctx, `UPDATE offers SET status=$2, updated_at=now() WHERE id=$1 AND status=$3 AND expires_at <= now()`,
		id, domain.OfferStatusExpired, domain.OfferStatusActive)
	return err
}

func (r *PGOfferRepository) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.Exec(ctx, `UPDATE offers SET status=$1, updated_at=now() WHERE status=$2 AND expires_at <= $3`,
		domain.OfferStatusExpired, domain.OfferStatusActive, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected(), nil
}

func (r *PGOfferRepository) CountByStatus(ctx context.Context) (map[domain.OfferStatus]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT status, count(*) FROM offers GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.OfferStatus]int64)
	for rows.Next() {
		var status domain.OfferStatus
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

var _ OfferRepository = (*PGOfferRepository)(nil)

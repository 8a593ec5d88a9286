package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "github.com/lib/pq"

	"github.com/example/ride-dispatch/internal/models"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	// quick ping
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreWithDB wraps an already-open handle.
func NewPostgresStoreWithDB(db *sql.DB) *PostgresStore { return &PostgresStore{db: db} }

func (p *PostgresStore) DB() *sql.DB { return p.db }

func (p *PostgresStore) Create(ctx context.Context, r *models.Ride) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO rides(id, requester_id, driver_id, charge, pickup_name, dropoff_name, distance, status, payment_ref, settled_at, created_at, updated_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		r.ID, r.RequesterID, r.DriverID, r.Charge, r.PickupName, r.DropoffName, r.Distance, r.Status, r.PaymentRef, r.SettledAt, r.CreatedAt, r.UpdatedAt)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*models.Ride, error) {
	row := p.db.QueryRowContext(ctx, selectRide+` WHERE id=$1`, id)
	return scanRide(row)
}

func (p *PostgresStore) Transition(ctx context.Context, id string, from, to models.RideStatus) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE rides SET status=$1, updated_at=$2 WHERE id=$3 AND status=$4`,
		to, time.Now(), id, from)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *PostgresStore) SetRating(ctx context.Context, id string, rating float64) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE rides SET rating=$1, updated_at=$2 WHERE id=$3 AND status=$4 AND rating IS NULL`,
		rating, time.Now(), id, models.StatusCompleted)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *PostgresStore) ClaimSettlement(ctx context.Context, id string) (bool, error) {
	res, err := p.db.ExecContext(ctx,
		`UPDATE rides SET settled_at=$1, updated_at=$1 WHERE id=$2 AND status=$3 AND settled_at IS NULL`,
		time.Now(), id, models.StatusCompleted)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (p *PostgresStore) ReleaseSettlement(ctx context.Context, id string) error {
	_, err := p.db.ExecContext(ctx, `UPDATE rides SET settled_at=NULL WHERE id=$1`, id)
	return err
}

func (p *PostgresStore) ActiveByDriver(ctx context.Context, driverID string) (*models.Ride, error) {
	row := p.db.QueryRowContext(ctx, selectRide+` WHERE driver_id=$1 AND status=$2`, driverID, models.StatusProcessing)
	return scanRide(row)
}

func (p *PostgresStore) ActiveByRequester(ctx context.Context, requesterID string) (*models.Ride, error) {
	row := p.db.QueryRowContext(ctx, selectRide+` WHERE requester_id=$1 AND status=$2`, requesterID, models.StatusProcessing)
	return scanRide(row)
}

func (p *PostgresStore) HistoryByDriver(ctx context.Context, driverID string) ([]models.Ride, error) {
	return p.queryRides(ctx, selectRide+` WHERE driver_id=$1 AND status<>$2 ORDER BY updated_at DESC`, driverID, models.StatusProcessing)
}

func (p *PostgresStore) HistoryByRequester(ctx context.Context, requesterID string) ([]models.Ride, error) {
	return p.queryRides(ctx, selectRide+` WHERE requester_id=$1 AND status<>$2 ORDER BY updated_at DESC`, requesterID, models.StatusProcessing)
}

const selectRide = `SELECT id, requester_id, driver_id, charge, pickup_name, dropoff_name, distance, status, rating, payment_ref, settled_at, created_at, updated_at FROM rides`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRide(row rowScanner) (*models.Ride, error) {
	var r models.Ride
	var rating sql.NullFloat64
	var settledAt sql.NullTime
	err := row.Scan(&r.ID, &r.RequesterID, &r.DriverID, &r.Charge, &r.PickupName, &r.DropoffName,
		&r.Distance, &r.Status, &rating, &r.PaymentRef, &settledAt, &r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if rating.Valid {
		r.Rating = &rating.Float64
	}
	if settledAt.Valid {
		r.SettledAt = &settledAt.Time
	}
	return &r, nil
}

func (p *PostgresStore) queryRides(ctx context.Context, q string, args ...any) ([]models.Ride, error) {
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.Ride, 0)
	for rows.Next() {
		r, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

package accounts

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"github.com/example/ride-dispatch/internal/models"
)

// Postgres mutates counters with single-statement read-modify-writes, so
// concurrent settlements for the same party serialize on the row lock.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) FindDriversByIDs(ctx context.Context, ids []string) ([]models.DriverProfile, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT id, name, vehicle, rating FROM driver_accounts WHERE id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]models.DriverProfile, 0, len(ids))
	for rows.Next() {
		var d models.DriverProfile
		if err := rows.Scan(&d.ID, &d.Name, &d.Vehicle, &d.Rating); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (p *Postgres) AdjustDriverCounters(ctx context.Context, driverID string, earningsDelta, rideDelta int64) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE driver_accounts SET earnings = earnings + $1, rides = rides + $2 WHERE id = $3`,
		earningsDelta, rideDelta, driverID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) AdjustRequesterCounters(ctx context.Context, requesterID string, spendDelta, rideDelta int64) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE requester_accounts SET spend = spend + $1, rides = rides + $2 WHERE id = $3`,
		spendDelta, rideDelta, requesterID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) DriverRating(ctx context.Context, driverID string) (float64, int64, error) {
	var avg float64
	var rated int64
	err := p.db.QueryRowContext(ctx,
		`SELECT rating, rated_rides FROM driver_accounts WHERE id = $1`, driverID).Scan(&avg, &rated)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrUnknownParty
	}
	return avg, rated, err
}

// ApplyDriverRating folds the rating in one statement so concurrent
// submissions serialize on the row lock instead of losing updates.
func (p *Postgres) ApplyDriverRating(ctx context.Context, driverID string, rating float64) (float64, error) {
	var avg float64
	err := p.db.QueryRowContext(ctx,
		`UPDATE driver_accounts
		 SET rating = (rating*rated_rides + $1) / (rated_rides + 1), rated_rides = rated_rides + 1
		 WHERE id = $2
		 RETURNING rating`,
		rating, driverID).Scan(&avg)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrUnknownParty
	}
	return avg, err
}

func (p *Postgres) SetDriverRating(ctx context.Context, driverID string, avg float64, ratedRides int64) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE driver_accounts SET rating = $1, rated_rides = $2 WHERE id = $3`,
		avg, ratedRides, driverID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

func (p *Postgres) DriverCounters(ctx context.Context, driverID string) (models.DriverCounters, error) {
	var d models.DriverCounters
	err := p.db.QueryRowContext(ctx,
		`SELECT id, earnings, rides, rating, rated_rides FROM driver_accounts WHERE id = $1`, driverID).
		Scan(&d.DriverID, &d.Earnings, &d.Rides, &d.Rating, &d.RatedRides)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DriverCounters{}, ErrUnknownParty
	}
	return d, err
}

func (p *Postgres) RequesterCounters(ctx context.Context, requesterID string) (models.RequesterCounters, error) {
	var r models.RequesterCounters
	err := p.db.QueryRowContext(ctx,
		`SELECT id, spend, rides FROM requester_accounts WHERE id = $1`, requesterID).
		Scan(&r.RequesterID, &r.Spend, &r.Rides)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RequesterCounters{}, ErrUnknownParty
	}
	return r, err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUnknownParty
	}
	return nil
}

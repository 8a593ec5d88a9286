package fares

import (
	"context"
	"database/sql"
	"errors"

	_ "github.com/lib/pq"
)

// Postgres reads rates from the fares table. Rates are static data owned
// by an external process; this side only looks them up.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres { return &Postgres{db: db} }

func (p *Postgres) LookupRate(ctx context.Context, pickupID, dropoffID int) (int64, bool, error) {
	var rate int64
	err := p.db.QueryRowContext(ctx,
		`SELECT rate FROM fares WHERE pickup_id=$1 AND dropoff_id=$2`,
		pickupID, dropoffID).Scan(&rate)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return rate, true, nil
}

package bookings

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"salesbot_backend/platform/apperr"
)

const recordColumns = `id, business_id, type, customer_id, customer_name, description, staff,
	scheduled_at, duration_minutes, total, status, created_at`

// Ledger is the persistence contract of the booking ledger. There is no
// update or delete: entries are only ever appended.
type Ledger interface {
	Append(ctx context.Context, rec Record) (Record, error)
	ReservationsBetween(ctx context.Context, businessID string, from, to time.Time) ([]Record, error)
	ListSince(ctx context.Context, businessID string, since time.Time) ([]Record, error)
	LatestSale(ctx context.Context, businessID string) (Record, error)
	Recent(ctx context.Context, businessID string, limit int) ([]Record, error)
}

// Repo implements Ledger on Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepository creates a ledger repository.
func NewRepository(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Ledger.
var _ Ledger = (*Repo)(nil)

// Append inserts a record, assigning an id when missing. created_at comes
// from the database.
func (r *Repo) Append(ctx context.Context, rec Record) (Record, error) {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	query := `
		INSERT INTO bookings (id, business_id, type, customer_id, customer_name, description, staff,
			scheduled_at, duration_minutes, total, status)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, 0), NULLIF($10, 0), $11)
		RETURNING created_at`

	if err := r.pool.QueryRow(ctx, query,
		rec.ID, rec.BusinessID, string(rec.Type), rec.CustomerID, rec.CustomerName, rec.Description, rec.Staff,
		rec.ScheduledAt, rec.DurationMinutes, rec.Total, string(rec.Status),
	).Scan(&rec.CreatedAt); err != nil {
		return Record{}, fmt.Errorf("append booking: %w", err)
	}
	return rec, nil
}

// ReservationsBetween returns non-cancelled reservations whose start falls in
// [from, to).
func (r *Repo) ReservationsBetween(ctx context.Context, businessID string, from, to time.Time) ([]Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM bookings
		WHERE business_id = $1 AND type = 'reservation' AND status <> 'cancelled'
			AND scheduled_at >= $2 AND scheduled_at < $3
		ORDER BY scheduled_at`
	return r.list(ctx, "list reservations", query, businessID, from, to)
}

// ListSince returns every record created at or after since, oldest first.
func (r *Repo) ListSince(ctx context.Context, businessID string, since time.Time) ([]Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM bookings
		WHERE business_id = $1 AND created_at >= $2
		ORDER BY created_at`
	return r.list(ctx, "list bookings since", query, businessID, since)
}

// Recent returns the newest records first.
func (r *Repo) Recent(ctx context.Context, businessID string, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + recordColumns + `
		FROM bookings
		WHERE business_id = $1
		ORDER BY created_at DESC
		LIMIT $2`
	return r.list(ctx, "list recent bookings", query, businessID, limit)
}

// LatestSale returns the most recent sale.
func (r *Repo) LatestSale(ctx context.Context, businessID string) (Record, error) {
	query := `SELECT ` + recordColumns + `
		FROM bookings
		WHERE business_id = $1 AND type = 'sale'
		ORDER BY created_at DESC
		LIMIT 1`
	rec, err := scanRecord(r.pool.QueryRow(ctx, query, businessID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, apperr.NotFound("no sales recorded")
		}
		return Record{}, fmt.Errorf("latest sale: %w", err)
	}
	return rec, nil
}

func (r *Repo) list(ctx context.Context, op, query string, args ...any) ([]Record, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("%s: scan: %w", op, err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (Record, error) {
	var rec Record
	var recType, status string
	var staff *string
	var duration *int
	var total *int64
	if err := row.Scan(
		&rec.ID, &rec.BusinessID, &recType, &rec.CustomerID, &rec.CustomerName, &rec.Description, &staff,
		&rec.ScheduledAt, &duration, &total, &status, &rec.CreatedAt,
	); err != nil {
		return Record{}, err
	}
	rec.Type = Type(recType)
	rec.Status = Status(status)
	if staff != nil {
		rec.Staff = *staff
	}
	if duration != nil {
		rec.DurationMinutes = *duration
	}
	if total != nil {
		rec.Total = *total
	}
	return rec, nil
}

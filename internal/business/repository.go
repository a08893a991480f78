package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"salesbot_backend/platform/apperr"
	"salesbot_backend/platform/phone"
)

const businessNotFoundMessage = "business not found"

// Source provides configuration snapshots by channel id.
type Source interface {
	Get(ctx context.Context, channelID string) (Business, error)
}

// Repo stores snapshots as JSONB in the businesses table.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepository creates a business repository.
func NewRepository(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Source.
var _ Source = (*Repo)(nil)

// Get loads the snapshot for channelID.
func (r *Repo) Get(ctx context.Context, channelID string) (Business, error) {
	id := phone.CanonicalID(channelID)
	var raw []byte
	err := r.pool.QueryRow(ctx, `SELECT config FROM businesses WHERE channel_id = $1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Business{}, apperr.NotFound(businessNotFoundMessage)
		}
		return Business{}, fmt.Errorf("get business: %w", err)
	}

	var b Business
	if err := json.Unmarshal(raw, &b); err != nil {
		return Business{}, fmt.Errorf("decode business %s: %w", id, err)
	}
	b.ChannelID = id
	return b, nil
}

// Upsert replaces the snapshot stored for b.ChannelID.
func (r *Repo) Upsert(ctx context.Context, b Business) error {
	b.ChannelID = phone.CanonicalID(b.ChannelID)
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("encode business: %w", err)
	}
	query := `
		INSERT INTO businesses (channel_id, config)
		VALUES ($1, $2::jsonb)
		ON CONFLICT (channel_id) DO UPDATE SET config = EXCLUDED.config, updated_at = now()`
	if _, err := r.pool.Exec(ctx, query, b.ChannelID, raw); err != nil {
		return fmt.Errorf("upsert business: %w", err)
	}
	return nil
}

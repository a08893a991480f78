package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"salesbot_backend/platform/apperr"
	"salesbot_backend/platform/textnorm"
)

const (
	conversationNotFoundMessage = "conversation not found"
	checkViolationCode          = "23514"
	searchScanLimit             = 50
)

const conversationColumns = `business_id, customer_id, profile_name, customer_name, phase, messages,
	human_override, human_override_manual, sale_locked, campaign_pending, reservation,
	last_message, unread, created_at, updated_at`

// Repository loads and merge-writes conversations. There is no optimistic
// concurrency: two concurrent Saves for the same key both apply, and for
// scalar fields the last one wins.
type Repository interface {
	Get(ctx context.Context, key Key) (Conversation, error)
	Save(ctx context.Context, key Key, patch Patch) error
	List(ctx context.Context, businessID string, limit int) ([]Conversation, error)
	Search(ctx context.Context, businessID, term string, limit int) ([]Conversation, error)
}

// Repo implements Repository on Postgres.
type Repo struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewRepository creates a conversation repository.
func NewRepository(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool, now: time.Now}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// Get loads one conversation.
func (r *Repo) Get(ctx context.Context, key Key) (Conversation, error) {
	query := `SELECT ` + conversationColumns + `
		FROM conversations
		WHERE business_id = $1 AND customer_id = $2`

	c, err := scanConversation(r.pool.QueryRow(ctx, query, key.BusinessID, key.CustomerID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, apperr.NotFound(conversationNotFoundMessage)
		}
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

// Save upserts the conversation, appending patch.Append to the stored log.
func (r *Repo) Save(ctx context.Context, key Key, patch Patch) error {
	if err := patch.Validate(); err != nil {
		return err
	}

	appendJSON, err := json.Marshal(append([]Message{}, patch.Append...))
	if err != nil {
		return fmt.Errorf("encode messages: %w", err)
	}
	campaignJSON, err := marshalOptional(patch.CampaignPending)
	if err != nil {
		return fmt.Errorf("encode campaign: %w", err)
	}
	reservationJSON, err := marshalOptional(patch.Reservation)
	if err != nil {
		return fmt.Errorf("encode reservation: %w", err)
	}
	var phase *string
	if patch.Phase != nil {
		phase = Ptr(string(*patch.Phase))
	}

	query := `
		INSERT INTO conversations (business_id, customer_id, profile_name, customer_name, phase, messages,
			human_override, human_override_manual, sale_locked, campaign_pending, reservation,
			last_message, unread, created_at, updated_at)
		VALUES ($1, $2, COALESCE($3, ''), COALESCE($4, ''), COALESCE($5, 'NEW'), $6::jsonb,
			COALESCE($7, false), COALESCE($8, false), COALESCE($9, false), $10::jsonb, $11::jsonb,
			COALESCE($12, ''), COALESCE($13, false), $14, $14)
		ON CONFLICT (business_id, customer_id) DO UPDATE SET
			profile_name = COALESCE($3, conversations.profile_name),
			customer_name = COALESCE($4, conversations.customer_name),
			phase = COALESCE($5, conversations.phase),
			messages = conversations.messages || $6::jsonb,
			human_override = COALESCE($7, conversations.human_override),
			human_override_manual = COALESCE($8, conversations.human_override_manual),
			sale_locked = COALESCE($9, conversations.sale_locked),
			campaign_pending = CASE WHEN $15 THEN $10::jsonb
				ELSE COALESCE($10::jsonb, conversations.campaign_pending) END,
			reservation = CASE WHEN $16 THEN $11::jsonb
				ELSE COALESCE($11::jsonb, conversations.reservation) END,
			last_message = COALESCE($12, conversations.last_message),
			unread = COALESCE($13, conversations.unread),
			updated_at = $14`

	_, err = r.pool.Exec(ctx, query,
		key.BusinessID, key.CustomerID, patch.ProfileName, patch.CustomerName, phase, appendJSON,
		patch.HumanOverride, patch.HumanOverrideManual, patch.SaleLocked, campaignJSON, reservationJSON,
		patch.LastMessage, patch.Unread, r.now(), patch.ClearCampaignPending, patch.ClearReservation,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == checkViolationCode {
			return apperr.Wrap(apperr.KindInternal, "conversation write violates sale-lock invariant", err)
		}
		return fmt.Errorf("save conversation: %w", err)
	}
	return nil
}

// List returns the most recently updated conversations first.
func (r *Repo) List(ctx context.Context, businessID string, limit int) ([]Conversation, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + conversationColumns + `
		FROM conversations
		WHERE business_id = $1
		ORDER BY updated_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, businessID, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	defer rows.Close()

	var out []Conversation
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, fmt.Errorf("list conversations: scan: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	return out, nil
}

// Search scans the latest conversations and keeps those whose names, id or
// last message contain term, ignoring case and diacritics.
func (r *Repo) Search(ctx context.Context, businessID, term string, limit int) ([]Conversation, error) {
	recent, err := r.List(ctx, businessID, searchScanLimit)
	if err != nil {
		return nil, err
	}
	return Filter(recent, term, limit), nil
}

// Filter keeps conversations matching term, at most limit of them.
func Filter(convs []Conversation, term string, limit int) []Conversation {
	needle := textnorm.Normalize(term)
	if needle == "" {
		return nil
	}
	var out []Conversation
	for _, c := range convs {
		haystack := textnorm.Normalize(strings.Join([]string{c.ProfileName, c.CustomerName, c.CustomerID, c.LastMessage}, " "))
		if strings.Contains(haystack, needle) {
			out = append(out, c)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out
}

func marshalOptional[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}

func scanConversation(row pgx.Row) (Conversation, error) {
	var c Conversation
	var phase string
	var messages, campaign, reservation []byte
	if err := row.Scan(
		&c.BusinessID, &c.CustomerID, &c.ProfileName, &c.CustomerName, &phase, &messages,
		&c.HumanOverride, &c.HumanOverrideManual, &c.SaleLocked, &campaign, &reservation,
		&c.LastMessage, &c.Unread, &c.CreatedAt, &c.UpdatedAt,
	); err != nil {
		return Conversation{}, err
	}
	c.Phase = Phase(phase)

	if len(messages) > 0 {
		if err := json.Unmarshal(messages, &c.Messages); err != nil {
			return Conversation{}, fmt.Errorf("decode messages: %w", err)
		}
	}
	if len(campaign) > 0 {
		c.CampaignPending = &CampaignPending{}
		if err := json.Unmarshal(campaign, c.CampaignPending); err != nil {
			return Conversation{}, fmt.Errorf("decode campaign: %w", err)
		}
	}
	if len(reservation) > 0 {
		c.Reservation = &Reservation{}
		if err := json.Unmarshal(reservation, c.Reservation); err != nil {
			return Conversation{}, fmt.Errorf("decode reservation: %w", err)
		}
	}
	return c, nil
}

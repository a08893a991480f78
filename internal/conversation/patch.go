package conversation

import (
	"time"

	"salesbot_backend/platform/apperr"
)

// Patch is a merge-write: nil fields are left untouched and Append is
// concatenated to the log. Existing messages are never rewritten.
type Patch struct {
	Append               []Message
	ProfileName          *string
	CustomerName         *string
	Phase                *Phase
	HumanOverride        *bool
	HumanOverrideManual  *bool
	SaleLocked           *bool
	CampaignPending      *CampaignPending
	ClearCampaignPending bool
	Reservation          *Reservation
	ClearReservation     bool
	LastMessage          *string
	Unread               *bool
}

// Ptr returns a pointer to v, for building patches.
func Ptr[T any](v T) *T {
	return &v
}

// Validate rejects patches that would break the sale-lock invariant on their
// own: locking a sale must also set the override in the same write.
func (p Patch) Validate() error {
	if p.SaleLocked != nil && *p.SaleLocked {
		if p.HumanOverride == nil || !*p.HumanOverride {
			return apperr.Internal("sale lock requires human override")
		}
	}
	return nil
}

// Apply merges p into c and checks the resulting record. now becomes the
// record's UpdatedAt.
func Apply(c Conversation, p Patch, now time.Time) (Conversation, error) {
	if err := p.Validate(); err != nil {
		return Conversation{}, err
	}

	out := c
	out.Messages = make([]Message, 0, len(c.Messages)+len(p.Append))
	out.Messages = append(out.Messages, c.Messages...)
	out.Messages = append(out.Messages, p.Append...)

	setString(&out.ProfileName, p.ProfileName)
	setString(&out.CustomerName, p.CustomerName)
	setString(&out.LastMessage, p.LastMessage)
	if p.Phase != nil {
		out.Phase = *p.Phase
	}
	setBool(&out.HumanOverride, p.HumanOverride)
	setBool(&out.HumanOverrideManual, p.HumanOverrideManual)
	setBool(&out.SaleLocked, p.SaleLocked)
	setBool(&out.Unread, p.Unread)

	if p.ClearCampaignPending {
		out.CampaignPending = nil
	}
	if p.CampaignPending != nil {
		cp := *p.CampaignPending
		out.CampaignPending = &cp
	}
	if p.ClearReservation {
		out.Reservation = nil
	}
	if p.Reservation != nil {
		r := *p.Reservation
		out.Reservation = &r
	}

	if out.SaleLocked && !out.HumanOverride {
		return Conversation{}, apperr.Internal("sale-locked conversation must stay in human override")
	}

	if out.CreatedAt.IsZero() {
		out.CreatedAt = now
	}
	out.UpdatedAt = now
	return out, nil
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

func setBool(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

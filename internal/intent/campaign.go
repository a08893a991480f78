package intent

import (
	"strings"

	"salesbot_backend/platform/textnorm"
)

// CampaignStatus is the validity label of a campaign.
type CampaignStatus string

const (
	CampaignActive  CampaignStatus = "active"
	CampaignExpired CampaignStatus = "expired"
)

// Campaign is a keyword-triggered offer.
type Campaign struct {
	Keyword  string         `json:"keyword" yaml:"keyword"`
	Offer    string         `json:"offer" yaml:"offer"`
	Status   CampaignStatus `json:"status" yaml:"status"`
	Validity string         `json:"validity,omitempty" yaml:"validity,omitempty"`
}

// Active reports whether the campaign can still be honoured. An empty status
// counts as active.
func (c Campaign) Active() bool {
	return c.Status != CampaignExpired
}

// CampaignMatch is a keyword hit. Expired marks a hit on an expired campaign.
type CampaignMatch struct {
	Campaign Campaign
	Expired  bool
}

// MatchCampaign looks for a campaign keyword in text. Active campaigns are
// checked before expired ones.
func MatchCampaign(text string, campaigns []Campaign) *CampaignMatch {
	norm := textnorm.Normalize(text)
	if norm == "" {
		return nil
	}
	for _, wantActive := range []bool{true, false} {
		for _, c := range campaigns {
			if c.Active() != wantActive {
				continue
			}
			key := textnorm.Normalize(strings.TrimSpace(c.Keyword))
			if key != "" && textnorm.ContainsBounded(norm, key) {
				return &CampaignMatch{Campaign: c, Expired: !wantActive}
			}
		}
	}
	return nil
}

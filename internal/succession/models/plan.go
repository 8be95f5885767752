package models

import (
	"fmt"
	"time"

	"legado/pkg/domain"
)

// HeirShare is one heir's percentage stake in a plan.
type HeirShare struct {
	HeirCivilID  domain.CivilID
	SharePercent int
}

// Plan is the succession arrangement for one asset: an ordered list of heirs
// whose shares sum to exactly 100. A plan is consumed once by adjudication
// and is immutable afterwards.
type Plan struct {
	AssetID    domain.AssetID
	Heirs      []HeirShare
	Executed   bool
	CreatedAt  time.Time
	ExecutedAt *time.Time
}

// Share returns the percentage recorded for the heir, or false when the heir
// is not part of the plan.
func (p Plan) Share(heirCivilID domain.CivilID) (int, bool) {
	for _, heir := range p.Heirs {
		if heir.HeirCivilID == heirCivilID {
			return heir.SharePercent, true
		}
	}
	return 0, false
}

// HeirIDs returns the heirs in plan order.
func (p Plan) HeirIDs() []domain.CivilID {
	out := make([]domain.CivilID, len(p.Heirs))
	for i, heir := range p.Heirs {
		out[i] = heir.HeirCivilID
	}
	return out
}

// EntityKey returns the audit entity key for this plan.
func (p Plan) EntityKey() string {
	return fmt.Sprintf("plan/%d", p.AssetID)
}

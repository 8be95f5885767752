package models

import (
	"fmt"
	"time"

	"legado/pkg/domain"
)

// Title is one registered property record. Exactly one civil id owns it at a
// time; OwnerWallet is the owner's display wallet copied at registration or
// transfer time, never an authorization credential.
type Title struct {
	AssetID      domain.AssetID
	OwnerCivilID domain.CivilID
	Description  string
	OwnerWallet  domain.Wallet
	// UnderSuccession is true exactly while an unexecuted succession plan
	// exists for this asset. While set, voluntary transfers are refused.
	UnderSuccession bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EntityKey returns the audit entity key for this title.
func (t Title) EntityKey() string {
	return fmt.Sprintf("asset/%d", t.AssetID)
}

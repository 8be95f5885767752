package models

import (
	"time"

	"legado/pkg/domain"
)

// Identity is one civil person record. The numeric ID is assigned at
// essential registration and never changes; the CivilID is the natural key
// every other module uses for references.
type Identity struct {
	ID         domain.IdentityID
	CivilID    domain.CivilID
	GivenNames string
	Surnames   string
	Profile    Profile
	// Wallet is the display account reference, denormalized onto titles at
	// registration and transfer time. It is never consulted for access
	// control; that uses the verified caller credential instead.
	Wallet    domain.Wallet
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Profile holds the extended fields supplied by full registration. All of
// them are optional; essential registration leaves the whole struct zero.
type Profile struct {
	Gender        domain.Gender
	BirthDate     *time.Time
	BirthPlace    string
	MaritalStatus domain.MaritalStatus
	Address       string
	Phone         string
	Profession    string
}

// Complete reports whether full registration has populated the profile.
func (p Profile) Complete() bool {
	return p != (Profile{})
}

// EntityKey returns the audit entity key for this identity.
func (i Identity) EntityKey() string {
	return "identity/" + i.CivilID.String()
}

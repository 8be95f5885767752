package models

import (
	"time"

	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
)

// State is the escrow agreement lifecycle position. Transitions are
// monotonic: an agreement never re-enters Active, and Claimed/Withdrawn are
// terminal.
type State string

const (
	StateActive         State = "active"
	StateProofActivated State = "proof_activated"
	StateClaimed        State = "claimed"
	StateWithdrawn      State = "withdrawn"
)

var validStates = map[State]bool{
	StateActive:         true,
	StateProofActivated: true,
	StateClaimed:        true,
	StateWithdrawn:      true,
}

// ParseState constructs a State from stored or external input.
func ParseState(s string) (State, error) {
	st := State(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid escrow state")
	}
	return st, nil
}

// IsValid checks if the state is one of the supported enum values.
func (s State) IsValid() bool {
	return validStates[s]
}

// Terminal reports whether the balance has been paid out.
func (s State) Terminal() bool {
	return s == StateClaimed || s == StateWithdrawn
}

func (s State) String() string { return string(s) }

// Agreement is one funded, time-locked arrangement. TestatorWallet and
// HeirWallet are the authorized credentials fixed at creation: Withdraw
// compares against the former, Claim against the latter. They are
// deliberately separate from the drifting display wallets on identities.
type Agreement struct {
	ID              domain.AgreementID
	TestatorCivilID domain.CivilID
	TestatorWallet  domain.Wallet
	HeirCivilID     domain.CivilID
	HeirWallet      domain.Wallet
	// Balance is the escrowed amount in minor units. It only ever moves to
	// exactly zero, once, on the terminal transition.
	Balance               int64
	ProofOfDeathActivated bool
	ActivatedAt           *time.Time
	WaitingPeriod         time.Duration
	State                 State
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Claimable reports whether the waiting period has elapsed at the given
// instant. Only meaningful once proof of death is activated.
func (a Agreement) Claimable(now time.Time) bool {
	if !a.ProofOfDeathActivated || a.ActivatedAt == nil {
		return false
	}
	return !now.Before(a.ActivatedAt.Add(a.WaitingPeriod))
}

// EntityKey returns the audit entity key for this agreement.
func (a Agreement) EntityKey() string {
	return "escrow/" + a.ID.String()
}

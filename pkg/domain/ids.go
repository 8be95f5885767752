// Package domain holds the typed identifiers and enumerations shared across
// the registry modules. Values are constructed through Parse functions at
// trust boundaries; direct casting bypasses validation.
package domain

import (
	"strings"

	"github.com/google/uuid"

	dErrors "legado/pkg/domain-errors"
)

// CivilID is the natural-person identifier (national id string) used as the
// primary lookup key for identities. It is independent of the sequential
// numeric IdentityID assigned at registration.
//
// Invariant: non-empty, no surrounding whitespace, at most 32 characters.
type CivilID string

const maxCivilIDLen = 32

// ParseCivilID constructs a CivilID from external input.
//
// Errors: returns CodeInvalidInput when the value is empty, padded, or too
// long; no other errors are expected.
func ParseCivilID(s string) (CivilID, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "civil id cannot be empty")
	}
	if strings.TrimSpace(s) != s {
		return "", dErrors.New(dErrors.CodeInvalidInput, "civil id cannot contain surrounding whitespace")
	}
	if len(s) > maxCivilIDLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "civil id too long")
	}
	return CivilID(s), nil
}

func (c CivilID) String() string { return string(c) }

// IdentityID is the sequential numeric id assigned when an identity is first
// registered. It is immutable and never reused.
type IdentityID int64

// ParseIdentityID validates a numeric identity id from external input.
func ParseIdentityID(n int64) (IdentityID, error) {
	if n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "identity id must be positive")
	}
	return IdentityID(n), nil
}

func (i IdentityID) IsNil() bool { return i <= 0 }

// AssetID is the sequential id of a registered property title.
type AssetID int64

// ParseAssetID validates a numeric asset id from external input.
func ParseAssetID(n int64) (AssetID, error) {
	if n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "asset id must be positive")
	}
	return AssetID(n), nil
}

func (a AssetID) IsNil() bool { return a <= 0 }

// AgreementID identifies a time-locked escrow agreement.
type AgreementID uuid.UUID

// NewAgreementID allocates a fresh agreement id.
func NewAgreementID() AgreementID { return AgreementID(uuid.New()) }

// ParseAgreementID constructs an AgreementID from external input.
func ParseAgreementID(s string) (AgreementID, error) {
	if s == "" {
		return AgreementID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "agreement id cannot be empty")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return AgreementID(uuid.Nil), dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid agreement id")
	}
	if u == uuid.Nil {
		return AgreementID(uuid.Nil), dErrors.New(dErrors.CodeInvalidInput, "agreement id cannot be nil")
	}
	return AgreementID(u), nil
}

func (a AgreementID) String() string { return uuid.UUID(a).String() }

func (a AgreementID) IsNil() bool { return uuid.UUID(a) == uuid.Nil }

// Wallet is an account reference. Two distinct uses exist and must not be
// mixed: the denormalized display copy stored on identities and titles, and
// the verified caller credential extracted from the session token. Access
// control decisions only ever compare against the credential.
type Wallet string

// ParseWallet constructs a Wallet from external input.
func ParseWallet(s string) (Wallet, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet cannot be empty")
	}
	if strings.TrimSpace(s) != s {
		return "", dErrors.New(dErrors.CodeInvalidInput, "wallet cannot contain surrounding whitespace")
	}
	return Wallet(s), nil
}

func (w Wallet) String() string { return string(w) }

func (w Wallet) IsZero() bool { return w == "" }

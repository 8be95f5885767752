package domain

import dErrors "legado/pkg/domain-errors"

// Gender is the declared gender on an identity's extended profile.
//
// Usage: construct via ParseGender at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
	GenderOther  Gender = "other"
)

// validGenders is the single source of truth for supported values.
var validGenders = map[Gender]bool{
	GenderMale:   true,
	GenderFemale: true,
	GenderOther:  true,
}

// ParseGender constructs a Gender from external input. Empty input is valid:
// the extended profile treats the field as optional.
func ParseGender(s string) (Gender, error) {
	if s == "" {
		return "", nil
	}
	g := Gender(s)
	if !g.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid gender")
	}
	return g, nil
}

// IsValid checks if the gender is one of the supported enum values.
func (g Gender) IsValid() bool {
	return validGenders[g]
}

func (g Gender) String() string { return string(g) }

// MaritalStatus is the declared marital status on an identity's extended
// profile. Free-form in the source records, so only length is bounded here.
type MaritalStatus string

const maxProfileFieldLen = 128

// ParseMaritalStatus bounds the field; empty input is valid.
func ParseMaritalStatus(s string) (MaritalStatus, error) {
	if len(s) > maxProfileFieldLen {
		return "", dErrors.New(dErrors.CodeInvalidInput, "marital status too long")
	}
	return MaritalStatus(s), nil
}

func (m MaritalStatus) String() string { return string(m) }

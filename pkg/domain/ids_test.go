package domain

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "legado/pkg/domain-errors"
)

func TestParseCivilID(t *testing.T) {
	t.Run("accepts a plain national id", func(t *testing.T) {
		id, err := ParseCivilID("V10100100")
		require.NoError(t, err)
		assert.Equal(t, "V10100100", id.String())
	})

	t.Run("rejects empty input", func(t *testing.T) {
		_, err := ParseCivilID("")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects surrounding whitespace", func(t *testing.T) {
		_, err := ParseCivilID(" V10100100 ")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects oversized input", func(t *testing.T) {
		_, err := ParseCivilID(strings.Repeat("9", 33))
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}

func TestParseNumericIDs(t *testing.T) {
	t.Run("identity id must be positive", func(t *testing.T) {
		_, err := ParseIdentityID(0)
		require.Error(t, err)
		_, err = ParseIdentityID(-5)
		require.Error(t, err)

		id, err := ParseIdentityID(7)
		require.NoError(t, err)
		assert.False(t, id.IsNil())
	})

	t.Run("asset id must be positive", func(t *testing.T) {
		_, err := ParseAssetID(0)
		require.Error(t, err)

		id, err := ParseAssetID(1)
		require.NoError(t, err)
		assert.False(t, id.IsNil())
	})
}

func TestParseAgreementID(t *testing.T) {
	t.Run("round-trips a fresh id", func(t *testing.T) {
		id := NewAgreementID()
		parsed, err := ParseAgreementID(id.String())
		require.NoError(t, err)
		assert.Equal(t, id, parsed)
		assert.False(t, parsed.IsNil())
	})

	t.Run("rejects empty, malformed, and nil input", func(t *testing.T) {
		for _, input := range []string{"", "not-a-uuid", uuid.Nil.String()} {
			_, err := ParseAgreementID(input)
			require.Error(t, err, "input %q", input)
			assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
		}
	})
}

func TestParseWallet(t *testing.T) {
	t.Run("accepts an account reference", func(t *testing.T) {
		w, err := ParseWallet("0xAbC123")
		require.NoError(t, err)
		assert.False(t, w.IsZero())
	})

	t.Run("rejects empty and padded input", func(t *testing.T) {
		_, err := ParseWallet("")
		require.Error(t, err)
		_, err = ParseWallet(" 0xAbC123")
		require.Error(t, err)
	})
}

func TestParseGender(t *testing.T) {
	t.Run("empty is valid because the profile field is optional", func(t *testing.T) {
		g, err := ParseGender("")
		require.NoError(t, err)
		assert.Equal(t, Gender(""), g)
	})

	t.Run("rejects values outside the allowlist", func(t *testing.T) {
		_, err := ParseGender("unknown")
		require.Error(t, err)
		assert.True(t, dErrors.Is(err, dErrors.CodeInvalidInput))
	})
}

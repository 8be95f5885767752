package attest_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"legado/internal/escrow/attest"
	"legado/internal/escrow/models"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
)

func TestWalletAllowlist(t *testing.T) {
	ctx := context.Background()
	agreement := models.Agreement{TestatorWallet: "0xtestator", HeirWallet: "0xheir"}

	t.Run("allowlisted wallet may attest", func(t *testing.T) {
		a := attest.NewWalletAllowlist([]domain.Wallet{"0xnotary", "0xregistrar"})
		assert.NoError(t, a.Authorize(ctx, "0xregistrar", agreement))
	})

	t.Run("unlisted wallet is rejected", func(t *testing.T) {
		a := attest.NewWalletAllowlist([]domain.Wallet{"0xnotary"})
		err := a.Authorize(ctx, "0xheir", agreement)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	t.Run("testator is not implicitly trusted when an allowlist exists", func(t *testing.T) {
		a := attest.NewWalletAllowlist([]domain.Wallet{"0xnotary"})
		err := a.Authorize(ctx, "0xtestator", agreement)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	t.Run("empty allowlist falls back to the testator", func(t *testing.T) {
		a := attest.NewWalletAllowlist(nil)
		assert.NoError(t, a.Authorize(ctx, "0xtestator", agreement))

		err := a.Authorize(ctx, "0xheir", agreement)
		assert.True(t, dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	t.Run("zero wallets are dropped from the allowlist", func(t *testing.T) {
		a := attest.NewWalletAllowlist([]domain.Wallet{""})
		// The list collapses to empty, so the testator fallback applies.
		assert.NoError(t, a.Authorize(ctx, "0xtestator", agreement))
	})
}

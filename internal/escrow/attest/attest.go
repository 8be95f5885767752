// Package attest decides who may assert a testator's death on an escrow
// agreement.
package attest

import (
	"context"

	"legado/internal/escrow/models"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
)

// WalletAllowlist authorizes proof-of-death activation for a fixed set of
// attestor wallets (notaries, civil registrars). When the allowlist is empty
// the testator's own wallet is the sole authorized attestor, which keeps
// single-tenant deployments working without configuration.
type WalletAllowlist struct {
	wallets map[domain.Wallet]bool
}

func NewWalletAllowlist(wallets []domain.Wallet) *WalletAllowlist {
	set := make(map[domain.Wallet]bool, len(wallets))
	for _, w := range wallets {
		if !w.IsZero() {
			set[w] = true
		}
	}
	return &WalletAllowlist{wallets: set}
}

func (a *WalletAllowlist) Authorize(_ context.Context, caller domain.Wallet, agreement models.Agreement) error {
	if len(a.wallets) == 0 {
		if caller == agreement.TestatorWallet {
			return nil
		}
		return dErrors.New(dErrors.CodeUnauthorized, "caller is not authorized to attest death")
	}
	if a.wallets[caller] {
		return nil
	}
	return dErrors.New(dErrors.CodeUnauthorized, "caller is not authorized to attest death")
}

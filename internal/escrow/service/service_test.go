package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"legado/internal/escrow/attest"
	"legado/internal/escrow/models"
	"legado/internal/escrow/service"
	escrowmemory "legado/internal/escrow/store/memory"
	identityservice "legado/internal/identity/service"
	identitymemory "legado/internal/identity/store/memory"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
	"legado/pkg/platform/audit"
	auditpublisher "legado/pkg/platform/audit/publisher"
	auditmemory "legado/pkg/platform/audit/store/memory"
	"legado/pkg/platform/tx"
)

const (
	testatorWallet = domain.Wallet("0xtestator")
	heirWallet     = domain.Wallet("0xheir")
	notaryWallet   = domain.Wallet("0xnotary")
	strangerWallet = domain.Wallet("0xstranger")

	waitingPeriod = 30 * 24 * time.Hour
)

type EscrowSuite struct {
	suite.Suite
	ctx        context.Context
	auditStore *auditmemory.InMemoryStore
	svc        *service.Service
	now        time.Time
}

func TestEscrowSuite(t *testing.T) {
	suite.Run(t, new(EscrowSuite))
}

func (s *EscrowSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	runner := tx.NewExclusive()
	identityStore := identitymemory.New()
	s.auditStore = auditmemory.NewInMemoryStore()
	recorder := auditpublisher.New(s.auditStore)

	identities, err := identityservice.New(identityStore, runner, recorder)
	s.Require().NoError(err)
	for _, person := range []struct {
		civilID domain.CivilID
		wallet  domain.Wallet
	}{
		{"V-TEST", testatorWallet},
		{"V-HEIR", heirWallet},
	} {
		_, err := identities.RegisterEssential(s.ctx, notaryWallet, identityservice.EssentialRegistration{
			CivilID:    person.civilID,
			GivenNames: "Given",
			Surnames:   "Sur",
			Wallet:     person.wallet,
		})
		s.Require().NoError(err)
	}

	svc, err := service.New(escrowmemory.New(), identityStore,
		attest.NewWalletAllowlist([]domain.Wallet{notaryWallet}), runner, recorder,
		service.WithClock(func() time.Time { return s.now }))
	s.Require().NoError(err)
	s.svc = svc
}

func (s *EscrowSuite) create() models.Agreement {
	agreement, err := s.svc.Create(s.ctx, testatorWallet, service.CreateAgreement{
		TestatorCivilID: "V-TEST",
		TestatorWallet:  testatorWallet,
		HeirCivilID:     "V-HEIR",
		HeirWallet:      heirWallet,
		Deposit:         10_000,
		WaitingPeriod:   waitingPeriod,
	})
	s.Require().NoError(err)
	return agreement
}

func (s *EscrowSuite) TestCreate() {
	agreement := s.create()
	s.Equal(models.StateActive, agreement.State)
	s.Equal(int64(10_000), agreement.Balance)
	s.False(agreement.ProofOfDeathActivated)

	status, err := s.svc.Status(s.ctx, agreement.ID)
	s.Require().NoError(err)
	s.Equal(agreement.ID, status.ID)

	entries, err := s.auditStore.ListByEntity(s.ctx, agreement.EntityKey())
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.OpEscrowCreated, entries[0].Operation)
}

func (s *EscrowSuite) TestCreateValidation() {
	base := service.CreateAgreement{
		TestatorCivilID: "V-TEST",
		TestatorWallet:  testatorWallet,
		HeirCivilID:     "V-HEIR",
		HeirWallet:      heirWallet,
		Deposit:         100,
		WaitingPeriod:   waitingPeriod,
	}

	s.Run("non-positive deposit", func() {
		req := base
		req.Deposit = 0
		_, err := s.svc.Create(s.ctx, testatorWallet, req)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("non-positive waiting period", func() {
		req := base
		req.WaitingPeriod = 0
		_, err := s.svc.Create(s.ctx, testatorWallet, req)
		s.True(dErrors.Is(err, dErrors.CodeValidation))
	})

	s.Run("unregistered party", func() {
		req := base
		req.HeirCivilID = "V-GHOST"
		_, err := s.svc.Create(s.ctx, testatorWallet, req)
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

func (s *EscrowSuite) TestProofOfDeath() {
	agreement := s.create()

	s.Run("stranger cannot attest", func() {
		err := s.svc.ActivateProofOfDeath(s.ctx, strangerWallet, agreement.ID)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Require().NoError(s.svc.ActivateProofOfDeath(s.ctx, notaryWallet, agreement.ID))

	status, err := s.svc.Status(s.ctx, agreement.ID)
	s.Require().NoError(err)
	s.Equal(models.StateProofActivated, status.State)
	s.True(status.ProofOfDeathActivated)
	s.Require().NotNil(status.ActivatedAt)
	s.Equal(s.now, *status.ActivatedAt)

	s.Run("second activation conflicts", func() {
		err := s.svc.ActivateProofOfDeath(s.ctx, notaryWallet, agreement.ID)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})
}

func (s *EscrowSuite) TestClaim() {
	agreement := s.create()

	s.Run("before activation", func() {
		_, err := s.svc.Claim(s.ctx, heirWallet, agreement.ID)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Require().NoError(s.svc.ActivateProofOfDeath(s.ctx, notaryWallet, agreement.ID))

	s.Run("before the waiting period elapses", func() {
		s.now = s.now.Add(waitingPeriod - time.Minute)
		_, err := s.svc.Claim(s.ctx, heirWallet, agreement.ID)
		s.True(dErrors.Is(err, dErrors.CodeWaitingPeriod))
	})

	s.Run("only the heir wallet may claim", func() {
		s.now = s.now.Add(2 * time.Minute)
		_, err := s.svc.Claim(s.ctx, testatorWallet, agreement.ID)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("pays the full balance exactly once", func() {
		amount, err := s.svc.Claim(s.ctx, heirWallet, agreement.ID)
		s.Require().NoError(err)
		s.Equal(int64(10_000), amount)

		status, err := s.svc.Status(s.ctx, agreement.ID)
		s.Require().NoError(err)
		s.Equal(models.StateClaimed, status.State)
		s.Zero(status.Balance)

		_, err = s.svc.Claim(s.ctx, heirWallet, agreement.ID)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})
}

func (s *EscrowSuite) TestWithdraw() {
	agreement := s.create()

	s.Run("only the testator wallet may withdraw", func() {
		_, err := s.svc.Withdraw(s.ctx, heirWallet, agreement.ID)
		s.True(dErrors.Is(err, dErrors.CodeUnauthorized))
	})

	s.Run("returns the full balance while active", func() {
		amount, err := s.svc.Withdraw(s.ctx, testatorWallet, agreement.ID)
		s.Require().NoError(err)
		s.Equal(int64(10_000), amount)

		status, err := s.svc.Status(s.ctx, agreement.ID)
		s.Require().NoError(err)
		s.Equal(models.StateWithdrawn, status.State)
		s.Zero(status.Balance)

		_, err = s.svc.Withdraw(s.ctx, testatorWallet, agreement.ID)
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})
}

func (s *EscrowSuite) TestWithdrawBlockedAfterProof() {
	agreement := s.create()
	s.Require().NoError(s.svc.ActivateProofOfDeath(s.ctx, notaryWallet, agreement.ID))

	_, err := s.svc.Withdraw(s.ctx, testatorWallet, agreement.ID)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))

	// The heir's path stays open.
	s.now = s.now.Add(waitingPeriod)
	amount, err := s.svc.Claim(s.ctx, heirWallet, agreement.ID)
	s.Require().NoError(err)
	s.Equal(int64(10_000), amount)
}

// TestConcurrentSettlement races a claim against a withdrawal on the same
// agreement. Exactly one terminal transition may win; the balance moves once.
func (s *EscrowSuite) TestConcurrentSettlement() {
	agreement := s.create()
	s.Require().NoError(s.svc.ActivateProofOfDeath(s.ctx, notaryWallet, agreement.ID))
	s.now = s.now.Add(waitingPeriod)

	var (
		wg                    sync.WaitGroup
		claimAmt, withdrawAmt int64
		claimErr, withdrawErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		claimAmt, claimErr = s.svc.Claim(s.ctx, heirWallet, agreement.ID)
	}()
	go func() {
		defer wg.Done()
		withdrawAmt, withdrawErr = s.svc.Withdraw(s.ctx, testatorWallet, agreement.ID)
	}()
	wg.Wait()

	// Proof is active, so withdrawal always loses; the race exercises the
	// serialized transition path rather than the outcome.
	s.Require().NoError(claimErr)
	s.Equal(int64(10_000), claimAmt)
	s.Require().Error(withdrawErr)
	s.True(dErrors.Is(withdrawErr, dErrors.CodeConflict))
	s.Zero(withdrawAmt)

	status, err := s.svc.Status(s.ctx, agreement.ID)
	s.Require().NoError(err)
	s.Equal(models.StateClaimed, status.State)
	s.Zero(status.Balance)
}

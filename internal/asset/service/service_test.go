package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"legado/internal/asset/service"
	assetmemory "legado/internal/asset/store/memory"
	identityservice "legado/internal/identity/service"
	identitymemory "legado/internal/identity/store/memory"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
	"legado/pkg/platform/audit"
	auditpublisher "legado/pkg/platform/audit/publisher"
	auditmemory "legado/pkg/platform/audit/store/memory"
	"legado/pkg/platform/tx"
)

const actor = domain.Wallet("0xnotary")

// The suite runs against the real in-memory stores so title, identity, and
// audit state move together the way they do in the wired service.
type AssetServiceSuite struct {
	suite.Suite
	ctx        context.Context
	identities *identityservice.Service
	auditStore *auditmemory.InMemoryStore
	svc        *service.Service
}

func TestAssetServiceSuite(t *testing.T) {
	suite.Run(t, new(AssetServiceSuite))
}

func (s *AssetServiceSuite) SetupTest() {
	s.ctx = context.Background()
	runner := tx.NewExclusive()
	identityStore := identitymemory.New()
	s.auditStore = auditmemory.NewInMemoryStore()
	recorder := auditpublisher.New(s.auditStore)

	identities, err := identityservice.New(identityStore, runner, recorder)
	s.Require().NoError(err)
	s.identities = identities

	svc, err := service.New(assetmemory.New(), identityStore, runner, recorder)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *AssetServiceSuite) registerIdentity(civilID domain.CivilID, wallet domain.Wallet) {
	_, err := s.identities.RegisterEssential(s.ctx, actor, identityservice.EssentialRegistration{
		CivilID:    civilID,
		GivenNames: "Given",
		Surnames:   "Sur",
		Wallet:     wallet,
	})
	s.Require().NoError(err)
}

func (s *AssetServiceSuite) TestRegisterCopiesOwnerWallet() {
	s.registerIdentity("V101", "0xana")

	assetID, err := s.svc.Register(s.ctx, actor, "V101", "House in Merida")
	s.Require().NoError(err)

	title, err := s.svc.Get(s.ctx, assetID)
	s.Require().NoError(err)
	s.Equal(domain.CivilID("V101"), title.OwnerCivilID)
	s.Equal(domain.Wallet("0xana"), title.OwnerWallet)
	s.False(title.UnderSuccession)

	entries, err := s.auditStore.ListByEntity(s.ctx, title.EntityKey())
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal(audit.OpTitleRegistered, entries[0].Operation)
}

func (s *AssetServiceSuite) TestRegisterUnknownOwner() {
	_, err := s.svc.Register(s.ctx, actor, "V999", "House")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *AssetServiceSuite) TestRegisterEmptyDescription() {
	s.registerIdentity("V101", "0xana")
	_, err := s.svc.Register(s.ctx, actor, "V101", "")
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *AssetServiceSuite) TestTransfer() {
	s.registerIdentity("V101", "0xana")
	s.registerIdentity("V102", "0xluis")
	assetID, err := s.svc.Register(s.ctx, actor, "V101", "House")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Transfer(s.ctx, actor, assetID, "V102"))

	title, err := s.svc.Get(s.ctx, assetID)
	s.Require().NoError(err)
	s.Equal(domain.CivilID("V102"), title.OwnerCivilID)
	s.Equal(domain.Wallet("0xluis"), title.OwnerWallet)

	mine, err := s.svc.ListByCivilID(s.ctx, "V102")
	s.Require().NoError(err)
	s.Len(mine, 1)
	prev, err := s.svc.ListByCivilID(s.ctx, "V101")
	s.Require().NoError(err)
	s.Empty(prev)
}

func (s *AssetServiceSuite) TestTransferGuards() {
	s.registerIdentity("V101", "0xana")
	assetID, err := s.svc.Register(s.ctx, actor, "V101", "House")
	s.Require().NoError(err)

	s.Run("unknown asset", func() {
		err := s.svc.Transfer(s.ctx, actor, 999, "V101")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})

	s.Run("transfer to current owner is a conflict", func() {
		err := s.svc.Transfer(s.ctx, actor, assetID, "V101")
		s.True(dErrors.Is(err, dErrors.CodeConflict))
	})

	s.Run("unknown new owner", func() {
		err := s.svc.Transfer(s.ctx, actor, assetID, "V404")
		s.True(dErrors.Is(err, dErrors.CodeNotFound))
	})
}

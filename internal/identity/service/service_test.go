package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"legado/internal/identity/models"
	"legado/internal/identity/service"
	"legado/internal/identity/service/mocks"
	"legado/pkg/domain"
	dErrors "legado/pkg/domain-errors"
	"legado/pkg/platform/audit"
	"legado/pkg/platform/sentinel"
	"legado/pkg/platform/tx"
)

const actor = domain.Wallet("0xactor")

type IdentityServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	store   *mocks.MockStore
	auditor *mocks.MockAuditRecorder
	svc     *service.Service
}

func TestIdentityServiceSuite(t *testing.T) {
	suite.Run(t, new(IdentityServiceSuite))
}

func (s *IdentityServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockStore(s.ctrl)
	s.auditor = mocks.NewMockAuditRecorder(s.ctrl)

	svc, err := service.New(s.store, tx.NewExclusive(), s.auditor)
	s.Require().NoError(err)
	s.svc = svc
}

func (s *IdentityServiceSuite) registration() service.EssentialRegistration {
	return service.EssentialRegistration{
		CivilID:    "V101",
		GivenNames: "Ana Lucia",
		Surnames:   "Perez",
		Wallet:     "0xana",
	}
}

func (s *IdentityServiceSuite) TestRegisterEssential() {
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(domain.IdentityID(1), nil)
	s.auditor.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry audit.Entry) error {
			s.Equal(audit.OpIdentityRegistered, entry.Operation)
			s.Equal("identity/V101", entry.EntityKey)
			s.Equal(actor.String(), entry.Actor)
			s.Empty(entry.BeforeDigest)
			s.NotEmpty(entry.AfterDigest)
			return nil
		})

	id, err := s.svc.RegisterEssential(context.Background(), actor, s.registration())
	s.Require().NoError(err)
	s.Equal(domain.IdentityID(1), id)
}

func (s *IdentityServiceSuite) TestRegisterEssentialRejectsMissingNames() {
	reg := s.registration()
	reg.Surnames = ""
	_, err := s.svc.RegisterEssential(context.Background(), actor, reg)
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeValidation))
}

func (s *IdentityServiceSuite) TestRegisterEssentialDuplicateCivilID() {
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(domain.IdentityID(0), sentinel.ErrDuplicate)

	_, err := s.svc.RegisterEssential(context.Background(), actor, s.registration())
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeConflict))
}

func (s *IdentityServiceSuite) TestRegisterEssentialFailsClosedOnAudit() {
	s.store.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(domain.IdentityID(1), nil)
	s.auditor.EXPECT().Record(gomock.Any(), gomock.Any()).Return(errors.New("audit store down"))

	_, err := s.svc.RegisterEssential(context.Background(), actor, s.registration())
	s.Require().Error(err)
}

func (s *IdentityServiceSuite) TestRegisterFull() {
	existing := models.Identity{
		ID:         1,
		CivilID:    "V101",
		GivenNames: "Ana Lucia",
		Surnames:   "Perez",
		Wallet:     "0xana",
	}
	s.store.EXPECT().FindByID(gomock.Any(), domain.IdentityID(1)).Return(existing, nil)
	s.store.EXPECT().Update(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, identity models.Identity) error {
			s.Equal("Caracas", identity.Profile.BirthPlace)
			s.Equal(domain.Wallet("0xana2"), identity.Wallet)
			return nil
		})
	s.auditor.EXPECT().Record(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, entry audit.Entry) error {
			s.Equal(audit.OpIdentityCompleted, entry.Operation)
			s.NotEmpty(entry.BeforeDigest)
			s.NotEqual(entry.BeforeDigest, entry.AfterDigest)
			return nil
		})

	err := s.svc.RegisterFull(context.Background(), actor, 1, service.FullRegistration{
		Profile: models.Profile{BirthPlace: "Caracas", Profession: "Engineer"},
		Wallet:  "0xana2",
	})
	s.Require().NoError(err)
}

func (s *IdentityServiceSuite) TestRegisterFullUnknownID() {
	s.store.EXPECT().FindByID(gomock.Any(), domain.IdentityID(9)).Return(models.Identity{}, sentinel.ErrNotFound)

	err := s.svc.RegisterFull(context.Background(), actor, 9, service.FullRegistration{Wallet: "0xana"})
	s.Require().Error(err)
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

func (s *IdentityServiceSuite) TestLookups() {
	identity := models.Identity{ID: 3, CivilID: "V103"}

	s.store.EXPECT().FindByCivilID(gomock.Any(), domain.CivilID("V103")).Return(identity, nil)
	got, err := s.svc.LookupByCivilID(context.Background(), "V103")
	s.Require().NoError(err)
	s.Equal(identity, got)

	s.store.EXPECT().FindByID(gomock.Any(), domain.IdentityID(3)).Return(identity, nil)
	got, err = s.svc.LookupByID(context.Background(), 3)
	s.Require().NoError(err)
	s.Equal(identity, got)

	s.store.EXPECT().FindByCivilID(gomock.Any(), domain.CivilID("V999")).Return(models.Identity{}, sentinel.ErrNotFound)
	_, err = s.svc.LookupByCivilID(context.Background(), "V999")
	s.True(dErrors.Is(err, dErrors.CodeNotFound))
}

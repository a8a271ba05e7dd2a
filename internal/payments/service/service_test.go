package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"velvet/internal/audit"
	"velvet/internal/catalog"
	"velvet/internal/notify"
	"velvet/internal/payments/models"
	"velvet/internal/payments/service"
	"velvet/internal/payments/store"
	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
	"velvet/pkg/requestcontext"
)

type PaymentServiceSuite struct {
	suite.Suite

	store    *store.InMemory
	catalog  *catalog.MemoryCatalog
	notify   *notify.MemorySink
	auditLog *audit.Publisher
	svc      *service.Service

	now           time.Time
	owner         id.ActorID
	admin         id.ActorID
	establishment id.EstablishmentID
}

func TestPaymentServiceSuite(t *testing.T) {
	suite.Run(t, new(PaymentServiceSuite))
}

func (s *PaymentServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.catalog = catalog.NewMemoryCatalog()
	s.notify = notify.NewMemorySink()
	s.auditLog = audit.NewPublisher(audit.NewMemoryStore())
	s.svc = service.New(s.store, s.catalog,
		service.WithNotifier(s.notify),
		service.WithAuditor(s.auditLog),
	)

	s.now = time.Date(2025, 7, 2, 16, 0, 0, 0, time.UTC)
	s.owner = id.NewActorID()
	s.admin = id.NewActorID()
	s.establishment = id.NewEstablishmentID()
}

func (s *PaymentServiceSuite) ctx(actorID id.ActorID, role id.Role, at time.Time) context.Context {
	ctx := requestcontext.WithActor(context.Background(), actorID, role)
	return requestcontext.WithTime(ctx, at)
}

func (s *PaymentServiceSuite) record() *models.Transaction {
	tx, err := s.svc.Record(s.ctx(s.owner, id.RoleOwner, s.now), service.RecordRequest{
		EstablishmentID: s.establishment,
		AmountCents:     200_00,
		Currency:        "EUR",
		Tier:            "vip",
		DurationDays:    30,
	})
	s.Require().NoError(err)
	return tx
}

func (s *PaymentServiceSuite) TestRecord() {
	s.Run("creates a pending transaction", func() {
		tx := s.record()
		s.Equal(models.TransactionStatePending, tx.State)
		s.Equal(s.owner, tx.SubmittedBy)

		trail, err := s.auditLog.List(context.Background(), tx.ID.String())
		s.Require().NoError(err)
		s.Require().Len(trail, 1)
		s.Equal(audit.ActionPaymentRecorded, trail[0].Action)
	})

	s.Run("requires authentication", func() {
		_, err := s.svc.Record(requestcontext.WithTime(context.Background(), s.now), service.RecordRequest{
			EstablishmentID: s.establishment,
			AmountCents:     100,
			Currency:        "EUR",
			DurationDays:    30,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("validates the amount", func() {
		_, err := s.svc.Record(s.ctx(s.owner, id.RoleOwner, s.now), service.RecordRequest{
			EstablishmentID: s.establishment,
			AmountCents:     -5,
			Currency:        "EUR",
			DurationDays:    30,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

// Scenario: owner selects 30 VIP days and pays cash; the admin confirms two
// days later. The subscription runs 30 days from the verification, so the
// payment lag never shortens the paid period.
func (s *PaymentServiceSuite) TestVerifyExtendsFromVerificationTime() {
	tx := s.record()

	verifiedAt := s.now.Add(48 * time.Hour)
	verified, err := s.svc.Verify(s.ctx(s.admin, id.RoleAdmin, verifiedAt), tx.ID, "till receipt matches")
	s.Require().NoError(err)
	s.Equal(models.TransactionStateVerified, verified.State)
	s.Require().NotNil(verified.DecidedAt)
	s.True(verifiedAt.Equal(*verified.DecidedAt))

	expiry, err := s.catalog.VIPExpiry(context.Background(), s.establishment)
	s.Require().NoError(err)
	s.True(verifiedAt.AddDate(0, 0, 30).Equal(expiry))

	events := s.notify.ByType(notify.EventPaymentVerified)
	s.Require().Len(events, 1)
	s.Equal(tx.ID.String(), events[0].TransactionID)
	s.Equal(s.owner, events[0].RecipientID)
}

func (s *PaymentServiceSuite) TestVerifyStacksOnCurrentExpiry() {
	first := s.record()
	_, err := s.svc.Verify(s.ctx(s.admin, id.RoleAdmin, s.now), first.ID, "")
	s.Require().NoError(err)

	// Second payment verified mid-period extends from the current expiry,
	// not from the verification time.
	second := s.record()
	midPeriod := s.now.AddDate(0, 0, 10)
	_, err = s.svc.Verify(s.ctx(s.admin, id.RoleAdmin, midPeriod), second.ID, "")
	s.Require().NoError(err)

	expiry, err := s.catalog.VIPExpiry(context.Background(), s.establishment)
	s.Require().NoError(err)
	s.True(s.now.AddDate(0, 0, 60).Equal(expiry))
}

func (s *PaymentServiceSuite) TestOnlyAdminDecides() {
	tx := s.record()

	_, err := s.svc.Verify(s.ctx(s.owner, id.RoleOwner, s.now), tx.ID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.svc.Reject(s.ctx(s.owner, id.RoleOwner, s.now), tx.ID, "nope")
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *PaymentServiceSuite) TestReject() {
	s.Run("requires a reason", func() {
		tx := s.record()
		_, err := s.svc.Reject(s.ctx(s.admin, id.RoleAdmin, s.now), tx.ID, "")
		s.True(dErrors.HasCode(err, dErrors.CodeReasonRequired))
	})

	s.Run("reason reaches the owner", func() {
		tx := s.record()
		rejected, err := s.svc.Reject(s.ctx(s.admin, id.RoleAdmin, s.now), tx.ID, "no matching deposit")
		s.Require().NoError(err)
		s.Equal(models.TransactionStateRejected, rejected.State)

		events := s.notify.ByType(notify.EventPaymentRejected)
		s.Require().Len(events, 1)
		s.Equal("no matching deposit", events[0].ReasonOrNotes)
	})

	s.Run("does not touch the subscription", func() {
		tx := s.record()
		_, err := s.svc.Reject(s.ctx(s.admin, id.RoleAdmin, s.now), tx.ID, "counterfeit notes")
		s.Require().NoError(err)

		expiry, err := s.catalog.VIPExpiry(context.Background(), s.establishment)
		s.Require().NoError(err)
		s.True(expiry.IsZero())
	})
}

func (s *PaymentServiceSuite) TestDecidedTransactionStaysDecided() {
	tx := s.record()
	_, err := s.svc.Verify(s.ctx(s.admin, id.RoleAdmin, s.now), tx.ID, "")
	s.Require().NoError(err)

	_, err = s.svc.Verify(s.ctx(s.admin, id.RoleAdmin, s.now), tx.ID, "")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	_, err = s.svc.Reject(s.ctx(s.admin, id.RoleAdmin, s.now), tx.ID, "late doubt")
	s.True(dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	// A second verify attempt must not extend the subscription again.
	expiry, err := s.catalog.VIPExpiry(context.Background(), s.establishment)
	s.Require().NoError(err)
	s.True(s.now.AddDate(0, 0, 30).Equal(expiry))
}

func (s *PaymentServiceSuite) TestGetAuthorization() {
	tx := s.record()

	s.Run("submitter and admin may read", func() {
		_, err := s.svc.Get(s.ctx(s.owner, id.RoleOwner, s.now), tx.ID)
		s.NoError(err)
		_, err = s.svc.Get(s.ctx(s.admin, id.RoleAdmin, s.now), tx.ID)
		s.NoError(err)
	})

	s.Run("others may not", func() {
		_, err := s.svc.Get(s.ctx(id.NewActorID(), id.RoleUser, s.now), tx.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown transaction", func() {
		_, err := s.svc.Get(s.ctx(s.admin, id.RoleAdmin, s.now), id.NewTransactionID())
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *PaymentServiceSuite) TestListByEstablishment() {
	first := s.record()
	second := s.record()

	txs, err := s.svc.ListByEstablishment(s.ctx(s.admin, id.RoleAdmin, s.now), s.establishment)
	s.Require().NoError(err)
	s.Require().Len(txs, 2)
	s.ElementsMatch(
		[]id.TransactionID{first.ID, second.ID},
		[]id.TransactionID{txs[0].ID, txs[1].ID},
	)

	_, err = s.svc.ListByEstablishment(s.ctx(s.owner, id.RoleOwner, s.now), s.establishment)
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

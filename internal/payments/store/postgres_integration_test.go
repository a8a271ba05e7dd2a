//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"velvet/internal/payments/models"
	"velvet/internal/payments/store"
	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
	"velvet/pkg/platform/sentinel"
	"velvet/pkg/testutil/containers"
)

type PostgresPaymentStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.Postgres
}

func TestPostgresPaymentStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresPaymentStoreSuite))
}

func (s *PostgresPaymentStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.Require().NoError(s.postgres.Apply(context.Background(), store.Schema))
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresPaymentStoreSuite) SetupTest() {
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "payment_verifications"))
}

func newTestTransaction() *models.Transaction {
	now := time.Now().UTC().Truncate(time.Microsecond)
	tx, err := models.NewTransaction(
		id.NewTransactionID(), id.NewEstablishmentID(),
		120_00, "EUR", "vip", 30, id.NewActorID(), now,
	)
	if err != nil {
		panic(err)
	}
	return tx
}

func (s *PostgresPaymentStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	tx := newTestTransaction()
	s.Require().NoError(s.store.Create(ctx, tx))

	got, err := s.store.FindByID(ctx, tx.ID)
	s.Require().NoError(err)
	s.Equal(tx.ID, got.ID)
	s.Equal(tx.EstablishmentID, got.EstablishmentID)
	s.Equal(tx.AmountCents, got.AmountCents)
	s.Equal(models.TransactionStatePending, got.State)
	s.Nil(got.DecidedBy)
	s.Equal(1, got.Version)
}

func (s *PostgresPaymentStoreSuite) TestFindByIDNotFound() {
	_, err := s.store.FindByID(context.Background(), id.NewTransactionID())
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresPaymentStoreSuite) TestExecutePersistsDecision() {
	ctx := context.Background()
	tx := newTestTransaction()
	s.Require().NoError(s.store.Create(ctx, tx))

	adminID := id.NewActorID()
	decidedAt := time.Now().UTC().Truncate(time.Microsecond)
	updated, err := s.store.Execute(ctx, tx.ID,
		func(t *models.Transaction) error { return t.CanDecide() },
		func(t *models.Transaction) error { return t.ApplyVerify(adminID, "till matches", decidedAt) },
	)
	s.Require().NoError(err)
	s.Equal(2, updated.Version)

	got, err := s.store.FindByID(ctx, tx.ID)
	s.Require().NoError(err)
	s.Equal(models.TransactionStateVerified, got.State)
	s.Equal("till matches", got.Notes)
	s.Require().NotNil(got.DecidedBy)
	s.Equal(adminID, *got.DecidedBy)
	s.Require().NotNil(got.DecidedAt)
	s.True(decidedAt.Equal(*got.DecidedAt))
}

// Concurrent decisions on one transaction must produce exactly one success.
func (s *PostgresPaymentStoreSuite) TestConcurrentDecisions() {
	ctx := context.Background()
	tx := newTestTransaction()
	s.Require().NoError(s.store.Create(ctx, tx))

	const goroutines = 10
	var wg sync.WaitGroup
	var successCount, invalidCount atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, tx.ID,
				func(t *models.Transaction) error { return t.CanDecide() },
				func(t *models.Transaction) error {
					return t.ApplyVerify(id.NewActorID(), "", time.Now().UTC())
				},
			)
			if err == nil {
				successCount.Add(1)
			} else if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
				invalidCount.Add(1)
			}
		}()
	}
	wg.Wait()

	s.Equal(int32(1), successCount.Load(), "exactly one decision should succeed")
	s.Equal(int32(goroutines-1), invalidCount.Load())
}

func (s *PostgresPaymentStoreSuite) TestListByEstablishment() {
	ctx := context.Background()
	first := newTestTransaction()
	second := newTestTransaction()
	second.EstablishmentID = first.EstablishmentID
	second.SubmittedAt = first.SubmittedAt.Add(time.Minute)
	other := newTestTransaction()

	s.Require().NoError(s.store.Create(ctx, first))
	s.Require().NoError(s.store.Create(ctx, second))
	s.Require().NoError(s.store.Create(ctx, other))

	txs, err := s.store.ListByEstablishment(ctx, first.EstablishmentID)
	s.Require().NoError(err)
	s.Require().Len(txs, 2)
	s.Equal(first.ID, txs[0].ID)
	s.Equal(second.ID, txs[1].ID)
}

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"velvet/internal/claims/models"
	id "velvet/pkg/domain"
	"velvet/pkg/platform/sentinel"
)

type ClaimStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *ClaimStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestClaimStoreSuite(t *testing.T) {
	suite.Run(t, new(ClaimStoreSuite))
}

func (s *ClaimStoreSuite) newClaim(resourceID id.ResourceID) *models.Claim {
	claim, err := models.NewClaim(
		id.NewClaimID(),
		resourceID,
		models.ResourceKindEstablishment,
		models.ClaimTypeEstablishmentOwnership,
		models.TierStandard,
		id.ActorID(uuid.New()),
		models.Evidence{DocumentRef: "doc-1", SelfieRef: "selfie-1"},
		"",
		time.Now(),
	)
	s.Require().NoError(err)
	return claim
}

func (s *ClaimStoreSuite) decide(claimID id.ClaimID, action models.Action, reason string) *models.Claim {
	claim, err := s.store.Execute(s.ctx, claimID,
		func(c *models.Claim) error { return c.CanApply(action, reason) },
		func(c *models.Claim) error {
			return c.ApplyDecision(models.Decision{
				ActorID:   id.ActorID(uuid.New()),
				ActorRole: id.RoleOwner,
				Action:    action,
				Reason:    reason,
				DecidedAt: time.Now(),
			})
		},
	)
	s.Require().NoError(err)
	return claim
}

// TestCreationAndLookups verifies the store correctly creates and retrieves claims.
func (s *ClaimStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds claim by ID", func() {
		claim := s.newClaim(id.ResourceID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, claim))

		found, err := s.store.FindByID(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(claim.ResourceID, found.ResourceID)
		s.Equal(models.ClaimStatePending, found.State)
	})

	s.Run("returns ErrNotFound for unknown ID", func() {
		_, err := s.store.FindByID(s.ctx, id.NewClaimID())
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("hands out copies", func() {
		claim := s.newClaim(id.ResourceID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, claim))

		found, err := s.store.FindByID(s.ctx, claim.ID)
		s.Require().NoError(err)
		found.State = models.ClaimStateApproved

		again, err := s.store.FindByID(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(models.ClaimStatePending, again.State)
	})
}

// TestOneActiveClaimInvariant verifies the claim-lock on the resource.
func (s *ClaimStoreSuite) TestOneActiveClaimInvariant() {
	s.Run("second claim on same resource is rejected", func() {
		resourceID := id.ResourceID(uuid.New())
		first := s.newClaim(resourceID)
		second := s.newClaim(resourceID)

		s.Require().NoError(s.store.Create(s.ctx, first))
		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrAlreadyUsed)
	})

	s.Run("slot frees after terminal decision", func() {
		resourceID := id.ResourceID(uuid.New())
		first := s.newClaim(resourceID)
		s.Require().NoError(s.store.Create(s.ctx, first))
		s.decide(first.ID, models.ActionReject, "insufficient evidence")

		second := s.newClaim(resourceID)
		s.Require().NoError(s.store.Create(s.ctx, second))

		active, err := s.store.ActiveByResource(s.ctx, resourceID)
		s.Require().NoError(err)
		s.Equal(second.ID, active.ID)
	})

	s.Run("info_requested still holds the slot", func() {
		resourceID := id.ResourceID(uuid.New())
		first := s.newClaim(resourceID)
		s.Require().NoError(s.store.Create(s.ctx, first))
		s.decide(first.ID, models.ActionRequestInfo, "")

		second := s.newClaim(resourceID)
		s.Require().ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrAlreadyUsed)
	})
}

// TestExecute verifies atomic validate-then-mutate semantics.
func (s *ClaimStoreSuite) TestExecute() {
	s.Run("failed mutation leaves claim untouched", func() {
		claim := s.newClaim(id.ResourceID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, claim))
		s.decide(claim.ID, models.ActionApprove, "")

		_, err := s.store.Execute(s.ctx, claim.ID,
			func(c *models.Claim) error { return c.CanApply(models.ActionApprove, "") },
			func(c *models.Claim) error { return nil },
		)
		s.Require().Error(err)

		found, err := s.store.FindByID(s.ctx, claim.ID)
		s.Require().NoError(err)
		s.Equal(models.ClaimStateApproved, found.State)
		s.Len(found.Decisions, 1)
	})

	s.Run("version increments on every commit", func() {
		claim := s.newClaim(id.ResourceID(uuid.New()))
		s.Require().NoError(s.store.Create(s.ctx, claim))
		updated := s.decide(claim.ID, models.ActionRequestInfo, "")
		s.Equal(2, updated.Version)
	})

	s.Run("unknown claim returns ErrNotFound", func() {
		_, err := s.store.Execute(s.ctx, id.NewClaimID(),
			func(*models.Claim) error { return nil },
			func(*models.Claim) error { return nil },
		)
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestDisputeReArmsSlot verifies the slot behavior when terminal claims are
// disputed.
func (s *ClaimStoreSuite) TestDisputeReArmsSlot() {
	s.Run("disputing a rejected claim retakes the slot", func() {
		resourceID := id.ResourceID(uuid.New())
		claim := s.newClaim(resourceID)
		s.Require().NoError(s.store.Create(s.ctx, claim))
		s.decide(claim.ID, models.ActionReject, "no")
		s.decide(claim.ID, models.ActionDispute, "")

		second := s.newClaim(resourceID)
		s.Require().ErrorIs(s.store.Create(s.ctx, second), sentinel.ErrAlreadyUsed)
	})

	s.Run("dispute loses to a newer active claim", func() {
		resourceID := id.ResourceID(uuid.New())
		first := s.newClaim(resourceID)
		s.Require().NoError(s.store.Create(s.ctx, first))
		s.decide(first.ID, models.ActionReject, "no")

		second := s.newClaim(resourceID)
		s.Require().NoError(s.store.Create(s.ctx, second))

		_, err := s.store.Execute(s.ctx, first.ID,
			func(c *models.Claim) error { return c.CanApply(models.ActionDispute, "") },
			func(c *models.Claim) error {
				return c.ApplyDecision(models.Decision{
					ActorID:   first.ClaimantID,
					ActorRole: id.RoleUser,
					Action:    models.ActionDispute,
					DecidedAt: time.Now(),
				})
			},
		)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

// TestListings verifies the re-claim chain and review queue orderings.
func (s *ClaimStoreSuite) TestListings() {
	resourceID := id.ResourceID(uuid.New())

	first := s.newClaim(resourceID)
	first.SubmittedAt = time.Now().Add(-time.Hour)
	s.Require().NoError(s.store.Create(s.ctx, first))
	s.decide(first.ID, models.ActionReject, "blurry documents")

	second := s.newClaim(resourceID)
	s.Require().NoError(s.store.Create(s.ctx, second))

	s.Run("chain is oldest first", func() {
		chain, err := s.store.ListByResource(s.ctx, resourceID)
		s.Require().NoError(err)
		s.Require().Len(chain, 2)
		s.Equal(first.ID, chain[0].ID)
		s.Equal(second.ID, chain[1].ID)
	})

	s.Run("queue filters by state", func() {
		pending, err := s.store.ListByState(s.ctx, models.ClaimStatePending)
		s.Require().NoError(err)
		s.Require().Len(pending, 1)
		s.Equal(second.ID, pending[0].ID)
	})
}

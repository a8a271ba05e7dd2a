package policy_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velvet/internal/claims/models"
	"velvet/internal/claims/policy"
	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
)

func TestCheckEvidence(t *testing.T) {
	cases := []struct {
		name     string
		evidence models.Evidence
		wantCode dErrors.Code
	}{
		{"selfie and document", models.Evidence{SelfieRef: "s", DocumentRef: "d"}, ""},
		{"phone token alone", models.Evidence{PhoneToken: "p"}, ""},
		{"both paths at once", models.Evidence{SelfieRef: "s", DocumentRef: "d", PhoneToken: "p"}, ""},
		{"nothing", models.Evidence{}, dErrors.CodeMissingEvidence},
		{"selfie alone", models.Evidence{SelfieRef: "s"}, dErrors.CodeMissingEvidence},
		{"document alone", models.Evidence{DocumentRef: "d"}, dErrors.CodeMissingEvidence},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := policy.CheckEvidence(models.ClaimTypeEstablishmentOwnership, tc.evidence)
			if tc.wantCode == "" {
				assert.NoError(t, err)
				return
			}
			assert.True(t, dErrors.HasCode(err, tc.wantCode))
		})
	}
}

func TestCheckTarget(t *testing.T) {
	claimant := id.NewActorID()
	owner := id.NewActorID()

	t.Run("ownership claim on an unclaimed venue", func(t *testing.T) {
		require.NoError(t, policy.CheckTarget(models.ClaimTypeEstablishmentOwnership, claimant, nil))
	})

	t.Run("ownership claim on an owned venue", func(t *testing.T) {
		err := policy.CheckTarget(models.ClaimTypeEstablishmentOwnership, claimant, &owner)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeResourceClaimed))
	})

	t.Run("claimant already controls the resource", func(t *testing.T) {
		err := policy.CheckTarget(models.ClaimTypeEstablishmentOwnership, claimant, &claimant)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyController))
	})

	t.Run("self-claim on an owner-created profile", func(t *testing.T) {
		require.NoError(t, policy.CheckTarget(models.ClaimTypeEmployeeSelfClaim, claimant, &owner))
	})

	t.Run("self-claim by the profile's controller", func(t *testing.T) {
		err := policy.CheckTarget(models.ClaimTypeEmployeeSelfClaim, claimant, &claimant)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyController))
	})
}

func TestCheckReviewer(t *testing.T) {
	owner := id.NewActorID()
	stranger := id.NewActorID()
	selfClaim := &models.Claim{ClaimType: models.ClaimTypeEmployeeSelfClaim}
	ownership := &models.Claim{ClaimType: models.ClaimTypeEstablishmentOwnership}

	t.Run("controller reviews their resource", func(t *testing.T) {
		require.NoError(t, policy.CheckReviewer(selfClaim, owner, id.RoleOwner, &owner))
	})

	t.Run("non-controller is refused even as moderator", func(t *testing.T) {
		err := policy.CheckReviewer(selfClaim, stranger, id.RoleModerator, &owner)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("moderator reviews house-managed resources", func(t *testing.T) {
		require.NoError(t, policy.CheckReviewer(ownership, stranger, id.RoleModerator, nil))
		require.NoError(t, policy.CheckReviewer(selfClaim, stranger, id.RoleModerator, nil))
	})

	t.Run("plain user cannot review house-managed resources", func(t *testing.T) {
		err := policy.CheckReviewer(ownership, stranger, id.RoleUser, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func TestCheckResolver(t *testing.T) {
	require.NoError(t, policy.CheckResolver(id.RoleAdmin))
	for _, role := range []id.Role{id.RoleUser, id.RoleOwner, id.RoleModerator} {
		err := policy.CheckResolver(role)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized), "role %s", role)
	}
}

func TestEffectFor(t *testing.T) {
	assert.Equal(t, policy.EffectTransferOwnership, policy.EffectFor(models.ClaimTypeEstablishmentOwnership))
	assert.Equal(t, policy.EffectMarkSelfManaged, policy.EffectFor(models.ClaimTypeEmployeeSelfClaim))
}

package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"velvet/internal/claims/models"
	id "velvet/pkg/domain"
	"velvet/pkg/platform/sentinel"
)

// Postgres persists claims in PostgreSQL. The one-active-claim invariant is
// enforced by a partial unique index over resource_id for non-terminal
// states, so it holds even across concurrent writers.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// Schema is the claims DDL. Applied by the integration harness and by
// deployments' migration step.
const Schema = `
CREATE TABLE IF NOT EXISTS claims (
    id               UUID PRIMARY KEY,
    resource_id      UUID NOT NULL,
    resource_kind    TEXT NOT NULL,
    claim_type       TEXT NOT NULL,
    tier             TEXT NOT NULL DEFAULT '',
    claimant_id      UUID NOT NULL,
    evidence         JSONB NOT NULL DEFAULT '{}'::jsonb,
    statement        TEXT NOT NULL DEFAULT '',
    state            TEXT NOT NULL,
    decisions        JSONB NOT NULL DEFAULT '[]'::jsonb,
    prior_controller UUID,
    prior_recorded   BOOLEAN NOT NULL DEFAULT FALSE,
    resubmission_of  UUID REFERENCES claims(id),
    resubmissions    INT NOT NULL DEFAULT 0,
    submitted_at     TIMESTAMPTZ NOT NULL,
    decided_at       TIMESTAMPTZ,
    updated_at       TIMESTAMPTZ NOT NULL,
    version          INT NOT NULL DEFAULT 1
);

CREATE UNIQUE INDEX IF NOT EXISTS claims_one_active_per_resource
    ON claims (resource_id)
    WHERE state NOT IN ('approved', 'rejected');

CREATE INDEX IF NOT EXISTS claims_by_resource ON claims (resource_id, submitted_at);
CREATE INDEX IF NOT EXISTS claims_by_state ON claims (state, submitted_at);
`

const claimColumns = `id, resource_id, resource_kind, claim_type, tier, claimant_id,
	evidence, statement, state, decisions, prior_controller, prior_recorded,
	resubmission_of, resubmissions, submitted_at, decided_at, updated_at, version`

func (s *Postgres) Create(ctx context.Context, claim *models.Claim) error {
	evidence, decisions, err := encodeClaim(claim)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx, `
INSERT INTO claims (id, resource_id, resource_kind, claim_type, tier, claimant_id,
	evidence, statement, state, decisions, prior_controller, prior_recorded,
	resubmission_of, resubmissions, submitted_at, decided_at, updated_at, version)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,1)`,
		claim.ID.String(), claim.ResourceID.String(), string(claim.ResourceKind),
		string(claim.ClaimType), string(claim.Tier), claim.ClaimantID.String(),
		evidence, claim.Statement, string(claim.State), decisions,
		actorIDString(claim.PriorController), claim.PriorRecorded,
		claimIDString(claim.ResubmissionOf), claim.Resubmissions,
		claim.SubmittedAt, claim.DecidedAt, claim.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "claims_one_active_per_resource" {
				return sentinel.ErrAlreadyUsed
			}
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert claim: %w", err)
	}
	claim.Version = 1
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, claimID id.ClaimID) (*models.Claim, error) {
	row := s.db.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1`, claimID.String())
	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find claim: %w", err)
	}
	return claim, nil
}

func (s *Postgres) ActiveByResource(ctx context.Context, resourceID id.ResourceID) (*models.Claim, error) {
	row := s.db.QueryRow(ctx, `
SELECT `+claimColumns+` FROM claims
WHERE resource_id = $1 AND state NOT IN ('approved', 'rejected')`,
		resourceID.String())
	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find active claim: %w", err)
	}
	return claim, nil
}

func (s *Postgres) ListByResource(ctx context.Context, resourceID id.ResourceID) ([]*models.Claim, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+claimColumns+` FROM claims
WHERE resource_id = $1
ORDER BY submitted_at, id`,
		resourceID.String())
	if err != nil {
		return nil, fmt.Errorf("list claims by resource: %w", err)
	}
	return collectClaims(rows)
}

func (s *Postgres) ListByState(ctx context.Context, state models.ClaimState) ([]*models.Claim, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+claimColumns+` FROM claims
WHERE state = $1
ORDER BY submitted_at, id`,
		string(state))
	if err != nil {
		return nil, fmt.Errorf("list claims by state: %w", err)
	}
	return collectClaims(rows)
}

// Execute runs validate and mutate against the claim row under FOR UPDATE.
// A terminal claim re-entering an active state re-takes the resource's slot;
// the partial unique index turns a lost race into sentinel.ErrConflict.
func (s *Postgres) Execute(
	ctx context.Context,
	claimID id.ClaimID,
	validate func(*models.Claim) error,
	mutate func(*models.Claim) error,
) (*models.Claim, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `SELECT `+claimColumns+` FROM claims WHERE id = $1 FOR UPDATE`, claimID.String())
	claim, err := scanClaim(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock claim: %w", err)
	}

	if err := validate(claim); err != nil {
		return nil, err
	}
	if err := mutate(claim); err != nil {
		return nil, err
	}

	evidence, decisions, err := encodeClaim(claim)
	if err != nil {
		return nil, err
	}
	claim.Version++
	_, err = tx.Exec(ctx, `
UPDATE claims SET
	evidence = $2, statement = $3, state = $4, decisions = $5,
	prior_controller = $6, prior_recorded = $7,
	decided_at = $8, updated_at = $9, version = $10
WHERE id = $1`,
		claim.ID.String(), evidence, claim.Statement, string(claim.State), decisions,
		actorIDString(claim.PriorController), claim.PriorRecorded,
		claim.DecidedAt, claim.UpdatedAt, claim.Version,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, sentinel.ErrConflict
		}
		return nil, fmt.Errorf("update claim: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return claim, nil
}

func encodeClaim(claim *models.Claim) (evidence, decisions []byte, err error) {
	evidence, err = json.Marshal(claim.Evidence)
	if err != nil {
		return nil, nil, fmt.Errorf("encode evidence: %w", err)
	}
	decisionsSlice := claim.Decisions
	if decisionsSlice == nil {
		decisionsSlice = []models.Decision{}
	}
	decisions, err = json.Marshal(decisionsSlice)
	if err != nil {
		return nil, nil, fmt.Errorf("encode decisions: %w", err)
	}
	return evidence, decisions, nil
}

func scanClaim(row pgx.Row) (*models.Claim, error) {
	var (
		claim          models.Claim
		claimID        string
		resourceID     string
		resourceKind   string
		claimType      string
		tier           string
		claimantID     string
		evidence       []byte
		state          string
		decisions      []byte
		priorCtrl      *string
		resubmissionOf *string
		decidedAt      *time.Time
	)
	err := row.Scan(&claimID, &resourceID, &resourceKind, &claimType, &tier, &claimantID,
		&evidence, &claim.Statement, &state, &decisions, &priorCtrl, &claim.PriorRecorded,
		&resubmissionOf, &claim.Resubmissions, &claim.SubmittedAt, &decidedAt,
		&claim.UpdatedAt, &claim.Version)
	if err != nil {
		return nil, err
	}

	if claim.ID, err = id.ParseClaimID(claimID); err != nil {
		return nil, fmt.Errorf("decode claim id: %w", err)
	}
	if claim.ResourceID, err = id.ParseResourceID(resourceID); err != nil {
		return nil, fmt.Errorf("decode resource id: %w", err)
	}
	if claim.ClaimantID, err = id.ParseActorID(claimantID); err != nil {
		return nil, fmt.Errorf("decode claimant id: %w", err)
	}
	claim.ResourceKind = models.ResourceKind(resourceKind)
	claim.ClaimType = models.ClaimType(claimType)
	claim.Tier = models.Tier(tier)
	claim.State = models.ClaimState(state)
	claim.DecidedAt = decidedAt

	if err := json.Unmarshal(evidence, &claim.Evidence); err != nil {
		return nil, fmt.Errorf("decode evidence: %w", err)
	}
	if err := json.Unmarshal(decisions, &claim.Decisions); err != nil {
		return nil, fmt.Errorf("decode decisions: %w", err)
	}
	if priorCtrl != nil {
		actorID, err := id.ParseActorID(*priorCtrl)
		if err != nil {
			return nil, fmt.Errorf("decode prior controller: %w", err)
		}
		claim.PriorController = &actorID
	}
	if resubmissionOf != nil {
		prevID, err := id.ParseClaimID(*resubmissionOf)
		if err != nil {
			return nil, fmt.Errorf("decode resubmission link: %w", err)
		}
		claim.ResubmissionOf = &prevID
	}
	return &claim, nil
}

func collectClaims(rows pgx.Rows) ([]*models.Claim, error) {
	defer rows.Close()
	var claims []*models.Claim
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, err
		}
		claims = append(claims, claim)
	}
	return claims, rows.Err()
}

func actorIDString(actorID *id.ActorID) *string {
	if actorID == nil {
		return nil
	}
	s := actorID.String()
	return &s
}

func claimIDString(claimID *id.ClaimID) *string {
	if claimID == nil {
		return nil
	}
	s := claimID.String()
	return &s
}

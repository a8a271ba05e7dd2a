package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"velvet/internal/payments/models"
	id "velvet/pkg/domain"
	"velvet/pkg/platform/sentinel"
)

// Postgres persists payment verifications in PostgreSQL.
type Postgres struct {
	db *pgxpool.Pool
}

func NewPostgres(db *pgxpool.Pool) *Postgres {
	return &Postgres{db: db}
}

// Schema is the payment_verifications DDL.
const Schema = `
CREATE TABLE IF NOT EXISTS payment_verifications (
    id               UUID PRIMARY KEY,
    establishment_id UUID NOT NULL,
    amount_cents     BIGINT NOT NULL,
    currency         TEXT NOT NULL,
    tier             TEXT NOT NULL,
    duration_days    INT NOT NULL,
    submitted_by     UUID NOT NULL,
    state            TEXT NOT NULL,
    notes            TEXT NOT NULL DEFAULT '',
    decided_by       UUID,
    decided_at       TIMESTAMPTZ,
    submitted_at     TIMESTAMPTZ NOT NULL,
    version          INT NOT NULL DEFAULT 1
);

CREATE INDEX IF NOT EXISTS payment_verifications_by_establishment
    ON payment_verifications (establishment_id, state);
`

const txColumns = `id, establishment_id, amount_cents, currency, tier, duration_days,
	submitted_by, state, notes, decided_by, decided_at, submitted_at, version`

func (s *Postgres) Create(ctx context.Context, tx *models.Transaction) error {
	_, err := s.db.Exec(ctx, `
INSERT INTO payment_verifications (id, establishment_id, amount_cents, currency, tier,
	duration_days, submitted_by, state, notes, decided_by, decided_at, submitted_at, version)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,1)`,
		tx.ID.String(), tx.EstablishmentID.String(), tx.AmountCents, tx.Currency, tx.Tier,
		tx.DurationDays, tx.SubmittedBy.String(), string(tx.State), tx.Notes,
		actorIDString(tx.DecidedBy), tx.DecidedAt, tx.SubmittedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert payment: %w", err)
	}
	tx.Version = 1
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	row := s.db.QueryRow(ctx, `SELECT `+txColumns+` FROM payment_verifications WHERE id = $1`, txID.String())
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return tx, nil
}

func (s *Postgres) ListByEstablishment(ctx context.Context, establishmentID id.EstablishmentID) ([]*models.Transaction, error) {
	rows, err := s.db.Query(ctx, `
SELECT `+txColumns+` FROM payment_verifications
WHERE establishment_id = $1
ORDER BY submitted_at, id`,
		establishmentID.String())
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()
	var txs []*models.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

// Execute runs validate and mutate against the row under FOR UPDATE, so
// concurrent decisions on the same transaction produce exactly one success.
func (s *Postgres) Execute(
	ctx context.Context,
	txID id.TransactionID,
	validate func(*models.Transaction) error,
	mutate func(*models.Transaction) error,
) (*models.Transaction, error) {
	dbTx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer dbTx.Rollback(ctx)

	row := dbTx.QueryRow(ctx, `SELECT `+txColumns+` FROM payment_verifications WHERE id = $1 FOR UPDATE`, txID.String())
	tx, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("lock payment: %w", err)
	}

	if err := validate(tx); err != nil {
		return nil, err
	}
	if err := mutate(tx); err != nil {
		return nil, err
	}

	tx.Version++
	_, err = dbTx.Exec(ctx, `
UPDATE payment_verifications SET
	state = $2, notes = $3, decided_by = $4, decided_at = $5, version = $6
WHERE id = $1`,
		tx.ID.String(), string(tx.State), tx.Notes,
		actorIDString(tx.DecidedBy), tx.DecidedAt, tx.Version,
	)
	if err != nil {
		return nil, fmt.Errorf("update payment: %w", err)
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return tx, nil
}

func scanTransaction(row pgx.Row) (*models.Transaction, error) {
	var (
		tx              models.Transaction
		txID            string
		establishmentID string
		submittedBy     string
		state           string
		decidedBy       *string
		decidedAt       *time.Time
	)
	err := row.Scan(&txID, &establishmentID, &tx.AmountCents, &tx.Currency, &tx.Tier,
		&tx.DurationDays, &submittedBy, &state, &tx.Notes, &decidedBy, &decidedAt,
		&tx.SubmittedAt, &tx.Version)
	if err != nil {
		return nil, err
	}

	if tx.ID, err = id.ParseTransactionID(txID); err != nil {
		return nil, fmt.Errorf("decode transaction id: %w", err)
	}
	if tx.EstablishmentID, err = id.ParseEstablishmentID(establishmentID); err != nil {
		return nil, fmt.Errorf("decode establishment id: %w", err)
	}
	if tx.SubmittedBy, err = id.ParseActorID(submittedBy); err != nil {
		return nil, fmt.Errorf("decode submitter id: %w", err)
	}
	tx.State = models.TransactionState(state)
	tx.DecidedAt = decidedAt
	if decidedBy != nil {
		actorID, err := id.ParseActorID(*decidedBy)
		if err != nil {
			return nil, fmt.Errorf("decode decider id: %w", err)
		}
		tx.DecidedBy = &actorID
	}
	return &tx, nil
}

func actorIDString(actorID *id.ActorID) *string {
	if actorID == nil {
		return nil
	}
	s := actorID.String()
	return &s
}

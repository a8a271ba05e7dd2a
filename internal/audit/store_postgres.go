package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	id "velvet/pkg/domain"
)

// Schema is the audit trail DDL, applied by migrations and the test harness.
// The table is append-only: no updates, no deletes.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_events (
	seq        BIGSERIAL PRIMARY KEY,
	ts         TIMESTAMPTZ NOT NULL,
	actor_id   UUID NOT NULL,
	actor_role TEXT NOT NULL,
	subject    TEXT NOT NULL,
	action     TEXT NOT NULL,
	reason     TEXT NOT NULL DEFAULT '',
	request_id TEXT NOT NULL DEFAULT '',
	client_ip  TEXT NOT NULL DEFAULT '',
	user_agent TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS audit_events_by_subject ON audit_events (subject, seq);
`

// PostgresStore persists the audit trail.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, event Event) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO audit_events (ts, actor_id, actor_role, subject, action, reason, request_id, client_ip, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		event.Timestamp,
		event.ActorID.String(),
		event.ActorRole.String(),
		event.Subject,
		event.Action,
		event.Reason,
		event.RequestID,
		event.ClientIP,
		event.UserAgent,
	)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListBySubject(ctx context.Context, subject string) ([]Event, error) {
	rows, err := s.db.Query(ctx, `
		SELECT ts, actor_id, actor_role, subject, action, reason, request_id, client_ip, user_agent
		FROM audit_events
		WHERE subject = $1
		ORDER BY seq`,
		subject,
	)
	if err != nil {
		return nil, fmt.Errorf("list audit events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, event)
	}
	return out, rows.Err()
}

func scanEvent(row pgx.Row) (Event, error) {
	var e Event
	var actorID, actorRole string
	if err := row.Scan(&e.Timestamp, &actorID, &actorRole, &e.Subject, &e.Action, &e.Reason, &e.RequestID, &e.ClientIP, &e.UserAgent); err != nil {
		return Event{}, fmt.Errorf("scan audit event: %w", err)
	}
	parsed, err := id.ParseActorID(actorID)
	if err != nil {
		return Event{}, fmt.Errorf("parse audit actor id: %w", err)
	}
	e.ActorID = parsed
	e.ActorRole = id.Role(actorRole)
	return e, nil
}

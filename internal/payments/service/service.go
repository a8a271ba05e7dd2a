// Package service is the cash verification ledger: owners record off-platform
// VIP payments, admins confirm or reject them. The decision shape mirrors the
// claim engine without a permission projection; a verified payment extends
// the establishment's subscription instead.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"velvet/internal/audit"
	"velvet/internal/notify"
	"velvet/internal/payments/metrics"
	"velvet/internal/payments/models"
	id "velvet/pkg/domain"
	dErrors "velvet/pkg/domain-errors"
	"velvet/pkg/platform/sentinel"
	"velvet/pkg/requestcontext"
)

// Store persists payment verification transactions.
type Store interface {
	Create(ctx context.Context, tx *models.Transaction) error
	FindByID(ctx context.Context, txID id.TransactionID) (*models.Transaction, error)
	ListByEstablishment(ctx context.Context, establishmentID id.EstablishmentID) ([]*models.Transaction, error)
	Execute(ctx context.Context, txID id.TransactionID, validate func(*models.Transaction) error, mutate func(*models.Transaction) error) (*models.Transaction, error)
}

// Subscriptions extends an establishment's VIP period. The anchor timestamp
// is the verification time so payment lag never shortens paid duration.
type Subscriptions interface {
	ExtendVIP(ctx context.Context, establishmentID id.EstablishmentID, from time.Time, days int) (time.Time, error)
}

// Notifier receives payment outcomes as events.
type Notifier interface {
	Emit(ctx context.Context, event notify.Event) error
}

// Audit receives the payment audit trail.
type Auditor interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store         Store
	subscriptions Subscriptions
	notifier      Notifier
	auditor       Auditor
	logger        *slog.Logger
	metrics       *metrics.Metrics
	tracer        trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithAuditor(a Auditor) Option {
	return func(s *Service) { s.auditor = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, subscriptions Subscriptions, opts ...Option) *Service {
	s := &Service{
		store:         store,
		subscriptions: subscriptions,
		tracer:        otel.Tracer("payments"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordRequest is an owner declaring a cash payment they made off-platform.
type RecordRequest struct {
	EstablishmentID id.EstablishmentID
	AmountCents     int64
	Currency        string
	Tier            string
	DurationDays    int
}

// Record creates a pending payment verification.
func (s *Service) Record(ctx context.Context, req RecordRequest) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "payments.Record")
	defer span.End()

	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	now := requestcontext.Now(ctx)
	tx, err := models.NewTransaction(id.NewTransactionID(), req.EstablishmentID,
		req.AmountCents, req.Currency, req.Tier, req.DurationDays, actorID, now)
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, tx); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to record payment")
	}

	s.audit(ctx, actorID, audit.ActionPaymentRecorded, tx.ID.String(), "")
	if s.metrics != nil {
		s.metrics.PaymentsRecorded.Inc()
	}
	s.log(ctx, "payment recorded",
		"transaction_id", tx.ID,
		"establishment_id", tx.EstablishmentID,
		"amount_cents", tx.AmountCents,
		"currency", tx.Currency,
	)
	return tx, nil
}

// Verify confirms a cash payment and extends the establishment's VIP
// subscription by the transaction's selected duration, anchored on the
// verification timestamp. Admin only: the submitting owner is the payer.
func (s *Service) Verify(ctx context.Context, txID id.TransactionID, notes string) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "payments.Verify")
	defer span.End()

	adminID, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	tx, err := s.store.Execute(ctx, txID,
		func(t *models.Transaction) error { return t.CanDecide() },
		func(t *models.Transaction) error { return t.ApplyVerify(adminID, notes, now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
		}
		return nil, err
	}

	expiry, err := s.subscriptions.ExtendVIP(ctx, tx.EstablishmentID, now, tx.DurationDays)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to extend subscription")
	}

	s.audit(ctx, adminID, audit.ActionPaymentVerified, tx.ID.String(), notes)
	s.emit(ctx, notify.Event{
		Type:          notify.EventPaymentVerified,
		TransactionID: tx.ID.String(),
		RecipientID:   tx.SubmittedBy,
		ReasonOrNotes: notes,
		OccurredAt:    now,
	})
	if s.metrics != nil {
		s.metrics.PaymentsVerified.Inc()
	}
	s.log(ctx, "payment verified",
		"transaction_id", tx.ID,
		"establishment_id", tx.EstablishmentID,
		"vip_expiry", expiry,
	)
	return tx, nil
}

// Reject declines a cash payment. The reason is surfaced to the owner.
func (s *Service) Reject(ctx context.Context, txID id.TransactionID, reason string) (*models.Transaction, error) {
	ctx, span := s.tracer.Start(ctx, "payments.Reject")
	defer span.End()

	adminID, err := s.requireAdmin(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	tx, err := s.store.Execute(ctx, txID,
		func(t *models.Transaction) error { return t.CanDecide() },
		func(t *models.Transaction) error { return t.ApplyReject(adminID, reason, now) },
	)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
		}
		return nil, err
	}

	s.audit(ctx, adminID, audit.ActionPaymentRejected, tx.ID.String(), reason)
	s.emit(ctx, notify.Event{
		Type:          notify.EventPaymentRejected,
		TransactionID: tx.ID.String(),
		RecipientID:   tx.SubmittedBy,
		ReasonOrNotes: reason,
		OccurredAt:    now,
	})
	if s.metrics != nil {
		s.metrics.PaymentsRejected.Inc()
	}
	s.log(ctx, "payment rejected", "transaction_id", tx.ID)
	return tx, nil
}

// Get returns a transaction to its submitter or an admin.
func (s *Service) Get(ctx context.Context, txID id.TransactionID) (*models.Transaction, error) {
	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	tx, err := s.store.FindByID(ctx, txID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "payment not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load payment")
	}
	if requestcontext.Role(ctx) != id.RoleAdmin && tx.SubmittedBy != actorID {
		return nil, dErrors.New(dErrors.CodeForbidden, "not involved with this payment")
	}
	return tx, nil
}

// ListByEstablishment returns an establishment's payment history. Admin only;
// this is the admin's review queue.
func (s *Service) ListByEstablishment(ctx context.Context, establishmentID id.EstablishmentID) ([]*models.Transaction, error) {
	if _, err := s.requireAdmin(ctx); err != nil {
		return nil, err
	}
	txs, err := s.store.ListByEstablishment(ctx, establishmentID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list payments")
	}
	return txs, nil
}

func (s *Service) requireAdmin(ctx context.Context) (id.ActorID, error) {
	actorID := requestcontext.ActorID(ctx)
	if actorID.IsNil() {
		return id.ActorID{}, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if requestcontext.Role(ctx) != id.RoleAdmin {
		return id.ActorID{}, dErrors.New(dErrors.CodeUnauthorized, "only an admin may decide cash payments")
	}
	return actorID, nil
}

func (s *Service) audit(ctx context.Context, actorID id.ActorID, action, subject, reason string) {
	if s.auditor == nil {
		return
	}
	_ = s.auditor.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		ActorID:   actorID,
		ActorRole: requestcontext.Role(ctx),
		Subject:   subject,
		Action:    action,
		Reason:    reason,
		RequestID: requestcontext.RequestID(ctx),
		ClientIP:  requestcontext.ClientIP(ctx),
		UserAgent: requestcontext.UserAgent(ctx),
	})
}

func (s *Service) emit(ctx context.Context, event notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Emit(ctx, event); err != nil {
		s.log(ctx, "failed to emit notification event", "type", event.Type, "error", err)
	}
}

func (s *Service) log(ctx context.Context, msg string, args ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		args = append(args, "request_id", requestID)
	}
	s.logger.InfoContext(ctx, msg, args...)
}

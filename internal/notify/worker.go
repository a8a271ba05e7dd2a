package notify

import (
	"context"
	"log/slog"
)

// Worker decouples event emission from the request path: services push onto
// the inbox, the worker forwards to the configured sink. A full inbox drops
// the event rather than blocking a decision - notifications are best-effort
// by contract, the claim record itself is the source of truth.
type Worker struct {
	sink   Emitter
	inbox  chan Event
	logger *slog.Logger
}

func NewWorker(sink Emitter, buffer int, logger *slog.Logger) *Worker {
	if buffer <= 0 {
		buffer = 256
	}
	return &Worker{
		sink:   sink,
		inbox:  make(chan Event, buffer),
		logger: logger,
	}
}

// Emit implements Emitter by enqueueing onto the inbox.
func (w *Worker) Emit(_ context.Context, event Event) error {
	select {
	case w.inbox <- event:
	default:
		if w.logger != nil {
			w.logger.Warn("notification inbox full, dropping event",
				"type", event.Type,
				"claim_id", event.ClaimID,
				"transaction_id", event.TransactionID,
			)
		}
	}
	return nil
}

// Run forwards events until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.sink.Emit(ctx, event); err != nil && w.logger != nil {
				w.logger.Error("failed to deliver notification event",
					"type", event.Type,
					"error", err,
				)
			}
		}
	}
}

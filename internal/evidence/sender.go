package evidence

import (
	"context"
	"log/slog"
)

// LogSender writes verification codes to the log instead of sending SMS.
// Dev-mode only; production wires the platform's SMS gateway here.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, phone, code string) error {
	s.logger.Info("phone verification code issued",
		"phone", phone,
		"code", code,
	)
	return nil
}

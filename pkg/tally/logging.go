package tally

import (
	"context"

	"go.uber.org/zap"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*Service)

// OperationLogger records domain-level events emitted by Service operations.
type OperationLogger interface {
	LogOperation(ctx context.Context, entry OperationLog)
}

// OperationLog describes a state-changing operation.
type OperationLog struct {
	Operation string
	SessionID SessionID
	GameID    GameID
	DebtID    DebtID
	Actor     PlayerID
	Amount    AmountCents
	Status    string
	Error     error
}

// WithOperationLogger wires a logger that receives callbacks for every operation.
func WithOperationLogger(logger OperationLogger) ServiceOption {
	return func(service *Service) {
		service.logger = logger
	}
}

// ZapOperationLogger adapts a zap logger to the OperationLogger interface.
type ZapOperationLogger struct {
	logger *zap.Logger
}

// NewZapOperationLogger wires a ZapOperationLogger.
func NewZapOperationLogger(logger *zap.Logger) *ZapOperationLogger {
	return &ZapOperationLogger{logger: logger.Named("tally")}
}

// LogOperation writes one structured line per operation.
func (adapter *ZapOperationLogger) LogOperation(_ context.Context, entry OperationLog) {
	fields := []zap.Field{
		zap.String("operation", entry.Operation),
		zap.String("status", entry.Status),
		zap.String("session_id", entry.SessionID.String()),
		zap.String("game_id", entry.GameID.String()),
		zap.String("debt_id", entry.DebtID.String()),
		zap.String("actor", entry.Actor.String()),
		zap.Int64("amount_cents", entry.Amount.Int64()),
	}
	if entry.Error != nil {
		adapter.logger.Warn("operation failed", append(fields, zap.Error(entry.Error))...)
		return
	}
	adapter.logger.Info("operation applied", fields...)
}

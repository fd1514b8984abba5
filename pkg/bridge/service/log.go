package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/bridge"
)

const serviceName = "BridgeService"

// logService wraps Service with automatic logging of all method calls
type logService struct {
	svc    Service
	logger *zap.Logger
}

// NewLog creates a logging decorator for the bridge Service.
// It logs method exit with duration and errors.
func NewLog(svc Service, logger *zap.Logger) Service {
	return &logService{
		svc:    svc,
		logger: logger,
	}
}

func (ls *logService) done(method string, start time.Time, err error, fields ...zap.Field) {
	fields = append(fields,
		zap.String("service", serviceName),
		zap.String("method", method),
		zap.Duration("duration", time.Since(start)),
	)
	if err != nil {
		ls.logger.Warn(method+" failed", append(fields, zap.Error(err))...)
		return
	}
	ls.logger.Info(method+" completed", fields...)
}

// Initiate wraps the service method with logging
func (ls *logService) Initiate(
	ctx context.Context,
	req *bridge.InitiateRequest,
) (resp *bridge.InitiateResponse, err error) {
	start := time.Now()
	defer func() {
		fields := []zap.Field{
			zap.String("source_chain", req.SourceChain),
			zap.String("payment_tx_hash", req.PaymentTxHash),
			zap.String("amount", req.Amount),
			zap.String("purpose", req.Purpose),
		}
		if resp != nil {
			fields = append(fields, zap.String("bridge_id", resp.ID))
		}
		ls.done("Initiate", start, err, fields...)
	}()

	return ls.svc.Initiate(ctx, req)
}

// Status is not logged on success; clients poll it.
func (ls *logService) Status(ctx context.Context, id string) (*bridge.Record, error) {
	rec, err := ls.svc.Status(ctx, id)
	if err != nil {
		ls.logger.Debug("Status failed",
			zap.String("service", serviceName),
			zap.String("bridge_id", id),
			zap.Error(err))
	}
	return rec, err
}

// Retry wraps the service method with logging
func (ls *logService) Retry(ctx context.Context, id string) (resp *bridge.InitiateResponse, err error) {
	start := time.Now()
	defer func() {
		fields := []zap.Field{zap.String("bridge_id", id)}
		if resp != nil {
			fields = append(fields, zap.String("status", string(resp.Status)))
		}
		ls.done("Retry", start, err, fields...)
	}()

	return ls.svc.Retry(ctx, id)
}

// Archived wraps the service method with logging
func (ls *logService) Archived(ctx context.Context, id string) (rec *bridge.Record, err error) {
	start := time.Now()
	defer func() {
		ls.done("Archived", start, err, zap.String("bridge_id", id))
	}()

	return ls.svc.Archived(ctx, id)
}

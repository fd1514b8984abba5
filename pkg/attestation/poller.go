package attestation

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/Facilitator-Network/agent-cli-backend/internal/metrics"
)

// ErrTimeout is returned when no attestation arrives within the polling window
var ErrTimeout = errors.New("attestation timeout")

// Fetcher retrieves a single attestation attempt
type Fetcher interface {
	Fetch(ctx context.Context, messageHash string) (string, error)
}

// Poller repeatedly asks a Fetcher for an attestation on a constant
// interval bounded by a total elapsed time.
type Poller struct {
	fetcher  Fetcher
	interval time.Duration
	timeout  time.Duration
	logger   *zap.Logger
}

// NewPoller creates a poller
func NewPoller(fetcher Fetcher, interval, timeout time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		timeout:  timeout,
		logger:   logger,
	}
}

// Poll blocks until an attestation is returned, the window closes (ErrTimeout)
// or ctx is canceled (ctx.Err()). Every fetch failure is treated as "not yet".
func (p *Poller) Poll(ctx context.Context, messageHash string) (string, error) {
	backoff := retry.WithMaxDuration(p.timeout, retry.NewConstant(p.interval))

	var (
		attestation string
		attempts    int
	)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		a, err := p.fetcher.Fetch(ctx, messageHash)
		if err != nil {
			if errors.Is(err, ErrNotAvailable) {
				metrics.AttestationPollsTotal.WithLabelValues("pending").Inc()
			} else {
				metrics.AttestationPollsTotal.WithLabelValues("error").Inc()
				p.logger.Debug("Attestation fetch failed",
					zap.String("message_hash", messageHash),
					zap.Int("attempt", attempts),
					zap.Error(err))
			}
			return retry.RetryableError(err)
		}
		attestation = a
		return nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		p.logger.Warn("Attestation polling window closed",
			zap.String("message_hash", messageHash),
			zap.Int("attempts", attempts),
			zap.Duration("timeout", p.timeout),
			zap.Error(err))
		return "", ErrTimeout
	}

	metrics.AttestationPollsTotal.WithLabelValues("complete").Inc()
	p.logger.Info("Attestation received",
		zap.String("message_hash", messageHash),
		zap.Int("attempts", attempts))
	return attestation, nil
}

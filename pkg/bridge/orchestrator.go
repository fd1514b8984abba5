package bridge

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Facilitator-Network/agent-cli-backend/internal/metrics"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/ethereum/contracts"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/statestore"
)

var (
	// ErrMissingParams is persisted when a record lacks a required transfer field
	ErrMissingParams = errors.New("missing bridge params")
	// ErrNotFound is returned for unknown or expired bridge ids
	ErrNotFound = errors.New("bridge not found")
	// ErrNotRetryable is returned when an operator retry cannot resume a record
	ErrNotRetryable = errors.New("bridge is not retryable")
	// ErrRunInProgress is returned when another run holds the record's lease
	ErrRunInProgress = errors.New("bridge run already in progress")
)

// Store is the persistence surface the orchestrator needs
type Store interface {
	CreateOrUpdate(ctx context.Context, id string, fields map[string]string) error
	Get(ctx context.Context, id string) (map[string]string, error)
	DeleteFields(ctx context.Context, id string, names ...string) error
	SetExpiry(ctx context.Context, id string, ttl time.Duration) error
	Claim(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
	Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
}

// AttestationPoller blocks until the oracle signs messageHash or gives up
type AttestationPoller interface {
	Poll(ctx context.Context, messageHash string) (string, error)
}

// TerminalHook receives every record that reaches completed or failed.
// Hook errors are logged and never change the record.
type TerminalHook interface {
	Name() string
	OnTerminal(ctx context.Context, rec *Record) error
}

// Options tunes run ownership
type Options struct {
	// RunLease bounds how long a crashed run can keep a record locked.
	// Live runs renew it every third of the lease.
	RunLease time.Duration
	// HookTimeout bounds each terminal hook call
	HookTimeout time.Duration
	// RecordTTL is re-applied when an operator resumes a record so it
	// stays readable for the resumed run. Zero keeps the original expiry.
	RecordTTL time.Duration
}

// Orchestrator drives bridge records through the burn, attest, mint sequence
type Orchestrator struct {
	store   Store
	sources map[string]SourceChain
	dest    DestinationChain
	poller  AttestationPoller
	hooks   []TerminalHook
	opts    Options
	abis    *cctpABIs
	logger  *zap.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewOrchestrator creates an orchestrator. Runs launched through it share a
// context that Stop cancels.
func NewOrchestrator(
	store Store,
	sources map[string]SourceChain,
	dest DestinationChain,
	poller AttestationPoller,
	opts Options,
	logger *zap.Logger,
	hooks ...TerminalHook,
) (*Orchestrator, error) {
	abis, err := loadCCTPABIs()
	if err != nil {
		return nil, err
	}
	if opts.RunLease <= 0 {
		opts.RunLease = time.Hour
	}
	if opts.HookTimeout <= 0 {
		opts.HookTimeout = 30 * time.Second
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Orchestrator{
		store:   store,
		sources: sources,
		dest:    dest,
		poller:  poller,
		hooks:   hooks,
		opts:    opts,
		abis:    abis,
		logger:  logger,
		now:     time.Now,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// SupportsChain reports whether name is a configured source chain
func (o *Orchestrator) SupportsChain(name string) bool {
	_, ok := o.sources[name]
	return ok
}

// Launch starts Run(id) in the background. The caller does not wait for it
// and never sees its errors.
func (o *Orchestrator) Launch(id string) {
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		if err := o.Run(o.ctx, id); err != nil {
			o.logger.Warn("Bridge run ended with error", zap.String("bridge_id", id), zap.Error(err))
		}
	}()
}

// Stop cancels in-flight runs and waits for them to return. Interrupted
// records stay at their last persisted status.
func (o *Orchestrator) Stop() {
	o.logger.Info("Stopping bridge orchestrator")
	o.cancel()
	o.wg.Wait()
	o.logger.Info("Bridge orchestrator stopped")
}

func leaseKey(id string) string {
	return "run:" + id
}

// Run executes the state machine for a freshly initiated record. Terminal
// records are left untouched; records already mid-flight are only resumed
// through Resume.
func (o *Orchestrator) Run(ctx context.Context, id string) error {
	owner := uuid.NewString()
	ok, err := o.store.Claim(ctx, leaseKey(id), owner, o.opts.RunLease)
	if err != nil {
		return fmt.Errorf("claim run lease: %w", err)
	}
	if !ok {
		return ErrRunInProgress
	}
	defer o.release(ctx, id, owner)

	logger := o.logger.With(zap.String("bridge_id", id), zap.String("run_id", owner))
	ctx, stopHold := o.hold(ctx, id, owner, logger)
	defer stopHold()

	rec, err := o.load(ctx, id)
	if err != nil {
		return err
	}

	switch {
	case rec.Status.Terminal():
		logger.Debug("Bridge already terminal, nothing to do", zap.String("status", string(rec.Status)))
		return nil
	case rec.Status != StatusInitiated:
		logger.Warn("Bridge is mid-flight, refusing automatic run", zap.String("status", string(rec.Status)))
		return nil
	}

	return o.drive(ctx, rec, logger)
}

// Resume restarts a failed or stranded record from the last step it can
// prove: the mint if an attestation is stored, otherwise attestation polling
// if the burn message is stored. Records that never produced a burn message
// cannot be resumed because burning again could move funds twice.
//
// The record is read only after the run lease is held, so a run that
// finished in between is seen as terminal and never repeated.
func (o *Orchestrator) Resume(ctx context.Context, id string) (*Record, error) {
	owner := uuid.NewString()
	ok, err := o.store.Claim(ctx, leaseKey(id), owner, o.opts.RunLease)
	if err != nil {
		return nil, fmt.Errorf("claim run lease: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}

	logger := o.logger.With(zap.String("bridge_id", id), zap.String("run_id", owner))
	rec, err := o.rewind(ctx, id, logger)
	if err != nil {
		o.release(ctx, id, owner)
		return nil, err
	}

	resumed := *rec
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.release(o.ctx, id, owner)
		runCtx, stopHold := o.hold(o.ctx, id, owner, logger)
		defer stopHold()
		if err := o.drive(runCtx, rec, logger); err != nil {
			logger.Warn("Resumed bridge run ended with error", zap.Error(err))
		}
	}()

	return &resumed, nil
}

// rewind loads id and persists it at the status Resume restarts from.
// The caller must hold the run lease.
func (o *Orchestrator) rewind(ctx context.Context, id string, logger *zap.Logger) (*Record, error) {
	rec, err := o.load(ctx, id)
	if err != nil {
		return nil, err
	}

	switch rec.Status {
	case StatusFailed, StatusMessageSent, StatusPollingAttestation, StatusAttestationReceived:
	default:
		return nil, fmt.Errorf("%w: status %s", ErrNotRetryable, rec.Status)
	}

	var from Status
	switch {
	case rec.Attestation != "" && rec.MessageBytes != "":
		from = StatusAttestationReceived
	case rec.MessageBytes != "" && rec.MessageHash != "":
		from = StatusPollingAttestation
	default:
		return nil, fmt.Errorf("%w: no burn message recorded", ErrNotRetryable)
	}

	rec.Status = from
	rec.Error = ""
	rec.CompletedAt = nil
	rec.RetryCount++
	stale := []string{FieldError, FieldCompletedAt}
	if from == StatusPollingAttestation {
		rec.Attestation = ""
		stale = append(stale, FieldAttestation)
	}

	if err := o.store.DeleteFields(ctx, id, stale...); err != nil {
		return nil, err
	}
	if err := o.store.CreateOrUpdate(ctx, id, rec.Subset(FieldStatus, FieldRetryCount)); err != nil {
		return nil, err
	}

	if o.opts.RecordTTL > 0 {
		if err := o.store.SetExpiry(ctx, id, o.opts.RecordTTL); err != nil {
			logger.Warn("Failed to extend record expiry", zap.Error(err))
		}
	}
	logger.Info("Bridge resumed by operator",
		zap.String("from_status", string(from)),
		zap.Int("retry_count", rec.RetryCount))
	return rec, nil
}

// hold renews the run lease until the returned stop func is called. The
// returned context is cancelled if another owner has taken the lease, which
// leaves the record at its last checkpoint.
func (o *Orchestrator) hold(ctx context.Context, id, owner string, logger *zap.Logger) (context.Context, func()) {
	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(max(o.opts.RunLease/3, time.Millisecond))
		defer ticker.Stop()

		for {
			select {
			case <-runCtx.Done():
				return
			case <-ticker.C:
			}

			ok, err := o.store.Extend(runCtx, leaseKey(id), owner, o.opts.RunLease)
			switch {
			case err != nil:
				if runCtx.Err() != nil {
					return
				}
				metrics.ErrorsTotal.WithLabelValues("orchestrator", "lease_renew").Inc()
				logger.Warn("Failed to renew run lease", zap.Error(err))
			case !ok:
				metrics.ErrorsTotal.WithLabelValues("orchestrator", "lease_lost").Inc()
				logger.Error("Run lease lost, stopping run")
				cancel()
				return
			}
		}
	}()

	return runCtx, func() {
		cancel()
		<-done
	}
}

func (o *Orchestrator) release(ctx context.Context, id, owner string) {
	if err := o.store.Release(context.WithoutCancel(ctx), leaseKey(id), owner); err != nil {
		o.logger.Warn("Failed to release run lease", zap.String("bridge_id", id), zap.Error(err))
	}
}

func (o *Orchestrator) load(ctx context.Context, id string) (*Record, error) {
	fields, err := o.store.Get(ctx, id)
	if errors.Is(err, statestore.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load bridge %s: %w", id, err)
	}
	return RecordFromFields(fields)
}

// drive advances rec until it is terminal or ctx ends
func (o *Orchestrator) drive(ctx context.Context, rec *Record, logger *zap.Logger) (err error) {
	metrics.InFlightRuns.Inc()
	defer metrics.InFlightRuns.Dec()

	started := o.now()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("Bridge run panicked", zap.Any("panic", r), zap.Stack("stack"))
			err = fmt.Errorf("panic: %v", r)
			o.fail(ctx, rec, err, logger)
			o.finish(ctx, rec, started, logger)
		}
	}()

	for !rec.Status.Terminal() {
		if ctxErr := ctx.Err(); ctxErr != nil {
			logger.Info("Bridge run interrupted", zap.String("status", string(rec.Status)))
			return ctxErr
		}

		from := rec.Status
		stepStart := time.Now()
		next, changed, stepErr := o.step(ctx, rec, logger)
		metrics.StepDuration.WithLabelValues(string(from)).Observe(time.Since(stepStart).Seconds())

		if stepErr != nil {
			if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(stepErr, ctxErr) {
				logger.Info("Bridge run interrupted", zap.String("status", string(rec.Status)))
				return ctxErr
			}
			logger.Error("Bridge step failed",
				zap.String("status", string(from)),
				zap.Error(stepErr))
			if err := o.fail(ctx, rec, stepErr, logger, changed...); err != nil {
				return err
			}
			break
		}

		if err := o.transition(ctx, rec, next, logger, changed...); err != nil {
			// the step's results are only in memory; keep them with the failure
			if err := o.fail(ctx, rec, err, logger, changed...); err != nil {
				return err
			}
			break
		}
	}

	o.finish(ctx, rec, started, logger)
	return nil
}

// step performs the action for rec.Status, mutating rec with any new data.
// It returns the next status and the names of the fields it set.
func (o *Orchestrator) step(ctx context.Context, rec *Record, logger *zap.Logger) (Status, []string, error) {
	switch rec.Status {
	case StatusInitiated:
		if _, err := o.params(rec); err != nil {
			return "", nil, err
		}
		return StatusApproved, nil, nil

	case StatusApproved:
		p, err := o.params(rec)
		if err != nil {
			return "", nil, err
		}
		receipt, err := p.src.Client.Transact(ctx, p.src.USDC, o.abis.erc20, contracts.MethodApprove, p.src.TokenMessenger, p.amount)
		if err != nil {
			return "", nil, fmt.Errorf("approve: %w", err)
		}
		rec.ApproveTx = receipt.TxHash.Hex()
		return StatusDeposited, []string{FieldApproveTx}, nil

	case StatusDeposited:
		p, err := o.params(rec)
		if err != nil {
			return "", nil, err
		}
		receipt, err := p.src.Client.Transact(ctx, p.src.TokenMessenger, o.abis.messenger, contracts.MethodDepositForBurn,
			p.amount, o.dest.Domain, RecipientBytes32(p.recipient), p.src.USDC)
		if err != nil {
			return "", nil, fmt.Errorf("depositForBurn: %w", err)
		}
		rec.DepositForBurnTx = receipt.TxHash.Hex()

		msg, hash, err := extractMessage(p.src.Client, receipt, p.src.MessageTransmitter, o.abis.transmitter)
		if err != nil {
			return "", []string{FieldDepositForBurnTx}, err
		}
		rec.MessageBytes = hexutil.Encode(msg)
		rec.MessageHash = hash.Hex()
		logger.Info("Burn message extracted",
			zap.String("deposit_tx", rec.DepositForBurnTx),
			zap.String("message_hash", rec.MessageHash))
		return StatusMessageSent, []string{FieldDepositForBurnTx, FieldMessageBytes, FieldMessageHash}, nil

	case StatusMessageSent:
		return StatusPollingAttestation, nil, nil

	case StatusPollingAttestation:
		attestation, err := o.poller.Poll(ctx, rec.MessageHash)
		if err != nil {
			return "", nil, err
		}
		rec.Attestation = attestation
		return StatusAttestationReceived, []string{FieldAttestation}, nil

	case StatusAttestationReceived:
		msg, err := decodeHexField(FieldMessageBytes, rec.MessageBytes)
		if err != nil {
			return "", nil, err
		}
		attestation, err := decodeHexField(FieldAttestation, rec.Attestation)
		if err != nil {
			return "", nil, err
		}
		receipt, err := o.dest.Client.Transact(ctx, o.dest.MessageTransmitter, o.abis.transmitter, contracts.MethodReceiveMessage, msg, attestation)
		if err != nil {
			return "", nil, fmt.Errorf("receiveMessage: %w", err)
		}
		rec.ReceiveMessageTx = receipt.TxHash.Hex()
		completedAt := o.now().UTC()
		rec.CompletedAt = &completedAt
		return StatusCompleted, []string{FieldReceiveMessageTx, FieldCompletedAt}, nil
	}

	return "", nil, fmt.Errorf("no step for status %q", rec.Status)
}

type runParams struct {
	src       SourceChain
	amount    *big.Int
	recipient common.Address
}

func (o *Orchestrator) params(rec *Record) (*runParams, error) {
	if rec.SourceChain == "" || rec.Amount == "" || rec.FinalRecipient == "" {
		return nil, ErrMissingParams
	}
	src, ok := o.sources[rec.SourceChain]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported source chain %q", ErrMissingParams, rec.SourceChain)
	}
	amount, err := ParseAmount(rec.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingParams, err)
	}
	if !common.IsHexAddress(rec.FinalRecipient) {
		return nil, fmt.Errorf("%w: invalid final recipient", ErrMissingParams)
	}
	return &runParams{
		src:       src,
		amount:    amount,
		recipient: common.HexToAddress(rec.FinalRecipient),
	}, nil
}

// transition persists rec at status next along with the named fields. The
// write ignores cancellation because the step's chain effects already happened.
func (o *Orchestrator) transition(ctx context.Context, rec *Record, next Status, logger *zap.Logger, changed ...string) error {
	if !CanTransition(rec.Status, next) {
		return fmt.Errorf("illegal transition %s -> %s", rec.Status, next)
	}
	prev := rec.Status
	rec.Status = next

	fields := rec.Subset(append(changed, FieldStatus)...)
	if err := o.store.CreateOrUpdate(context.WithoutCancel(ctx), rec.ID, fields); err != nil {
		rec.Status = prev
		metrics.ErrorsTotal.WithLabelValues("orchestrator", "store_write").Inc()
		return fmt.Errorf("persist %s: %w", next, err)
	}

	metrics.TransitionsTotal.WithLabelValues(string(next)).Inc()
	logger.Info("Bridge status changed",
		zap.String("from", string(prev)),
		zap.String("to", string(next)))
	return nil
}

// fail persists rec as failed with cause and any fields gathered before the failure
func (o *Orchestrator) fail(ctx context.Context, rec *Record, cause error, logger *zap.Logger, changed ...string) error {
	from := rec.Status
	completedAt := o.now().UTC()
	rec.Status = StatusFailed
	rec.Error = cause.Error()
	rec.CompletedAt = &completedAt

	fields := rec.Subset(append(changed, FieldStatus, FieldError, FieldCompletedAt)...)
	if err := o.store.CreateOrUpdate(context.WithoutCancel(ctx), rec.ID, fields); err != nil {
		metrics.ErrorsTotal.WithLabelValues("orchestrator", "store_write").Inc()
		logger.Error("Failed to persist bridge failure", zap.Error(err), zap.NamedError("cause", cause))
		return fmt.Errorf("persist failure: %w", err)
	}

	metrics.TransitionsTotal.WithLabelValues(string(StatusFailed)).Inc()
	logger.Warn("Bridge failed",
		zap.String("from", string(from)),
		zap.String("error", rec.Error))
	return nil
}

func (o *Orchestrator) finish(ctx context.Context, rec *Record, started time.Time, logger *zap.Logger) {
	metrics.BridgeRunsTotal.WithLabelValues(rec.SourceChain, string(rec.Status)).Inc()
	metrics.RunDuration.WithLabelValues(rec.SourceChain, string(rec.Status)).Observe(o.now().Sub(started).Seconds())

	if rec.Status == StatusCompleted {
		logger.Info("Bridge completed",
			zap.String("deposit_tx", rec.DepositForBurnTx),
			zap.String("receive_tx", rec.ReceiveMessageTx))
	}

	hookCtx := context.WithoutCancel(ctx)
	for _, h := range o.hooks {
		snapshot := *rec
		callCtx, cancel := context.WithTimeout(hookCtx, o.opts.HookTimeout)
		if err := h.OnTerminal(callCtx, &snapshot); err != nil {
			metrics.ErrorsTotal.WithLabelValues("terminal_hook", h.Name()).Inc()
			logger.Warn("Terminal hook failed", zap.String("hook", h.Name()), zap.Error(err))
		}
		cancel()
	}
}

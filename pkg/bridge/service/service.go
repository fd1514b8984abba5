package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/Facilitator-Network/agent-cli-backend/internal/metrics"
	apperrors "github.com/Facilitator-Network/agent-cli-backend/pkg/app/errors"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/bridge"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/statestore"
)

// createAttempts bounds id regeneration when two intakes land on the same
// millisecond with the same hash prefix.
const createAttempts = 3

var (
	ErrNotConfigured      = errors.New("bridge relay is not configured")
	ErrUnsupportedChain   = errors.New("unsupported source chain")
	ErrDuplicatePayment   = errors.New("payment already used for a bridge")
	ErrInvalidID          = errors.New("invalid bridge id")
	ErrArchiveUnavailable = errors.New("bridge archive is not enabled")
)

// Store is the narrow state-store interface intake needs
type Store interface {
	CreateIfAbsent(ctx context.Context, id string, fields map[string]string, ttl time.Duration) (bool, error)
	Get(ctx context.Context, id string) (map[string]string, error)
	Claim(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

// Runner starts and resumes orchestrator runs
type Runner interface {
	SupportsChain(name string) bool
	Launch(id string)
	Resume(ctx context.Context, id string) (*bridge.Record, error)
}

// Archive looks up records that have aged out of the state store
type Archive interface {
	Get(ctx context.Context, id string) (*bridge.Record, error)
}

// Service defines the bridge intake and status operations
//
//go:generate mockery --name Service --output mocks --outpkg mocks --filename mock_service.go --with-expecter
type Service interface {
	Initiate(ctx context.Context, req *bridge.InitiateRequest) (*bridge.InitiateResponse, error)
	Status(ctx context.Context, id string) (*bridge.Record, error)
	Retry(ctx context.Context, id string) (*bridge.InitiateResponse, error)
	Archived(ctx context.Context, id string) (*bridge.Record, error)
}

// Options holds intake settings
type Options struct {
	RecordTTL       time.Duration
	PaymentClaimTTL time.Duration
	// RelayKeyConfigured is false when no signing key was provided; intake
	// then refuses new work.
	RelayKeyConfigured bool
}

type bridgeService struct {
	store    Store
	runner   Runner
	archive  Archive
	opts     Options
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewService creates the bridge service. store and runner may be nil when the
// state store or relay key is missing; every operation then answers 503.
// archive may be nil when archiving is disabled.
func NewService(store Store, runner Runner, archive Archive, opts Options, logger *zap.Logger) Service {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &bridgeService{
		store:    store,
		runner:   runner,
		archive:  archive,
		opts:     opts,
		validate: v,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *bridgeService) configured() bool {
	return s.store != nil && s.runner != nil && s.opts.RelayKeyConfigured
}

func paymentKey(hash string) string {
	return "payment:" + strings.ToLower(hash)
}

// Initiate validates the request, creates the record and launches a run.
// It returns as soon as the record is stored.
//
// Order of checks:
//  1. store and relay key configured (503)
//  2. fields present and well formed, chain supported, amount parseable (400)
//  3. payment hash not already claimed (409)
//  4. record created under a fresh id
func (s *bridgeService) Initiate(ctx context.Context, req *bridge.InitiateRequest) (*bridge.InitiateResponse, error) {
	if !s.configured() {
		metrics.InitiateRequestsTotal.WithLabelValues("unavailable").Inc()
		return nil, apperrors.UnavailableError(ErrNotConfigured, "bridge relay is not configured")
	}

	if err := s.validateRequest(req); err != nil {
		metrics.InitiateRequestsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	createdAt := s.now().UTC()
	id := bridge.NewID(createdAt, req.PaymentTxHash)

	claimed, err := s.store.Claim(ctx, paymentKey(req.PaymentTxHash), id, s.opts.PaymentClaimTTL)
	if err != nil {
		metrics.InitiateRequestsTotal.WithLabelValues("error").Inc()
		return nil, apperrors.DependencyError(err, "state store unavailable")
	}
	if !claimed {
		metrics.InitiateRequestsTotal.WithLabelValues("duplicate").Inc()
		return nil, apperrors.ConflictError(ErrDuplicatePayment, "payment already used for a bridge")
	}

	rec := &bridge.Record{
		SourceChain:    req.SourceChain,
		Amount:         strings.TrimSpace(req.Amount),
		FinalRecipient: req.FinalRecipient,
		Purpose:        req.Purpose,
		PaymentTxHash:  strings.ToLower(req.PaymentTxHash),
		Status:         bridge.StatusInitiated,
		CreatedAt:      createdAt,
	}

	created := false
	for attempt := 0; attempt < createAttempts && !created; attempt++ {
		rec.ID = bridge.NewID(createdAt.Add(time.Duration(attempt)*time.Millisecond), req.PaymentTxHash)
		created, err = s.store.CreateIfAbsent(ctx, rec.ID, rec.Fields(), s.opts.RecordTTL)
		if err != nil {
			break
		}
	}
	if err != nil || !created {
		s.releaseClaim(ctx, req.PaymentTxHash, id)
		metrics.InitiateRequestsTotal.WithLabelValues("error").Inc()
		if err == nil {
			err = fmt.Errorf("no free id after %d attempts", createAttempts)
		}
		return nil, apperrors.DependencyError(err, "failed to create bridge record")
	}

	s.runner.Launch(rec.ID)
	metrics.InitiateRequestsTotal.WithLabelValues("accepted").Inc()

	return &bridge.InitiateResponse{ID: rec.ID, Status: rec.Status}, nil
}

func (s *bridgeService) releaseClaim(ctx context.Context, hash, owner string) {
	if err := s.store.Release(context.WithoutCancel(ctx), paymentKey(hash), owner); err != nil {
		s.logger.Warn("Failed to release payment claim", zap.String("payment_tx_hash", hash), zap.Error(err))
	}
}

func (s *bridgeService) validateRequest(req *bridge.InitiateRequest) error {
	if req.SourceChain == "" || req.PaymentTxHash == "" || req.Amount == "" ||
		req.FinalRecipient == "" || req.Purpose == "" {
		return apperrors.BadRequestError(bridge.ErrMissingParams, "missing required fields")
	}

	if err := s.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return apperrors.BadRequestError(err, "invalid "+verrs[0].Field())
		}
		return apperrors.BadRequestError(err, "invalid request")
	}

	if !s.runner.SupportsChain(req.SourceChain) {
		return apperrors.BadRequestError(fmt.Errorf("%w: %s", ErrUnsupportedChain, req.SourceChain), "unsupported source chain")
	}

	if _, err := bridge.ParseAmount(req.Amount); err != nil {
		return apperrors.BadRequestError(err, "invalid amount")
	}
	return nil
}

// Status returns the stored record for id
func (s *bridgeService) Status(ctx context.Context, id string) (*bridge.Record, error) {
	if s.store == nil {
		return nil, apperrors.UnavailableError(ErrNotConfigured, "bridge state store is not configured")
	}
	if !bridge.ValidID(id) {
		return nil, apperrors.BadRequestError(ErrInvalidID, "invalid bridge id")
	}

	fields, err := s.store.Get(ctx, id)
	if errors.Is(err, statestore.ErrNotFound) {
		return nil, apperrors.ResourceNotFoundError(bridge.ErrNotFound, "bridge not found")
	}
	if err != nil {
		return nil, apperrors.DependencyError(err, "state store unavailable")
	}

	rec, err := bridge.RecordFromFields(fields)
	if err != nil {
		return nil, apperrors.GeneralError(err)
	}
	return rec, nil
}

// Retry resumes a failed or stranded record from its last proven step
func (s *bridgeService) Retry(ctx context.Context, id string) (*bridge.InitiateResponse, error) {
	if !s.configured() {
		return nil, apperrors.UnavailableError(ErrNotConfigured, "bridge relay is not configured")
	}
	if !bridge.ValidID(id) {
		return nil, apperrors.BadRequestError(ErrInvalidID, "invalid bridge id")
	}

	rec, err := s.runner.Resume(ctx, id)
	switch {
	case errors.Is(err, bridge.ErrNotFound):
		return nil, apperrors.ResourceNotFoundError(err, "bridge not found")
	case errors.Is(err, bridge.ErrNotRetryable):
		return nil, apperrors.ConflictError(err, "bridge cannot be retried")
	case errors.Is(err, bridge.ErrRunInProgress):
		return nil, apperrors.ConflictError(err, "bridge run already in progress")
	case err != nil:
		return nil, apperrors.DependencyError(err, "failed to resume bridge")
	}

	return &bridge.InitiateResponse{ID: rec.ID, Status: rec.Status}, nil
}

// Archived returns a terminal record from the long-term archive
func (s *bridgeService) Archived(ctx context.Context, id string) (*bridge.Record, error) {
	if s.archive == nil {
		return nil, apperrors.UnavailableError(ErrArchiveUnavailable, "bridge archive is not enabled")
	}
	if !bridge.ValidID(id) {
		return nil, apperrors.BadRequestError(ErrInvalidID, "invalid bridge id")
	}

	rec, err := s.archive.Get(ctx, id)
	if errors.Is(err, bridge.ErrNotFound) {
		return nil, apperrors.ResourceNotFoundError(err, "bridge not found")
	}
	if err != nil {
		return nil, apperrors.DependencyError(err, "archive unavailable")
	}
	return rec, nil
}

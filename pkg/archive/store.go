// Package archive keeps a durable Postgres copy of every bridge record that
// reaches a terminal status, so records stay queryable after the state store
// expires them.
package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/bridge"
)

// Store defines archive persistence
type Store interface {
	Save(ctx context.Context, rec *bridge.Record) error
	Get(ctx context.Context, id string) (*bridge.Record, error)
}

type pgStore struct {
	db *bun.DB
}

// NewStore creates a new postgres implementation of the archive store
func NewStore(db *bun.DB) Store {
	return &pgStore{db: db}
}

// Save upserts rec. A record archived as failed and later completed by an
// operator retry is overwritten with its final state.
func (s *pgStore) Save(ctx context.Context, rec *bridge.Record) error {
	dao := toRecordDao(rec)

	_, err := s.db.NewInsert().
		Model(dao).
		On("CONFLICT (id) DO UPDATE").
		Set("status = EXCLUDED.status").
		Set("approve_tx = EXCLUDED.approve_tx").
		Set("deposit_for_burn_tx = EXCLUDED.deposit_for_burn_tx").
		Set("message_bytes = EXCLUDED.message_bytes").
		Set("message_hash = EXCLUDED.message_hash").
		Set("attestation = EXCLUDED.attestation").
		Set("receive_message_tx = EXCLUDED.receive_message_tx").
		Set("error = EXCLUDED.error").
		Set("retry_count = EXCLUDED.retry_count").
		Set("completed_at = EXCLUDED.completed_at").
		Set("archived_at = current_timestamp").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to archive bridge record: %w", err)
	}
	return nil
}

func (s *pgStore) Get(ctx context.Context, id string) (*bridge.Record, error) {
	dao := new(RecordDao)
	err := s.db.NewSelect().
		Model(dao).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, bridge.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get archived bridge record: %w", err)
	}
	return toRecord(dao), nil
}

// Hook archives terminal records as an orchestrator terminal hook
type Hook struct {
	store  Store
	logger *zap.Logger
}

// NewHook creates an archive hook
func NewHook(store Store, logger *zap.Logger) *Hook {
	return &Hook{store: store, logger: logger}
}

// Name implements bridge.TerminalHook
func (h *Hook) Name() string { return "archive" }

// OnTerminal implements bridge.TerminalHook
func (h *Hook) OnTerminal(ctx context.Context, rec *bridge.Record) error {
	if err := h.store.Save(ctx, rec); err != nil {
		return err
	}
	h.logger.Debug("Bridge record archived",
		zap.String("bridge_id", rec.ID),
		zap.String("status", string(rec.Status)))
	return nil
}

package archive

import (
	"time"

	"github.com/uptrace/bun"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/bridge"
)

// RecordDao maps a terminal bridge record to the 'bridge_records' table
type RecordDao struct {
	bun.BaseModel    `bun:"table:bridge_records,alias:br"`
	ID               string     `bun:"id,pk,type:varchar(64)"`
	SourceChain      string     `bun:"source_chain,notnull,type:varchar(64)"`
	Amount           string     `bun:"amount,notnull,type:numeric(38,6)"`
	FinalRecipient   string     `bun:"final_recipient,notnull,type:varchar(42)"`
	Purpose          string     `bun:"purpose,notnull,type:varchar(256)"`
	PaymentTxHash    *string    `bun:"payment_tx_hash,type:varchar(66)"`
	Status           string     `bun:"status,notnull,type:varchar(32)"`
	ApproveTx        *string    `bun:"approve_tx,type:varchar(66)"`
	DepositForBurnTx *string    `bun:"deposit_for_burn_tx,type:varchar(66)"`
	MessageBytes     *string    `bun:"message_bytes,type:text"`
	MessageHash      *string    `bun:"message_hash,type:varchar(66)"`
	Attestation      *string    `bun:"attestation,type:text"`
	ReceiveMessageTx *string    `bun:"receive_message_tx,type:varchar(66)"`
	Error            *string    `bun:"error,type:text"`
	RetryCount       int        `bun:"retry_count,notnull,default:0"`
	CreatedAt        time.Time  `bun:"created_at,notnull"`
	CompletedAt      *time.Time `bun:"completed_at"`
	ArchivedAt       time.Time  `bun:"archived_at,nullzero,notnull,default:current_timestamp"`
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// toRecordDao converts a bridge.Record to RecordDao
func toRecordDao(rec *bridge.Record) *RecordDao {
	return &RecordDao{
		ID:               rec.ID,
		SourceChain:      rec.SourceChain,
		Amount:           rec.Amount,
		FinalRecipient:   rec.FinalRecipient,
		Purpose:          rec.Purpose,
		PaymentTxHash:    optional(rec.PaymentTxHash),
		Status:           string(rec.Status),
		ApproveTx:        optional(rec.ApproveTx),
		DepositForBurnTx: optional(rec.DepositForBurnTx),
		MessageBytes:     optional(rec.MessageBytes),
		MessageHash:      optional(rec.MessageHash),
		Attestation:      optional(rec.Attestation),
		ReceiveMessageTx: optional(rec.ReceiveMessageTx),
		Error:            optional(rec.Error),
		RetryCount:       rec.RetryCount,
		CreatedAt:        rec.CreatedAt,
		CompletedAt:      rec.CompletedAt,
	}
}

// toRecord converts a RecordDao back to a bridge.Record. Amount comes back
// from numeric(38,6) with trailing zeros, e.g. "25.000000".
func toRecord(dao *RecordDao) *bridge.Record {
	rec := &bridge.Record{
		ID:               dao.ID,
		SourceChain:      dao.SourceChain,
		Amount:           dao.Amount,
		FinalRecipient:   dao.FinalRecipient,
		Purpose:          dao.Purpose,
		PaymentTxHash:    deref(dao.PaymentTxHash),
		Status:           bridge.Status(dao.Status),
		ApproveTx:        deref(dao.ApproveTx),
		DepositForBurnTx: deref(dao.DepositForBurnTx),
		MessageBytes:     deref(dao.MessageBytes),
		MessageHash:      deref(dao.MessageHash),
		Attestation:      deref(dao.Attestation),
		ReceiveMessageTx: deref(dao.ReceiveMessageTx),
		Error:            deref(dao.Error),
		RetryCount:       dao.RetryCount,
		CreatedAt:        dao.CreatedAt.UTC(),
	}
	if dao.CompletedAt != nil {
		t := dao.CompletedAt.UTC()
		rec.CompletedAt = &t
	}
	return rec
}

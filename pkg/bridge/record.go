package bridge

import (
	"fmt"
	"strconv"
	"time"
)

// Status is the bridge state machine position
type Status string

// Bridge statuses in the order a run advances through them
const (
	StatusInitiated           Status = "initiated"
	StatusApproved            Status = "approved"
	StatusDeposited           Status = "deposited"
	StatusMessageSent         Status = "message_sent"
	StatusPollingAttestation  Status = "polling_attestation"
	StatusAttestationReceived Status = "attestation_received"
	StatusCompleted           Status = "completed"
	StatusFailed              Status = "failed"
)

var statusOrder = map[Status]int{
	StatusInitiated:           0,
	StatusApproved:            1,
	StatusDeposited:           2,
	StatusMessageSent:         3,
	StatusPollingAttestation:  4,
	StatusAttestationReceived: 5,
	StatusCompleted:           6,
}

// Valid reports whether s is a known status
func (s Status) Valid() bool {
	_, ok := statusOrder[s]
	return ok || s == StatusFailed
}

// Terminal reports whether s is completed or failed
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransition reports whether a run may move a record from one status to
// another: one step forward, or from any non-terminal status to failed.
func CanTransition(from, to Status) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed {
		return true
	}
	fi, ok1 := statusOrder[from]
	ti, ok2 := statusOrder[to]
	return ok1 && ok2 && ti == fi+1
}

// Store field names. They double as the JSON names of Record.
const (
	FieldID               = "id"
	FieldSourceChain      = "sourceChain"
	FieldAmount           = "amount"
	FieldFinalRecipient   = "finalRecipient"
	FieldPurpose          = "purpose"
	FieldPaymentTxHash    = "paymentTxHash"
	FieldStatus           = "status"
	FieldApproveTx        = "approveTx"
	FieldDepositForBurnTx = "depositForBurnTx"
	FieldMessageBytes     = "messageBytes"
	FieldMessageHash      = "messageHash"
	FieldAttestation      = "attestation"
	FieldReceiveMessageTx = "receiveMessageTx"
	FieldError            = "error"
	FieldCreatedAt        = "createdAt"
	FieldCompletedAt      = "completedAt"
	FieldRetryCount       = "retryCount"
)

// Record is the durable state of one bridge transfer
type Record struct {
	ID               string     `json:"id"`
	SourceChain      string     `json:"sourceChain"`
	Amount           string     `json:"amount"`
	FinalRecipient   string     `json:"finalRecipient"`
	Purpose          string     `json:"purpose"`
	PaymentTxHash    string     `json:"paymentTxHash,omitzero"`
	Status           Status     `json:"status"`
	ApproveTx        string     `json:"approveTx,omitzero"`
	DepositForBurnTx string     `json:"depositForBurnTx,omitzero"`
	MessageBytes     string     `json:"messageBytes,omitzero"`
	MessageHash      string     `json:"messageHash,omitzero"`
	Attestation      string     `json:"attestation,omitzero"`
	ReceiveMessageTx string     `json:"receiveMessageTx,omitzero"`
	Error            string     `json:"error,omitzero"`
	CreatedAt        time.Time  `json:"createdAt"`
	CompletedAt      *time.Time `json:"completedAt,omitzero"`
	RetryCount       int        `json:"retryCount,omitzero"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Fields flattens the record into store fields. Empty values are omitted.
func (r *Record) Fields() map[string]string {
	out := map[string]string{
		FieldID:     r.ID,
		FieldStatus: string(r.Status),
	}
	set := func(k, v string) {
		if v != "" {
			out[k] = v
		}
	}
	set(FieldSourceChain, r.SourceChain)
	set(FieldAmount, r.Amount)
	set(FieldFinalRecipient, r.FinalRecipient)
	set(FieldPurpose, r.Purpose)
	set(FieldPaymentTxHash, r.PaymentTxHash)
	set(FieldApproveTx, r.ApproveTx)
	set(FieldDepositForBurnTx, r.DepositForBurnTx)
	set(FieldMessageBytes, r.MessageBytes)
	set(FieldMessageHash, r.MessageHash)
	set(FieldAttestation, r.Attestation)
	set(FieldReceiveMessageTx, r.ReceiveMessageTx)
	set(FieldError, r.Error)
	if !r.CreatedAt.IsZero() {
		out[FieldCreatedAt] = formatTime(r.CreatedAt)
	}
	if r.CompletedAt != nil {
		out[FieldCompletedAt] = formatTime(*r.CompletedAt)
	}
	if r.RetryCount > 0 {
		out[FieldRetryCount] = strconv.Itoa(r.RetryCount)
	}
	return out
}

// Subset returns only the named fields of r that are set
func (r *Record) Subset(names ...string) map[string]string {
	all := r.Fields()
	out := make(map[string]string, len(names))
	for _, n := range names {
		if v, ok := all[n]; ok {
			out[n] = v
		}
	}
	return out
}

// RecordFromFields rebuilds a record from store fields
func RecordFromFields(fields map[string]string) (*Record, error) {
	r := &Record{
		ID:               fields[FieldID],
		SourceChain:      fields[FieldSourceChain],
		Amount:           fields[FieldAmount],
		FinalRecipient:   fields[FieldFinalRecipient],
		Purpose:          fields[FieldPurpose],
		PaymentTxHash:    fields[FieldPaymentTxHash],
		Status:           Status(fields[FieldStatus]),
		ApproveTx:        fields[FieldApproveTx],
		DepositForBurnTx: fields[FieldDepositForBurnTx],
		MessageBytes:     fields[FieldMessageBytes],
		MessageHash:      fields[FieldMessageHash],
		Attestation:      fields[FieldAttestation],
		ReceiveMessageTx: fields[FieldReceiveMessageTx],
		Error:            fields[FieldError],
	}

	if !r.Status.Valid() {
		return nil, fmt.Errorf("record %s has unknown status %q", r.ID, r.Status)
	}

	if v := fields[FieldCreatedAt]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("record %s: invalid createdAt: %w", r.ID, err)
		}
		r.CreatedAt = t
	}
	if v := fields[FieldCompletedAt]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("record %s: invalid completedAt: %w", r.ID, err)
		}
		r.CompletedAt = &t
	}
	if v := fields[FieldRetryCount]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("record %s: invalid retryCount: %w", r.ID, err)
		}
		r.RetryCount = n
	}
	return r, nil
}

// InitiateRequest is the intake payload
type InitiateRequest struct {
	SourceChain    string `json:"sourceChain" validate:"required"`
	PaymentTxHash  string `json:"paymentTxHash" validate:"required,hexadecimal,len=66,startswith=0x"`
	Amount         string `json:"amount" validate:"required"`
	FinalRecipient string `json:"finalRecipient" validate:"required,eth_addr"`
	Purpose        string `json:"purpose" validate:"required,max=256"`
}

// InitiateResponse is returned by intake and operator retry
type InitiateResponse struct {
	ID     string `json:"id"`
	Status Status `json:"status"`
}

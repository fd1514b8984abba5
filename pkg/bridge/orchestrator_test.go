package bridge

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/attestation"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/ethereum/contracts"
)

const testID = "1760000000000-abcdef12"

func newTestRecord() *Record {
	return &Record{
		ID:             testID,
		SourceChain:    "sepolia",
		Amount:         "25.00",
		FinalRecipient: testRecipient,
		Purpose:        "hire-fee",
		PaymentTxHash:  "0xabcdef1200000000000000000000000000000000000000000000000000000000",
		Status:         StatusInitiated,
		CreatedAt:      time.Date(2025, 10, 9, 8, 53, 20, 0, time.UTC),
	}
}

func seed(t *testing.T, store *recordingStore, rec *Record) {
	t.Helper()
	created, err := store.CreateIfAbsent(context.Background(), rec.ID, rec.Fields(), time.Hour)
	require.NoError(t, err)
	require.True(t, created)
}

func load(t *testing.T, store Store, id string) *Record {
	t.Helper()
	fields, err := store.Get(context.Background(), id)
	require.NoError(t, err)
	rec, err := RecordFromFields(fields)
	require.NoError(t, err)
	return rec
}

// statusOf is safe to call from Eventually conditions
func statusOf(store Store, id string) Status {
	fields, err := store.Get(context.Background(), id)
	if err != nil {
		return ""
	}
	return Status(fields[FieldStatus])
}

func newTestOrchestrator(t *testing.T, store Store, src, dst ChainClient, poller AttestationPoller, hooks ...TerminalHook) *Orchestrator {
	t.Helper()
	o, err := NewOrchestrator(store, testSources(src), testDestination(dst), poller, Options{RunLease: time.Minute}, zap.NewNop(), hooks...)
	require.NoError(t, err)
	t.Cleanup(o.Stop)
	return o
}

func TestOrchestrator_Run_Completes(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, newTestRecord())

	src := successfulSource()
	var burnArgs []any
	srcTransact := src.TransactFunc
	src.TransactFunc = func(ctx context.Context, contract common.Address, parsed *abi.ABI, method string, args ...any) (*types.Receipt, error) {
		if method == contracts.MethodDepositForBurn {
			assert.Equal(t, testMessenger, contract)
			burnArgs = args
		}
		if method == contracts.MethodApprove {
			assert.Equal(t, testUSDC, contract)
		}
		return srcTransact(ctx, contract, parsed, method, args...)
	}

	dst := successfulDestination()
	var polledHash string
	poller := &MockPoller{PollFunc: func(_ context.Context, hash string) (string, error) {
		polledHash = hash
		return "0xdeadbeef", nil
	}}
	hook := &MockHook{}

	o := newTestOrchestrator(t, store, src, dst, poller, hook)
	require.NoError(t, o.Run(context.Background(), testID))

	rec := load(t, store, testID)
	assert.Equal(t, StatusCompleted, rec.Status)
	assert.NotEmpty(t, rec.ApproveTx)
	assert.NotEmpty(t, rec.DepositForBurnTx)
	assert.NotEmpty(t, rec.ReceiveMessageTx)
	assert.Equal(t, "0xdeadbeef", rec.Attestation)
	assert.Equal(t, crypto.Keccak256Hash(testMessage).Hex(), rec.MessageHash)
	assert.Equal(t, rec.MessageHash, polledHash)
	assert.NotNil(t, rec.CompletedAt)
	assert.Empty(t, rec.Error)

	assert.Equal(t, []string{contracts.MethodApprove, contracts.MethodDepositForBurn}, src.Calls())
	assert.Equal(t, []string{contracts.MethodReceiveMessage}, dst.Calls())

	require.Len(t, burnArgs, 4)
	assert.Equal(t, 0, burnArgs[0].(*big.Int).Cmp(big.NewInt(25_000_000)))
	assert.Equal(t, uint32(3), burnArgs[1])
	assert.Equal(t, RecipientBytes32(common.HexToAddress(testRecipient)), burnArgs[2])
	assert.Equal(t, testUSDC, burnArgs[3])

	require.Len(t, hook.Records(), 1)
	assert.Equal(t, StatusCompleted, hook.Records()[0].Status)
}

func TestOrchestrator_Run_NeverSkipsStatuses(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, newTestRecord())

	o := newTestOrchestrator(t, store, successfulSource(), successfulDestination(), &MockPoller{})
	require.NoError(t, o.Run(context.Background(), testID))

	want := []Status{
		StatusApproved,
		StatusDeposited,
		StatusMessageSent,
		StatusPollingAttestation,
		StatusAttestationReceived,
		StatusCompleted,
	}
	got := store.Statuses()
	assert.Equal(t, want, got)

	prev := StatusInitiated
	for _, s := range got {
		assert.True(t, CanTransition(prev, s), "%s -> %s", prev, s)
		prev = s
	}
}

func TestOrchestrator_Run_MissingMessageSent(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, newTestRecord())

	src := successfulSource()
	src.ReadLogsFunc = func(*types.Receipt, common.Address, *abi.ABI, string) ([]map[string]any, error) {
		return nil, nil
	}
	dst := successfulDestination()
	hook := &MockHook{}

	o := newTestOrchestrator(t, store, src, dst, &MockPoller{}, hook)
	require.NoError(t, o.Run(context.Background(), testID))

	rec := load(t, store, testID)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "Could not find MessageSent event in burn receipt", rec.Error)
	assert.Empty(t, rec.MessageBytes)
	assert.Empty(t, rec.MessageHash)
	assert.NotEmpty(t, rec.DepositForBurnTx)
	assert.NotNil(t, rec.CompletedAt)
	assert.Empty(t, dst.Calls())

	require.Len(t, hook.Records(), 1)
	assert.Equal(t, StatusFailed, hook.Records()[0].Status)
}

func TestOrchestrator_Run_EmptyMessageSentPayload(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, newTestRecord())

	src := successfulSource()
	src.ReadLogsFunc = func(*types.Receipt, common.Address, *abi.ABI, string) ([]map[string]any, error) {
		return []map[string]any{{contracts.MessageSentFieldBytes: []byte{}}}, nil
	}

	o := newTestOrchestrator(t, store, src, successfulDestination(), &MockPoller{})
	require.NoError(t, o.Run(context.Background(), testID))

	rec := load(t, store, testID)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, ErrMessageSentNotFound.Error(), rec.Error)
}

func TestOrchestrator_Run_AttestationTimeout(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, newTestRecord())

	dst := successfulDestination()
	poller := &MockPoller{PollFunc: func(context.Context, string) (string, error) {
		return "", attestation.ErrTimeout
	}}

	o := newTestOrchestrator(t, store, successfulSource(), dst, poller)
	require.NoError(t, o.Run(context.Background(), testID))

	rec := load(t, store, testID)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "timeout")
	assert.Equal(t, crypto.Keccak256Hash(testMessage).Hex(), rec.MessageHash)
	assert.NotEmpty(t, rec.MessageBytes)
	assert.Empty(t, rec.Attestation)
	assert.Empty(t, dst.Calls())
}

func TestOrchestrator_Run_StepFailures(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(rec *Record)
		src       func() *MockChainClient
		dst       func() *MockChainClient
		wantError string
	}{
		{
			name:      "missing amount",
			mutate:    func(rec *Record) { rec.Amount = "" },
			wantError: "missing bridge params",
		},
		{
			name:      "missing recipient",
			mutate:    func(rec *Record) { rec.FinalRecipient = "" },
			wantError: "missing bridge params",
		},
		{
			name:      "unsupported chain",
			mutate:    func(rec *Record) { rec.SourceChain = "fuji" },
			wantError: "missing bridge params",
		},
		{
			name: "approve reverts",
			src: func() *MockChainClient {
				c := successfulSource()
				c.TransactFunc = func(context.Context, common.Address, *abi.ABI, string, ...any) (*types.Receipt, error) {
					return nil, errors.New("execution reverted")
				}
				return c
			},
			wantError: "approve: execution reverted",
		},
		{
			name: "mint fails",
			dst: func() *MockChainClient {
				c := successfulDestination()
				c.TransactFunc = func(context.Context, common.Address, *abi.ABI, string, ...any) (*types.Receipt, error) {
					return nil, errors.New("nonce too low")
				}
				return c
			},
			wantError: "receiveMessage: nonce too low",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStore()
			rec := newTestRecord()
			if tt.mutate != nil {
				tt.mutate(rec)
			}
			seed(t, store, rec)

			src, dst := successfulSource(), successfulDestination()
			if tt.src != nil {
				src = tt.src()
			}
			if tt.dst != nil {
				dst = tt.dst()
			}

			o := newTestOrchestrator(t, store, src, dst, &MockPoller{})
			require.NoError(t, o.Run(context.Background(), testID))

			got := load(t, store, testID)
			assert.Equal(t, StatusFailed, got.Status)
			assert.True(t, strings.HasPrefix(got.Error, tt.wantError), "error %q", got.Error)
			assert.Equal(t, StatusFailed, store.Statuses()[len(store.Statuses())-1])
		})
	}
}

func TestOrchestrator_Run_RecoversPanic(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, newTestRecord())

	src := successfulSource()
	src.TransactFunc = func(context.Context, common.Address, *abi.ABI, string, ...any) (*types.Receipt, error) {
		panic("rpc client exploded")
	}

	o := newTestOrchestrator(t, store, src, successfulDestination(), &MockPoller{})
	err := o.Run(context.Background(), testID)
	require.Error(t, err)

	rec := load(t, store, testID)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "rpc client exploded")
}

func TestOrchestrator_Run_TerminalIsNoop(t *testing.T) {
	for _, status := range []Status{StatusCompleted, StatusFailed} {
		t.Run(string(status), func(t *testing.T) {
			store := newRecordingStore()
			rec := newTestRecord()
			rec.Status = status
			seed(t, store, rec)

			src, dst := successfulSource(), successfulDestination()
			o := newTestOrchestrator(t, store, src, dst, &MockPoller{})
			require.NoError(t, o.Run(context.Background(), testID))

			assert.Empty(t, src.Calls())
			assert.Empty(t, dst.Calls())
			assert.Empty(t, store.Statuses())
			assert.Equal(t, status, load(t, store, testID).Status)
		})
	}
}

func TestOrchestrator_Run_MidFlightIsNoop(t *testing.T) {
	store := newRecordingStore()
	rec := newTestRecord()
	rec.Status = StatusDeposited
	seed(t, store, rec)

	src := successfulSource()
	o := newTestOrchestrator(t, store, src, successfulDestination(), &MockPoller{})
	require.NoError(t, o.Run(context.Background(), testID))

	assert.Empty(t, src.Calls())
	assert.Equal(t, StatusDeposited, load(t, store, testID).Status)
}

func TestOrchestrator_Run_NotFound(t *testing.T) {
	o := newTestOrchestrator(t, newRecordingStore(), successfulSource(), successfulDestination(), &MockPoller{})
	err := o.Run(context.Background(), testID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestOrchestrator_Run_SingleOwner(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, newTestRecord())

	ok, err := store.Claim(context.Background(), leaseKey(testID), "other-run", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	src := successfulSource()
	o := newTestOrchestrator(t, store, src, successfulDestination(), &MockPoller{})
	err = o.Run(context.Background(), testID)
	assert.ErrorIs(t, err, ErrRunInProgress)
	assert.Empty(t, src.Calls())
	assert.Equal(t, StatusInitiated, load(t, store, testID).Status)
}

func TestOrchestrator_Run_CancelKeepsCheckpoint(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, newTestRecord())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := &MockPoller{PollFunc: func(ctx context.Context, _ string) (string, error) {
		cancel()
		<-ctx.Done()
		return "", ctx.Err()
	}}
	hook := &MockHook{}

	o := newTestOrchestrator(t, store, successfulSource(), successfulDestination(), poller, hook)
	err := o.Run(ctx, testID)
	assert.ErrorIs(t, err, context.Canceled)

	rec := load(t, store, testID)
	assert.Equal(t, StatusPollingAttestation, rec.Status)
	assert.Empty(t, rec.Error)
	assert.Empty(t, hook.Records())

	// lease released
	ok, err := store.Claim(context.Background(), leaseKey(testID), "next-run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestOrchestrator_Launch(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, newTestRecord())

	o := newTestOrchestrator(t, store, successfulSource(), successfulDestination(), &MockPoller{})
	o.Launch(testID)

	require.Eventually(t, func() bool {
		return statusOf(store, testID) == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
}

func TestOrchestrator_Resume_AfterAttestationTimeout(t *testing.T) {
	store := newRecordingStore()
	seed(t, store, newTestRecord())

	calls := 0
	poller := &MockPoller{PollFunc: func(context.Context, string) (string, error) {
		calls++
		if calls == 1 {
			return "", attestation.ErrTimeout
		}
		return "0xfeed", nil
	}}
	src, dst := successfulSource(), successfulDestination()

	o := newTestOrchestrator(t, store, src, dst, poller)
	require.NoError(t, o.Run(context.Background(), testID))
	require.Equal(t, StatusFailed, load(t, store, testID).Status)

	resumed, err := o.Resume(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, StatusPollingAttestation, resumed.Status)
	assert.Equal(t, 1, resumed.RetryCount)

	require.Eventually(t, func() bool {
		return statusOf(store, testID) == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	rec := load(t, store, testID)
	assert.Empty(t, rec.Error)
	assert.Equal(t, "0xfeed", rec.Attestation)
	assert.Equal(t, 1, rec.RetryCount)
	// the burn is never repeated
	assert.Equal(t, []string{contracts.MethodApprove, contracts.MethodDepositForBurn}, src.Calls())
	assert.Equal(t, []string{contracts.MethodReceiveMessage}, dst.Calls())
}

func TestOrchestrator_Resume_MintOnly(t *testing.T) {
	store := newRecordingStore()
	rec := newTestRecord()
	rec.Status = StatusFailed
	rec.Error = "receiveMessage: nonce too low"
	rec.MessageBytes = "0x" + common.Bytes2Hex(testMessage)
	rec.MessageHash = crypto.Keccak256Hash(testMessage).Hex()
	rec.Attestation = "0xfeed"
	seed(t, store, rec)

	poller := &MockPoller{PollFunc: func(context.Context, string) (string, error) {
		t.Error("attestation should not be polled again")
		return "", nil
	}}
	src, dst := successfulSource(), successfulDestination()

	o := newTestOrchestrator(t, store, src, dst, poller)
	resumed, err := o.Resume(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, StatusAttestationReceived, resumed.Status)

	require.Eventually(t, func() bool {
		return statusOf(store, testID) == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Empty(t, src.Calls())
}

func TestOrchestrator_Resume_Rejected(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(rec *Record)
		want   error
	}{
		{
			name: "failed before burn",
			mutate: func(rec *Record) {
				rec.Status = StatusFailed
				rec.Error = "approve: execution reverted"
			},
			want: ErrNotRetryable,
		},
		{
			name:   "still initiated",
			mutate: func(rec *Record) {},
			want:   ErrNotRetryable,
		},
		{
			name:   "completed",
			mutate: func(rec *Record) { rec.Status = StatusCompleted },
			want:   ErrNotRetryable,
		},
		{
			name:   "unknown id",
			mutate: func(rec *Record) { rec.ID = "1760000000000-00000000" },
			want:   ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newRecordingStore()
			rec := newTestRecord()
			tt.mutate(rec)
			seed(t, store, rec)

			o := newTestOrchestrator(t, store, successfulSource(), successfulDestination(), &MockPoller{})
			_, err := o.Resume(context.Background(), testID)
			assert.ErrorIs(t, err, tt.want)

			// a rejected retry leaves the lease free
			ok, err := store.Claim(context.Background(), leaseKey(testID), "next-run", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestOrchestrator_Resume_LeaseHeld(t *testing.T) {
	store := newRecordingStore()
	rec := newTestRecord()
	rec.Status = StatusPollingAttestation
	rec.MessageBytes = "0x" + common.Bytes2Hex(testMessage)
	rec.MessageHash = crypto.Keccak256Hash(testMessage).Hex()
	seed(t, store, rec)

	ok, err := store.Claim(context.Background(), leaseKey(testID), "live-run", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	o := newTestOrchestrator(t, store, successfulSource(), successfulDestination(), &MockPoller{})
	_, err = o.Resume(context.Background(), testID)
	assert.ErrorIs(t, err, ErrRunInProgress)
}

func TestOrchestrator_SupportsChain(t *testing.T) {
	o := newTestOrchestrator(t, newRecordingStore(), successfulSource(), successfulDestination(), &MockPoller{})
	assert.True(t, o.SupportsChain("sepolia"))
	assert.False(t, o.SupportsChain("fuji"))
}

func TestOrchestrator_Resume_ExtendsExpiry(t *testing.T) {
	store := newRecordingStore()
	start := time.Date(2025, 10, 9, 9, 0, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return start })

	rec := newTestRecord()
	rec.Status = StatusFailed
	rec.MessageBytes = "0x" + common.Bytes2Hex(testMessage)
	rec.MessageHash = crypto.Keccak256Hash(testMessage).Hex()
	rec.Attestation = "0xfeed"
	seed(t, store, rec) // expires at start+1h

	o, err := NewOrchestrator(store, testSources(successfulSource()), testDestination(successfulDestination()),
		&MockPoller{}, Options{RunLease: time.Minute, RecordTTL: 24 * time.Hour}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(o.Stop)

	_, err = o.Resume(context.Background(), testID)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return statusOf(store, testID) == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	store.SetClock(func() time.Time { return start.Add(2 * time.Hour) })
	assert.Equal(t, StatusCompleted, load(t, store, testID).Status)
}

// claimHookStore runs onClaim right after a lease is granted
type claimHookStore struct {
	*recordingStore
	onClaim func()
}

func (s *claimHookStore) Claim(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	ok, err := s.recordingStore.Claim(ctx, key, owner, ttl)
	if ok && s.onClaim != nil {
		s.onClaim()
	}
	return ok, err
}

func TestOrchestrator_Resume_ReadsAfterClaim(t *testing.T) {
	inner := newRecordingStore()
	rec := newTestRecord()
	rec.Status = StatusFailed
	rec.Error = "receiveMessage: nonce too low"
	rec.MessageBytes = "0x" + common.Bytes2Hex(testMessage)
	rec.MessageHash = crypto.Keccak256Hash(testMessage).Hex()
	rec.Attestation = "0xfeed"
	seed(t, inner, rec)

	// a concurrent run finishes the mint just as the retry takes the lease
	store := &claimHookStore{recordingStore: inner, onClaim: func() {
		require.NoError(t, inner.MemoryStore.CreateOrUpdate(context.Background(), testID, map[string]string{
			FieldStatus:           string(StatusCompleted),
			FieldReceiveMessageTx: "0xfirstmint",
		}))
	}}

	dst := &MockChainClient{TransactFunc: func(context.Context, common.Address, *abi.ABI, string, ...any) (*types.Receipt, error) {
		return &types.Receipt{Status: types.ReceiptStatusFailed}, errors.New("execution reverted: nonce already used")
	}}

	o := newTestOrchestrator(t, store, successfulSource(), dst, &MockPoller{})
	_, err := o.Resume(context.Background(), testID)
	require.ErrorIs(t, err, ErrNotRetryable)
	assert.Empty(t, dst.Calls())

	got := load(t, inner, testID)
	assert.Equal(t, StatusCompleted, got.Status)
	assert.Equal(t, "0xfirstmint", got.ReceiveMessageTx)

	store.onClaim = nil
	ok, err := store.Claim(context.Background(), leaseKey(testID), "next-run", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

// flakyStore fails the first write of status failOn
type flakyStore struct {
	*recordingStore
	failOn Status

	mu     sync.Mutex
	failed bool
}

func (s *flakyStore) CreateOrUpdate(ctx context.Context, id string, fields map[string]string) error {
	s.mu.Lock()
	trip := !s.failed && Status(fields[FieldStatus]) == s.failOn
	if trip {
		s.failed = true
	}
	s.mu.Unlock()
	if trip {
		return errors.New("redis: i/o timeout")
	}
	return s.recordingStore.CreateOrUpdate(ctx, id, fields)
}

func TestOrchestrator_Run_KeepsBurnProofWhenCheckpointWriteFails(t *testing.T) {
	inner := newRecordingStore()
	seed(t, inner, newTestRecord())
	store := &flakyStore{recordingStore: inner, failOn: StatusMessageSent}

	src, dst := successfulSource(), successfulDestination()
	o := newTestOrchestrator(t, store, src, dst, &MockPoller{})
	require.NoError(t, o.Run(context.Background(), testID))

	rec := load(t, inner, testID)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Contains(t, rec.Error, "persist message_sent")
	assert.NotEmpty(t, rec.DepositForBurnTx)
	assert.Equal(t, "0x"+common.Bytes2Hex(testMessage), rec.MessageBytes)
	assert.Equal(t, crypto.Keccak256Hash(testMessage).Hex(), rec.MessageHash)
	assert.Empty(t, dst.Calls())

	resumed, err := o.Resume(context.Background(), testID)
	require.NoError(t, err)
	assert.Equal(t, StatusPollingAttestation, resumed.Status)

	require.Eventually(t, func() bool {
		return statusOf(inner, testID) == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	// the burn is never repeated
	assert.Equal(t, []string{contracts.MethodApprove, contracts.MethodDepositForBurn}, src.Calls())
	assert.Equal(t, []string{contracts.MethodReceiveMessage}, dst.Calls())
}

func TestOrchestrator_RenewsLeaseWhileRunning(t *testing.T) {
	store := newRecordingStore()
	rec := newTestRecord()
	rec.Status = StatusFailed
	rec.MessageBytes = "0x" + common.Bytes2Hex(testMessage)
	rec.MessageHash = crypto.Keccak256Hash(testMessage).Hex()
	rec.Attestation = "0xfeed"
	seed(t, store, rec)

	gate := make(chan struct{})
	dst := successfulDestination()
	mint := dst.TransactFunc
	dst.TransactFunc = func(ctx context.Context, contract common.Address, parsed *abi.ABI, method string, args ...any) (*types.Receipt, error) {
		<-gate
		return mint(ctx, contract, parsed, method, args...)
	}

	o, err := NewOrchestrator(store, testSources(successfulSource()), testDestination(dst),
		&MockPoller{}, Options{RunLease: 60 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(o.Stop)

	_, err = o.Resume(context.Background(), testID)
	require.NoError(t, err)

	// several lease lengths later the first run still owns the record
	time.Sleep(250 * time.Millisecond)
	_, err = o.Resume(context.Background(), testID)
	assert.ErrorIs(t, err, ErrRunInProgress)

	close(gate)
	require.Eventually(t, func() bool {
		return statusOf(store, testID) == StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{contracts.MethodReceiveMessage}, dst.Calls())
}

// stolenLeaseStore reports renewals as lost once stolen is set
type stolenLeaseStore struct {
	*recordingStore
	stolen atomic.Bool
}

func (s *stolenLeaseStore) Extend(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	if s.stolen.Load() {
		return false, nil
	}
	return s.recordingStore.Extend(ctx, key, owner, ttl)
}

func TestOrchestrator_StopsWhenLeaseLost(t *testing.T) {
	inner := newRecordingStore()
	seed(t, inner, newTestRecord())
	store := &stolenLeaseStore{recordingStore: inner}

	poller := &MockPoller{PollFunc: func(ctx context.Context, _ string) (string, error) {
		store.stolen.Store(true)
		<-ctx.Done()
		return "", ctx.Err()
	}}

	o, err := NewOrchestrator(store, testSources(successfulSource()),
		testDestination(successfulDestination()), poller, Options{RunLease: 90 * time.Millisecond}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(o.Stop)

	err = o.Run(context.Background(), testID)
	assert.ErrorIs(t, err, context.Canceled)

	got := load(t, inner, testID)
	assert.Equal(t, StatusPollingAttestation, got.Status)
	assert.Empty(t, got.Error)
}

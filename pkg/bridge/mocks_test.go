package bridge

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/ethereum/contracts"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/statestore"
)

// MockChainClient is a mock implementation of ChainClient
type MockChainClient struct {
	NameFunc     func() string
	TransactFunc func(ctx context.Context, contract common.Address, parsed *abi.ABI, method string, args ...any) (*types.Receipt, error)
	ReadLogsFunc func(receipt *types.Receipt, contract common.Address, parsed *abi.ABI, event string) ([]map[string]any, error)

	mu    sync.Mutex
	calls []string
}

func (m *MockChainClient) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}

func (m *MockChainClient) Transact(ctx context.Context, contract common.Address, parsed *abi.ABI, method string, args ...any) (*types.Receipt, error) {
	m.mu.Lock()
	m.calls = append(m.calls, method)
	m.mu.Unlock()
	if m.TransactFunc != nil {
		return m.TransactFunc(ctx, contract, parsed, method, args...)
	}
	return &types.Receipt{Status: types.ReceiptStatusSuccessful}, nil
}

func (m *MockChainClient) ReadLogs(receipt *types.Receipt, contract common.Address, parsed *abi.ABI, event string) ([]map[string]any, error) {
	if m.ReadLogsFunc != nil {
		return m.ReadLogsFunc(receipt, contract, parsed, event)
	}
	return nil, nil
}

func (m *MockChainClient) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// MockPoller is a mock implementation of AttestationPoller
type MockPoller struct {
	PollFunc func(ctx context.Context, messageHash string) (string, error)
}

func (m *MockPoller) Poll(ctx context.Context, messageHash string) (string, error) {
	if m.PollFunc != nil {
		return m.PollFunc(ctx, messageHash)
	}
	return "0x" + "ab", nil
}

// MockHook records terminal callbacks
type MockHook struct {
	mu      sync.Mutex
	records []Record
	err     error
}

func (m *MockHook) Name() string { return "mock" }

func (m *MockHook) OnTerminal(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return m.err
}

func (m *MockHook) Records() []Record {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Record(nil), m.records...)
}

// recordingStore wraps MemoryStore and keeps every status it was asked to write
type recordingStore struct {
	*statestore.MemoryStore

	mu       sync.Mutex
	statuses []Status
}

func newRecordingStore() *recordingStore {
	return &recordingStore{MemoryStore: statestore.NewMemoryStore()}
}

func (s *recordingStore) CreateOrUpdate(ctx context.Context, id string, fields map[string]string) error {
	if v, ok := fields[FieldStatus]; ok {
		s.mu.Lock()
		s.statuses = append(s.statuses, Status(v))
		s.mu.Unlock()
	}
	return s.MemoryStore.CreateOrUpdate(ctx, id, fields)
}

func (s *recordingStore) Statuses() []Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Status(nil), s.statuses...)
}

var (
	testUSDC        = common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	testMessenger   = common.HexToAddress("0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5")
	testTransmitter = common.HexToAddress("0x7865fAfC2db2093669d92c0F33AeEF291086BEFD")
	testDestMT      = common.HexToAddress("0xaCF1ceeF35caAc005e15888dDb8A3515C41B4872")
	testRecipient   = "0x1111111111111111111111111111111111111111"
	testMessage     = []byte("cctp message body")
)

// successfulSource returns a source chain client whose burn receipt carries a MessageSent log
func successfulSource() *MockChainClient {
	return &MockChainClient{
		NameFunc: func() string { return "sepolia" },
		TransactFunc: func(_ context.Context, _ common.Address, _ *abi.ABI, method string, _ ...any) (*types.Receipt, error) {
			return receiptFor(method), nil
		},
		ReadLogsFunc: func(_ *types.Receipt, contract common.Address, _ *abi.ABI, event string) ([]map[string]any, error) {
			if contract != testTransmitter || event != contracts.EventMessageSent {
				return nil, nil
			}
			return []map[string]any{{contracts.MessageSentFieldBytes: testMessage}}, nil
		},
	}
}

func successfulDestination() *MockChainClient {
	return &MockChainClient{
		NameFunc: func() string { return "destination" },
		TransactFunc: func(_ context.Context, _ common.Address, _ *abi.ABI, method string, _ ...any) (*types.Receipt, error) {
			return receiptFor(method), nil
		},
	}
}

func receiptFor(method string) *types.Receipt {
	var h common.Hash
	copy(h[:], []byte(method))
	return &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      h,
		BlockNumber: big.NewInt(1),
	}
}

func testSources(client ChainClient) map[string]SourceChain {
	return map[string]SourceChain{
		"sepolia": {
			Client:             client,
			Domain:             0,
			USDC:               testUSDC,
			TokenMessenger:     testMessenger,
			MessageTransmitter: testTransmitter,
		},
	}
}

func testDestination(client ChainClient) DestinationChain {
	return DestinationChain{
		Client:             client,
		Domain:             3,
		MessageTransmitter: testDestMT,
	}
}

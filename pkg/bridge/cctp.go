package bridge

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/config"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/ethereum/contracts"
)

// ErrMessageSentNotFound is returned when the burn receipt has no MessageSent log
var ErrMessageSentNotFound = errors.New("Could not find MessageSent event in burn receipt")

// ChainClient submits transactions and decodes receipt logs on one network
type ChainClient interface {
	Name() string
	Transact(ctx context.Context, contract common.Address, parsed *abi.ABI, method string, args ...any) (*types.Receipt, error)
	ReadLogs(receipt *types.Receipt, contract common.Address, parsed *abi.ABI, event string) ([]map[string]any, error)
}

// SourceChain is a supported burn network and its CCTP deployment
type SourceChain struct {
	Client             ChainClient
	Domain             uint32
	USDC               common.Address
	TokenMessenger     common.Address
	MessageTransmitter common.Address
}

// DestinationChain is the mint network
type DestinationChain struct {
	Client             ChainClient
	Domain             uint32
	MessageTransmitter common.Address
}

// NewSourceChain binds a client to the addresses in cfg
func NewSourceChain(client ChainClient, cfg config.ChainConfig) SourceChain {
	return SourceChain{
		Client:             client,
		Domain:             cfg.Domain,
		USDC:               common.HexToAddress(cfg.USDCAddress),
		TokenMessenger:     common.HexToAddress(cfg.TokenMessenger),
		MessageTransmitter: common.HexToAddress(cfg.MessageTransmitter),
	}
}

// NewDestinationChain binds a client to the addresses in cfg
func NewDestinationChain(client ChainClient, cfg config.ChainConfig) DestinationChain {
	return DestinationChain{
		Client:             client,
		Domain:             cfg.Domain,
		MessageTransmitter: common.HexToAddress(cfg.MessageTransmitter),
	}
}

type cctpABIs struct {
	erc20       *abi.ABI
	messenger   *abi.ABI
	transmitter *abi.ABI
}

func loadCCTPABIs() (*cctpABIs, error) {
	erc20, err := contracts.ERC20MetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("parse ERC20 ABI: %w", err)
	}
	messenger, err := contracts.TokenMessengerMetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("parse TokenMessenger ABI: %w", err)
	}
	transmitter, err := contracts.MessageTransmitterMetaData.GetAbi()
	if err != nil {
		return nil, fmt.Errorf("parse MessageTransmitter ABI: %w", err)
	}
	return &cctpABIs{erc20: erc20, messenger: messenger, transmitter: transmitter}, nil
}

// extractMessage returns the first MessageSent payload emitted by transmitter
// in receipt together with its keccak256 hash.
func extractMessage(client ChainClient, receipt *types.Receipt, transmitter common.Address, parsed *abi.ABI) ([]byte, common.Hash, error) {
	events, err := client.ReadLogs(receipt, transmitter, parsed, contracts.EventMessageSent)
	if err != nil {
		return nil, common.Hash{}, fmt.Errorf("decode burn receipt logs: %w", err)
	}
	for _, ev := range events {
		msg, ok := ev[contracts.MessageSentFieldBytes].([]byte)
		if ok && len(msg) > 0 {
			return msg, crypto.Keccak256Hash(msg), nil
		}
	}
	return nil, common.Hash{}, ErrMessageSentNotFound
}

func decodeHexField(name, value string) ([]byte, error) {
	b, err := hexutil.Decode(value)
	if err != nil {
		return nil, fmt.Errorf("record field %s is not valid hex: %w", name, err)
	}
	return b, nil
}

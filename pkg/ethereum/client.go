package ethereum

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/Facilitator-Network/agent-cli-backend/internal/metrics"
	"github.com/Facilitator-Network/agent-cli-backend/pkg/config"
)

// ErrTxFailed is returned when a mined transaction has a non-success status
var ErrTxFailed = errors.New("transaction failed")

// Backend is the node surface the client needs
type Backend interface {
	bind.ContractBackend
	bind.DeployBackend
}

// Client represents one EVM network: its RPC endpoint, chain id and the relay signer
type Client struct {
	name        string
	cfg         config.ChainConfig
	backend     Backend
	privateKey  *ecdsa.PrivateKey
	address     common.Address
	chainID     *big.Int
	maxGasPrice *big.Int
	queue       *TxQueue
	logger      *zap.Logger
}

// NewClient dials the chain RPC and builds a client signing with the relay key
func NewClient(cfg config.ChainConfig, privateKeyHex string, logger *zap.Logger) (*Client, error) {
	privateKey, err := ParsePrivateKey(privateKeyHex)
	if err != nil {
		return nil, err
	}

	rpc, err := ethclient.Dial(cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s RPC: %w", cfg.Name, err)
	}

	c, err := NewClientWithBackend(cfg, rpc, privateKey, logger)
	if err != nil {
		rpc.Close()
		return nil, err
	}

	c.logger.Info("Connected to chain",
		zap.Int64("chain_id", cfg.ChainID),
		zap.Uint32("domain", cfg.Domain),
		zap.String("rpc_url", cfg.RPCURL),
		zap.String("relayer_address", c.address.Hex()))
	return c, nil
}

// NewClientWithBackend builds a client over an existing backend
func NewClientWithBackend(cfg config.ChainConfig, backend Backend, privateKey *ecdsa.PrivateKey, logger *zap.Logger) (*Client, error) {
	if privateKey == nil {
		return nil, fmt.Errorf("nil private key")
	}

	var maxGasPrice *big.Int
	if cfg.MaxGasPrice != "" {
		v, ok := new(big.Int).SetString(cfg.MaxGasPrice, 10)
		if !ok {
			return nil, fmt.Errorf("invalid max gas price %q", cfg.MaxGasPrice)
		}
		maxGasPrice = v
	}

	address := crypto.PubkeyToAddress(privateKey.PublicKey)
	logger = logger.With(zap.String("chain", cfg.Name))

	return &Client{
		name:        cfg.Name,
		cfg:         cfg,
		backend:     backend,
		privateKey:  privateKey,
		address:     address,
		chainID:     big.NewInt(cfg.ChainID),
		maxGasPrice: maxGasPrice,
		queue:       NewTxQueue(cfg.Name, address, backend, logger),
		logger:      logger,
	}, nil
}

// ParsePrivateKey parses a hex private key with or without 0x prefix
func ParsePrivateKey(keyHex string) (*ecdsa.PrivateKey, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(keyHex), "0x"))
	if err != nil {
		return nil, fmt.Errorf("failed to load private key: %w", err)
	}
	return key, nil
}

// Name returns the configured chain name
func (c *Client) Name() string {
	return c.name
}

// Address returns the relay signer address
func (c *Client) Address() common.Address {
	return c.address
}

// Close stops the transaction queue and closes the RPC connection
func (c *Client) Close() {
	c.queue.Close()
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

// transactor returns signing options for the given nonce
func (c *Client) transactor(ctx context.Context, nonce uint64) (*bind.TransactOpts, error) {
	auth, err := bind.NewKeyedTransactorWithChainID(c.privateKey, c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to create transactor: %w", err)
	}

	auth.Context = ctx
	auth.Nonce = new(big.Int).SetUint64(nonce)
	auth.GasLimit = c.cfg.GasLimit

	if c.maxGasPrice != nil {
		gasPrice, err := c.backend.SuggestGasPrice(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to suggest gas price: %w", err)
		}

		if gasPrice.Cmp(c.maxGasPrice) > 0 {
			c.logger.Warn("Suggested gas price exceeds maximum",
				zap.String("suggested", gasPrice.String()),
				zap.String("max", c.maxGasPrice.String()))
			auth.GasPrice = new(big.Int).Set(c.maxGasPrice)
		} else {
			auth.GasPrice = gasPrice
		}
	}

	return auth, nil
}

// Transact sends method(args...) to contract through the chain's transaction
// queue and waits for the mined receipt. A receipt with failed status is an error.
func (c *Client) Transact(ctx context.Context, contract common.Address, parsed *abi.ABI, method string, args ...any) (*types.Receipt, error) {
	bound := bind.NewBoundContract(contract, *parsed, c.backend, c.backend, c.backend)

	tx, err := c.queue.Submit(ctx, func(ctx context.Context, nonce uint64) (*types.Transaction, error) {
		opts, err := c.transactor(ctx, nonce)
		if err != nil {
			return nil, err
		}
		return bound.Transact(opts, method, args...)
	})
	if err != nil {
		metrics.TransactionsSent.WithLabelValues(c.name, method, "send_error").Inc()
		return nil, fmt.Errorf("failed to send %s: %w", method, err)
	}

	c.logger.Info("Transaction sent",
		zap.String("method", method),
		zap.String("contract", contract.Hex()),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("nonce", tx.Nonce()))

	waitCtx := ctx
	if c.cfg.ConfirmationTimeout > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, c.cfg.ConfirmationTimeout)
		defer cancel()
	}

	receipt, err := bind.WaitMined(waitCtx, c.backend, tx)
	if err != nil {
		metrics.TransactionsSent.WithLabelValues(c.name, method, "wait_error").Inc()
		return nil, fmt.Errorf("failed waiting for %s %s: %w", method, tx.Hash().Hex(), err)
	}

	metrics.GasUsed.WithLabelValues(c.name, method).Observe(float64(receipt.GasUsed))

	if receipt.Status != types.ReceiptStatusSuccessful {
		metrics.TransactionsSent.WithLabelValues(c.name, method, "reverted").Inc()
		return receipt, fmt.Errorf("%s %s: %w", method, tx.Hash().Hex(), ErrTxFailed)
	}

	metrics.TransactionsSent.WithLabelValues(c.name, method, "success").Inc()
	c.logger.Info("Transaction mined",
		zap.String("method", method),
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.Uint64("block", receipt.BlockNumber.Uint64()),
		zap.Uint64("gas_used", receipt.GasUsed))

	return receipt, nil
}

// ReadLogs decodes every event named event emitted by contract in receipt
func (c *Client) ReadLogs(receipt *types.Receipt, contract common.Address, parsed *abi.ABI, event string) ([]map[string]any, error) {
	return DecodeLogs(receipt, contract, parsed, event)
}

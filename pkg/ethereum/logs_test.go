package ethereum

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Facilitator-Network/agent-cli-backend/pkg/ethereum/contracts"
)

func messageSentLog(t *testing.T, parsed *abi.ABI, emitter common.Address, message []byte) *types.Log {
	t.Helper()
	ev := parsed.Events[contracts.EventMessageSent]
	data, err := ev.Inputs.NonIndexed().Pack(message)
	require.NoError(t, err)
	return &types.Log{Address: emitter, Topics: []common.Hash{ev.ID}, Data: data}
}

func TestDecodeLogs_MessageSent(t *testing.T) {
	parsed, err := contracts.MessageTransmitterMetaData.GetAbi()
	require.NoError(t, err)

	transmitter := common.HexToAddress("0x7865fAfC2db2093669d92c0F33AeEF291086BEFD")
	other := common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	message := []byte{0x00, 0x00, 0x00, 0x01, 0xaa, 0xbb}

	receipt := &types.Receipt{Logs: []*types.Log{
		{Address: other, Topics: []common.Hash{common.HexToHash("0x01")}},
		messageSentLog(t, parsed, other, []byte{0xff}),
		messageSentLog(t, parsed, transmitter, message),
	}}

	// configured address casing must not matter
	lower := common.HexToAddress(strings.ToLower(transmitter.Hex()))
	events, err := DecodeLogs(receipt, lower, parsed, contracts.EventMessageSent)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, message, events[0][contracts.MessageSentFieldBytes])
}

func TestDecodeLogs_NoMatch(t *testing.T) {
	parsed, err := contracts.MessageTransmitterMetaData.GetAbi()
	require.NoError(t, err)

	events, err := DecodeLogs(&types.Receipt{}, common.HexToAddress("0x1"), parsed, contracts.EventMessageSent)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestDecodeLogs_IndexedFields(t *testing.T) {
	parsed, err := contracts.TokenMessengerMetaData.GetAbi()
	require.NoError(t, err)

	messenger := common.HexToAddress("0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5")
	burnToken := common.HexToAddress("0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238")
	depositor := common.HexToAddress("0x00000000000000000000000000000000000000aa")

	ev := parsed.Events[contracts.EventDepositForBurn]
	data, err := ev.Inputs.NonIndexed().Pack(
		big.NewInt(1_500_000),
		[32]byte{31: 0x01},
		uint32(6),
		[32]byte{},
		[32]byte{},
	)
	require.NoError(t, err)

	receipt := &types.Receipt{Logs: []*types.Log{{
		Address: messenger,
		Topics: []common.Hash{
			ev.ID,
			common.BigToHash(big.NewInt(42)),
			common.BytesToHash(burnToken.Bytes()),
			common.BytesToHash(depositor.Bytes()),
		},
		Data: data,
	}}}

	events, err := DecodeLogs(receipt, messenger, parsed, contracts.EventDepositForBurn)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(42), events[0]["nonce"])
	assert.Equal(t, burnToken, events[0]["burnToken"])
	assert.Equal(t, 0, big.NewInt(1_500_000).Cmp(events[0]["amount"].(*big.Int)))
}

func TestDecodeLogs_UnknownEvent(t *testing.T) {
	parsed, err := contracts.MessageTransmitterMetaData.GetAbi()
	require.NoError(t, err)

	_, err = DecodeLogs(&types.Receipt{}, common.Address{}, parsed, "Nope")
	require.Error(t, err)
}

package ethereum

import (
	"fmt"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// DecodeLogs returns the decoded fields of each log in receipt that was
// emitted by contract and whose first topic is event's signature. Both
// indexed and non-indexed arguments are included. Addresses are compared
// as 20-byte values.
func DecodeLogs(receipt *types.Receipt, contract common.Address, parsed *abi.ABI, event string) ([]map[string]any, error) {
	if receipt == nil {
		return nil, fmt.Errorf("nil receipt")
	}

	ev, ok := parsed.Events[event]
	if !ok {
		return nil, fmt.Errorf("event %s not in ABI", event)
	}

	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}

	var out []map[string]any
	for _, lg := range receipt.Logs {
		if lg == nil || lg.Address != contract {
			continue
		}
		if len(lg.Topics) == 0 || lg.Topics[0] != ev.ID {
			continue
		}

		fields := make(map[string]any)
		if len(lg.Data) > 0 {
			if err := parsed.UnpackIntoMap(fields, event, lg.Data); err != nil {
				return nil, fmt.Errorf("failed to unpack %s log %d: %w", event, lg.Index, err)
			}
		}
		if len(indexed) > 0 {
			if err := abi.ParseTopicsIntoMap(fields, indexed, lg.Topics[1:]); err != nil {
				return nil, fmt.Errorf("failed to parse %s topics: %w", event, err)
			}
		}
		out = append(out, fields)
	}
	return out, nil
}

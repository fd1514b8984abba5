// Package contracts holds the ABI metadata for the CCTP v1 contracts the
// relay talks to. Only the methods and events the relay uses are included.
package contracts

import (
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
)

// Method and event names used by the relay
const (
	MethodApprove         = "approve"
	MethodAllowance       = "allowance"
	MethodDepositForBurn  = "depositForBurn"
	MethodReceiveMessage  = "receiveMessage"
	MethodUsedNonces      = "usedNonces"
	EventMessageSent      = "MessageSent"
	EventDepositForBurn   = "DepositForBurn"
	EventMessageReceived  = "MessageReceived"
	EventApproval         = "Approval"
	MessageSentFieldBytes = "message"
)

// ERC20MetaData contains the ERC-20 subset used to authorise burns.
var ERC20MetaData = &bind.MetaData{
	ABI: `[
	{"type":"function","name":"approve","stateMutability":"nonpayable",
	 "inputs":[{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
	 "outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"allowance","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"account","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Approval","anonymous":false,
	 "inputs":[{"name":"owner","type":"address","indexed":true},
	           {"name":"spender","type":"address","indexed":true},
	           {"name":"value","type":"uint256","indexed":false}]}
]`,
}

// TokenMessengerMetaData contains the CCTP TokenMessenger burn entrypoint.
var TokenMessengerMetaData = &bind.MetaData{
	ABI: `[
	{"type":"function","name":"depositForBurn","stateMutability":"nonpayable",
	 "inputs":[{"name":"amount","type":"uint256"},
	           {"name":"destinationDomain","type":"uint32"},
	           {"name":"mintRecipient","type":"bytes32"},
	           {"name":"burnToken","type":"address"}],
	 "outputs":[{"name":"_nonce","type":"uint64"}]},
	{"type":"event","name":"DepositForBurn","anonymous":false,
	 "inputs":[{"name":"nonce","type":"uint64","indexed":true},
	           {"name":"burnToken","type":"address","indexed":true},
	           {"name":"amount","type":"uint256","indexed":false},
	           {"name":"depositor","type":"address","indexed":true},
	           {"name":"mintRecipient","type":"bytes32","indexed":false},
	           {"name":"destinationDomain","type":"uint32","indexed":false},
	           {"name":"destinationTokenMessenger","type":"bytes32","indexed":false},
	           {"name":"destinationCaller","type":"bytes32","indexed":false}]}
]`,
}

// MessageTransmitterMetaData contains the CCTP MessageTransmitter surface:
// the MessageSent event on the source chain and receiveMessage on the destination.
var MessageTransmitterMetaData = &bind.MetaData{
	ABI: `[
	{"type":"function","name":"receiveMessage","stateMutability":"nonpayable",
	 "inputs":[{"name":"message","type":"bytes"},{"name":"attestation","type":"bytes"}],
	 "outputs":[{"name":"success","type":"bool"}]},
	{"type":"function","name":"usedNonces","stateMutability":"view",
	 "inputs":[{"name":"","type":"bytes32"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"MessageSent","anonymous":false,
	 "inputs":[{"name":"message","type":"bytes","indexed":false}]},
	{"type":"event","name":"MessageReceived","anonymous":false,
	 "inputs":[{"name":"caller","type":"address","indexed":true},
	           {"name":"sourceDomain","type":"uint32","indexed":false},
	           {"name":"nonce","type":"uint64","indexed":true},
	           {"name":"sender","type":"bytes32","indexed":false},
	           {"name":"messageBody","type":"bytes","indexed":false}]}
]`,
}

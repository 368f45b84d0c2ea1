package chain

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Multicall3Address is the canonical Multicall3 deployment, identical on
// Base and most EVM chains.
var Multicall3Address = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

const erc721ABIJSON = `[
	{"type":"function","name":"balanceOf","stateMutability":"view",
	 "inputs":[{"name":"owner","type":"address"}],
	 "outputs":[{"name":"","type":"uint256"}]},
	{"type":"event","name":"Transfer","anonymous":false,
	 "inputs":[
		{"name":"from","type":"address","indexed":true},
		{"name":"to","type":"address","indexed":true},
		{"name":"tokenId","type":"uint256","indexed":true}]}
]`

const multicall3ABIJSON = `[
	{"type":"function","name":"aggregate3","stateMutability":"payable",
	 "inputs":[{"name":"calls","type":"tuple[]","components":[
		{"name":"target","type":"address"},
		{"name":"allowFailure","type":"bool"},
		{"name":"callData","type":"bytes"}]}],
	 "outputs":[{"name":"returnData","type":"tuple[]","components":[
		{"name":"success","type":"bool"},
		{"name":"returnData","type":"bytes"}]}]}
]`

var (
	// ERC721ABI covers balanceOf and the Transfer event.
	ERC721ABI = mustParseABI(erc721ABIJSON)
	// Multicall3ABI covers aggregate3.
	Multicall3ABI = mustParseABI(multicall3ABIJSON)
)

// TransferTopic is topic0 of the ERC-721/ERC-20 Transfer event.
var TransferTopic = ERC721ABI.Events["Transfer"].ID

func mustParseABI(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(fmt.Sprintf("parse abi: %v", err))
	}
	return parsed
}

// Call3 is one Multicall3 sub-call.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Call3Result is the outcome of one Multicall3 sub-call.
type Call3Result struct {
	Success    bool
	ReturnData []byte
}

// PackBalanceOf encodes balanceOf(owner).
func PackBalanceOf(owner common.Address) ([]byte, error) {
	return ERC721ABI.Pack("balanceOf", owner)
}

// UnpackBalanceOf decodes a balanceOf return value, clamped to int64.
func UnpackBalanceOf(data []byte) (int64, error) {
	out, err := ERC721ABI.Unpack("balanceOf", data)
	if err != nil {
		return 0, fmt.Errorf("unpack balanceOf: %w", err)
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("unpack balanceOf: %d values", len(out))
	}
	bal := *abi.ConvertType(out[0], new(*big.Int)).(**big.Int)
	if bal == nil {
		return 0, nil
	}
	if !bal.IsInt64() {
		return math.MaxInt64, nil
	}
	return bal.Int64(), nil
}

// PackAggregate3 encodes an aggregate3 call.
func PackAggregate3(calls []Call3) ([]byte, error) {
	return Multicall3ABI.Pack("aggregate3", calls)
}

// UnpackAggregate3 decodes the aggregate3 result array.
func UnpackAggregate3(data []byte) ([]Call3Result, error) {
	out, err := Multicall3ABI.Unpack("aggregate3", data)
	if err != nil {
		return nil, fmt.Errorf("unpack aggregate3: %w", err)
	}
	if len(out) != 1 {
		return nil, fmt.Errorf("unpack aggregate3: %d values", len(out))
	}
	return *abi.ConvertType(out[0], new([]Call3Result)).(*[]Call3Result), nil
}

package stub

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"farcaster-tv/internal/chain"
)

// ErrCallFailed is returned for calls configured to fail.
var ErrCallFailed = errors.New("call failed")

// ContractReader implements chain.ContractReader for testing. It answers
// balanceOf from an in-memory table and aggregate3 by fanning out to it.
type ContractReader struct {
	mu            sync.Mutex
	balances      map[common.Address]map[common.Address]int64
	failOwners    map[common.Address]bool
	failMulticall bool
	calls         map[string]int
}

var _ chain.ContractReader = (*ContractReader)(nil)

// NewContractReader creates a new stub reader.
func NewContractReader() *ContractReader {
	return &ContractReader{
		balances:   make(map[common.Address]map[common.Address]int64),
		failOwners: make(map[common.Address]bool),
		calls:      make(map[string]int),
	}
}

// SetBalance sets balanceOf(owner) on token.
func (r *ContractReader) SetBalance(token, owner string, balance int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t := common.HexToAddress(token)
	if r.balances[t] == nil {
		r.balances[t] = make(map[common.Address]int64)
	}
	r.balances[t][common.HexToAddress(owner)] = balance
}

// FailMulticall makes every aggregate3 call fail.
func (r *ContractReader) FailMulticall(fail bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failMulticall = fail
}

// FailOwner makes balanceOf(owner) fail on every token.
func (r *ContractReader) FailOwner(owner string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failOwners[common.HexToAddress(owner)] = true
}

// Calls returns how many times method was invoked at top level.
func (r *ContractReader) Calls(method string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[method]
}

// CallContract implements chain.ContractReader.
func (r *ContractReader) CallContract(_ context.Context, to common.Address, data []byte) ([]byte, error) {
	if len(data) < 4 {
		return nil, fmt.Errorf("short calldata")
	}

	if method, err := chain.Multicall3ABI.MethodById(data[:4]); err == nil {
		r.count(method.Name)
		return r.aggregate3(method, data[4:])
	}

	method, err := chain.ERC721ABI.MethodById(data[:4])
	if err != nil {
		return nil, fmt.Errorf("unknown selector %x", data[:4])
	}
	r.count(method.Name)
	return r.balanceOf(to, method, data[4:])
}

func (r *ContractReader) count(method string) {
	r.mu.Lock()
	r.calls[method]++
	r.mu.Unlock()
}

func (r *ContractReader) aggregate3(method *abi.Method, args []byte) ([]byte, error) {
	r.mu.Lock()
	fail := r.failMulticall
	r.mu.Unlock()
	if fail {
		return nil, ErrCallFailed
	}

	in, err := method.Inputs.Unpack(args)
	if err != nil {
		return nil, err
	}
	calls := *abi.ConvertType(in[0], new([]chain.Call3)).(*[]chain.Call3)

	results := make([]chain.Call3Result, len(calls))
	for i, call := range calls {
		if len(call.CallData) < 4 {
			continue
		}
		sub, err := chain.ERC721ABI.MethodById(call.CallData[:4])
		if err != nil {
			continue
		}
		ret, err := r.balanceOf(call.Target, sub, call.CallData[4:])
		if err != nil {
			continue
		}
		results[i] = chain.Call3Result{Success: true, ReturnData: ret}
	}
	return method.Outputs.Pack(results)
}

func (r *ContractReader) balanceOf(token common.Address, method *abi.Method, args []byte) ([]byte, error) {
	if !strings.EqualFold(method.Name, "balanceOf") {
		return nil, fmt.Errorf("unsupported method %s", method.Name)
	}
	in, err := method.Inputs.Unpack(args)
	if err != nil {
		return nil, err
	}
	owner := in[0].(common.Address)

	r.mu.Lock()
	fail := r.failOwners[owner]
	bal := r.balances[token][owner]
	r.mu.Unlock()

	if fail {
		return nil, ErrCallFailed
	}
	return method.Outputs.Pack(big.NewInt(bal))
}

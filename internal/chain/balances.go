package chain

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"farcaster-tv/internal/concurrency"
	"farcaster-tv/internal/observability"
)

// DefaultFallbackLimit bounds concurrent per-address calls on fallback.
const DefaultFallbackLimit = 8

// BatcherOptions configures BalanceBatcher.
type BatcherOptions struct {
	Reader        ContractReader
	Multicall     common.Address // zero → Multicall3Address
	FallbackLimit int            // <1 → DefaultFallbackLimit
	Logger        *zap.Logger
}

// BalanceBatcher resolves token balances for many wallets with one
// multicall, falling back to per-address calls when the batch fails.
type BalanceBatcher struct {
	reader        ContractReader
	multicall     common.Address
	fallbackLimit int
	logger        *zap.Logger
}

// NewBalanceBatcher creates a BalanceBatcher.
func NewBalanceBatcher(opts BatcherOptions) *BalanceBatcher {
	b := &BalanceBatcher{
		reader:        opts.Reader,
		multicall:     opts.Multicall,
		fallbackLimit: opts.FallbackLimit,
		logger:        opts.Logger,
	}
	if b.multicall == (common.Address{}) {
		b.multicall = Multicall3Address
	}
	if b.fallbackLimit < 1 {
		b.fallbackLimit = DefaultFallbackLimit
	}
	if b.logger == nil {
		b.logger = zap.NewNop()
	}
	b.logger = b.logger.Named("balances")
	return b
}

// Balances returns balanceOf(address) on contract for every address, keyed
// by lowercase address. It never fails: lookups that cannot be resolved
// count as 0.
func (b *BalanceBatcher) Balances(ctx context.Context, contract string, addresses []string) map[string]int64 {
	out := make(map[string]int64, len(addresses))

	owners := make([]common.Address, 0, len(addresses))
	seen := make(map[string]bool, len(addresses))
	for _, a := range addresses {
		key := strings.ToLower(strings.TrimSpace(a))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out[key] = 0
		if common.IsHexAddress(key) {
			owners = append(owners, common.HexToAddress(key))
		}
	}
	if len(owners) == 0 || !common.IsHexAddress(contract) {
		return out
	}
	token := common.HexToAddress(contract)

	balances, err := b.multicallBalances(ctx, token, owners)
	if err != nil {
		b.logger.Warn("multicall failed, falling back to per-address calls",
			zap.String("contract", contract),
			zap.Int("addresses", len(owners)),
			zap.Error(err))
		observability.RecordBatchFallback()
		balances = b.fallbackBalances(ctx, token, owners)
	}

	for addr, bal := range balances {
		out[addr] = bal
	}
	return out
}

func (b *BalanceBatcher) multicallBalances(ctx context.Context, token common.Address, owners []common.Address) (map[string]int64, error) {
	calls := make([]Call3, len(owners))
	for i, owner := range owners {
		data, err := PackBalanceOf(owner)
		if err != nil {
			return nil, err
		}
		calls[i] = Call3{Target: token, AllowFailure: true, CallData: data}
	}

	payload, err := PackAggregate3(calls)
	if err != nil {
		return nil, fmt.Errorf("pack aggregate3: %w", err)
	}

	raw, err := b.reader.CallContract(ctx, b.multicall, payload)
	if err != nil {
		return nil, err
	}

	results, err := UnpackAggregate3(raw)
	if err != nil {
		return nil, err
	}
	if len(results) != len(owners) {
		return nil, fmt.Errorf("aggregate3 returned %d results for %d calls", len(results), len(owners))
	}

	out := make(map[string]int64, len(owners))
	for i, r := range results {
		key := strings.ToLower(owners[i].Hex())
		if !r.Success {
			out[key] = 0
			continue
		}
		bal, err := UnpackBalanceOf(r.ReturnData)
		if err != nil {
			out[key] = 0
			continue
		}
		out[key] = bal
	}
	return out, nil
}

func (b *BalanceBatcher) fallbackBalances(ctx context.Context, token common.Address, owners []common.Address) map[string]int64 {
	type result struct {
		addr string
		bal  int64
	}

	results, _ := concurrency.Map(ctx, owners, b.fallbackLimit, func(ctx context.Context, owner common.Address) (result, error) {
		key := strings.ToLower(owner.Hex())
		bal, err := b.BalanceOf(ctx, token, owner)
		if err != nil {
			b.logger.Debug("balanceOf failed", zap.String("owner", key), zap.Error(err))
			return result{addr: key}, nil
		}
		return result{addr: key, bal: bal}, nil
	})

	out := make(map[string]int64, len(owners))
	for _, r := range results {
		out[r.addr] = r.bal
	}
	return out
}

// BalanceOf calls balanceOf(owner) on token directly.
func (b *BalanceBatcher) BalanceOf(ctx context.Context, token, owner common.Address) (int64, error) {
	data, err := PackBalanceOf(owner)
	if err != nil {
		return 0, err
	}
	raw, err := b.reader.CallContract(ctx, token, data)
	if err != nil {
		return 0, err
	}
	return UnpackBalanceOf(raw)
}

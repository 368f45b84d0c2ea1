// Package chain talks to an EVM chain (Base) over JSON-RPC: read-only
// contract calls, batched NFT balance lookups and log subscriptions.
package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// ContractReader performs read-only contract calls.
type ContractReader interface {
	// CallContract executes eth_call against the latest block and returns
	// the raw return data.
	CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error)
}

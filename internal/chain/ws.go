package chain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// LogSubscriber streams contract logs over a persistent connection.
type LogSubscriber interface {
	// SubscribeLogs subscribes to logs matching the filter.
	SubscribeLogs(ctx context.Context, filter LogsFilter) (<-chan LogNotification, error)

	// Close closes the connection and every subscription channel.
	Close() error
}

// LogsFilter defines the eth_subscribe "logs" filter.
type LogsFilter struct {
	Addresses []common.Address
	// Topics holds topic0 alternatives; empty matches any event.
	Topics []common.Hash
}

// LogNotification is one log delivered by a subscription.
type LogNotification struct {
	Address     common.Address
	Topics      []common.Hash
	Data        []byte
	BlockNumber uint64
	TxHash      common.Hash
	Removed     bool
}

package chain

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"farcaster-tv/internal/apiclient"
)

// HTTPClient implements ContractReader using HTTP JSON-RPC 2.0.
type HTTPClient struct {
	transport *apiclient.Client
	requestID atomic.Uint64
}

var _ ContractReader = (*HTTPClient)(nil)

// NewHTTPClient creates a new RPC client. Transport retries follow the
// apiclient defaults unless overridden by opts.
func NewHTTPClient(endpoint string, opts ...apiclient.Option) *HTTPClient {
	return &HTTPClient{
		transport: apiclient.New("rpc", endpoint, opts...),
	}
}

// rpcRequest represents a JSON-RPC 2.0 request.
type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params,omitempty"`
}

// rpcResponse represents a JSON-RPC 2.0 response.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      uint64          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error, including execution reverts.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("RPC error %d: %s", e.Code, e.Message)
}

// call performs a JSON-RPC call. RPC errors are not retried.
func (c *HTTPClient) call(ctx context.Context, method string, params []interface{}, result interface{}) error {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      c.requestID.Add(1),
		Method:  method,
		Params:  params,
	}

	var resp rpcResponse
	if err := c.transport.PostJSON(ctx, "", req, &resp); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if resp.Error != nil {
		return resp.Error
	}

	if result != nil && resp.Result != nil {
		if err := json.Unmarshal(resp.Result, result); err != nil {
			return fmt.Errorf("unmarshal result: %w", err)
		}
	}
	return nil
}

type callMsg struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// CallContract executes eth_call at the latest block.
func (c *HTTPClient) CallContract(ctx context.Context, to common.Address, data []byte) ([]byte, error) {
	params := []interface{}{
		callMsg{To: to.Hex(), Data: hexutil.Encode(data)},
		"latest",
	}

	var result hexutil.Bytes
	if err := c.call(ctx, "eth_call", params, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// BlockNumber returns the latest block number.
func (c *HTTPClient) BlockNumber(ctx context.Context) (uint64, error) {
	var result hexutil.Uint64
	if err := c.call(ctx, "eth_blockNumber", nil, &result); err != nil {
		return 0, err
	}
	return uint64(result), nil
}

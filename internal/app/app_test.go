package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farcaster-tv/internal/chain/stub"
	"farcaster-tv/internal/config"
	"farcaster-tv/internal/domain"
)

const (
	coinAddr    = "0x1111111111111111111111111111111111111111"
	nftAddr     = "0x2222222222222222222222222222222222222222"
	walletAddr  = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa"
	createdAddr = "0x3333333333333333333333333333333333333333"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

// rpcServer answers eth_call from a stub contract reader.
func rpcServer(t *testing.T, reader *stub.ContractReader) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     uint64            `json:"id"`
			Method string            `json:"method"`
			Params []json.RawMessage `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Method != "eth_call" {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		var msg struct {
			To   string `json:"to"`
			Data string `json:"data"`
		}
		if err := json.Unmarshal(req.Params[0], &msg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		data, err := hexutil.Decode(msg.Data)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		out, err := reader.CallContract(r.Context(), common.HexToAddress(msg.To), data)
		if err != nil {
			writeJSON(w, map[string]any{"jsonrpc": "2.0", "id": req.ID, "error": map[string]any{"code": -32000, "message": err.Error()}})
			return
		}
		writeJSON(w, map[string]any{"jsonrpc": "2.0", "id": req.ID, "result": hexutil.Encode(out)})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func zoraServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/coinHolders", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"zora20Token": map[string]any{
				"tokenBalances": map[string]any{
					"pageInfo": map[string]any{"hasNextPage": false},
					"edges": []any{
						map[string]any{"node": map[string]any{
							"balance":      "5000000000000000000000",
							"ownerAddress": walletAddr,
							"ownerProfile": map[string]any{"handle": "alice"},
						}},
						map[string]any{"node": map[string]any{
							"balance":      "1000000000000000000",
							"ownerAddress": "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
							"ownerProfile": map[string]any{"handle": "dust"},
						}},
					},
				},
			},
		})
	})
	mux.HandleFunc("/profile", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"profile": map[string]any{
				"handle":       r.URL.Query().Get("identifier"),
				"publicWallet": map[string]any{"walletAddress": walletAddr},
			},
		})
	})
	mux.HandleFunc("/coin", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"zora20Token": map[string]any{
				"address":      r.URL.Query().Get("address"),
				"name":         "Community Coin",
				"createdAt":    "2026-01-02T00:00:00Z",
				"marketCap":    "12000",
				"mediaContent": map[string]any{"previewImage": map[string]any{"medium": "https://img.example/coin.png"}},
			},
		})
	})
	mux.HandleFunc("/profileCoins", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("identifier") != "alice" {
			writeJSON(w, map[string]any{"profile": nil})
			return
		}
		writeJSON(w, map[string]any{
			"profile": map[string]any{
				"createdCoins": map[string]any{
					"edges": []any{
						map[string]any{"node": map[string]any{
							"address":        createdAddr,
							"name":           "Alice Clip",
							"createdAt":      "2026-01-03T00:00:00Z",
							"creatorAddress": walletAddr,
							"mediaContent": map[string]any{
								"mimeType":    "video/mp4",
								"originalUri": "ipfs://clip",
							},
						}},
					},
				},
			},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func neynarServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/farcaster/user/bulk-by-address", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			walletAddr: []any{map[string]any{
				"fid":            7,
				"username":       "alice",
				"display_name":   "Alice",
				"pfp_url":        "https://img.example/alice.png",
				"follower_count": 1200,
			}},
		})
	})
	mux.HandleFunc("/v2/farcaster/user/balance", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"user_balance": map[string]any{
				"address_balances": []any{map[string]any{
					"token_balances": []any{map[string]any{
						"token":   map[string]any{"address": coinAddr, "name": "Community Coin"},
						"balance": map[string]any{"in_token": "5000", "in_usdc": "42.5"},
					}},
				}},
			},
		})
	})
	mux.HandleFunc("/v2/farcaster/user/nfts", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{
			"nfts": []any{map[string]any{
				"contract_address": nftAddr,
				"token_id":         "1",
				"name":             "Pass #1",
				"image_url":        "https://img.example/pass.png",
				"network":          "base",
				"acquired_at":      "2026-01-01T00:00:00Z",
			}},
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(t *testing.T) *config.Config {
	reader := stub.NewContractReader()
	reader.SetBalance(nftAddr, walletAddr, 2)

	return &config.Config{
		BaseRPCURL:           rpcServer(t, reader).URL,
		ReferenceCoinAddress: coinAddr,
		NFTContractAddress:   nftAddr,
		ZoraAPIURL:           zoraServer(t).URL,
		NeynarAPIURL:         neynarServer(t).URL,
		NeynarAPIKey:         "test-key",
		CacheBackend:         config.BackendMemory,
		MinCoinBalance:       1000,
		MinNFTBalance:        1,
		MaxFarcasterUsers:    50,
		MaxItemsPerCreator:   6,
		LRUSize:              4,
		LRUTTL:               time.Minute,
		RevalidateAfter:      10 * time.Minute,
		RequestTimeout:       5 * time.Second,
	}
}

func TestBuild_FeedEndToEnd(t *testing.T) {
	ctx := context.Background()

	a, err := Build(ctx, testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	res := a.Feed.Feed(ctx, 10)
	require.NotNil(t, res)

	require.Len(t, res.QualifiedCreators, 1)
	assert.Equal(t, "alice", res.QualifiedCreators[0].Handle)
	assert.Equal(t, domain.CacheSourceShared, res.Cache.Source)
	assert.Equal(t, 1, res.Stats.Coins)
	assert.Equal(t, 1, res.Stats.NFTs)

	ids := make([]string, 0, len(res.Items))
	for _, item := range res.Items {
		ids = append(ids, item.ID)
	}
	assert.ElementsMatch(t, []string{
		coinAddr,
		fmt.Sprintf("7-%s-1", nftAddr),
		createdAddr,
	}, ids)

	again := a.Feed.Feed(ctx, 10)
	assert.Equal(t, domain.CacheSourceLRU, again.Cache.Source)

	runs, err := a.Aggregator.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 2, runs[0].Holders)
	assert.Equal(t, 1, runs[0].Qualified)
	assert.True(t, runs[0].SocialEnabled)
}

func TestBuild_WithoutSocialKey(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.NeynarAPIKey = ""

	a, err := Build(ctx, cfg, nil)
	require.NoError(t, err)
	defer a.Close()

	p := a.Aggregator.GetUncached(ctx)
	require.NotNil(t, p)
	assert.Empty(t, p.Items)
	assert.Equal(t, domain.Stats{}, p.Stats)
	require.Len(t, p.QualifiedCreators, 1)
}

func TestWatch_NoWebSocket(t *testing.T) {
	a, err := Build(context.Background(), testConfig(t), nil)
	require.NoError(t, err)
	defer a.Close()

	assert.NoError(t, a.Watch(context.Background()))
}

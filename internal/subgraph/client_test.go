package subgraph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farcaster-tv/internal/apiclient"
	"farcaster-tv/internal/domain"
)

func newServer(t *testing.T, handle func(req graphQLRequest) string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var req graphQLRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Write([]byte(handle(req)))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestClient_PairedCoins(t *testing.T) {
	server := newServer(t, func(req graphQLRequest) string {
		assert.Contains(t, req.Query, "zoraCoins")
		assert.Equal(t, "0xdao", req.Variables["token"])
		assert.EqualValues(t, 5, req.Variables["first"])
		return `{"data":{"zoraCoins":[{"coinAddress":"0xC1","name":"Kickflip","symbol":"KF","creator":"0xA","createdAt":"1735787045","mediaMimeType":"video/mp4","mediaUri":"ipfs://v","imageUri":"ipfs://i"}]}}`
	})

	c := NewClient(server.URL, "0xDAO", apiclient.WithMaxRetries(0))
	coins, err := c.PairedCoins(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []domain.Coin{{
		Address: "0xC1", Name: "Kickflip", Symbol: "KF", CreatorAddress: "0xA", CreatedAt: "1735787045",
		MimeType: "video/mp4", OriginalURI: "ipfs://v", PreviewImage: "ipfs://i", PoolCurrencyToken: "0xdao",
	}}, coins)
}

func TestClient_Drops(t *testing.T) {
	server := newServer(t, func(req graphQLRequest) string {
		assert.Contains(t, req.Query, "droposals")
		return `{"data":{"droposals":[
			{"id":"d1","proposal":{"proposalId":"0xp1","proposalNumber":42,"title":"Drop it","proposer":"0xP"},"tokenAddress":"0xT","imageURI":"ipfs://img","animationURI":"","createdAt":"1735787045"},
			{"id":"d2","proposal":{"proposalId":"","title":"No id"},"createdAt":"1"}
		]}}`
	})

	c := NewClient(server.URL, "0xdao", apiclient.WithMaxRetries(0))
	drops, err := c.Drops(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, drops, 2)
	assert.Equal(t, domain.Drop{
		ProposalID: "0xp1", ProposalNumber: 42, Title: "Drop it", Proposer: "0xP",
		TokenAddress: "0xT", ImageURL: "ipfs://img", CreatedAt: "1735787045",
	}, drops[0])
	assert.Equal(t, "d2", drops[1].ProposalID)
}

func TestClient_GraphQLErrors(t *testing.T) {
	server := newServer(t, func(graphQLRequest) string {
		return `{"errors":[{"message":"indexer down"},{"message":"retry later"}]}`
	})

	c := NewClient(server.URL, "0xdao", apiclient.WithMaxRetries(0))
	_, err := c.Drops(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "indexer down; retry later")
}

// Package zora is a client for the Zora coins REST API.
package zora

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"farcaster-tv/internal/apiclient"
	"farcaster-tv/internal/domain"
)

// DefaultBaseURL is the public Zora SDK API.
const DefaultBaseURL = "https://api-sdk.zora.engineering"

// BaseChainID is the chain id of Base mainnet.
const BaseChainID = 8453

// Client wraps the Zora API.
type Client struct {
	api     *apiclient.Client
	chainID int
}

// NewClient creates a Zora client. apiKey may be empty.
func NewClient(baseURL, apiKey string, opts ...apiclient.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts = append([]apiclient.Option{
		apiclient.WithHeader("api-key", apiKey),
		apiclient.WithRateLimit(10, 10),
	}, opts...)
	return &Client{
		api:     apiclient.New("zora", baseURL, opts...),
		chainID: BaseChainID,
	}
}

// CoinHolders returns one page of holders of coin.
func (c *Client) CoinHolders(ctx context.Context, coin string, count int, after string) (domain.HolderPage, error) {
	q := url.Values{
		"chainId": {strconv.Itoa(c.chainID)},
		"address": {coin},
		"count":   {strconv.Itoa(count)},
	}
	if after != "" {
		q.Set("after", after)
	}

	var resp coinHoldersResponse
	if err := c.api.GetJSON(ctx, "/coinHolders", q, &resp); err != nil {
		return domain.HolderPage{}, fmt.Errorf("coin holders: %w", err)
	}
	if resp.Token == nil {
		return domain.HolderPage{}, nil
	}

	balances := resp.Token.TokenBalances
	page := domain.HolderPage{
		NextCursor: balances.PageInfo.EndCursor,
		HasNext:    balances.PageInfo.HasNextPage,
		Holders:    make([]domain.Holder, 0, len(balances.Edges)),
	}
	for _, e := range balances.Edges {
		h := domain.Holder{
			Address:    e.Node.OwnerAddress,
			RawBalance: e.Node.Balance,
		}
		if p := e.Node.OwnerProfile; p != nil {
			h.Handle = p.Handle
			h.AvatarURL = p.Avatar.url()
		}
		page.Holders = append(page.Holders, h)
	}
	return page, nil
}

// ProfileWallets returns the public wallet followed by linked wallets of
// the profile with the given handle, normalized and deduplicated.
func (c *Client) ProfileWallets(ctx context.Context, handle string) ([]string, error) {
	var resp profileResponse
	if err := c.api.GetJSON(ctx, "/profile", url.Values{"identifier": {handle}}, &resp); err != nil {
		return nil, fmt.Errorf("profile %s: %w", handle, err)
	}
	if resp.Profile == nil {
		return nil, nil
	}

	var wallets []string
	if w := resp.Profile.PublicWallet; w != nil {
		wallets = append(wallets, w.WalletAddress)
	}
	for _, e := range resp.Profile.LinkedWallets.Edges {
		wallets = append(wallets, e.Node.WalletAddress)
	}
	return domain.NormalizeAddresses(wallets), nil
}

// Coin resolves full coin metadata. It returns nil when the coin is unknown.
func (c *Client) Coin(ctx context.Context, address string) (*domain.Coin, error) {
	q := url.Values{
		"address": {address},
		"chain":   {strconv.Itoa(c.chainID)},
	}

	var resp coinResponse
	if err := c.api.GetJSON(ctx, "/coin", q, &resp); err != nil {
		return nil, fmt.Errorf("coin %s: %w", address, err)
	}
	if resp.Token == nil {
		return nil, nil
	}
	coin := resp.Token.toDomain()
	return &coin, nil
}

// ProfileCoins returns coins created by the profile with the given handle.
func (c *Client) ProfileCoins(ctx context.Context, handle string, count int) ([]domain.Coin, error) {
	q := url.Values{
		"identifier": {handle},
		"count":      {strconv.Itoa(count)},
	}

	var resp profileCoinsResponse
	if err := c.api.GetJSON(ctx, "/profileCoins", q, &resp); err != nil {
		return nil, fmt.Errorf("profile coins %s: %w", handle, err)
	}
	if resp.Profile == nil {
		return nil, nil
	}

	coins := make([]domain.Coin, 0, len(resp.Profile.CreatedCoins.Edges))
	for _, e := range resp.Profile.CreatedCoins.Edges {
		coins = append(coins, e.Node.toDomain())
	}
	return coins, nil
}

// Package neynar is a client for the Neynar Farcaster API.
package neynar

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"farcaster-tv/internal/apiclient"
	"farcaster-tv/internal/domain"
)

// DefaultBaseURL is the public Neynar API.
const DefaultBaseURL = "https://api.neynar.com"

// MaxAddressesPerRequest is the bulk-by-address request cap.
const MaxAddressesPerRequest = 350

// Network is the network queried for balances and NFTs.
const Network = "base"

// Client wraps the Neynar API.
type Client struct {
	api *apiclient.Client
}

// NewClient creates a Neynar client.
func NewClient(baseURL, apiKey string, opts ...apiclient.Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	opts = append([]apiclient.Option{
		apiclient.WithHeader("x-api-key", apiKey),
		apiclient.WithRateLimit(5, 5),
	}, opts...)
	return &Client{api: apiclient.New("neynar", baseURL, opts...)}
}

// ProfilesByAddress returns Farcaster profiles keyed by lowercase verified
// address. Addresses are chunked transparently. A failing chunk does not
// discard the others: the merged map is returned together with the joined
// chunk errors.
func (c *Client) ProfilesByAddress(ctx context.Context, addresses []string) (map[string][]domain.SocialProfile, error) {
	addresses = domain.NormalizeAddresses(addresses)
	out := make(map[string][]domain.SocialProfile, len(addresses))

	var errs []error
	for start := 0; start < len(addresses); start += MaxAddressesPerRequest {
		end := min(start+MaxAddressesPerRequest, len(addresses))
		q := url.Values{"addresses": {strings.Join(addresses[start:end], ",")}}

		var resp map[string][]user
		if err := c.api.GetJSON(ctx, "/v2/farcaster/user/bulk-by-address", q, &resp); err != nil {
			errs = append(errs, fmt.Errorf("bulk by address [%d:%d]: %w", start, end, err))
			continue
		}
		for addr, users := range resp {
			key := domain.NormalizeAddress(addr)
			for _, u := range users {
				out[key] = append(out[key], u.toDomain())
			}
		}
	}
	return out, errors.Join(errs...)
}

// CoinBalances returns the fungible token balances of fid on Base.
func (c *Client) CoinBalances(ctx context.Context, fid int64) ([]domain.CoinBalance, error) {
	q := url.Values{
		"fid":      {strconv.FormatInt(fid, 10)},
		"networks": {Network},
	}

	var resp balanceResponse
	if err := c.api.GetJSON(ctx, "/v2/farcaster/user/balance", q, &resp); err != nil {
		return nil, fmt.Errorf("balance fid %d: %w", fid, err)
	}

	var out []domain.CoinBalance
	for _, ab := range resp.UserBalance.AddressBalances {
		for _, tb := range ab.TokenBalances {
			out = append(out, domain.CoinBalance{
				Address:  tb.Token.Address,
				Name:     tb.Token.Name,
				Symbol:   tb.Token.Symbol,
				Balance:  parseAmount(tb.Balance.InToken),
				ValueUSD: parseAmount(tb.Balance.InUSDC),
			})
		}
	}
	return out, nil
}

// NFTHoldings returns the NFTs held by fid on Base.
func (c *Client) NFTHoldings(ctx context.Context, fid int64) ([]domain.NFTHolding, error) {
	q := url.Values{
		"fid":     {strconv.FormatInt(fid, 10)},
		"network": {Network},
	}

	var resp nftResponse
	if err := c.api.GetJSON(ctx, "/v2/farcaster/user/nfts", q, &resp); err != nil {
		return nil, fmt.Errorf("nfts fid %d: %w", fid, err)
	}

	out := make([]domain.NFTHolding, 0, len(resp.NFTs))
	for _, n := range resp.NFTs {
		out = append(out, domain.NFTHolding{
			Contract:       n.ContractAddress,
			TokenID:        n.TokenID,
			Name:           n.Name,
			CollectionName: n.CollectionName,
			ImageURL:       n.ImageURL,
			Chain:          n.Network,
			AcquiredAt:     n.AcquiredAt,
		})
	}
	return out, nil
}

func parseAmount(s string) float64 {
	if s == "" {
		return 0
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	return d.InexactFloat64()
}

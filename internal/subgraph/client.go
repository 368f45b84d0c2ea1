// Package subgraph queries the DAO subgraph over GraphQL for coins paired
// with the DAO token and drop proposals.
package subgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"farcaster-tv/internal/apiclient"
	"farcaster-tv/internal/domain"
)

// Client queries one subgraph endpoint.
type Client struct {
	api      *apiclient.Client
	daoToken string
}

// NewClient creates a subgraph client. daoToken is the DAO token address the
// paired-coin query filters on.
func NewClient(endpoint, daoToken string, opts ...apiclient.Option) *Client {
	return &Client{
		api:      apiclient.New("subgraph", endpoint, opts...),
		daoToken: domain.NormalizeAddress(daoToken),
	}
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLError struct {
	Message string `json:"message"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphQLError  `json:"errors"`
}

func (c *Client) query(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	var resp graphQLResponse
	if err := c.api.PostJSON(ctx, "", graphQLRequest{Query: query, Variables: vars}, &resp); err != nil {
		return err
	}
	if len(resp.Errors) > 0 {
		msgs := make([]string, len(resp.Errors))
		for i, e := range resp.Errors {
			msgs[i] = e.Message
		}
		return errors.New("graphql: " + strings.Join(msgs, "; "))
	}
	if len(resp.Data) == 0 {
		return errors.New("graphql: empty data")
	}
	return json.Unmarshal(resp.Data, out)
}

const pairedCoinsQuery = `query PairedCoins($token: String!, $first: Int!) {
  zoraCoins(
    where: { currency: $token }
    orderBy: createdAt
    orderDirection: desc
    first: $first
  ) {
    coinAddress
    name
    symbol
    creator
    createdAt
    mediaMimeType
    mediaUri
    imageUri
  }
}`

type pairedCoinsData struct {
	ZoraCoins []struct {
		CoinAddress   string `json:"coinAddress"`
		Name          string `json:"name"`
		Symbol        string `json:"symbol"`
		Creator       string `json:"creator"`
		CreatedAt     string `json:"createdAt"`
		MediaMimeType string `json:"mediaMimeType"`
		MediaURI      string `json:"mediaUri"`
		ImageURI      string `json:"imageUri"`
	} `json:"zoraCoins"`
}

// PairedCoins returns the newest coins whose pool currency is the DAO token.
func (c *Client) PairedCoins(ctx context.Context, first int) ([]domain.Coin, error) {
	var data pairedCoinsData
	vars := map[string]interface{}{"token": c.daoToken, "first": first}
	if err := c.query(ctx, pairedCoinsQuery, vars, &data); err != nil {
		return nil, fmt.Errorf("paired coins: %w", err)
	}

	coins := make([]domain.Coin, 0, len(data.ZoraCoins))
	for _, z := range data.ZoraCoins {
		coins = append(coins, domain.Coin{
			Address:           z.CoinAddress,
			Name:              z.Name,
			Symbol:            z.Symbol,
			CreatorAddress:    z.Creator,
			CreatedAt:         z.CreatedAt,
			MimeType:          z.MediaMimeType,
			OriginalURI:       z.MediaURI,
			PreviewImage:      z.ImageURI,
			PoolCurrencyToken: c.daoToken,
		})
	}
	return coins, nil
}

const dropsQuery = `query Drops($first: Int!) {
  droposals(orderBy: createdAt, orderDirection: desc, first: $first) {
    id
    proposal {
      proposalId
      proposalNumber
      title
      proposer
    }
    tokenAddress
    imageURI
    animationURI
    createdAt
  }
}`

type dropsData struct {
	Droposals []struct {
		ID       string `json:"id"`
		Proposal struct {
			ProposalID     string `json:"proposalId"`
			ProposalNumber int    `json:"proposalNumber"`
			Title          string `json:"title"`
			Proposer       string `json:"proposer"`
		} `json:"proposal"`
		TokenAddress string `json:"tokenAddress"`
		ImageURI     string `json:"imageURI"`
		AnimationURI string `json:"animationURI"`
		CreatedAt    string `json:"createdAt"`
	} `json:"droposals"`
}

// Drops returns the newest drop proposals.
func (c *Client) Drops(ctx context.Context, first int) ([]domain.Drop, error) {
	var data dropsData
	if err := c.query(ctx, dropsQuery, map[string]interface{}{"first": first}, &data); err != nil {
		return nil, fmt.Errorf("drops: %w", err)
	}

	drops := make([]domain.Drop, 0, len(data.Droposals))
	for _, d := range data.Droposals {
		id := d.Proposal.ProposalID
		if id == "" {
			id = d.ID
		}
		drops = append(drops, domain.Drop{
			ProposalID:     id,
			ProposalNumber: d.Proposal.ProposalNumber,
			Title:          d.Proposal.Title,
			Proposer:       d.Proposal.Proposer,
			TokenAddress:   d.TokenAddress,
			ImageURL:       d.ImageURI,
			VideoURL:       d.AnimationURI,
			CreatedAt:      d.CreatedAt,
		})
	}
	return drops, nil
}

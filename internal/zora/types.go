package zora

import "farcaster-tv/internal/domain"

type pageInfo struct {
	HasNextPage bool   `json:"hasNextPage"`
	EndCursor   string `json:"endCursor"`
}

type previewImage struct {
	Small  string `json:"small"`
	Medium string `json:"medium"`
}

type avatar struct {
	PreviewImage previewImage `json:"previewImage"`
}

func (a *avatar) url() string {
	if a == nil {
		return ""
	}
	if a.PreviewImage.Medium != "" {
		return a.PreviewImage.Medium
	}
	return a.PreviewImage.Small
}

type profileSummary struct {
	Handle string  `json:"handle"`
	Avatar *avatar `json:"avatar"`
}

type coinHoldersResponse struct {
	Token *struct {
		TokenBalances struct {
			Count    int      `json:"count"`
			PageInfo pageInfo `json:"pageInfo"`
			Edges    []struct {
				Node struct {
					Balance      string          `json:"balance"`
					OwnerAddress string          `json:"ownerAddress"`
					OwnerProfile *profileSummary `json:"ownerProfile"`
				} `json:"node"`
			} `json:"edges"`
		} `json:"tokenBalances"`
	} `json:"zora20Token"`
}

type wallet struct {
	WalletAddress string `json:"walletAddress"`
	WalletType    string `json:"walletType"`
}

type profileResponse struct {
	Profile *struct {
		Handle        string  `json:"handle"`
		Avatar        *avatar `json:"avatar"`
		PublicWallet  *wallet `json:"publicWallet"`
		LinkedWallets struct {
			Edges []struct {
				Node wallet `json:"node"`
			} `json:"edges"`
		} `json:"linkedWallets"`
	} `json:"profile"`
}

type coinNode struct {
	Address        string          `json:"address"`
	Name           string          `json:"name"`
	Symbol         string          `json:"symbol"`
	CreatedAt      string          `json:"createdAt"`
	CreatorAddress string          `json:"creatorAddress"`
	CreatorProfile *profileSummary `json:"creatorProfile"`
	MarketCap      string          `json:"marketCap"`
	UniqueHolders  int             `json:"uniqueHolders"`
	MediaContent   *struct {
		MimeType     string       `json:"mimeType"`
		OriginalURI  string       `json:"originalUri"`
		PreviewImage previewImage `json:"previewImage"`
	} `json:"mediaContent"`
	PoolCurrencyToken *struct {
		Address string `json:"address"`
	} `json:"poolCurrencyToken"`
}

func (n coinNode) toDomain() domain.Coin {
	c := domain.Coin{
		Address:        n.Address,
		Name:           n.Name,
		Symbol:         n.Symbol,
		CreatedAt:      n.CreatedAt,
		CreatorAddress: n.CreatorAddress,
		MarketCap:      n.MarketCap,
		UniqueHolders:  n.UniqueHolders,
	}
	if p := n.CreatorProfile; p != nil {
		c.CreatorHandle = p.Handle
		c.CreatorAvatar = p.Avatar.url()
	}
	if m := n.MediaContent; m != nil {
		c.MimeType = m.MimeType
		c.OriginalURI = m.OriginalURI
		c.PreviewImage = m.PreviewImage.Medium
		if c.PreviewImage == "" {
			c.PreviewImage = m.PreviewImage.Small
		}
	}
	if p := n.PoolCurrencyToken; p != nil {
		c.PoolCurrencyToken = p.Address
	}
	return c
}

type coinResponse struct {
	Token *coinNode `json:"zora20Token"`
}

type profileCoinsResponse struct {
	Profile *struct {
		CreatedCoins struct {
			Edges []struct {
				Node coinNode `json:"node"`
			} `json:"edges"`
		} `json:"createdCoins"`
	} `json:"profile"`
}

package neynar

import "farcaster-tv/internal/domain"

type user struct {
	FID           int64  `json:"fid"`
	Username      string `json:"username"`
	DisplayName   string `json:"display_name"`
	PfpURL        string `json:"pfp_url"`
	FollowerCount int    `json:"follower_count"`
}

func (u user) toDomain() domain.SocialProfile {
	return domain.SocialProfile{
		FID:           u.FID,
		Username:      u.Username,
		DisplayName:   u.DisplayName,
		PfpURL:        u.PfpURL,
		FollowerCount: u.FollowerCount,
	}
}

type balanceResponse struct {
	UserBalance struct {
		AddressBalances []struct {
			VerifiedAddress struct {
				Address string `json:"address"`
				Network string `json:"network"`
			} `json:"verified_address"`
			TokenBalances []struct {
				Token struct {
					Name     string `json:"name"`
					Symbol   string `json:"symbol"`
					Address  string `json:"address"`
					Decimals int    `json:"decimals"`
				} `json:"token"`
				Balance struct {
					InToken string `json:"in_token"`
					InUSDC  string `json:"in_usdc"`
				} `json:"balance"`
			} `json:"token_balances"`
		} `json:"address_balances"`
	} `json:"user_balance"`
}

type nftResponse struct {
	NFTs []struct {
		ContractAddress string `json:"contract_address"`
		TokenID         string `json:"token_id"`
		Name            string `json:"name"`
		CollectionName  string `json:"collection_name"`
		ImageURL        string `json:"image_url"`
		Network         string `json:"network"`
		AcquiredAt      string `json:"acquired_at"`
	} `json:"nfts"`
}

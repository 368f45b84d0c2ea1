package domain

import "strings"

// Thresholds gate creator qualification.
type Thresholds struct {
	MinCoinBalance float64 // reference coin units, already scaled by decimals
	MinNFTBalance  int64   // reference NFTs held across all linked wallets
}

// QualifiedCreator is a community identity eligible for the TV feed.
// Values are only built through Qualify, so both thresholds always hold.
type QualifiedCreator struct {
	Handle      string   `json:"handle"`
	AvatarURL   string   `json:"avatarUrl,omitempty"`
	CoinBalance float64  `json:"coinBalance"`
	NFTBalance  int64    `json:"nftBalance"`
	Wallets     []string `json:"wallets"`
}

// Qualify returns a QualifiedCreator when coinBalance and nftBalance both
// meet t. Wallets are lowercased and deduplicated, first occurrence kept.
func Qualify(handle, avatarURL string, coinBalance float64, nftBalance int64, wallets []string, t Thresholds) (QualifiedCreator, bool) {
	if handle == "" || coinBalance < t.MinCoinBalance || nftBalance < t.MinNFTBalance {
		return QualifiedCreator{}, false
	}
	return QualifiedCreator{
		Handle:      handle,
		AvatarURL:   avatarURL,
		CoinBalance: coinBalance,
		NFTBalance:  nftBalance,
		Wallets:     NormalizeAddresses(wallets),
	}, true
}

// NormalizeAddresses lowercases, trims and deduplicates addresses, keeping order.
func NormalizeAddresses(addrs []string) []string {
	seen := make(map[string]struct{}, len(addrs))
	out := make([]string, 0, len(addrs))
	for _, a := range addrs {
		a = NormalizeAddress(a)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// NormalizeAddress returns the lowercase, trimmed form of an address.
func NormalizeAddress(a string) string {
	return strings.ToLower(strings.TrimSpace(a))
}

// SocialProfile is a Farcaster identity resolved from a wallet address.
type SocialProfile struct {
	FID           int64  `json:"fid"`
	Username      string `json:"username"`
	DisplayName   string `json:"displayName,omitempty"`
	PfpURL        string `json:"pfpUrl,omitempty"`
	FollowerCount int    `json:"followerCount"`
}

// CreatorMatch binds a qualified creator to its best social profile.
// Transient: lives for one aggregation run.
type CreatorMatch struct {
	Creator QualifiedCreator
	Profile SocialProfile
	Wallet  string // wallet through which Profile was resolved
}

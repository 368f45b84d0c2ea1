package domain

import (
	"strconv"
	"strings"
	"time"
)

// ItemKind is the social attribution type of a TVItem.
type ItemKind string

const (
	ItemKindCoin ItemKind = "coin"
	ItemKindNFT  ItemKind = "nft"
)

// IPFSGateway rewrites ipfs:// media URIs.
const IPFSGateway = "https://ipfs.io/ipfs/"

// TVItem is a displayable feed item (a coin or an NFT).
// Every materialised item carries VideoURL or ImageURL.
type TVItem struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Creator       string `json:"creator"`
	CreatorName   string `json:"creatorName,omitempty"`
	CreatorAvatar string `json:"creatorAvatar,omitempty"`
	VideoURL      string `json:"videoUrl,omitempty"`
	ImageURL      string `json:"imageUrl,omitempty"`

	MarketCap                string `json:"marketCap,omitempty"`
	UniqueHolders            int    `json:"uniqueHolders,omitempty"`
	CoinAddress              string `json:"coinAddress,omitempty"`
	PoolCurrencyTokenAddress string `json:"poolCurrencyTokenAddress,omitempty"`

	FarcasterFID           int64    `json:"farcasterFid,omitempty"`
	FarcasterUsername      string   `json:"farcasterUsername,omitempty"`
	FarcasterFollowerCount int      `json:"farcasterFollowerCount,omitempty"`
	FarcasterType          ItemKind `json:"farcasterType,omitempty"`

	CreatedAt string `json:"createdAt"`
}

// HasMedia reports whether the item has something to display.
func (i TVItem) HasMedia() bool {
	return i.VideoURL != "" || i.ImageURL != ""
}

// IsSocial reports whether the item carries Farcaster attribution.
func (i TVItem) IsSocial() bool {
	return i.FarcasterFID != 0
}

// Address returns the normalized address the item is keyed by: its coin
// address when present, otherwise its id.
func (i TVItem) Address() string {
	if i.CoinAddress != "" {
		return NormalizeAddress(i.CoinAddress)
	}
	return NormalizeAddress(i.ID)
}

// DedupKey is the address for plain items and address:fid for social items.
func (i TVItem) DedupKey() string {
	if i.IsSocial() {
		return i.Address() + ":" + strconv.FormatInt(i.FarcasterFID, 10)
	}
	return i.Address()
}

// CreatedAtMillis parses CreatedAt (RFC 3339 or unix seconds); 0 if unparseable.
func (i TVItem) CreatedAtMillis() int64 {
	return ParseTimestampMillis(i.CreatedAt)
}

// WithProfile attributes the item to a Farcaster profile.
func (i TVItem) WithProfile(p SocialProfile, kind ItemKind) TVItem {
	i.FarcasterFID = p.FID
	i.FarcasterUsername = p.Username
	i.FarcasterFollowerCount = p.FollowerCount
	i.FarcasterType = kind
	return i
}

// ParseTimestampMillis accepts RFC 3339 timestamps and unix seconds.
func ParseTimestampMillis(s string) int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UnixMilli()
	}
	if secs, err := strconv.ParseInt(s, 10, 64); err == nil {
		return secs * 1000
	}
	return 0
}

// FormatMillis renders unix milliseconds as an RFC 3339 UTC timestamp.
func FormatMillis(ms int64) string {
	return time.UnixMilli(ms).UTC().Format(time.RFC3339)
}

// ResolveMedia picks the display media for a coin or NFT: the original URI
// when it is a video, otherwise the preview (or original image) as image.
func ResolveMedia(mimeType, originalURI, previewImage string) (videoURL, imageURL string) {
	originalURI = GatewayURL(originalURI)
	previewImage = GatewayURL(previewImage)
	mimeType = strings.ToLower(mimeType)

	if strings.HasPrefix(mimeType, "video/") && originalURI != "" {
		return originalURI, ""
	}
	if previewImage != "" {
		return "", previewImage
	}
	if strings.HasPrefix(mimeType, "image/") && originalURI != "" {
		return "", originalURI
	}
	return "", ""
}

// GatewayURL rewrites ipfs:// URIs to the public gateway.
func GatewayURL(uri string) string {
	uri = strings.TrimSpace(uri)
	if rest, ok := strings.CutPrefix(uri, "ipfs://"); ok {
		return IPFSGateway + strings.TrimPrefix(rest, "ipfs/")
	}
	return uri
}

// ItemFromCoin maps coin metadata to a TVItem. ok is false when the coin
// has no address or no displayable media.
func ItemFromCoin(c Coin) (TVItem, bool) {
	if c.Address == "" {
		return TVItem{}, false
	}
	video, image := ResolveMedia(c.MimeType, c.OriginalURI, c.PreviewImage)
	item := TVItem{
		ID:                       NormalizeAddress(c.Address),
		Title:                    firstNonEmpty(c.Name, c.Symbol, c.Address),
		Creator:                  NormalizeAddress(c.CreatorAddress),
		CreatorName:              c.CreatorHandle,
		CreatorAvatar:            c.CreatorAvatar,
		VideoURL:                 video,
		ImageURL:                 image,
		MarketCap:                c.MarketCap,
		UniqueHolders:            c.UniqueHolders,
		CoinAddress:              NormalizeAddress(c.Address),
		PoolCurrencyTokenAddress: NormalizeAddress(c.PoolCurrencyToken),
		CreatedAt:                c.CreatedAt,
	}
	if !item.HasMedia() {
		return TVItem{}, false
	}
	return item, true
}

// ItemFromNFT maps an NFT holding of a matched creator to a TVItem.
// fallbackCreatedAt is used when the provider has no acquisition time.
func ItemFromNFT(n NFTHolding, m CreatorMatch, fallbackCreatedAt string) (TVItem, bool) {
	image := GatewayURL(n.ImageURL)
	if image == "" || n.Contract == "" {
		return TVItem{}, false
	}
	createdAt := n.AcquiredAt
	if createdAt == "" {
		createdAt = fallbackCreatedAt
	}
	item := TVItem{
		ID:            strconv.FormatInt(m.Profile.FID, 10) + "-" + NormalizeAddress(n.Contract) + "-" + n.TokenID,
		Title:         firstNonEmpty(n.Name, n.CollectionName, "#"+n.TokenID),
		Creator:       m.Wallet,
		CreatorName:   firstNonEmpty(m.Profile.DisplayName, m.Profile.Username),
		CreatorAvatar: m.Profile.PfpURL,
		ImageURL:      image,
		CreatedAt:     createdAt,
	}
	return item.WithProfile(m.Profile, ItemKindNFT), true
}

// ItemFromDrop maps a drop announcement to a TVItem with a prefixed id.
func ItemFromDrop(d Drop) (TVItem, bool) {
	if d.ProposalID == "" {
		return TVItem{}, false
	}
	item := TVItem{
		ID:          "drop-" + d.ProposalID,
		Title:       d.Title,
		Creator:     NormalizeAddress(d.Proposer),
		VideoURL:    GatewayURL(d.VideoURL),
		CreatedAt:   d.CreatedAt,
		CoinAddress: NormalizeAddress(d.TokenAddress),
	}
	if item.VideoURL == "" {
		item.ImageURL = GatewayURL(d.ImageURL)
	}
	if !item.HasMedia() {
		return TVItem{}, false
	}
	return item, true
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

package domain

// Holder is one entry of a coin holder list page.
type Holder struct {
	Address    string
	RawBalance string // integer balance in base units
	Handle     string
	AvatarURL  string
}

// HolderPage is one page of a cursor-paginated holder list.
type HolderPage struct {
	Holders    []Holder
	NextCursor string
	HasNext    bool
}

// CoinBalance is one token balance held by a social identity.
type CoinBalance struct {
	Address  string
	Name     string
	Symbol   string
	Balance  float64
	ValueUSD float64
}

// NFTHolding is one NFT held by a social identity.
type NFTHolding struct {
	Contract       string
	TokenID        string
	Name           string
	CollectionName string
	ImageURL       string
	Chain          string // empty when the provider does not tag chains
	AcquiredAt     string
}

// Coin is the display metadata of a coin contract.
type Coin struct {
	Address           string
	Name              string
	Symbol            string
	CreatedAt         string
	CreatorAddress    string
	CreatorHandle     string
	CreatorAvatar     string
	MarketCap         string
	UniqueHolders     int
	MimeType          string
	OriginalURI       string
	PreviewImage      string
	PoolCurrencyToken string
}

// Drop is a DAO proposal announcing an NFT drop.
type Drop struct {
	ProposalID     string
	ProposalNumber int
	Title          string
	Proposer       string
	TokenAddress   string // drop contract, when already deployed
	ImageURL       string
	VideoURL       string
	CreatedAt      string
}

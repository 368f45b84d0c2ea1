package discovery

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"farcaster-tv/internal/concurrency"
	"farcaster-tv/internal/domain"
)

// CoinDecimals is the decimals of the reference coin.
const CoinDecimals = 18

// HolderSource pages through the holders of a coin.
type HolderSource interface {
	CoinHolders(ctx context.Context, coin string, count int, after string) (domain.HolderPage, error)
}

// WalletSource resolves the wallets linked to a social handle.
type WalletSource interface {
	ProfileWallets(ctx context.Context, handle string) ([]string, error)
}

// BalanceSource resolves NFT balances for many addresses at once.
type BalanceSource interface {
	Balances(ctx context.Context, contract string, addresses []string) map[string]int64
}

// Config holds discovery parameters.
type Config struct {
	PageSize     int // holders per page (20)
	MaxPages     int // page cap (5)
	ProfileLimit int // concurrent wallet lookups (5)
	Thresholds   domain.Thresholds
}

// DefaultConfig returns default discovery configuration.
func DefaultConfig() Config {
	return Config{
		PageSize:     20,
		MaxPages:     5,
		ProfileLimit: 5,
		Thresholds: domain.Thresholds{
			MinCoinBalance: 1000,
			MinNFTBalance:  1,
		},
	}
}

// Options configures CreatorDiscovery.
type Options struct {
	Config      Config
	Holders     HolderSource
	Wallets     WalletSource
	Balances    BalanceSource
	CoinAddress string // reference coin
	NFTContract string // reference NFT collection
	Logger      *zap.Logger
}

// CreatorDiscovery finds community members holding enough of the reference
// coin and at least one reference NFT across their linked wallets.
type CreatorDiscovery struct {
	cfg         Config
	holders     HolderSource
	wallets     WalletSource
	balances    BalanceSource
	coinAddress string
	nftContract string
	logger      *zap.Logger
}

// NewCreatorDiscovery creates a CreatorDiscovery. Zero config fields take
// their DefaultConfig values.
func NewCreatorDiscovery(opts Options) *CreatorDiscovery {
	cfg := opts.Config
	def := DefaultConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = def.MaxPages
	}
	if cfg.ProfileLimit <= 0 {
		cfg.ProfileLimit = def.ProfileLimit
	}
	if cfg.Thresholds.MinCoinBalance <= 0 {
		cfg.Thresholds.MinCoinBalance = def.Thresholds.MinCoinBalance
	}
	if cfg.Thresholds.MinNFTBalance <= 0 {
		cfg.Thresholds.MinNFTBalance = def.Thresholds.MinNFTBalance
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &CreatorDiscovery{
		cfg:         cfg,
		holders:     opts.Holders,
		wallets:     opts.Wallets,
		balances:    opts.Balances,
		coinAddress: opts.CoinAddress,
		nftContract: opts.NFTContract,
		logger:      logger.Named("discovery"),
	}
}

// candidate is a holder that passed the coin threshold.
type candidate struct {
	handle      string
	avatarURL   string
	coinBalance float64
	wallets     []string
}

// Report summarises one discovery pass.
type Report struct {
	Holders  int // holders scanned across all pages
	Creators []domain.QualifiedCreator
}

// Discover returns qualified creators ordered by coin balance descending,
// ties by handle. Upstream failures shrink the result, never fail it.
func (d *CreatorDiscovery) Discover(ctx context.Context) []domain.QualifiedCreator {
	return d.Run(ctx).Creators
}

// Run is Discover with scan counts.
func (d *CreatorDiscovery) Run(ctx context.Context) Report {
	holders := d.collectHolders(ctx)
	report := Report{Holders: len(holders), Creators: []domain.QualifiedCreator{}}

	candidates := d.candidates(holders)
	if len(candidates) == 0 {
		d.logger.Info("no candidates above coin threshold", zap.Int("holders", len(holders)))
		return report
	}

	candidates = d.resolveWallets(ctx, candidates)
	if len(candidates) == 0 {
		d.logger.Info("no candidates with linked wallets", zap.Int("holders", len(holders)))
		return report
	}

	var all []string
	for _, c := range candidates {
		all = append(all, c.wallets...)
	}
	balances := d.balances.Balances(ctx, d.nftContract, all)

	out := make([]domain.QualifiedCreator, 0, len(candidates))
	for _, c := range candidates {
		var nfts int64
		for _, w := range c.wallets {
			nfts += balances[w]
		}
		q, ok := domain.Qualify(c.handle, c.avatarURL, c.coinBalance, nfts, c.wallets, d.cfg.Thresholds)
		if !ok {
			continue
		}
		out = append(out, q)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CoinBalance != out[j].CoinBalance {
			return out[i].CoinBalance > out[j].CoinBalance
		}
		return out[i].Handle < out[j].Handle
	})

	d.logger.Info("discovery complete",
		zap.Int("holders", len(holders)),
		zap.Int("candidates", len(candidates)),
		zap.Int("qualified", len(out)))
	report.Creators = out
	return report
}

// collectHolders pages through coin holders until the last page, an empty
// cursor or the page cap. A failing page keeps what was collected.
func (d *CreatorDiscovery) collectHolders(ctx context.Context) []domain.Holder {
	var holders []domain.Holder
	cursor := ""

	for page := 0; page < d.cfg.MaxPages; page++ {
		res, err := d.holders.CoinHolders(ctx, d.coinAddress, d.cfg.PageSize, cursor)
		if err != nil {
			d.logger.Warn("holder page failed, keeping collected holders",
				zap.Int("page", page),
				zap.Int("collected", len(holders)),
				zap.Error(err))
			break
		}
		holders = append(holders, res.Holders...)

		if !res.HasNext || res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	return holders
}

// candidates takes the first holder per handle (case-insensitive) and keeps
// it when it meets the coin threshold. Later holders with the same handle
// are ignored even when the first one fell below the threshold.
func (d *CreatorDiscovery) candidates(holders []domain.Holder) []candidate {
	seen := make(map[string]bool, len(holders))
	var out []candidate

	for _, h := range holders {
		handle := strings.TrimSpace(h.Handle)
		if handle == "" {
			continue
		}
		key := strings.ToLower(handle)
		if seen[key] {
			continue
		}
		seen[key] = true

		bal := ScaleBalance(h.RawBalance, CoinDecimals)
		if bal < d.cfg.Thresholds.MinCoinBalance {
			continue
		}
		out = append(out, candidate{
			handle:      handle,
			avatarURL:   h.AvatarURL,
			coinBalance: bal,
		})
	}
	return out
}

// resolveWallets looks up linked wallets per candidate and drops those
// without any.
func (d *CreatorDiscovery) resolveWallets(ctx context.Context, cands []candidate) []candidate {
	resolved, _ := concurrency.MapIndexed(ctx, cands, d.cfg.ProfileLimit, func(ctx context.Context, c candidate) (candidate, error) {
		wallets, err := d.wallets.ProfileWallets(ctx, c.handle)
		if err != nil {
			d.logger.Warn("wallet lookup failed", zap.String("handle", c.handle), zap.Error(err))
			return c, nil
		}
		c.wallets = domain.NormalizeAddresses(wallets)
		return c, nil
	})

	out := resolved[:0]
	for _, c := range resolved {
		if len(c.wallets) == 0 {
			d.logger.Debug("candidate has no wallets", zap.String("handle", c.handle))
			continue
		}
		out = append(out, c)
	}
	return out
}

// ScaleBalance converts a raw integer token amount to units. Unparseable
// input counts as 0.
func ScaleBalance(raw string, decimals int32) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return 0
	}
	return d.Shift(-decimals).InexactFloat64()
}

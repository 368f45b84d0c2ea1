package discovery

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"farcaster-tv/internal/chain"
	"farcaster-tv/internal/chain/stub"
	"farcaster-tv/internal/domain"
)

const (
	coinAddr = "0x0cf0c3b75d522290d7d12c74d7f1f0cc47ccb23b"
	nftAddr  = "0x880fb3cf5c6cc2d7dfc13a993e839a9411200c17"
)

// units returns a raw 18-decimal amount for n whole coins.
func units(n string) string {
	return n + strings.Repeat("0", 18)
}

type fakeHolders struct {
	pages []domain.HolderPage
	fail  map[int]bool
	calls int
}

func (f *fakeHolders) CoinHolders(_ context.Context, _ string, _ int, after string) (domain.HolderPage, error) {
	idx := f.calls
	f.calls++
	if f.fail[idx] {
		return domain.HolderPage{}, errors.New("page failed")
	}
	if idx >= len(f.pages) {
		return domain.HolderPage{}, nil
	}
	return f.pages[idx], nil
}

type fakeWallets struct {
	mu      sync.Mutex
	wallets map[string][]string
	fail    map[string]bool
	lookups []string
}

func (f *fakeWallets) ProfileWallets(_ context.Context, handle string) ([]string, error) {
	f.mu.Lock()
	f.lookups = append(f.lookups, handle)
	f.mu.Unlock()
	if f.fail[handle] {
		return nil, errors.New("profile failed")
	}
	return f.wallets[handle], nil
}

type fakeBalances struct {
	balances map[string]int64
	calls    int
	seen     []string
}

func (f *fakeBalances) Balances(_ context.Context, _ string, addrs []string) map[string]int64 {
	f.calls++
	f.seen = append(f.seen, addrs...)
	out := make(map[string]int64, len(addrs))
	for _, a := range addrs {
		out[a] = f.balances[a]
	}
	return out
}

func singlePage(holders ...domain.Holder) *fakeHolders {
	return &fakeHolders{pages: []domain.HolderPage{{Holders: holders}}}
}

func TestDiscover_Scenario(t *testing.T) {
	holders := singlePage(
		domain.Holder{Address: "0xa", Handle: "small", RawBalance: units("999")},
		domain.Holder{Address: "0xb", Handle: "big", AvatarURL: "big.png", RawBalance: units("2500")},
	)
	wallets := &fakeWallets{wallets: map[string][]string{
		"small": {"0x1111111111111111111111111111111111111111"},
		"big":   {"0x2222222222222222222222222222222222222222"},
	}}

	reader := stub.NewContractReader()
	reader.SetBalance(nftAddr, "0x1111111111111111111111111111111111111111", 9)
	reader.SetBalance(nftAddr, "0x2222222222222222222222222222222222222222", 2)

	d := NewCreatorDiscovery(Options{
		Holders:     holders,
		Wallets:     wallets,
		Balances:    chain.NewBalanceBatcher(chain.BatcherOptions{Reader: reader}),
		CoinAddress: coinAddr,
		NFTContract: nftAddr,
	})

	got := d.Discover(context.Background())

	require.Len(t, got, 1)
	assert.Equal(t, domain.QualifiedCreator{
		Handle:      "big",
		AvatarURL:   "big.png",
		CoinBalance: 2500,
		NFTBalance:  2,
		Wallets:     []string{"0x2222222222222222222222222222222222222222"},
	}, got[0])
	assert.Equal(t, []string{"big"}, wallets.lookups, "below-threshold holders never reach wallet lookup")
}

func TestDiscover_ThresholdsAlwaysHold(t *testing.T) {
	var hs []domain.Holder
	bal := map[string]int64{}
	ws := map[string][]string{}
	amounts := []string{"0", "1", "999", "1000", "1001", "50000"}
	for i, amt := range amounts {
		for nfts := int64(0); nfts < 3; nfts++ {
			handle := amt + "-" + string(rune('a'+nfts))
			wallet := "0x" + strings.Repeat(string(rune('a'+i)), 38) + "0" + string(rune('0'+nfts))
			hs = append(hs, domain.Holder{Handle: handle, RawBalance: units(amt)})
			ws[handle] = []string{wallet}
			bal[wallet] = nfts
		}
	}

	cfg := DefaultConfig()
	cfg.Thresholds = domain.Thresholds{MinCoinBalance: 1000, MinNFTBalance: 2}

	d := NewCreatorDiscovery(Options{
		Config:   cfg,
		Holders:  singlePage(hs...),
		Wallets:  &fakeWallets{wallets: ws},
		Balances: &fakeBalances{balances: bal},
	})

	got := d.Discover(context.Background())
	require.NotEmpty(t, got)
	for _, q := range got {
		assert.GreaterOrEqual(t, q.CoinBalance, 1000.0, q.Handle)
		assert.GreaterOrEqual(t, q.NFTBalance, int64(2), q.Handle)
	}
	assert.Len(t, got, 3) // 1000, 1001, 50000 with 2 NFTs each
}

func TestDiscover_SumsNFTsAcrossWallets(t *testing.T) {
	bals := &fakeBalances{balances: map[string]int64{"0xw1": 1, "0xw2": 3}}
	d := NewCreatorDiscovery(Options{
		Holders:  singlePage(domain.Holder{Handle: "multi", RawBalance: units("5000")}),
		Wallets:  &fakeWallets{wallets: map[string][]string{"multi": {"0xW1", "0xw2", "0xw1"}}},
		Balances: bals,
	})

	got := d.Discover(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, int64(4), got[0].NFTBalance)
	assert.Equal(t, []string{"0xw1", "0xw2"}, got[0].Wallets)
	assert.Equal(t, 1, bals.calls)
}

func TestDiscover_FirstHandleWins(t *testing.T) {
	d := NewCreatorDiscovery(Options{
		Holders: singlePage(
			domain.Holder{Handle: "Alice", RawBalance: units("3000")},
			domain.Holder{Handle: "alice", RawBalance: units("9000")},
			domain.Holder{Handle: "", RawBalance: units("9000")},
		),
		Wallets:  &fakeWallets{wallets: map[string][]string{"Alice": {"0xa"}, "alice": {"0xb"}}},
		Balances: &fakeBalances{balances: map[string]int64{"0xa": 1, "0xb": 1}},
	})

	got := d.Discover(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "Alice", got[0].Handle)
	assert.Equal(t, 3000.0, got[0].CoinBalance)
}

func TestDiscover_DropsCandidatesWithoutWallets(t *testing.T) {
	bals := &fakeBalances{balances: map[string]int64{"0xc": 1}}
	d := NewCreatorDiscovery(Options{
		Holders: singlePage(
			domain.Holder{Handle: "nowallet", RawBalance: units("2000")},
			domain.Holder{Handle: "broken", RawBalance: units("2000")},
			domain.Holder{Handle: "ok", RawBalance: units("2000")},
		),
		Wallets: &fakeWallets{
			wallets: map[string][]string{"ok": {"0xc"}},
			fail:    map[string]bool{"broken": true},
		},
		Balances: bals,
	})

	got := d.Discover(context.Background())
	require.Len(t, got, 1)
	assert.Equal(t, "ok", got[0].Handle)
	assert.Equal(t, []string{"0xc"}, bals.seen)
}

func TestRun_ReportsHolderCount(t *testing.T) {
	d := NewCreatorDiscovery(Options{
		Holders: singlePage(
			domain.Holder{Handle: "poor", RawBalance: units("1")},
			domain.Holder{Handle: "", RawBalance: units("5000")},
		),
		Wallets:  &fakeWallets{},
		Balances: &fakeBalances{},
	})

	report := d.Run(context.Background())
	assert.Equal(t, 2, report.Holders)
	assert.Empty(t, report.Creators)
	assert.NotNil(t, report.Creators)
}

func TestDiscover_OrdersByCoinBalanceThenHandle(t *testing.T) {
	d := NewCreatorDiscovery(Options{
		Holders: singlePage(
			domain.Holder{Handle: "carol", RawBalance: units("2000")},
			domain.Holder{Handle: "bob", RawBalance: units("2000")},
			domain.Holder{Handle: "dave", RawBalance: units("8000")},
		),
		Wallets: &fakeWallets{wallets: map[string][]string{
			"carol": {"0x3"}, "bob": {"0x2"}, "dave": {"0x4"},
		}},
		Balances: &fakeBalances{balances: map[string]int64{"0x2": 1, "0x3": 1, "0x4": 1}},
	})

	got := d.Discover(context.Background())
	require.Len(t, got, 3)
	assert.Equal(t, []string{"dave", "bob", "carol"}, []string{got[0].Handle, got[1].Handle, got[2].Handle})
}

func TestCollectHolders_Pagination(t *testing.T) {
	page := func(cursor string, next bool, handles ...string) domain.HolderPage {
		p := domain.HolderPage{NextCursor: cursor, HasNext: next}
		for _, h := range handles {
			p.Holders = append(p.Holders, domain.Holder{Handle: h})
		}
		return p
	}

	t.Run("stops at last page", func(t *testing.T) {
		f := &fakeHolders{pages: []domain.HolderPage{page("c1", true, "a"), page("", false, "b"), page("", false, "c")}}
		d := NewCreatorDiscovery(Options{Holders: f})
		assert.Len(t, d.collectHolders(context.Background()), 2)
		assert.Equal(t, 2, f.calls)
	})

	t.Run("stops on empty cursor", func(t *testing.T) {
		f := &fakeHolders{pages: []domain.HolderPage{page("", true, "a"), page("", false, "b")}}
		d := NewCreatorDiscovery(Options{Holders: f})
		assert.Len(t, d.collectHolders(context.Background()), 1)
	})

	t.Run("caps pages", func(t *testing.T) {
		var pages []domain.HolderPage
		for i := 0; i < 10; i++ {
			pages = append(pages, page("next", true, "h"))
		}
		f := &fakeHolders{pages: pages}
		d := NewCreatorDiscovery(Options{Holders: f})
		assert.Len(t, d.collectHolders(context.Background()), 5)
		assert.Equal(t, 5, f.calls)
	})

	t.Run("keeps collected holders on error", func(t *testing.T) {
		f := &fakeHolders{
			pages: []domain.HolderPage{page("c1", true, "a", "b"), page("c2", true, "c")},
			fail:  map[int]bool{1: true},
		}
		d := NewCreatorDiscovery(Options{Holders: f})
		assert.Len(t, d.collectHolders(context.Background()), 2)
	})
}

func TestScaleBalance(t *testing.T) {
	assert.Equal(t, 1000.0, ScaleBalance(units("1000"), 18))
	assert.Equal(t, 1.5, ScaleBalance("1500000000000000000", 18))
	assert.Equal(t, 0.0, ScaleBalance("", 18))
	assert.Equal(t, 0.0, ScaleBalance("nope", 18))
}

func TestDiscover_FirstHandleOccurrenceDecides(t *testing.T) {
	holders := singlePage(
		domain.Holder{Address: "0xa", Handle: "Alice", RawBalance: units("10")},
		domain.Holder{Address: "0xb", Handle: "alice", RawBalance: units("5000")},
	)
	wallets := &fakeWallets{wallets: map[string][]string{
		"alice": {"0x1111111111111111111111111111111111111111"},
		"Alice": {"0x1111111111111111111111111111111111111111"},
	}}
	balances := &fakeBalances{balances: map[string]int64{"0x1111111111111111111111111111111111111111": 3}}

	d := NewCreatorDiscovery(Options{
		Holders:     holders,
		Wallets:     wallets,
		Balances:    balances,
		CoinAddress: coinAddr,
		NFTContract: nftAddr,
	})

	report := d.Run(context.Background())

	assert.Equal(t, 2, report.Holders)
	assert.Empty(t, report.Creators)
	assert.Empty(t, wallets.lookups)
	assert.Zero(t, balances.calls)
}

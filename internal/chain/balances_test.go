package chain_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"farcaster-tv/internal/chain"
	"farcaster-tv/internal/chain/stub"
)

const (
	nftContract = "0x880fb3cf5c6cc2d7dfc13a993e839a9411200c17"
	walletA     = "0x1111111111111111111111111111111111111111"
	walletB     = "0x2222222222222222222222222222222222222222"
	walletC     = "0x3333333333333333333333333333333333333333"
)

func TestBalanceBatcher_Multicall(t *testing.T) {
	reader := stub.NewContractReader()
	reader.SetBalance(nftContract, walletA, 2)
	reader.SetBalance(nftContract, walletB, 5)

	b := chain.NewBalanceBatcher(chain.BatcherOptions{Reader: reader})

	got := b.Balances(context.Background(), nftContract, []string{walletA, "0x2222222222222222222222222222222222222222", walletC})

	assert.Equal(t, map[string]int64{walletA: 2, walletB: 5, walletC: 0}, got)
	assert.Equal(t, 1, reader.Calls("aggregate3"))
	assert.Equal(t, 0, reader.Calls("balanceOf"))
}

func TestBalanceBatcher_NormalizesAndDedups(t *testing.T) {
	reader := stub.NewContractReader()
	reader.SetBalance(nftContract, walletA, 3)

	b := chain.NewBalanceBatcher(chain.BatcherOptions{Reader: reader})
	got := b.Balances(context.Background(), nftContract, []string{
		"0x1111111111111111111111111111111111111111",
		" 0X1111111111111111111111111111111111111111 ",
	})

	assert.Equal(t, map[string]int64{walletA: 3}, got)
}

func TestBalanceBatcher_FailedSubCallIsZero(t *testing.T) {
	reader := stub.NewContractReader()
	reader.SetBalance(nftContract, walletA, 1)
	reader.SetBalance(nftContract, walletB, 9)
	reader.FailOwner(walletB)

	b := chain.NewBalanceBatcher(chain.BatcherOptions{Reader: reader})
	got := b.Balances(context.Background(), nftContract, []string{walletA, walletB})

	assert.Equal(t, map[string]int64{walletA: 1, walletB: 0}, got)
	assert.Equal(t, 1, reader.Calls("aggregate3"))
}

func TestBalanceBatcher_FallbackWhenMulticallFails(t *testing.T) {
	reader := stub.NewContractReader()
	reader.SetBalance(nftContract, walletA, 2)
	reader.SetBalance(nftContract, walletB, 4)
	reader.SetBalance(nftContract, walletC, 7)
	reader.FailMulticall(true)
	reader.FailOwner(walletC)

	b := chain.NewBalanceBatcher(chain.BatcherOptions{Reader: reader, FallbackLimit: 2})
	got := b.Balances(context.Background(), nftContract, []string{walletA, walletB, walletC})

	assert.Equal(t, map[string]int64{walletA: 2, walletB: 4, walletC: 0}, got)
	assert.Equal(t, 3, reader.Calls("balanceOf"))
}

func TestBalanceBatcher_InvalidInputs(t *testing.T) {
	reader := stub.NewContractReader()
	b := chain.NewBalanceBatcher(chain.BatcherOptions{Reader: reader})

	got := b.Balances(context.Background(), nftContract, []string{"not-an-address", ""})
	assert.Equal(t, map[string]int64{"not-an-address": 0}, got)
	assert.Equal(t, 0, reader.Calls("aggregate3"))

	got = b.Balances(context.Background(), "bogus", []string{walletA})
	assert.Equal(t, map[string]int64{walletA: 0}, got)
}

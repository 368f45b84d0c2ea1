package idhash

import (
	"testing"

	"farcaster-tv/internal/domain"
)

func sampleItems() []domain.TVItem {
	return []domain.TVItem{
		{ID: "0xabc", CreatedAt: "2024-06-01T00:00:00Z", ImageURL: "https://img/a"},
		{ID: "7-0xnft-1", CreatedAt: "2024-06-02T00:00:00Z", ImageURL: "https://img/b", FarcasterFID: 7, FarcasterFollowerCount: 10},
	}
}

func TestItemsHash(t *testing.T) {
	items := sampleItems()
	creators := []domain.QualifiedCreator{{Handle: "Alice", NFTBalance: 2}}

	h := ItemsHash(items, creators)
	if len(h) != 64 {
		t.Errorf("ItemsHash() length = %d, want 64", len(h))
	}

	// determinism
	if h2 := ItemsHash(sampleItems(), creators); h != h2 {
		t.Errorf("ItemsHash() not deterministic: %s != %s", h, h2)
	}

	// order matters
	reversed := []domain.TVItem{items[1], items[0]}
	if ItemsHash(reversed, creators) == h {
		t.Error("ItemsHash() should change with item order")
	}

	// displayed fields matter
	changed := sampleItems()
	changed[1].FarcasterFollowerCount = 11
	if ItemsHash(changed, creators) == h {
		t.Error("ItemsHash() should change with follower count")
	}

	// creators matter
	if ItemsHash(items, nil) == h {
		t.Error("ItemsHash() should change with creators")
	}
}

func TestItemsHash_Empty(t *testing.T) {
	if ItemsHash(nil, nil) != ItemsHash([]domain.TVItem{}, []domain.QualifiedCreator{}) {
		t.Error("nil and empty inputs should hash the same")
	}
}

func TestPayloadETag(t *testing.T) {
	tag := PayloadETag(sampleItems(), nil)
	if len(tag) != 34 || tag[0] != '"' || tag[33] != '"' {
		t.Errorf("PayloadETag() = %s, want quoted 32-char tag", tag)
	}

	if PayloadETag(sampleItems(), nil) != tag {
		t.Error("PayloadETag() not deterministic")
	}
}

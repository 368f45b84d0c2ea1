// Package idhash derives deterministic content hashes.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"farcaster-tv/internal/domain"
)

// ItemsHash computes a SHA256 over the displayed fields of items, in order.
// Per item: id|title|createdAt|videoUrl|imageUrl|marketCap|fid|followers.
// Returns a hex-encoded hash (64 characters).
func ItemsHash(items []domain.TVItem, creators []domain.QualifiedCreator) string {
	h := sha256.New()
	for _, it := range items {
		fmt.Fprintf(h, "%s|%s|%s|%s|%s|%s|%d|%d\n",
			it.ID,
			it.Title,
			it.CreatedAt,
			it.VideoURL,
			it.ImageURL,
			it.MarketCap,
			it.FarcasterFID,
			it.FarcasterFollowerCount,
		)
	}
	h.Write([]byte{0})
	for _, c := range creators {
		fmt.Fprintf(h, "%s|%d|%s\n", strings.ToLower(c.Handle), c.NFTBalance, c.AvatarURL)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// PayloadETag is the quoted HTTP entity tag of a feed response. Timing and
// cache-source fields do not affect it.
func PayloadETag(items []domain.TVItem, creators []domain.QualifiedCreator) string {
	return `"` + ItemsHash(items, creators)[:32] + `"`
}

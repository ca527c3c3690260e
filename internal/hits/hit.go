package hits

//go:generate mockgen -source=hit.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/netip"
	"strings"
	"time"

	"webring/pkg/platform/sentinel"
)

// Hit is one embed view. Stores assign ID in insertion order; hits are never
// updated or deleted.
type Hit struct {
	ID          int64     `json:"id"`
	Slug        string    `json:"slug"`
	VisitorHash string    `json:"visitor_hash"`
	Timestamp   time.Time `json:"timestamp"`
}

// Store is the durable, append-only hit log.
type Store interface {
	Append(ctx context.Context, slug, visitorHash string, ts time.Time) error
	// All returns every hit ordered by ID.
	All(ctx context.Context) ([]Hit, error)
}

// HashVisitor derives the visitor identifier from a client address: SHA-256
// over the canonical address octets, hex encoded. IPv4-mapped IPv6 addresses
// hash the same as their IPv4 form. No salt, no rotation.
func HashVisitor(addr string) (string, error) {
	addr = strings.TrimSuffix(strings.TrimPrefix(strings.TrimSpace(addr), "["), "]")
	ip, err := netip.ParseAddr(addr)
	if err != nil {
		return "", fmt.Errorf("parse client address %q: %w", addr, sentinel.ErrInvalidInput)
	}
	ip = ip.WithZone("").Unmap()

	var sum [sha256.Size]byte
	if ip.Is4() {
		octets := ip.As4()
		sum = sha256.Sum256(octets[:])
	} else {
		octets := ip.As16()
		sum = sha256.Sum256(octets[:])
	}
	return hex.EncodeToString(sum[:]), nil
}

package link

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

// Cache is a read-through cache for link lookups. It is never the source
// of truth; callers treat every cache error as a miss and fall back to
// the store. Implementations must be safe for concurrent use.
type Cache interface {
	// GetByCode returns the cached link for a code. found is false on a
	// miss; negative reports a cached not-found marker.
	GetByCode(ctx context.Context, code string) (l Link, found, negative bool, err error)
	GetByOriginalURL(ctx context.Context, originalURL string) (l Link, found bool, err error)

	// Put caches the link under both its by-code and by-original-url keys.
	Put(ctx context.Context, l Link) error

	// PutNegative records that a code does not resolve.
	PutNegative(ctx context.Context, code string) error

	// Invalidate removes the by-code entry (positive or negative) and,
	// when originalURL is non-empty, the by-original-url entry.
	Invalidate(ctx context.Context, code, originalURL string) error
}

const (
	codeKeyPrefix = "link:code:"
	urlKeyPrefix  = "link:url:"

	// negativeMarker is stored under a by-code key to cache a not-found
	// result. It must be invalidated when that code is later created.
	negativeMarker = "-"
)

func codeKey(code string) string {
	return codeKeyPrefix + code
}

func urlKey(originalURL string) string {
	sum := sha256.Sum256([]byte(originalURL))
	return urlKeyPrefix + hex.EncodeToString(sum[:])
}

func encodeLink(l Link) ([]byte, error) {
	return json.Marshal(l)
}

func decodeLink(data []byte) (Link, error) {
	var l Link
	if err := json.Unmarshal(data, &l); err != nil {
		return Link{}, err
	}
	if l.Code == "" {
		return Link{}, errors.New("cached link has no code")
	}
	return l, nil
}

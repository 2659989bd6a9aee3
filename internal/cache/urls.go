package cache

import (
	"context"
	"time"
)

// HostedURLTTL is how long a hosted image URL is reused.
const HostedURLTTL = 7 * 24 * time.Hour

// URLs adapts a Cache to the publish pipeline's hosted-URL cache.
type URLs struct {
	cache Cache
	ttl   time.Duration
}

// NewURLs stores hosted URLs in c for HostedURLTTL.
func NewURLs(c Cache) *URLs {
	return &URLs{cache: c, ttl: HostedURLTTL}
}

func (u *URLs) Get(ctx context.Context, digest string) (string, bool) {
	val, ok, err := u.cache.Get(ctx, "hosted:"+digest)
	if err != nil || !ok {
		return "", false
	}
	return string(val), true
}

func (u *URLs) Put(ctx context.Context, digest, url string) {
	_ = u.cache.Set(ctx, "hosted:"+digest, []byte(url), u.ttl)
}

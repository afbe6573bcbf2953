package cache

import "time"

// Cache defines the interface for cache backends. Values are resolved
// thumbnail URLs keyed by article link; an empty string is a cached
// "no image found" answer, distinct from a miss.
type Cache interface {
	Get(key string) (string, bool)
	Set(key string, value string)
	SetWithTTL(key string, value string, ttl time.Duration)
	Delete(key string)
	Clear()
}

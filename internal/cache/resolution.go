package cache

import (
	"encoding/json"
	"log/slog"

	"github.com/claude/mesoplan/internal/volume"
	"github.com/coocood/freecache"
)

const (
	megabyte = 1024 * 1024
	// Resolutions depend only on their inputs, so entries only leave by eviction.
	noExpiry = 0
)

// Resolutions is a volume.ResolutionCache backed by freecache. It is safe for
// concurrent use.
type Resolutions struct {
	cache *freecache.Cache
	log   *slog.Logger
}

// NewResolutions allocates a cache of sizeMB megabytes (freecache enforces a
// 512KB minimum).
func NewResolutions(sizeMB int, log *slog.Logger) *Resolutions {
	if sizeMB <= 0 {
		sizeMB = 1
	}
	return &Resolutions{
		cache: freecache.NewCache(sizeMB * megabyte),
		log:   log,
	}
}

var _ volume.ResolutionCache = (*Resolutions)(nil)

func (r *Resolutions) Get(key string) (volume.Resolution, bool) {
	raw, err := r.cache.Get([]byte(key))
	if err != nil {
		return volume.Resolution{}, false
	}
	var res volume.Resolution
	if err := json.Unmarshal(raw, &res); err != nil {
		r.log.Warn("dropping corrupt resolution cache entry", "key", key, "error", err)
		r.cache.Del([]byte(key))
		return volume.Resolution{}, false
	}
	return res, true
}

func (r *Resolutions) Set(key string, res volume.Resolution) {
	raw, err := json.Marshal(res)
	if err != nil {
		r.log.Error("failed to encode resolution", "key", key, "error", err)
		return
	}
	if err := r.cache.Set([]byte(key), raw, noExpiry); err != nil {
		r.log.Warn("failed to cache resolution", "key", key, "error", err)
	}
}

// Stats reports hit and miss counts since creation.
func (r *Resolutions) Stats() (hits, misses int64) {
	return r.cache.HitCount(), r.cache.MissCount()
}

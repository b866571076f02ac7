package bot

import (
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/nguyenvanduocit/tradubot/pkg/translator"
)

// History remembers the last translation of each user for a while so that
// /variantes can show the alternatives without another upstream call.
type History struct {
	cache *ristretto.Cache
	ttl   time.Duration
}

func NewHistory(ttl time.Duration) (*History, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,     // ~10x the number of users we expect to track.
		MaxCost:     1 << 24, // 16MB of variant text.
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create cache: %w", err)
	}

	return &History{cache: cache, ttl: ttl}, nil
}

func (h *History) Remember(userID int64, result translator.Result) {
	cost := int64(len(result.Best))
	for _, v := range result.Variants {
		cost += int64(len(v))
	}

	h.cache.SetWithTTL(userID, result, cost, h.ttl)
	// make the entry visible to the very next message of this user
	h.cache.Wait()
}

func (h *History) Last(userID int64) (translator.Result, bool) {
	value, found := h.cache.Get(userID)
	if !found {
		return translator.Result{}, false
	}

	result, ok := value.(translator.Result)
	return result, ok
}

func (h *History) Close() {
	h.cache.Close()
}

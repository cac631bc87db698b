// Package parsecache memoizes extraction results keyed by the normalized
// utterance plus the allowed-label set. The cache is bounded but deliberately
// not an LRU: eviction removes the lexicographically smallest keys, matching
// the persisted-cache format this store is compatible with. Callers that
// share one cache across goroutines must serialize access.
package parsecache

import (
	"encoding/json"
	"sort"
	"strings"

	"pocketbudget/internal/extract"
)

// Limit is the maximum number of entries retained after Trim.
const Limit = 500

// KeySeparator joins the normalized input and the normalized label list.
const KeySeparator = "||"

type Cache struct {
	limit   int
	entries map[string]extract.Result
}

func New() *Cache {
	return &Cache{limit: Limit, entries: make(map[string]extract.Result)}
}

// Key builds the cache key for an utterance and the allowed category labels
// supplied to the model. Labels are normalized and sorted so ordering does
// not fragment the cache.
func Key(input string, labels []string) string {
	norm := make([]string, 0, len(labels))
	for _, l := range labels {
		norm = append(norm, normalize(l))
	}
	sort.Strings(norm)
	return normalize(input) + KeySeparator + strings.Join(norm, ",")
}

func (c *Cache) Get(key string) (extract.Result, bool) {
	res, ok := c.entries[key]
	return res, ok
}

func (c *Cache) Put(key string, res extract.Result) {
	c.entries[key] = res
	c.Trim()
}

// Trim drops entries until the count is back at the limit, removing the
// lexicographically smallest keys first. Not recency-based; preserved for
// compatibility with the persisted cache format rather than as a strategy.
func (c *Cache) Trim() {
	excess := len(c.entries) - c.limit
	if excess <= 0 {
		return
	}
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys[:excess] {
		delete(c.entries, k)
	}
}

func (c *Cache) Len() int {
	return len(c.entries)
}

// Snapshot serializes the map for external persistence. The cache itself is
// never authoritative; callers may discard snapshots freely.
func (c *Cache) Snapshot() ([]byte, error) {
	return json.Marshal(c.entries)
}

// Restore replaces the cache contents from a Snapshot payload, then trims.
func (c *Cache) Restore(data []byte) error {
	entries := make(map[string]extract.Result)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	c.entries = entries
	c.Trim()
	return nil
}

// normalize lowercases, trims, and collapses runs of whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

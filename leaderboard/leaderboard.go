// Package leaderboard serves the public top-N ranking. Reads go through a
// short-lived cache since the ranking only changes when a reflection is
// submitted.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/shreedev44/BetterBuddy-api/storage"
	"github.com/shreedev44/BetterBuddy-api/storage/cache"
)

// DefaultLimit is the number of entries returned when the caller does not
// ask for a specific limit.
const DefaultLimit = 100

// topCacheTTL bounds staleness of a cached ranking between submissions.
const topCacheTTL = time.Minute

// store is a global variable that holds an interface to the storage system (database).
var store storage.StorageInterface

// topCache is an optional cache for rendered rankings; when nil every read
// goes to the store.
var topCache cache.CacheInterface

// Entry is one row of the public ranking.
type Entry struct {
	Rank        int       `json:"rank"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	Score       int       `json:"score"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// InitLeaderboard initializes the leaderboard service with its storage
// backend and an optional cache.
func InitLeaderboard(s storage.StorageInterface, c cache.CacheInterface) {
	store = s
	topCache = c
}

func cacheKey(limit int64) string {
	return fmt.Sprintf("leaderboard_top_%d", limit)
}

// Top returns up to limit entries ordered by score descending, ranked from
// 1. An entry without a name falls back to its email. Results are cached
// per limit; cache failures degrade to a store read, never to an error.
func Top(ctx context.Context, limit int64) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	if topCache != nil {
		if cached, err := topCache.Get(ctx, cacheKey(limit)); err == nil {
			if entries, ok := decodeCached(cached); ok {
				return entries, nil
			}
		}
	}

	records, err := store.TopLeaderboard(ctx, limit)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(records))
	for i, record := range records {
		name := record.Name
		if name == "" {
			name = record.Email
		}
		entries = append(entries, Entry{
			Rank:        i + 1,
			Name:        name,
			Email:       record.Email,
			Score:       record.Score,
			LastUpdated: record.LastUpdated,
		})
	}

	if topCache != nil {
		if err := topCache.Set(ctx, cacheKey(limit), entries, topCacheTTL); err != nil {
			log.Printf("failed to cache leaderboard: %v", err)
		}
	}

	return entries, nil
}

// Invalidate drops the cached ranking for the default limit. Called after a
// reflection submission changes a score.
func Invalidate(ctx context.Context) {
	if topCache == nil {
		return
	}
	if err := topCache.Delete(ctx, cacheKey(DefaultLimit)); err != nil {
		log.Printf("failed to invalidate leaderboard cache: %v", err)
	}
}

// decodeCached converts the generically unmarshalled cache value back into
// entries. A value that does not round-trip is treated as a miss.
func decodeCached(value interface{}) ([]Entry, bool) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, false
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, false
	}
	return entries, true
}

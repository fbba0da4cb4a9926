package leaderboard

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shreedev44/BetterBuddy-api/models"
	"github.com/shreedev44/BetterBuddy-api/storage"
)

// fakeStore is an in-memory stand-in for the MongoDB backend. Methods not
// overridden here panic when called.
type fakeStore struct {
	storage.StorageInterface

	top       []models.Leaderboard
	lastLimit int64
	calls     int
}

func (f *fakeStore) TopLeaderboard(ctx context.Context, limit int64) ([]models.Leaderboard, error) {
	f.lastLimit = limit
	f.calls++
	if int64(len(f.top)) > limit {
		return f.top[:limit], nil
	}
	return f.top, nil
}

// fakeCache records operations and serves a canned value.
type fakeCache struct {
	values  map[string]interface{}
	sets    map[string]interface{}
	deleted []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{
		values: map[string]interface{}{},
		sets:   map[string]interface{}{},
	}
}

func (c *fakeCache) Connect(url string) error { return nil }
func (c *fakeCache) Disconnect() error        { return nil }

func (c *fakeCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.sets[key] = value
	return nil
}

func (c *fakeCache) Get(ctx context.Context, key string) (interface{}, error) {
	if value, ok := c.values[key]; ok {
		return value, nil
	}
	return nil, assert.AnError
}

func (c *fakeCache) Delete(ctx context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	return nil
}

func (c *fakeCache) Clear(ctx context.Context) error { return nil }

func testEntries() []models.Leaderboard {
	return []models.Leaderboard{
		{UserID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com", Score: 300},
		{UserID: primitive.NewObjectID(), Name: "", Email: "bob@example.com", Score: 250},
		{UserID: primitive.NewObjectID(), Name: "Carol", Email: "carol@example.com", Score: 100},
	}
}

func TestTopRanksAndNameFallback(t *testing.T) {
	f := &fakeStore{top: testEntries()}
	InitLeaderboard(f, nil)

	entries, err := Top(context.Background(), 10)
	assert.NoError(t, err)
	assert.Len(t, entries, 3)

	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "Alice", entries[0].Name)

	// A nameless entry is presented by its email.
	assert.Equal(t, 2, entries[1].Rank)
	assert.Equal(t, "bob@example.com", entries[1].Name)

	assert.Equal(t, 3, entries[2].Rank)
}

func TestTopDefaultsLimit(t *testing.T) {
	f := &fakeStore{top: testEntries()}
	InitLeaderboard(f, nil)

	_, err := Top(context.Background(), 0)
	assert.NoError(t, err)
	assert.Equal(t, int64(DefaultLimit), f.lastLimit)
}

func TestTopPopulatesCache(t *testing.T) {
	f := &fakeStore{top: testEntries()}
	c := newFakeCache()
	InitLeaderboard(f, c)

	entries, err := Top(context.Background(), 10)
	assert.NoError(t, err)
	assert.Contains(t, c.sets, "leaderboard_top_10")
	assert.Equal(t, entries, c.sets["leaderboard_top_10"])
}

func TestTopServedFromCache(t *testing.T) {
	f := &fakeStore{top: testEntries()}
	c := newFakeCache()
	c.values["leaderboard_top_10"] = []Entry{
		{Rank: 1, Name: "Cached", Email: "cached@example.com", Score: 999},
	}
	InitLeaderboard(f, c)

	entries, err := Top(context.Background(), 10)
	assert.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, "Cached", entries[0].Name)
	assert.Zero(t, f.calls)
}

func TestInvalidate(t *testing.T) {
	c := newFakeCache()
	InitLeaderboard(&fakeStore{}, c)

	Invalidate(context.Background())
	assert.Equal(t, []string{"leaderboard_top_100"}, c.deleted)
}

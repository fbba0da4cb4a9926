package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shreedev44/BetterBuddy-api/models"
	"github.com/shreedev44/BetterBuddy-api/week"
)

// ErrNotFound is returned by lookup methods when no document matches. It is
// distinct from a store failure so callers can surface a 404 rather than a
// generic error.
var ErrNotFound = errors.New("not found")

// ErrDuplicateReflection is returned when a reflection already exists for
// the (user, week) pair, either detected up front or by the unique index at
// insert time. The losing write leaves no state behind.
var ErrDuplicateReflection = errors.New("reflection already submitted for this week")

// UpdateResult represents the result of an update operation,
// specifically the count of documents matched and modified.
type UpdateResult struct {
	MatchedCount  int64
	ModifiedCount int64
}

// StorageInterface defines the set of methods that any persistent storage
// backend needs to implement.
type StorageInterface interface {
	// Establishes a connection to the storage backend.
	Connect(dbName, uri string) error
	// Disconnects from the storage backend.
	Disconnect() error

	// Finds a user in the storage backend using a filter.
	FindUser(ctx context.Context, filter interface{}) (*models.User, error)
	// Updates an existing user in the storage backend using a filter and update instructions.
	UpdateUser(ctx context.Context, filter interface{}, update interface{}) (*models.User, error)

	// Adds a new task to the storage backend.
	AddTask(ctx context.Context, task *models.Task) (*models.Task, error)
	// Updates an existing task in the storage backend using a filter and update instructions.
	UpdateTask(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error)
	// Finds the task whose week bound selected by anchor falls within the
	// calendar day of day. Returns ErrNotFound when there is none.
	FindTaskInWindow(ctx context.Context, userID primitive.ObjectID, anchor week.Anchor, day time.Time) (*models.Task, error)

	// Finds the reflection whose week bound selected by anchor falls within
	// the calendar day of day. Returns ErrNotFound when there is none.
	FindReflectionInWindow(ctx context.Context, userID primitive.ObjectID, anchor week.Anchor, day time.Time) (*models.Reflection, error)
	// Inserts the reflection and applies its completion percentage to the
	// caller's leaderboard entry as one transaction. Returns the updated
	// entry, or ErrDuplicateReflection if one already exists for the week.
	AddReflectionWithScore(ctx context.Context, reflection *models.Reflection, identity models.UserIdentity) (*models.Leaderboard, error)

	// Finds a single leaderboard entry by user. Returns ErrNotFound when absent.
	FindLeaderboard(ctx context.Context, userID primitive.ObjectID) (*models.Leaderboard, error)
	// Returns up to limit leaderboard entries ordered by score descending.
	TopLeaderboard(ctx context.Context, limit int64) ([]models.Leaderboard, error)
}

// NewStorage creates a new StorageInterface with a MongoDB backend,
// using the provided URI to connect to the MongoDB server.
func NewStorage(dbName, uri string) (StorageInterface, error) {
	storage := NewMongoStorage()
	err := storage.Connect(dbName, uri)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	return storage, nil
}

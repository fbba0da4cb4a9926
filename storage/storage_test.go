package storage

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shreedev44/BetterBuddy-api/models"
	"github.com/shreedev44/BetterBuddy-api/week"
)

// Test variables
var (
	testUserID  = primitive.NewObjectID()
	testUserID2 = primitive.NewObjectID()

	// Monday June 5 2023 through Sunday June 11 2023.
	weekStart = time.Date(2023, time.June, 5, 0, 0, 0, 0, time.UTC)
	weekEnd   = week.EndOfDay(time.Date(2023, time.June, 11, 0, 0, 0, 0, time.UTC))

	testStore *MongoStorage
)

// TestMain is the main entry point for the tests.
// It needs a reachable MongoDB replica set; without MONGODB_URI in the
// environment the whole package is skipped.
func TestMain(m *testing.M) {
	_ = godotenv.Load("../.env")

	mongodbURI := os.Getenv("MONGODB_URI")
	if mongodbURI == "" {
		fmt.Println("MONGODB_URI not set, skipping storage tests")
		os.Exit(0)
	}

	dbName := os.Getenv("TEST_DB_NAME")
	if dbName == "" {
		dbName = "betterbuddy_test"
	}

	testStore = NewMongoStorage()
	if err := testStore.Connect(dbName, mongodbURI); err != nil {
		panic("Error initializing storage: " + err.Error())
	}

	code := m.Run()

	cleanup(dbName)

	os.Exit(code)
}

// cleanup drops the test database after the run.
func cleanup(dbName string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := testStore.client.Database(dbName).Drop(ctx); err != nil {
		fmt.Println("Error dropping test database:", err)
	}
	if err := testStore.Disconnect(); err != nil {
		fmt.Println("Error disconnecting storage:", err)
	}
}

func newWeekTask(userID primitive.ObjectID, start, end time.Time) *models.Task {
	return &models.Task{
		UserID:        userID,
		WeekStartDate: start,
		WeekEndDate:   end,
		CustomTasks: []models.CustomTask{
			{Target: "read", Input: "30 pages"},
		},
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
}

func TestFindUserNotFound(t *testing.T) {
	_, err := testStore.FindUser(context.Background(), bson.M{"email": "nobody@example.com"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddTaskRequiresWindow(t *testing.T) {
	_, err := testStore.AddTask(context.Background(), &models.Task{UserID: testUserID})
	assert.Error(t, err)
}

func TestTaskWindowLookup(t *testing.T) {
	ctx := context.Background()

	added, err := testStore.AddTask(ctx, newWeekTask(testUserID, weekStart, weekEnd))
	assert.NoError(t, err)
	assert.False(t, added.ID.IsZero())

	// The start anchor matches any instant within the week-start day.
	midMorning := weekStart.Add(10 * time.Hour)
	found, err := testStore.FindTaskInWindow(ctx, testUserID, week.AnchorStart, midMorning)
	assert.NoError(t, err)
	assert.Equal(t, added.ID, found.ID)

	// The end anchor matches any instant within the week-end day.
	sundayMorning := time.Date(2023, time.June, 11, 9, 0, 0, 0, time.UTC)
	found, err = testStore.FindTaskInWindow(ctx, testUserID, week.AnchorEnd, sundayMorning)
	assert.NoError(t, err)
	assert.Equal(t, added.ID, found.ID)

	// A day outside either bound matches nothing.
	_, err = testStore.FindTaskInWindow(ctx, testUserID, week.AnchorStart, weekStart.AddDate(0, 0, 1))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddTaskDuplicateWeek(t *testing.T) {
	ctx := context.Background()

	_, err := testStore.AddTask(ctx, newWeekTask(testUserID2, weekStart, weekEnd))
	assert.NoError(t, err)

	_, err = testStore.AddTask(ctx, newWeekTask(testUserID2, weekStart, weekEnd))
	assert.Error(t, err)
}

func TestUpdateTaskValidation(t *testing.T) {
	ctx := context.Background()

	_, err := testStore.UpdateTask(ctx, nil, bson.M{"$set": bson.M{"body_movement": true}})
	assert.Error(t, err)

	_, err = testStore.UpdateTask(ctx, bson.M{}, bson.M{"$set": bson.M{"body_movement": true}})
	assert.Error(t, err)
}

func TestAddReflectionWithScore(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	identity := models.UserIdentity{UserID: userID, Name: "Test User", Email: "score@example.com"}

	reflection := &models.Reflection{
		UserID:               userID,
		WeekStartDate:        weekStart,
		WeekEndDate:          weekEnd,
		CompletionPercentage: 50,
		CreatedAt:            time.Now(),
	}

	entry, err := testStore.AddReflectionWithScore(ctx, reflection, identity)
	assert.NoError(t, err)
	assert.Equal(t, 50, entry.Score)
	assert.False(t, reflection.ID.IsZero())

	// A second week accumulates onto the same entry.
	nextWeek := &models.Reflection{
		UserID:               userID,
		WeekStartDate:        weekStart.AddDate(0, 0, 7),
		WeekEndDate:          weekEnd.AddDate(0, 0, 7),
		CompletionPercentage: 75,
		CreatedAt:            time.Now(),
	}
	entry, err = testStore.AddReflectionWithScore(ctx, nextWeek, identity)
	assert.NoError(t, err)
	assert.Equal(t, 125, entry.Score)

	stored, err := testStore.FindLeaderboard(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 125, stored.Score)
}

func TestAddReflectionDuplicateWeek(t *testing.T) {
	ctx := context.Background()
	userID := primitive.NewObjectID()
	identity := models.UserIdentity{UserID: userID, Name: "Test User", Email: "dup@example.com"}

	reflection := &models.Reflection{
		UserID:               userID,
		WeekStartDate:        weekStart,
		WeekEndDate:          weekEnd,
		CompletionPercentage: 100,
		CreatedAt:            time.Now(),
	}

	_, err := testStore.AddReflectionWithScore(ctx, reflection, identity)
	assert.NoError(t, err)

	duplicate := &models.Reflection{
		UserID:               userID,
		WeekStartDate:        weekStart,
		WeekEndDate:          weekEnd,
		CompletionPercentage: 100,
		CreatedAt:            time.Now(),
	}
	_, err = testStore.AddReflectionWithScore(ctx, duplicate, identity)
	assert.ErrorIs(t, err, ErrDuplicateReflection)

	// The losing insert must not have bumped the score.
	stored, err := testStore.FindLeaderboard(ctx, userID)
	assert.NoError(t, err)
	assert.Equal(t, 100, stored.Score)
}

func TestTopLeaderboardOrder(t *testing.T) {
	ctx := context.Background()

	for i, score := range []int{30, 90, 60} {
		userID := primitive.NewObjectID()
		identity := models.UserIdentity{
			UserID: userID,
			Name:   fmt.Sprintf("Ranked User %d", i),
			Email:  fmt.Sprintf("ranked%d@example.com", i),
		}
		reflection := &models.Reflection{
			UserID:               userID,
			WeekStartDate:        weekStart,
			WeekEndDate:          weekEnd,
			CompletionPercentage: score,
			CreatedAt:            time.Now(),
		}
		_, err := testStore.AddReflectionWithScore(ctx, reflection, identity)
		assert.NoError(t, err)
	}

	entries, err := testStore.TopLeaderboard(ctx, 100)
	assert.NoError(t, err)

	for i := 1; i < len(entries); i++ {
		assert.GreaterOrEqual(t, entries[i-1].Score, entries[i].Score)
	}
}

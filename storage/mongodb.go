package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shreedev44/BetterBuddy-api/models"
	"github.com/shreedev44/BetterBuddy-api/scoring"
	"github.com/shreedev44/BetterBuddy-api/week"
)

// MongoStorage is a struct representing a MongoDB storage.
// It provides an interface to perform CRUD operations on various collections in the MongoDB database.
type MongoStorage struct {
	client *mongo.Client
	dbName string
}

// NewMongoStorage creates a new instance of MongoStorage.
// This function doesn't establish a connection to the MongoDB server.
// To connect to the server, use the Connect method of the returned MongoStorage instance.
func NewMongoStorage() *MongoStorage {
	return &MongoStorage{}
}

// Connect establishes a connection to the MongoDB server at the given URI and database name.
// Sets up indexes and unique constraints as necessary.
// Returns an error if any issues are encountered.
func (m *MongoStorage) Connect(dbName, uri string) error {

	// Set a timeout for the connection
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Create the client options for the connection
	clientOptions := options.Client().ApplyURI(uri)
	// Connect to the MongoDB server
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("error connecting to MongoDB: %v", err)
	}

	// Save the client in the MongoStorage structure
	// Save the database name that we are connecting to
	m.client = client
	m.dbName = dbName

	// Initializing users collection
	usersCollection := m.client.Database(m.dbName).Collection("users")

	// Create an index on the "email" field. This is to ensure that every user has a unique email.
	// It will also speed up queries on the "email" field
	emailIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"email": 1, // 1 for ascending order
		},
		Options: options.Index().SetUnique(true),
	}

	// Create the email index
	_, err = usersCollection.Indexes().CreateOne(ctx, emailIndexModel)
	if err != nil {
		return fmt.Errorf("error creating email index: %v", err)
	}

	// Initializing tasks collection
	tasksCollection := m.client.Database(m.dbName).Collection("tasks")

	// Create a compound index on the "user_id" and "week_start_date" fields.
	// At most one task document may exist per user per calendar week;
	// it also speeds up the day-window lookups.
	taskWeekIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},         // 1 for ascending order
			{Key: "week_start_date", Value: 1}, // 1 for ascending order
		},
		Options: options.Index().SetUnique(true),
	}

	// Create the user_id and week_start_date index on tasks
	_, err = tasksCollection.Indexes().CreateOne(ctx, taskWeekIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id and week_start_date index on tasks: %v", err)
	}

	// Initializing reflections collection
	reflectionsCollection := m.client.Database(m.dbName).Collection("reflections")

	// Create a compound unique index on the "user_id" and "week_start_date" fields.
	// This is the duplicate-submission guard: a losing concurrent insert for
	// the same week surfaces a duplicate-key error instead of double-scoring.
	reflectionWeekIndexModel := mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "week_start_date", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}

	// Create the user_id and week_start_date index on reflections
	_, err = reflectionsCollection.Indexes().CreateOne(ctx, reflectionWeekIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id and week_start_date index on reflections: %v", err)
	}

	// Initializing leaderboard collection
	leaderboardCollection := m.client.Database(m.dbName).Collection("leaderboard")

	// Create an index on the "user_id" field. This is to ensure that every user has at most one leaderboard entry.
	leaderboardUserIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"user_id": 1,
		},
		Options: options.Index().SetUnique(true),
	}

	// Create the user_id index on leaderboard
	_, err = leaderboardCollection.Indexes().CreateOne(ctx, leaderboardUserIndexModel)
	if err != nil {
		return fmt.Errorf("error creating user_id index on leaderboard: %v", err)
	}

	// Create an index on the "score" field for efficient top-N queries.
	scoreIndexModel := mongo.IndexModel{
		Keys: bson.M{
			"score": -1, // -1 for descending order
		},
		Options: options.Index(),
	}

	// Create the score index on leaderboard
	_, err = leaderboardCollection.Indexes().CreateOne(ctx, scoreIndexModel)
	if err != nil {
		return fmt.Errorf("error creating score index on leaderboard: %v", err)
	}

	return nil
}

// Disconnect closes the connection to the MongoDB server.
// It should be called when the MongoStorage instance is no longer needed.
// Returns an error if the disconnection process fails.
func (m *MongoStorage) Disconnect() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := m.client.Disconnect(ctx)
	if err != nil {
		return fmt.Errorf("error disconnecting from MongoDB: %v", err)
	}

	return nil
}

// anchorField maps a window anchor to the bson field the lookup matches on.
func anchorField(anchor week.Anchor) string {
	if anchor == week.AnchorEnd {
		return "week_end_date"
	}
	return "week_start_date"
}

// dayFilter builds the day-granularity filter for a user's week bound: the
// stored instant must fall within the calendar day of day. Tasks carry a
// start-of-day week bound while lookups happen at any time of day, so
// matching is by day, never by exact instant.
func dayFilter(userID primitive.ObjectID, anchor week.Anchor, day time.Time) bson.M {
	startOfDay, endOfDay := week.DayBounds(day)
	return bson.M{
		"user_id": userID,
		anchorField(anchor): bson.M{
			"$gte": startOfDay,
			"$lte": endOfDay,
		},
	}
}

// isDuplicateKeyError reports whether err is a unique-index violation.
func isDuplicateKeyError(err error) bool {
	var writeException mongo.WriteException
	if errors.As(err, &writeException) {
		for _, writeError := range writeException.WriteErrors {
			if writeError.Code == 11000 {
				return true
			}
		}
	}
	var commandError mongo.CommandError
	if errors.As(err, &commandError) && commandError.Code == 11000 {
		return true
	}
	return false
}

// FindUser finds a user document in the 'users' collection that matches the given filter.
// Returns the found user as a User instance, or ErrNotFound if no document matches.
func (m *MongoStorage) FindUser(ctx context.Context, filter interface{}) (*models.User, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	result := collection.FindOne(ctx, filter)
	user := &models.User{}
	err := result.Decode(user)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return user, nil
}

// UpdateUser updates a user document in the 'users' collection that matches the given filter with the provided update.
// Returns the updated user as a User instance and an error if the update operation fails.
func (m *MongoStorage) UpdateUser(ctx context.Context, filter interface{}, update interface{}) (*models.User, error) {
	collection := m.client.Database(m.dbName).Collection("users")
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	updatedUser, err := m.FindUser(ctx, filter)
	if err != nil {
		return nil, err
	}
	return updatedUser, nil
}

// AddTask adds a new task document to the 'tasks' collection.
// The task is provided as a pointer to a Task instance.
// Returns the added task instance and an error if the insert operation fails.
func (m *MongoStorage) AddTask(ctx context.Context, task *models.Task) (*models.Task, error) {
	// Check that the task carries its week window
	if task.UserID.IsZero() || task.WeekStartDate.IsZero() || task.WeekEndDate.IsZero() {
		return nil, errors.New("invalid task fields")
	}

	collection := m.client.Database(m.dbName).Collection("tasks")
	result, err := collection.InsertOne(ctx, task)
	if err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("a task already exists for the week starting %s", task.WeekStartDate.Format("2006-01-02"))
		}
		return nil, err
	}
	task.ID = result.InsertedID.(primitive.ObjectID)
	return task, nil
}

// UpdateTask updates a task document in the 'tasks' collection that matches the given filter with the provided update.
// Filter must be non-empty for a valid updation.
// Returns the result of the update operation as an UpdateResult instance and an error if the update operation fails.
func (m *MongoStorage) UpdateTask(ctx context.Context, filter interface{}, update interface{}) (*UpdateResult, error) {
	// Check that the filter is not nil
	if filter == nil {
		return nil, errors.New("filter cannot be nil")
	}

	// Check if the filter is empty
	filterMap, ok := filter.(bson.M)
	if !ok {
		return nil, errors.New("filter must be of type bson.M")
	}
	if len(filterMap) == 0 {
		return nil, errors.New("filter cannot be empty")
	}

	collection := m.client.Database(m.dbName).Collection("tasks")
	result, err := collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, err
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return &UpdateResult{MatchedCount: result.MatchedCount, ModifiedCount: result.ModifiedCount}, nil
}

// FindTaskInWindow finds the task document whose week bound falls within the calendar day of the given instant.
// The one-task-per-user-per-week constraint guarantees at most one match.
// Returns ErrNotFound if the user has no task for that week.
func (m *MongoStorage) FindTaskInWindow(ctx context.Context, userID primitive.ObjectID, anchor week.Anchor, day time.Time) (*models.Task, error) {
	collection := m.client.Database(m.dbName).Collection("tasks")
	result := collection.FindOne(ctx, dayFilter(userID, anchor, day))
	task := &models.Task{}
	err := result.Decode(task)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return task, nil
}

// FindReflectionInWindow finds the reflection document whose week bound falls within the calendar day of the given instant.
// Returns ErrNotFound if the user has no reflection for that week.
func (m *MongoStorage) FindReflectionInWindow(ctx context.Context, userID primitive.ObjectID, anchor week.Anchor, day time.Time) (*models.Reflection, error) {
	collection := m.client.Database(m.dbName).Collection("reflections")
	result := collection.FindOne(ctx, dayFilter(userID, anchor, day))
	reflection := &models.Reflection{}
	err := result.Decode(reflection)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return reflection, nil
}

// AddReflectionWithScore inserts a reflection and folds its completion
// percentage into the caller's leaderboard entry.
//
// Both writes run inside one MongoDB transaction: a reflection is never left
// committed without its score applied, and a failed score application rolls
// the reflection back. The unique (user_id, week_start_date) index turns a
// concurrent duplicate insert into ErrDuplicateReflection, so at most one
// score increment is ever committed per (user, week).
//
// Returns the updated leaderboard entry.
func (m *MongoStorage) AddReflectionWithScore(ctx context.Context, reflection *models.Reflection, identity models.UserIdentity) (*models.Leaderboard, error) {
	session, err := m.client.StartSession()
	if err != nil {
		return nil, err
	}
	defer session.EndSession(ctx)

	reflectionsCollection := m.client.Database(m.dbName).Collection("reflections")
	leaderboardCollection := m.client.Database(m.dbName).Collection("leaderboard")

	result, err := session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		insertResult, err := reflectionsCollection.InsertOne(sessCtx, reflection)
		if err != nil {
			if isDuplicateKeyError(err) {
				return nil, ErrDuplicateReflection
			}
			return nil, err
		}
		reflection.ID = insertResult.InsertedID.(primitive.ObjectID)

		// Read-modify-write on the entry so the name is backfilled only
		// when absent; the transaction makes the pair atomic per user.
		var existing *models.Leaderboard
		findResult := leaderboardCollection.FindOne(sessCtx, bson.M{"user_id": identity.UserID})
		found := &models.Leaderboard{}
		if err := findResult.Decode(found); err != nil {
			if err != mongo.ErrNoDocuments {
				return nil, err
			}
		} else {
			existing = found
		}

		entry := scoring.ApplyScoreDelta(existing, reflection.CompletionPercentage, identity, time.Now())

		if existing == nil {
			insertEntry, err := leaderboardCollection.InsertOne(sessCtx, entry)
			if err != nil {
				return nil, err
			}
			entry.ID = insertEntry.InsertedID.(primitive.ObjectID)
			return entry, nil
		}

		update := bson.M{
			"$set": bson.M{
				"name":         entry.Name,
				"email":        entry.Email,
				"score":        entry.Score,
				"last_updated": entry.LastUpdated,
			},
		}
		if _, err := leaderboardCollection.UpdateOne(sessCtx, bson.M{"user_id": identity.UserID}, update); err != nil {
			return nil, err
		}
		return entry, nil
	})
	if err != nil {
		return nil, err
	}

	return result.(*models.Leaderboard), nil
}

// FindLeaderboard finds the leaderboard entry of a single user.
// Returns ErrNotFound if the user has never submitted a reflection.
func (m *MongoStorage) FindLeaderboard(ctx context.Context, userID primitive.ObjectID) (*models.Leaderboard, error) {
	collection := m.client.Database(m.dbName).Collection("leaderboard")
	result := collection.FindOne(ctx, bson.M{"user_id": userID})
	entry := &models.Leaderboard{}
	err := result.Decode(entry)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return entry, nil
}

// TopLeaderboard returns up to limit leaderboard entries ordered by score
// descending. The descending score index keeps this query cheap.
func (m *MongoStorage) TopLeaderboard(ctx context.Context, limit int64) ([]models.Leaderboard, error) {
	collection := m.client.Database(m.dbName).Collection("leaderboard")

	findOptions := options.Find().
		SetSort(bson.M{"score": -1}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.M{}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.Leaderboard
	for cursor.Next(ctx) {
		var entry models.Leaderboard
		err := cursor.Decode(&entry)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	return entries, cursor.Err()
}

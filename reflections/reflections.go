// Package reflections implements end-of-week reflection: looking up the
// previous week's Task, guarding against duplicate submissions, scoring the
// submitted completions and folding the result into the leaderboard.
package reflections

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shreedev44/BetterBuddy-api/models"
	"github.com/shreedev44/BetterBuddy-api/scoring"
	"github.com/shreedev44/BetterBuddy-api/storage"
	"github.com/shreedev44/BetterBuddy-api/week"
)

var (
	ErrNoTask           = errors.New("no tasks found for previous week")
	ErrAlreadySubmitted = errors.New("reflection already submitted for this week")
)

// store is a global variable that holds an interface to the storage system (database).
var store storage.StorageInterface

// nowFunc supplies the reference instant for week-window computation.
// Overridable in tests so the Sunday branch can be exercised deterministically.
var nowFunc = time.Now

// InitReflections initializes the reflection service with its storage backend.
func InitReflections(s storage.StorageInterface) {
	store = s
}

// PreviousWeekTask returns the Task of the week currently open for
// reflection. The lookup follows the window-matching policy: on Sunday the
// record is matched by its week end falling within today, on every other
// weekday by its week start falling within the previous Monday. Returns
// ErrNoTask when the user defined nothing for that week.
func PreviousWeekTask(ctx context.Context, userID primitive.ObjectID) (*models.Task, error) {
	anchor, day := week.PreviousAnchor(nowFunc())

	task, err := store.FindTaskInWindow(ctx, userID, anchor, day)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoTask
		}
		return nil, err
	}
	return task, nil
}

// PreviousWeekReflection returns the Reflection of the week currently open
// for reflection, or nil when none has been submitted yet.
func PreviousWeekReflection(ctx context.Context, userID primitive.ObjectID) (*models.Reflection, error) {
	anchor, day := week.PreviousAnchor(nowFunc())

	reflection, err := store.FindReflectionInWindow(ctx, userID, anchor, day)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return reflection, nil
}

// Submission is the user-submitted completion payload for one week.
type Submission struct {
	CustomTaskReflections  []models.CustomTaskReflection
	ScreenTimeReflection   models.ScreenTimeReflection
	BodyMovementReflection models.BodyMovementReflection
}

// Result reports the outcome of a successful submission.
type Result struct {
	Reflection           *models.Reflection
	CompletionPercentage int
	NewLeaderboardScore  int
}

// Submit records a reflection for the week that just ended and applies the
// earned completion percentage to the caller's leaderboard entry.
//
// The flow is: reject when a reflection already exists for the window
// (ErrAlreadySubmitted), load the Task the reflection scores against
// (ErrNoTask when absent), compute the completion percentage from the
// submitted payload, then insert the reflection and update the score as one
// transaction. A concurrent duplicate loses inside the store and surfaces
// as ErrAlreadySubmitted as well, so a week is never scored twice.
func Submit(ctx context.Context, identity models.UserIdentity, submission Submission) (*Result, error) {
	now := nowFunc()
	window := week.PreviousWindow(now)
	anchor, day := week.PreviousAnchor(now)

	existing, err := store.FindReflectionInWindow(ctx, identity.UserID, anchor, day)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadySubmitted
	}

	task, err := store.FindTaskInWindow(ctx, identity.UserID, anchor, day)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoTask
		}
		return nil, err
	}

	reflection := &models.Reflection{
		UserID:                 identity.UserID,
		WeekStartDate:          window.Start,
		WeekEndDate:            window.End,
		CustomTaskReflections:  submission.CustomTaskReflections,
		ScreenTimeReflection:   submission.ScreenTimeReflection,
		BodyMovementReflection: submission.BodyMovementReflection,
		CreatedAt:              now,
	}
	reflection.CompletionPercentage = scoring.CompletionPercentage(task, reflection)

	entry, err := store.AddReflectionWithScore(ctx, reflection, identity)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateReflection) {
			return nil, ErrAlreadySubmitted
		}
		return nil, err
	}

	return &Result{
		Reflection:           reflection,
		CompletionPercentage: reflection.CompletionPercentage,
		NewLeaderboardScore:  entry.Score,
	}, nil
}

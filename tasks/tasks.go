// Package tasks implements current-week task entry: reading, creating and
// editing the Task document of the week that is open at the time of the
// call.
package tasks

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shreedev44/BetterBuddy-api/models"
	"github.com/shreedev44/BetterBuddy-api/storage"
	"github.com/shreedev44/BetterBuddy-api/week"
)

var (
	ErrNoTask        = errors.New("no tasks found for current week")
	ErrNothingToSave = errors.New("at least one task or screen time target is required")
	ErrInvalidIndex  = errors.New("invalid task index")
)

// store is a global variable that holds an interface to the storage system (database).
var store storage.StorageInterface

// nowFunc supplies the reference instant for week-window computation.
// Overridable in tests so the Sunday branch can be exercised deterministically.
var nowFunc = time.Now

// InitTasks initializes the task service with its storage backend.
func InitTasks(s storage.StorageInterface) {
	store = s
}

// CurrentWeekTask returns the Task of the week currently open for entry,
// along with the computed window. When the user has no Task yet the returned
// task is nil and the window still describes the current week; no document
// is created implicitly.
func CurrentWeekTask(ctx context.Context, userID primitive.ObjectID) (*models.Task, week.Window, error) {
	window := week.CurrentWindow(nowFunc())

	task, err := store.FindTaskInWindow(ctx, userID, week.AnchorStart, window.Start)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, window, nil
		}
		return nil, window, err
	}
	return task, window, nil
}

// SaveCurrentWeekTask creates or updates the Task of the current week.
//
// customTasks replaces the stored list when non-nil; screenTimeTarget
// replaces the stored target when set. At least one custom task or a
// screen-time target must be present, otherwise ErrNothingToSave is
// returned. Body movement is never set here; it defaults to false on
// creation.
func SaveCurrentWeekTask(ctx context.Context, userID primitive.ObjectID, customTasks []models.CustomTask, screenTimeTarget *float64) (*models.Task, error) {
	if len(customTasks) == 0 && screenTimeTarget == nil {
		return nil, ErrNothingToSave
	}

	now := nowFunc()
	window := week.CurrentWindow(now)

	task, err := store.FindTaskInWindow(ctx, userID, week.AnchorStart, window.Start)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	if task != nil {
		set := bson.M{"updated_at": now}
		if customTasks != nil {
			set["custom_tasks"] = customTasks
		}
		if screenTimeTarget != nil {
			set["screen_time_target"] = screenTimeTarget
		}

		_, err := store.UpdateTask(ctx, bson.M{"_id": task.ID}, bson.M{"$set": set})
		if err != nil {
			return nil, err
		}
		return store.FindTaskInWindow(ctx, userID, week.AnchorStart, window.Start)
	}

	if customTasks == nil {
		customTasks = []models.CustomTask{}
	}

	task = &models.Task{
		UserID:           userID,
		WeekStartDate:    window.Start,
		WeekEndDate:      window.End,
		CustomTasks:      customTasks,
		ScreenTimeTarget: screenTimeTarget,
		BodyMovement:     false, // never set from the tasks page
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	return store.AddTask(ctx, task)
}

// UpdateCustomTask replaces the custom task entry at the given index of the
// current week's Task. Returns ErrNoTask when the user has no Task this
// week and ErrInvalidIndex when the index is out of range.
func UpdateCustomTask(ctx context.Context, userID primitive.ObjectID, index int, entry models.CustomTask) (*models.CustomTask, error) {
	window := week.CurrentWindow(nowFunc())

	task, err := store.FindTaskInWindow(ctx, userID, week.AnchorStart, window.Start)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrNoTask
		}
		return nil, err
	}

	if index < 0 || index >= len(task.CustomTasks) {
		return nil, ErrInvalidIndex
	}

	task.CustomTasks[index] = entry

	update := bson.M{
		"$set": bson.M{
			"custom_tasks": task.CustomTasks,
			"updated_at":   nowFunc(),
		},
	}
	if _, err := store.UpdateTask(ctx, bson.M{"_id": task.ID}, update); err != nil {
		return nil, err
	}

	return &entry, nil
}

// DeleteCustomTask removes the custom task entry at the given index of the
// current week's Task.
func DeleteCustomTask(ctx context.Context, userID primitive.ObjectID, index int) error {
	window := week.CurrentWindow(nowFunc())

	task, err := store.FindTaskInWindow(ctx, userID, week.AnchorStart, window.Start)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrNoTask
		}
		return err
	}

	if index < 0 || index >= len(task.CustomTasks) {
		return ErrInvalidIndex
	}

	task.CustomTasks = append(task.CustomTasks[:index], task.CustomTasks[index+1:]...)

	update := bson.M{
		"$set": bson.M{
			"custom_tasks": task.CustomTasks,
			"updated_at":   nowFunc(),
		},
	}
	_, err = store.UpdateTask(ctx, bson.M{"_id": task.ID}, update)
	return err
}

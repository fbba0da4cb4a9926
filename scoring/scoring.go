// Package scoring turns a submitted reflection into a completion percentage
// and folds that percentage into a user's cumulative leaderboard score.
package scoring

import (
	"math"
	"time"

	"github.com/shreedev44/BetterBuddy-api/models"
)

// CompletionPercentage computes the integer completion percentage for a
// reflection against the task it reflects on.
//
// The denominator is the number of custom tasks on the task, plus one if a
// screen-time target was set, plus one for body movement, which is always
// counted. The numerator counts the completed entries of the submitted
// reflection slice as-is, without matching them positionally against the
// task's custom task list; the screen-time completion only counts when the
// task actually carried a target.
//
// The result is round(numerator/denominator*100). A zero denominator yields
// zero; it is unreachable because of the always-counted body-movement slot,
// but guarded against regardless.
func CompletionPercentage(task *models.Task, reflection *models.Reflection) int {
	total := len(task.CustomTasks)
	completed := 0

	for _, r := range reflection.CustomTaskReflections {
		if r.Completed {
			completed++
		}
	}

	if task.ScreenTimeTarget != nil {
		total++
		if reflection.ScreenTimeReflection.Completed {
			completed++
		}
	}

	total++
	if reflection.BodyMovementReflection.Completed {
		completed++
	}

	if total == 0 {
		return 0
	}

	return int(math.Round(float64(completed) / float64(total) * 100))
}

// ApplyScoreDelta folds a freshly earned completion percentage into a
// leaderboard entry and returns the updated entry.
//
// If entry is nil a new one is constructed from the caller's identity with
// the percentage as its initial score. Otherwise the percentage is added to
// the existing score, the email is refreshed from the identity, and the name
// is backfilled only when it was previously absent. The score never
// decreases: a zero delta leaves it unchanged.
//
// The fold is pure; now is taken explicitly so callers control the
// last-updated instant.
func ApplyScoreDelta(entry *models.Leaderboard, percentage int, identity models.UserIdentity, now time.Time) *models.Leaderboard {
	if entry == nil {
		return &models.Leaderboard{
			UserID:      identity.UserID,
			Name:        identity.Name,
			Email:       identity.Email,
			Score:       percentage,
			LastUpdated: now,
		}
	}

	updated := *entry
	updated.Score += percentage
	updated.Email = identity.Email
	updated.LastUpdated = now
	if updated.Name == "" {
		updated.Name = identity.Name
	}
	return &updated
}

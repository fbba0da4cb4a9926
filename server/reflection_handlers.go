package server

import (
	"net/http"
	"strconv"

	"github.com/shreedev44/BetterBuddy-api/leaderboard"
	"github.com/shreedev44/BetterBuddy-api/models"
	"github.com/shreedev44/BetterBuddy-api/reflections"
)

func handlePreviousWeekTasks(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	task, err := reflections.PreviousWeekTask(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func handlePreviousWeekReflection(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	reflection, err := reflections.PreviousWeekReflection(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"exists":     reflection != nil,
		"reflection": reflection,
	})
}

type submitReflectionRequest struct {
	CustomTaskReflections  []models.CustomTaskReflection `json:"customTaskReflections"`
	ScreenTimeReflection   models.ScreenTimeReflection   `json:"screenTimeReflection"`
	BodyMovementReflection models.BodyMovementReflection `json:"bodyMovementReflection"`
}

func (req submitReflectionRequest) validate() []fieldError {
	var errs []fieldError
	for i, entry := range req.CustomTaskReflections {
		if entry.Target == "" {
			errs = append(errs, fieldError{
				Field:   "customTaskReflections[" + strconv.Itoa(i) + "].target",
				Message: "target is required",
			})
		}
	}
	return errs
}

func handleSubmitReflection(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req submitReflectionRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if errs := req.validate(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	identity := models.UserIdentity{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
	}

	result, err := reflections.Submit(r.Context(), identity, reflections.Submission{
		CustomTaskReflections:  req.CustomTaskReflections,
		ScreenTimeReflection:   req.ScreenTimeReflection,
		BodyMovementReflection: req.BodyMovementReflection,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	leaderboard.Invalidate(r.Context())

	writeJSON(w, http.StatusCreated, map[string]int{
		"completionPercentage": result.CompletionPercentage,
		"newLeaderboardScore":  result.NewLeaderboardScore,
	})
}

package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/shreedev44/BetterBuddy-api/models"
	"github.com/shreedev44/BetterBuddy-api/tasks"
)

// taskResponse mirrors models.Task but with a nullable id so the current
// week endpoint can describe a week for which nothing is stored yet.
type taskResponse struct {
	ID               *primitive.ObjectID `json:"id"`
	WeekStartDate    time.Time           `json:"weekStartDate"`
	WeekEndDate      time.Time           `json:"weekEndDate"`
	CustomTasks      []models.CustomTask `json:"customTasks"`
	ScreenTimeTarget *float64            `json:"screenTimeTarget"`
	BodyMovement     bool                `json:"bodyMovement"`
}

func handleGetCurrentWeekTask(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	task, window, err := tasks.CurrentWeekTask(r.Context(), user.ID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if task == nil {
		// No stored task yet. Reply with the computed window so the
		// client can render an empty week without creating anything.
		writeJSON(w, http.StatusOK, taskResponse{
			ID:            nil,
			WeekStartDate: window.Start,
			WeekEndDate:   window.End,
			CustomTasks:   []models.CustomTask{},
			BodyMovement:  false,
		})
		return
	}

	writeJSON(w, http.StatusOK, taskResponse{
		ID:               &task.ID,
		WeekStartDate:    task.WeekStartDate,
		WeekEndDate:      task.WeekEndDate,
		CustomTasks:      task.CustomTasks,
		ScreenTimeTarget: task.ScreenTimeTarget,
		BodyMovement:     task.BodyMovement,
	})
}

type saveTaskRequest struct {
	CustomTasks      []models.CustomTask `json:"customTasks"`
	ScreenTimeTarget *float64            `json:"screenTimeTarget"`
}

func (req saveTaskRequest) validate() []fieldError {
	var errs []fieldError
	for i, entry := range req.CustomTasks {
		if entry.Target == "" {
			errs = append(errs, fieldError{
				Field:   "customTasks[" + strconv.Itoa(i) + "].target",
				Message: "target is required",
			})
		}
		if entry.Input == "" {
			errs = append(errs, fieldError{
				Field:   "customTasks[" + strconv.Itoa(i) + "].input",
				Message: "input is required",
			})
		}
	}
	if req.ScreenTimeTarget != nil && *req.ScreenTimeTarget < 0 {
		errs = append(errs, fieldError{
			Field:   "screenTimeTarget",
			Message: "screen time target must not be negative",
		})
	}
	return errs
}

func handleSaveCurrentWeekTask(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	var req saveTaskRequest
	if !decodeBody(w, r, &req) {
		return
	}

	if errs := req.validate(); len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	task, err := tasks.SaveCurrentWeekTask(r.Context(), user.ID, req.CustomTasks, req.ScreenTimeTarget)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, task)
}

func taskIndexFromRequest(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(mux.Vars(r)["taskIndex"])
	if err != nil || index < 0 {
		writeValidationErrors(w, []fieldError{{Field: "taskIndex", Message: "task index must be a non-negative integer"}})
		return 0, false
	}
	return index, true
}

func handleUpdateCustomTask(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	index, ok := taskIndexFromRequest(w, r)
	if !ok {
		return
	}

	var entry models.CustomTask
	if !decodeBody(w, r, &entry) {
		return
	}

	var errs []fieldError
	if entry.Target == "" {
		errs = append(errs, fieldError{Field: "target", Message: "target is required"})
	}
	if entry.Input == "" {
		errs = append(errs, fieldError{Field: "input", Message: "input is required"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	updated, err := tasks.UpdateCustomTask(r.Context(), user.ID, index, entry)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, updated)
}

func handleDeleteCustomTask(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	index, ok := taskIndexFromRequest(w, r)
	if !ok {
		return
	}

	if err := tasks.DeleteCustomTask(r.Context(), user.ID, index); err != nil {
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "task deleted")
}

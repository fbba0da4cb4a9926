package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/shreedev44/BetterBuddy-api/auth"
	"github.com/shreedev44/BetterBuddy-api/leaderboard"
	"github.com/shreedev44/BetterBuddy-api/models"
	"github.com/shreedev44/BetterBuddy-api/queue"
	"github.com/shreedev44/BetterBuddy-api/reflections"
	"github.com/shreedev44/BetterBuddy-api/storage"
	"github.com/shreedev44/BetterBuddy-api/tasks"
	"github.com/shreedev44/BetterBuddy-api/week"
)

// fakeStore is an in-memory stand-in for the MongoDB backend shared by all
// services under test. Methods not overridden here panic when called.
type fakeStore struct {
	storage.StorageInterface

	user       *models.User
	task       *models.Task
	reflection *models.Reflection
	top        []models.Leaderboard
}

func (f *fakeStore) FindUser(ctx context.Context, filter interface{}) (*models.User, error) {
	if f.user == nil {
		return nil, storage.ErrNotFound
	}
	return f.user, nil
}

func (f *fakeStore) UpdateUser(ctx context.Context, filter interface{}, update interface{}) (*models.User, error) {
	return f.user, nil
}

func (f *fakeStore) FindTaskInWindow(ctx context.Context, userID primitive.ObjectID, anchor week.Anchor, day time.Time) (*models.Task, error) {
	if f.task == nil {
		return nil, storage.ErrNotFound
	}
	return f.task, nil
}

func (f *fakeStore) FindReflectionInWindow(ctx context.Context, userID primitive.ObjectID, anchor week.Anchor, day time.Time) (*models.Reflection, error) {
	if f.reflection == nil {
		return nil, storage.ErrNotFound
	}
	return f.reflection, nil
}

func (f *fakeStore) TopLeaderboard(ctx context.Context, limit int64) ([]models.Leaderboard, error) {
	if int64(len(f.top)) > limit {
		return f.top[:limit], nil
	}
	return f.top, nil
}

// setupServer wires every service against the fake store and returns the
// router plus a valid access token for the fake user.
func setupServer(t *testing.T, f *fakeStore) (http.Handler, string) {
	t.Helper()

	auth.InitAuth(f, "test-access-secret", "test-refresh-secret", &queue.Queue{})
	tasks.InitTasks(f)
	reflections.InitReflections(f)
	leaderboard.InitLeaderboard(f, nil)

	token := ""
	if f.user != nil {
		var err error
		token, err = auth.CreateAuthToken(f.user.ID.Hex())
		assert.NoError(t, err)
	}

	return NewRouter(), token
}

func testUser(password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &models.User{
		ID:            primitive.NewObjectID(),
		Name:          "Test User",
		Email:         "testuser1@example.com",
		PasswordHash:  string(hash),
		IsPasswordSet: true,
	}
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		assert.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	router, _ := setupServer(t, &fakeStore{})

	rec := doJSON(t, router, "GET", "/", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestProtectedRouteRequiresToken(t *testing.T) {
	router, _ := setupServer(t, &fakeStore{user: testUser("Test1234")})

	rec := doJSON(t, router, "GET", "/api/tasks/current-week", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProtectedRouteRejectsBadToken(t *testing.T) {
	router, _ := setupServer(t, &fakeStore{user: testUser("Test1234")})

	rec := doJSON(t, router, "GET", "/api/tasks/current-week", "not.a.token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginValidation(t *testing.T) {
	router, _ := setupServer(t, &fakeStore{})

	rec := doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"email":    "not-an-email",
		"password": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var body struct {
		Errors []fieldError `json:"errors"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Errors, 2)
}

func TestLoginUnknownUser(t *testing.T) {
	router, _ := setupServer(t, &fakeStore{})

	rec := doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"email":    "testuser1@example.com",
		"password": "Test1234",
	})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLoginSuccess(t *testing.T) {
	router, _ := setupServer(t, &fakeStore{user: testUser("Test1234")})

	rec := doJSON(t, router, "POST", "/api/auth/login", "", map[string]string{
		"email":    "testuser1@example.com",
		"password": "Test1234",
	})
	assert.Equal(t, http.StatusOK, rec.Code)

	var body tokenResponse
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.NotEmpty(t, body.AccessToken)
	assert.NotEmpty(t, body.RefreshToken)
	assert.Equal(t, "testuser1@example.com", body.User.Email)
}

func TestCurrentWeekTaskPlaceholder(t *testing.T) {
	router, token := setupServer(t, &fakeStore{user: testUser("Test1234")})

	rec := doJSON(t, router, "GET", "/api/tasks/current-week", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Nil(t, body["id"])
	assert.Equal(t, []interface{}{}, body["customTasks"])
	assert.Equal(t, false, body["bodyMovement"])
}

func TestSaveCurrentWeekTaskValidation(t *testing.T) {
	router, token := setupServer(t, &fakeStore{user: testUser("Test1234")})

	rec := doJSON(t, router, "POST", "/api/tasks/current-week", token, map[string]interface{}{
		"customTasks": []map[string]string{{"target": "", "input": ""}},
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSaveCurrentWeekTaskEmpty(t *testing.T) {
	router, token := setupServer(t, &fakeStore{user: testUser("Test1234")})

	rec := doJSON(t, router, "POST", "/api/tasks/current-week", token, map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCustomTaskBadIndex(t *testing.T) {
	router, token := setupServer(t, &fakeStore{user: testUser("Test1234")})

	rec := doJSON(t, router, "PUT", "/api/tasks/custom-task/abc", token, map[string]string{
		"target": "read",
		"input":  "30 pages",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviousWeekTasksNotFound(t *testing.T) {
	router, token := setupServer(t, &fakeStore{user: testUser("Test1234")})

	rec := doJSON(t, router, "GET", "/api/reflections/previous-week-tasks", token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreviousWeekReflectionExistsFlag(t *testing.T) {
	router, token := setupServer(t, &fakeStore{user: testUser("Test1234")})

	rec := doJSON(t, router, "GET", "/api/reflections/previous-week-reflection", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]interface{}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, false, body["exists"])
}

func TestSubmitReflectionConflict(t *testing.T) {
	f := &fakeStore{
		user:       testUser("Test1234"),
		reflection: &models.Reflection{},
	}
	router, token := setupServer(t, f)

	rec := doJSON(t, router, "POST", "/api/reflections/submit", token, map[string]interface{}{
		"customTaskReflections":  []interface{}{},
		"screenTimeReflection":   map[string]interface{}{"target": 14.0, "completed": false},
		"bodyMovementReflection": map[string]interface{}{"completed": true},
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLeaderboardPublic(t *testing.T) {
	f := &fakeStore{
		top: []models.Leaderboard{
			{UserID: primitive.NewObjectID(), Name: "Alice", Email: "alice@example.com", Score: 300},
			{UserID: primitive.NewObjectID(), Name: "", Email: "bob@example.com", Score: 250},
		},
	}
	router, _ := setupServer(t, f)

	rec := doJSON(t, router, "GET", "/api/leaderboard", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Leaderboard []leaderboard.Entry `json:"leaderboard"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Leaderboard, 2)
	assert.Equal(t, 1, body.Leaderboard[0].Rank)
	assert.Equal(t, "Alice", body.Leaderboard[0].Name)

	// An entry without a name falls back to its email.
	assert.Equal(t, 2, body.Leaderboard[1].Rank)
	assert.Equal(t, "bob@example.com", body.Leaderboard[1].Name)
}

func TestLeaderboardLimitValidation(t *testing.T) {
	router, _ := setupServer(t, &fakeStore{})

	rec := doJSON(t, router, "GET", "/api/leaderboard?limit=abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, router, "GET", "/api/leaderboard?limit=-1", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLeaderboardLimitApplied(t *testing.T) {
	f := &fakeStore{
		top: []models.Leaderboard{
			{Name: "Alice", Email: "alice@example.com", Score: 300},
			{Name: "Bob", Email: "bob@example.com", Score: 250},
		},
	}
	router, _ := setupServer(t, f)

	rec := doJSON(t, router, "GET", "/api/leaderboard?limit=1", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Leaderboard []leaderboard.Entry `json:"leaderboard"`
	}
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Len(t, body.Leaderboard, 1)
}

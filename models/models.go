package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// OTP holds a hashed one-time password issued for the set-password flow.
// The code is bcrypt-hashed before it is stored.
type OTP struct {
	CodeHash  string    `bson:"code_hash" json:"-"`
	ExpiresAt time.Time `bson:"expires_at" json:"expires_at"`
}

type User struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Email         string             `bson:"email" json:"email"`
	PasswordHash  string             `bson:"password_hash,omitempty" json:"-"`
	IsPasswordSet bool               `bson:"is_password_set" json:"is_password_set"`
	OTP           *OTP               `bson:"otp,omitempty" json:"-"`
	RefreshToken  string             `bson:"refresh_token,omitempty" json:"-"`
}

// UserIdentity is the authenticated caller's identity as supplied by the
// auth layer. Downstream services trust it without re-validating.
type UserIdentity struct {
	UserID primitive.ObjectID
	Name   string
	Email  string
}

type CustomTask struct {
	Target string `bson:"target" json:"target"`
	Input  string `bson:"input" json:"input"`
}

// Task is the set of goals a user has defined for one calendar week.
// There is at most one Task per (user, week); the week is the fixed
// Monday 00:00:00.000 to Sunday 23:59:59.999 window.
type Task struct {
	ID               primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID           primitive.ObjectID `bson:"user_id" json:"user_id"`
	WeekStartDate    time.Time          `bson:"week_start_date" json:"weekStartDate"`
	WeekEndDate      time.Time          `bson:"week_end_date" json:"weekEndDate"`
	CustomTasks      []CustomTask       `bson:"custom_tasks" json:"customTasks"`
	ScreenTimeTarget *float64           `bson:"screen_time_target" json:"screenTimeTarget"`
	BodyMovement     bool               `bson:"body_movement" json:"bodyMovement"`
	CreatedAt        time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time          `bson:"updated_at" json:"updated_at"`
}

type CustomTaskReflection struct {
	Target      string `bson:"target" json:"target"`
	Input       string `bson:"input" json:"input"`
	Completed   bool   `bson:"completed" json:"completed"`
	Explanation string `bson:"explanation,omitempty" json:"explanation,omitempty"`
}

type ScreenTimeReflection struct {
	Target      float64 `bson:"target" json:"target"`
	Completed   bool    `bson:"completed" json:"completed"`
	Explanation string  `bson:"explanation,omitempty" json:"explanation,omitempty"`
}

type BodyMovementReflection struct {
	Completed   bool   `bson:"completed" json:"completed"`
	Explanation string `bson:"explanation,omitempty" json:"explanation,omitempty"`
}

// Reflection records how a user did against the Task of an ended week.
// It is written once and never updated; uniqueness on (user_id,
// week_start_date) is enforced by the store.
type Reflection struct {
	ID                     primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID                 primitive.ObjectID     `bson:"user_id" json:"user_id"`
	WeekStartDate          time.Time              `bson:"week_start_date" json:"weekStartDate"`
	WeekEndDate            time.Time              `bson:"week_end_date" json:"weekEndDate"`
	CustomTaskReflections  []CustomTaskReflection `bson:"custom_task_reflections" json:"customTaskReflections"`
	ScreenTimeReflection   ScreenTimeReflection   `bson:"screen_time_reflection" json:"screenTimeReflection"`
	BodyMovementReflection BodyMovementReflection `bson:"body_movement_reflection" json:"bodyMovementReflection"`
	CompletionPercentage   int                    `bson:"completion_percentage" json:"completionPercentage"`
	CreatedAt              time.Time              `bson:"created_at" json:"created_at"`
}

// Leaderboard is one user's cumulative score: the sum of every completion
// percentage they have ever earned. The score never decreases.
type Leaderboard struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Name        string             `bson:"name" json:"name"`
	Email       string             `bson:"email" json:"email"`
	Score       int                `bson:"score" json:"score"`
	LastUpdated time.Time          `bson:"last_updated" json:"lastUpdated"`
}

package auth

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/form3tech-oss/jwt-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/shreedev44/BetterBuddy-api/lib/utils"
	"github.com/shreedev44/BetterBuddy-api/models"
	"github.com/shreedev44/BetterBuddy-api/queue"
	"github.com/shreedev44/BetterBuddy-api/storage"
)

// Sentinel errors surfaced to the transport layer, which maps them to HTTP
// statuses.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrPasswordNotSet     = errors.New("password not set, use forgot password to set your password")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrOTPNotRequested    = errors.New("OTP not requested")
	ErrInvalidOTP         = errors.New("invalid OTP")
	ErrOTPExpired         = errors.New("OTP expired")
	ErrInvalidToken       = errors.New("invalid token")
	ErrExpiredToken       = errors.New("token expired")
)

// otpValidity is how long a requested OTP stays usable.
const otpValidity = 10 * time.Minute

// store is a global variable that holds an interface to the storage system (database).
var store storage.StorageInterface

// accessSigningKey and refreshSigningKey are global variables that hold the keys used for
// signing and verifying the two kinds of JWT tokens. They are distinct so a refresh token
// can never pass as an access token.
var accessSigningKey string
var refreshSigningKey string

// otpQueue is a global variable that stores a reference to the messaging queue used to deliver OTP emails.
var otpQueue *queue.Queue

// InitAuth is a function for initializing the authentication system.
//
// It accepts four arguments:
// - s: The storage backend holding the user documents.
// - accessKey: The key used to sign access tokens.
// - refreshKey: The key used to sign refresh tokens.
// - q: A queue system used to deliver OTP emails.
func InitAuth(s storage.StorageInterface, accessKey, refreshKey string, q *queue.Queue) {
	store = s
	accessSigningKey = accessKey
	refreshSigningKey = refreshKey
	otpQueue = q
}

// CreateAuthToken is a function to create a signed JWT access token for a user.
//
// It accepts one argument:
// - userId: The ID of the user to generate a token for.
//
// The function creates a JWT token with the user's ID and a one-day expiration.
// It returns a signed JWT token or an error if there was a problem during the token creation.
func CreateAuthToken(userId string) (string, error) {
	claims := jwt.MapClaims{
		"id":  userId,
		"exp": time.Now().Add(time.Hour * 24).Unix(),
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := newToken.SignedString([]byte(accessSigningKey))

	if err != nil {
		return "", errors.New("failed to create auth token")
	}

	return signedToken, nil
}

// CreateRefreshToken is a function to create a refresh JWT token for a user.
//
// It accepts one argument:
// - userId: The ID of the user to generate a refresh token for.
//
// The function creates a JWT refresh token with the user's ID and a fifteen-day expiration.
// It returns a signed JWT refresh token or an error if there was a problem during the token creation.
func CreateRefreshToken(userId string) (string, error) {
	claims := jwt.MapClaims{
		"id":  userId,
		"exp": time.Now().Add(time.Hour * 24 * 15).Unix(),
	}

	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := newToken.SignedString([]byte(refreshSigningKey))

	if err != nil {
		return "", errors.New("failed to create refresh token")
	}

	return signedToken, nil
}

// CreateTokens is a function to create both an auth token and a refresh token for a user.
//
// It accepts one argument:
// - userId: The ID of the user to generate tokens for.
//
// The function calls the CreateAuthToken and CreateRefreshToken functions to create a pair of tokens.
// It returns the pair of tokens or an error if there was a problem during the token creation.
func CreateTokens(userId string) (string, string, error) {
	authToken, authErr := CreateAuthToken(userId)
	if authErr != nil {
		return "", "", authErr
	}

	refreshToken, refreshErr := CreateRefreshToken(userId)
	if refreshErr != nil {
		return "", "", refreshErr
	}

	return authToken, refreshToken, nil
}

// parseToken parses and validates a signed JWT with the given key and
// returns the user id claim.
func parseToken(tokenStr, signingKey string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return "", fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(signingKey), nil
	})

	if err != nil {
		if ve, ok := err.(*jwt.ValidationError); ok {
			if ve.Errors&jwt.ValidationErrorExpired != 0 {
				return "", ErrExpiredToken
			}
		}
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}

	userId, ok := claims["id"].(string)
	if !ok {
		return "", ErrInvalidToken
	}

	return userId, nil
}

// ParseAuthToken validates an access token and returns the user id it carries.
func ParseAuthToken(tokenStr string) (string, error) {
	return parseToken(tokenStr, accessSigningKey)
}

// generateOTP returns a random 6-digit one-time password.
func generateOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

// SignIn is a function for authenticating a user.
//
// It accepts three arguments:
// - ctx: The context of the calling request.
// - email: A string containing the email of the user attempting to log in.
// - password: A string containing the password of the user attempting to log in.
//
// This function performs several tasks:
// It finds the user in the database by their email.
// It rejects users that have never set a password with ErrPasswordNotSet.
// It compares the hashed password stored in the database with the password provided by the user.
// It generates a new pair of tokens and persists the refresh token on the user record.
//
// The function returns an authentication token, a refresh token, the signed-in user,
// and an error if there was a problem with any step of the process.
func SignIn(ctx context.Context, email, password string) (string, string, *models.User, error) {

	foundUser, err := store.FindUser(ctx, bson.M{"email": email})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", "", nil, ErrUserNotFound
		}
		return "", "", nil, err
	}

	if !foundUser.IsPasswordSet {
		return "", "", nil, ErrPasswordNotSet
	}

	err = bcrypt.CompareHashAndPassword([]byte(foundUser.PasswordHash), []byte(password))
	if err != nil {
		return "", "", nil, ErrInvalidCredentials
	}

	token, refreshToken, err := CreateTokens(foundUser.ID.Hex())
	if err != nil {
		return "", "", nil, err
	}

	_, err = store.UpdateUser(ctx, bson.M{"_id": foundUser.ID}, bson.M{"$set": bson.M{"refresh_token": refreshToken}})
	if err != nil {
		return "", "", nil, err
	}

	return token, refreshToken, foundUser, nil
}

// RequestPasswordReset is a function that starts the forgot-password flow for a user.
//
// It accepts two arguments:
// - ctx: The context of the calling request.
// - email: A string containing the email of the user requesting the reset.
//
// This function performs several tasks:
// It finds the user by email, generates a random 6-digit OTP, hashes it,
// and stores the hash with a ten-minute expiry on the user record.
// It then publishes the plaintext OTP to the delivery queue; the queue
// consumers email it to the user exactly once.
//
// The function returns an error if there was a problem with any step of the process.
func RequestPasswordReset(ctx context.Context, email string) error {

	foundUser, err := store.FindUser(ctx, bson.M{"email": email})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}

	code, err := generateOTP()
	if err != nil {
		return err
	}

	// Hash the OTP before storing it, the same way passwords are stored.
	hashedCode, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	otp := &models.OTP{
		CodeHash:  string(hashedCode),
		ExpiresAt: time.Now().Add(otpValidity),
	}

	_, err = store.UpdateUser(ctx, bson.M{"_id": foundUser.ID}, bson.M{"$set": bson.M{"otp": otp}})
	if err != nil {
		return err
	}

	otpMsg := &queue.OTPMessage{
		Id:   primitive.NewObjectID().Hex(),
		Code: code,
		To:   foundUser.Email,
	}

	return queue.ProcessOTP(otpMsg, otpQueue)
}

// VerifyOTPAndSetPassword is a function that completes the forgot-password flow.
//
// It accepts four arguments:
// - ctx: The context of the calling request.
// - email: A string containing the email of the user.
// - code: A string containing the OTP the user received.
// - newPassword: A string containing the password to set.
//
// This function performs several tasks:
// It finds the user by email and checks that an OTP was requested, has not
// expired, and matches the stored hash.
// It validates the new password's complexity, hashes it, stores it, marks the
// password as set, and clears the OTP.
// It then generates a fresh pair of tokens and persists the refresh token.
//
// The function returns an authentication token, a refresh token, the user,
// and an error if there was a problem with any step of the process.
func VerifyOTPAndSetPassword(ctx context.Context, email, code, newPassword string) (string, string, *models.User, error) {

	if !utils.ValidatePassword(newPassword) {
		return "", "", nil, errors.New("password must be at least 8 characters and contain both letters and numbers")
	}

	foundUser, err := store.FindUser(ctx, bson.M{"email": email})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", "", nil, ErrUserNotFound
		}
		return "", "", nil, err
	}

	if foundUser.OTP == nil || foundUser.OTP.CodeHash == "" {
		return "", "", nil, ErrOTPNotRequested
	}

	if time.Now().After(foundUser.OTP.ExpiresAt) {
		return "", "", nil, ErrOTPExpired
	}

	if err := bcrypt.CompareHashAndPassword([]byte(foundUser.OTP.CodeHash), []byte(code)); err != nil {
		return "", "", nil, ErrInvalidOTP
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", "", nil, err
	}

	token, refreshToken, err := CreateTokens(foundUser.ID.Hex())
	if err != nil {
		return "", "", nil, err
	}

	update := bson.M{
		"$set": bson.M{
			"password_hash":   string(hashedPassword),
			"is_password_set": true,
			"refresh_token":   refreshToken,
		},
		"$unset": bson.M{
			"otp": "",
		},
	}

	updatedUser, err := store.UpdateUser(ctx, bson.M{"_id": foundUser.ID}, update)
	if err != nil {
		return "", "", nil, err
	}

	return token, refreshToken, updatedUser, nil
}

// RefreshTokens is a function that validates a refresh token and generates a new pair of tokens if it is valid.
//
// It accepts two arguments:
// - ctx: The context of the calling request.
// - refreshToken: A string containing the refresh token to be validated.
//
// This function parses the refresh token, loads the user it names, and checks that the
// presented token is the one currently stored on the user record, so a rotated-out
// token can never be replayed. On success it rotates both tokens and persists the new
// refresh token.
//
// The function returns the new tokens, and an error if there was a problem with any step of the process.
func RefreshTokens(ctx context.Context, refreshToken string) (string, string, error) {

	userId, err := parseToken(refreshToken, refreshSigningKey)
	if err != nil {
		return "", "", err
	}

	objectID, err := primitive.ObjectIDFromHex(userId)
	if err != nil {
		return "", "", ErrInvalidToken
	}

	foundUser, err := store.FindUser(ctx, bson.M{"_id": objectID})
	if err != nil {
		return "", "", ErrInvalidToken
	}

	if foundUser.RefreshToken != refreshToken {
		return "", "", ErrInvalidToken
	}

	newToken, newRefreshToken, err := CreateTokens(userId)
	if err != nil {
		return "", "", err
	}

	_, err = store.UpdateUser(ctx, bson.M{"_id": objectID}, bson.M{"$set": bson.M{"refresh_token": newRefreshToken}})
	if err != nil {
		return "", "", err
	}

	return newToken, newRefreshToken, nil
}

// SignOut clears the refresh token stored on the user record, so the
// session can no longer be extended.
func SignOut(ctx context.Context, userID primitive.ObjectID) error {
	_, err := store.UpdateUser(ctx, bson.M{"_id": userID}, bson.M{"$unset": bson.M{"refresh_token": ""}})
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return err
	}
	return nil
}

// GetUser loads the user record for an authenticated caller.
func GetUser(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	foundUser, err := store.FindUser(ctx, bson.M{"_id": userID})
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return foundUser, nil
}

package server

import (
	"net/http"

	"github.com/shreedev44/BetterBuddy-api/auth"
	"github.com/shreedev44/BetterBuddy-api/lib/utils"
	"github.com/shreedev44/BetterBuddy-api/models"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	User         *models.User `json:"user"`
}

func handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if !decodeBody(w, r, &req) {
		return
	}

	var errs []fieldError
	if !utils.ValidateEmail(req.Email) {
		errs = append(errs, fieldError{Field: "email", Message: "a valid email is required"})
	}
	if req.Password == "" {
		errs = append(errs, fieldError{Field: "password", Message: "password is required"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	accessToken, refreshToken, user, err := auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}

func handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if !utils.ValidateEmail(req.Email) {
		writeValidationErrors(w, []fieldError{{Field: "email", Message: "a valid email is required"}})
		return
	}

	if err := auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "OTP sent to your email")
}

func handleVerifyOTPSetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		OTP      string `json:"otp"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	var errs []fieldError
	if !utils.ValidateEmail(req.Email) {
		errs = append(errs, fieldError{Field: "email", Message: "a valid email is required"})
	}
	if len(req.OTP) != 6 {
		errs = append(errs, fieldError{Field: "otp", Message: "a 6-digit OTP is required"})
	}
	if !utils.ValidatePassword(req.Password) {
		errs = append(errs, fieldError{Field: "password", Message: "password must be at least 8 characters and contain both letters and numbers"})
	}
	if len(errs) > 0 {
		writeValidationErrors(w, errs)
		return
	}

	accessToken, refreshToken, user, err := auth.VerifyOTPAndSetPassword(r.Context(), req.Email, req.OTP, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}

func handleRefreshToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refreshToken"`
	}
	if !decodeBody(w, r, &req) {
		return
	}

	if req.RefreshToken == "" {
		writeValidationErrors(w, []fieldError{{Field: "refreshToken", Message: "refresh token is required"}})
		return
	}

	accessToken, refreshToken, err := auth.RefreshTokens(r.Context(), req.RefreshToken)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	})
}

func handleLogout(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())

	if err := auth.SignOut(r.Context(), user.ID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeMessage(w, http.StatusOK, "logged out")
}

func handleMe(w http.ResponseWriter, r *http.Request) {
	user := userFromContext(r.Context())
	writeJSON(w, http.StatusOK, user)
}

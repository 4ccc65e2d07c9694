package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/agrimitra/agrimitra-backend/internal/middleware"
	"github.com/agrimitra/agrimitra-backend/internal/repository"
	"github.com/agrimitra/agrimitra-backend/internal/services"
	"github.com/agrimitra/agrimitra-backend/pkg/utils"
)

type AuthHandler struct {
	auth *services.AuthService
	repo repository.UserRepository
}

func NewAuthHandler(auth *services.AuthService, repo repository.UserRepository) *AuthHandler {
	return &AuthHandler{auth: auth, repo: repo}
}

type registerRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyEmailRequest struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type emailRequest struct {
	Email string `json:"email"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type resetPasswordRequest struct {
	Email       string `json:"email"`
	OTP         string `json:"otp"`
	NewPassword string `json:"newPassword"`
}

type setupRequest struct {
	Username       string   `json:"username,omitempty"`
	FullName       *string  `json:"fullName,omitempty"`
	ProfileImage   *string  `json:"profileImage,omitempty"`
	Location       *string  `json:"location,omitempty"`
	FarmSize       *string  `json:"farmSize,omitempty"`
	Experience     *string  `json:"experience,omitempty"`
	SoilType       *string  `json:"soilType,omitempty"`
	IrrigationType *string  `json:"irrigationType,omitempty"`
	FarmingType    *string  `json:"farmingType,omitempty"`
	Devices        []string `json:"devices,omitempty"`
}

// Register handles new-account signup and the retry-registration path
// for unverified emails.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.auth.Register(r.Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	message := "verification code sent to your email"
	if !res.EmailSent {
		message = "account created but the verification email could not be sent, please use resend"
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"message": message,
		"email":   res.Email,
	})
}

// VerifyEmail consumes the emailed code and returns a session token.
func (h *AuthHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := h.auth.VerifyEmail(r.Context(), req.Email, req.OTP)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user":    user.PublicView(),
	})
}

// ResendOTP issues a fresh verification code for an unverified account.
func (h *AuthHandler) ResendOTP(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sent, err := h.auth.ResendOTP(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	message := "verification code sent to your email"
	if !sent {
		message = "verification code could not be sent, please try again"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
	})
}

// Login authenticates by email or username.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, user, err := h.auth.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"token":   token,
		"user":    user.PublicView(),
	})
}

// ForgotPassword starts the reset flow by emailing a reset code.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sent, err := h.auth.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	message := "password reset code sent to your email"
	if !sent {
		message = "reset code could not be sent, please try again"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": message,
	})
}

// VerifyResetOTP lets the client confirm a reset code before asking the
// user for a new password. No state changes.
func (h *AuthHandler) VerifyResetOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.auth.VerifyResetOTP(r.Context(), req.Email, req.OTP); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "OTP verified",
	})
}

// ResetPassword sets a new password after re-checking the reset code.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.auth.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "password has been reset",
	})
}

// SetupProfile updates the farm profile. The target user comes from the
// bearer token when one is supplied; otherwise the username in the body
// is used (open self-service onboarding path for the mobile client).
func (h *AuthHandler) SetupProfile(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		if req.Username == "" {
			writeError(w, http.StatusBadRequest, "username is required")
			return
		}
		var err error
		user, err = h.repo.FindByUsername(r.Context(), utils.NormalizeIdentifier(req.Username))
		if errors.Is(err, repository.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "no account found for this username")
			return
		}
		if err != nil {
			writeServiceError(w, err)
			return
		}
	}

	updated, err := h.auth.SetupProfile(r.Context(), user, services.ProfileUpdate{
		FullName:       req.FullName,
		ProfileImage:   req.ProfileImage,
		Location:       req.Location,
		FarmSize:       req.FarmSize,
		Experience:     req.Experience,
		SoilType:       req.SoilType,
		IrrigationType: req.IrrigationType,
		FarmingType:    req.FarmingType,
		Devices:        req.Devices,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    updated.PublicView(),
	})
}

// Me returns the authenticated caller's profile.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFrom(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"user":    user.PublicView(),
	})
}

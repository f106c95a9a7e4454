package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"go-pharmacy/apperrors"
	"go-pharmacy/models"
	"go-pharmacy/store"
	"go-pharmacy/utils"
)

// Mailer dispatches the verification and reset emails. Satisfied by
// *email.Service; faked in tests.
type Mailer interface {
	SendVerificationEmail(to, token string) error
	SendPasswordResetEmail(to, token string) error
}

// AuthController handles registration, verification, login and password
// reset for both account kinds.
type AuthController struct {
	accounts store.AccountStore
	tokens   *utils.TokenManager
	mailer   Mailer
}

func NewAuthController(accounts store.AccountStore, tokens *utils.TokenManager, mailer Mailer) *AuthController {
	return &AuthController{accounts: accounts, tokens: tokens, mailer: mailer}
}

type registerUserRequest struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Address  string `json:"address" validate:"required"`
}

type registerPharmacyRequest struct {
	Name          string `json:"name" validate:"required"`
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required,min=8"`
	Address       string `json:"address" validate:"required"`
	LicenseNumber string `json:"licenseNumber" validate:"required"`
}

// RegisterUser handles end-user registration.
func (ac *AuthController) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid input", http.StatusBadRequest))
		return
	}
	if violations := utils.ValidateStruct(req); violations != nil {
		writeError(w, apperrors.ValidationError(violations))
		return
	}

	acct := &models.Account{
		Kind:    models.KindUser,
		Name:    req.Name,
		Email:   strings.ToLower(strings.TrimSpace(req.Email)),
		Address: req.Address,
	}
	ac.register(w, r, acct, req.Password, "User")
}

// RegisterPharmacy handles pharmacy registration.
func (ac *AuthController) RegisterPharmacy(w http.ResponseWriter, r *http.Request) {
	var req registerPharmacyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid input", http.StatusBadRequest))
		return
	}
	if violations := utils.ValidateStruct(req); violations != nil {
		writeError(w, apperrors.ValidationError(violations))
		return
	}

	acct := &models.Account{
		Kind:          models.KindPharmacy,
		Name:          req.Name,
		Email:         strings.ToLower(strings.TrimSpace(req.Email)),
		Address:       req.Address,
		LicenseNumber: req.LicenseNumber,
	}
	ac.register(w, r, acct, req.Password, "Pharmacy")
}

// register runs the shared registration flow for either account kind:
// uniqueness check, password hash, verification token, persist, email.
// The raw token leaves the process only inside the email.
func (ac *AuthController) register(w http.ResponseWriter, r *http.Request, acct *models.Account, password, label string) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	exists, err := ac.accounts.Exists(ctx, acct.Kind, acct.Email, acct.LicenseNumber)
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if exists {
		writeError(w, apperrors.Duplicate(label+" already exists"))
		return
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		writeError(w, apperrors.Internal(err))
		return
	}
	acct.Password = hashed

	token, err := utils.GenerateRandomToken()
	if err != nil {
		writeError(w, apperrors.Internal(err))
		return
	}
	expiry := time.Now().Add(utils.EmailTokenTTL)
	acct.VerificationToken = token
	acct.VerificationTokenExpiry = &expiry

	if err := ac.accounts.Insert(ctx, acct); err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}

	if err := ac.mailer.SendVerificationEmail(acct.Email, token); err != nil {
		writeError(w, apperrors.Internal(err))
		return
	}

	writeJSON(w, http.StatusCreated, messageResponse{
		Message: label + " registered successfully. Please check your email for verification.",
	})
}

// VerifyEmail consumes a verification token. Wrong and expired tokens
// are indistinguishable to the caller.
func (ac *AuthController) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acct, err := ac.accounts.FindByVerificationToken(ctx, token, time.Now())
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if acct == nil {
		writeError(w, apperrors.ErrInvalidToken)
		return
	}

	if err := ac.accounts.MarkVerified(ctx, acct); err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Email verified successfully"})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string                `json:"token"`
	User  models.AccountSummary `json:"user"`
}

// Login authenticates either account kind and issues a session token.
// Unknown account, unverified account and wrong password all produce the
// same error to avoid account enumeration.
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	var creds loginRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid input", http.StatusBadRequest))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acct, err := ac.accounts.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if acct == nil || !acct.IsVerified || !utils.CheckPassword(creds.Password, acct.Password) {
		writeError(w, apperrors.ErrInvalidCredentials)
		return
	}

	token, err := ac.tokens.Generate(acct.ID, acct.Email)
	if err != nil {
		writeError(w, apperrors.Internal(err))
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: acct.Summary()})
}

type forgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ForgotPassword issues a reset token and mails a reset link.
func (ac *AuthController) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid input", http.StatusBadRequest))
		return
	}
	if violations := utils.ValidateStruct(req); violations != nil {
		writeError(w, apperrors.ValidationError(violations))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acct, err := ac.accounts.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if acct == nil {
		writeError(w, apperrors.NotFound("Account"))
		return
	}

	token, err := utils.GenerateRandomToken()
	if err != nil {
		writeError(w, apperrors.Internal(err))
		return
	}
	expiry := time.Now().Add(utils.EmailTokenTTL)

	if err := ac.accounts.SetResetToken(ctx, acct, token, expiry); err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}

	if err := ac.mailer.SendPasswordResetEmail(acct.Email, token); err != nil {
		writeError(w, apperrors.Internal(err))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset link sent to your email"})
}

type resetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}

// ResetPassword consumes a reset token and replaces the password.
func (ac *AuthController) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token := mux.Vars(r)["token"]

	var req resetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.CodeValidationFailed, "Invalid input", http.StatusBadRequest))
		return
	}
	if violations := utils.ValidateStruct(req); violations != nil {
		writeError(w, apperrors.ValidationError(violations))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	acct, err := ac.accounts.FindByResetToken(ctx, token, time.Now())
	if err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}
	if acct == nil {
		writeError(w, apperrors.ErrInvalidToken)
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		writeError(w, apperrors.Internal(err))
		return
	}

	if err := ac.accounts.UpdatePassword(ctx, acct, hashed); err != nil {
		writeError(w, apperrors.StoreError(err))
		return
	}

	writeJSON(w, http.StatusOK, messageResponse{Message: "Password reset successful"})
}

// Logout acknowledges the request. Session tokens are stateless, so
// there is nothing server-side to invalidate; the auth middleware has
// already checked the token.
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, messageResponse{Message: "Logged out successfully"})
}

package transport

import (
	"net/http"

	"pos-backoffice/internal/domain"
	"pos-backoffice/internal/middleware"
	"pos-backoffice/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// LoginRequest represents the login request payload
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse carries a token with the account it was issued to
type AuthResponse struct {
	Token string          `json:"token,omitempty"`
	User  *domain.Account `json:"user"`
}

// VerificationCodeRequest asks for a password reset code
type VerificationCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest sets a new password with a reset code
type ResetPasswordRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"code" validate:"required,len=6,numeric"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// ChangePasswordRequest replaces the caller's password
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6,max=72"`
}

// ValidateTokenRequest carries a token to check
type ValidateTokenRequest struct {
	Token string `json:"token" validate:"required"`
}

// ValidateTokenResponse reports the claims of a valid token
type ValidateTokenResponse struct {
	Valid  bool   `json:"valid"`
	UserID string `json:"userId"`
	Role   string `json:"usertype"`
	Kind   string `json:"kind"`
}

// StatusRequest activates or deactivates an account
type StatusRequest struct {
	Status domain.AccountStatus `json:"status" validate:"required"`
}

// RoleRequest changes the role of a staff account
type RoleRequest struct {
	Role string `json:"usertype" validate:"required"`
}

// AccountHandler handles HTTP requests for one kind of account. Staff users
// and customers are served by two instances mounted at different paths.
type AccountHandler struct {
	accounts service.AccountService
	basePath string
	logger   *zap.Logger
}

// NewAccountHandler creates a new AccountHandler mounted at basePath
func NewAccountHandler(accounts service.AccountService, basePath string, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		basePath: basePath,
		logger:   logger,
	}
}

// RegisterRoutes registers all account routes
func (h *AccountHandler) RegisterRoutes(r chi.Router, authMiddleware func(http.Handler) http.Handler) {
	r.Route(h.basePath, func(r chi.Router) {
		// Public routes
		r.Post("/signup", h.Register)
		r.Post("/login", h.Login)
		r.Post("/send-verification-code", h.SendVerificationCode)
		r.Post("/update-password", h.ResetPassword)
		r.Post("/auth/validate-token", h.ValidateToken)
		r.Get("/getAdmin/Contact", h.AdminContact)

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Post("/change-password", h.ChangePassword)
			r.Get("/{id}", h.Get)
			r.Put("/{id}", h.Update)
			r.With(staffOnly(h.logger)).Get("/email/{email}", h.GetByEmail)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin(h.logger))
				r.Get("/", h.List)
				r.Patch("/{id}/status", h.SetStatus)
				r.Patch("/{id}/role", h.SetRole)
				r.Delete("/{id}", h.Delete)
			})
		})
	})
}

// callerIsStaff reports whether the caller holds a staff token.
func callerIsStaff(r *http.Request) bool {
	kind, _ := middleware.GetUserKind(r.Context())
	role, _ := middleware.GetUserRole(r.Context())
	return kind == string(domain.KindStaff) && (role == domain.RoleAdmin || role == domain.RoleUser)
}

func callerIsAdmin(r *http.Request) bool {
	kind, _ := middleware.GetUserKind(r.Context())
	role, _ := middleware.GetUserRole(r.Context())
	return kind == string(domain.KindStaff) && role == domain.RoleAdmin
}

// callerIsSelf reports whether the caller's token was issued to id by this
// handler's account kind.
func (h *AccountHandler) callerIsSelf(r *http.Request, id uuid.UUID) bool {
	kind, _ := middleware.GetUserKind(r.Context())
	return kind == string(h.accounts.Kind()) && isSelf(r, id)
}

// Register handles account sign-up
func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterInput
	if !decode(w, r, h.logger, &req) {
		return
	}

	account, token, err := h.accounts.Register(r.Context(), req)
	if err != nil {
		h.logger.Debug("Registration failed", zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Account registered",
		zap.String("user_id", account.ID.String()),
		zap.String("kind", string(account.Kind)),
		zap.String("role", account.Role),
	)
	middleware.RespondWithJSON(w, http.StatusCreated, AuthResponse{Token: token, User: account})
}

// Login handles account authentication
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	token, account, err := h.accounts.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.logger.Debug("Login failed", zap.Error(err))
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("Account logged in", zap.String("user_id", account.ID.String()))
	middleware.RespondWithJSON(w, http.StatusOK, AuthResponse{Token: token, User: account})
}

// ValidateToken handles checking a token issued to this account kind
func (h *AccountHandler) ValidateToken(w http.ResponseWriter, r *http.Request) {
	var req ValidateTokenRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	claims, err := h.accounts.ValidateToken(req.Token)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	middleware.RespondWithJSON(w, http.StatusOK, ValidateTokenResponse{
		Valid:  true,
		UserID: claims.UserID.String(),
		Role:   claims.Role,
		Kind:   claims.Kind,
	})
}

// SendVerificationCode handles issuing a password reset code
func (h *AccountHandler) SendVerificationCode(w http.ResponseWriter, r *http.Request) {
	var req VerificationCodeRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	if err := h.accounts.SendVerificationCode(r.Context(), req.Email); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Verification code sent"})
}

// ResetPassword handles setting a new password with a reset code
func (h *AccountHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	if err := h.accounts.ResetPassword(r.Context(), req.Email, req.Code, req.NewPassword); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Password updated"})
}

// ChangePassword handles replacing the caller's own password
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userIDStr, _ := middleware.GetUserID(r.Context())
	userID, err := uuid.Parse(userIDStr)
	if err != nil || !h.callerIsSelf(r, userID) {
		middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var req ChangePasswordRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	if err := h.accounts.ChangePassword(r.Context(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Password changed"})
}

// AdminContact handles looking up whom to ask for activation
func (h *AccountHandler) AdminContact(w http.ResponseWriter, r *http.Request) {
	contact, err := h.accounts.AdminContact(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, contact)
}

// List handles listing every account of this kind
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.accounts.List(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, accounts)
}

// Get handles fetching one account. Account holders may read their own.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !callerIsStaff(r) && !h.callerIsSelf(r, id) {
		middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	account, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, account)
}

// GetByEmail handles looking an account up by email
func (h *AccountHandler) GetByEmail(w http.ResponseWriter, r *http.Request) {
	account, err := h.accounts.GetByEmail(r.Context(), chi.URLParam(r, "email"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, account)
}

// Update handles editing a profile. Account holders may edit their own.
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if !callerIsAdmin(r) && !h.callerIsSelf(r, id) {
		middleware.RespondWithError(w, http.StatusForbidden, "insufficient permissions")
		return
	}

	var req service.ProfileInput
	if !decode(w, r, h.logger, &req) {
		return
	}

	account, err := h.accounts.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	middleware.RespondWithJSON(w, http.StatusOK, account)
}

// SetStatus handles activating or deactivating an account
func (h *AccountHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req StatusRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	if err := h.accounts.SetStatus(r.Context(), id, req.Status); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("Account status changed",
		zap.String("account_id", id.String()),
		zap.String("status", string(req.Status)),
	)
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Status updated"})
}

// SetRole handles promoting or demoting a staff account
func (h *AccountHandler) SetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req RoleRequest
	if !decode(w, r, h.logger, &req) {
		return
	}

	if err := h.accounts.SetRole(r.Context(), id, req.Role); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("Account role changed",
		zap.String("account_id", id.String()),
		zap.String("role", req.Role),
	)
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Role updated"})
}

// Delete handles removing an account
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.accounts.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	h.logger.Info("Account deleted", zap.String("account_id", id.String()))
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Account deleted"})
}

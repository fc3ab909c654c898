package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/chuna-hq/chuna/internal/identity"
	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// AuthHandler handles account lifecycle requests.
type AuthHandler struct {
	svc *Services
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(svc *Services) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// SignUp registers an account and signs it in. When a business name is
// given the workspace is provisioned in the same call: a tenant is
// created, the new profile is attached to it and a first onboarding
// record is seeded, so the account lands in the portal ready to use.
func (h *AuthHandler) SignUp(ctx context.Context, req *dto.SignUpRequest) (*dto.SessionResponse, error) {
	metadata := map[string]any{}
	if req.FullName != "" {
		metadata["full_name"] = req.FullName
	}
	session, err := h.svc.Auth.SignUp(ctx, req.Email, req.Password, metadata)
	if err != nil {
		if errors.Is(err, identity.ErrUserExists) {
			return nil, dto.Conflict("An account with this email already exists")
		}
		return nil, storeErr(err, "User")
	}

	if req.BusinessName != "" {
		if err := h.provisionWorkspace(ctx, session.User.ID, req); err != nil {
			return nil, err
		}
	}
	return sessionResponse(session), nil
}

// provisionWorkspace creates the tenant for a fresh account and seeds
// its intake record. The seeded record marks intake done up front; the
// questionnaire can still be refined later from the portal.
func (h *AuthHandler) provisionWorkspace(ctx context.Context, userID string, req *dto.SignUpRequest) error {
	tenant, err := h.svc.Backend.From("tenants").Insert(tabledoc.Row{
		"name": req.BusinessName,
	}).RunSingle(ctx)
	if err != nil {
		return storeErr(err, "Tenant")
	}

	if _, err := h.svc.Backend.From("profiles").Update(tabledoc.Row{
		"tenant_id":           tenant.ID(),
		"onboarding_complete": true,
	}).Eq(tabledoc.AttrID, userID).Run(ctx); err != nil {
		return storeErr(err, "Profile")
	}

	if _, err := h.svc.Backend.From("onboarding").Insert(tabledoc.Row{
		"tenant_id":    tenant.ID(),
		"contact_name": req.FullName,
		"phone":        req.Phone,
		"goals":        "Initial setup via Signup",
		"metrics":      []any{},
		"systems":      map[string]any{"crm": "", "booking": "", "website": ""},
	}).Run(ctx); err != nil {
		// The account and workspace are usable without the seed record.
		slog.WarnContext(ctx, "Failed to seed onboarding record", "tenant_id", tenant.ID(), "err", err)
	}
	return nil
}

// Login authenticates by email and password.
func (h *AuthHandler) Login(ctx context.Context, req *dto.LoginRequest) (*dto.SessionResponse, error) {
	session, err := h.svc.Auth.SignInWithPassword(ctx, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, identity.ErrInvalidCredentials) {
			return nil, dto.NewAPIError(http.StatusUnauthorized, dto.ErrorCodeUnauthorized, "Invalid email or password")
		}
		return nil, storeErr(err, "User")
	}
	return sessionResponse(session), nil
}

// Logout clears the active session. Logging out twice is fine.
func (h *AuthHandler) Logout(ctx context.Context, req *dto.EmptyRequest) (*dto.OKResponse, error) {
	if err := h.svc.Auth.SignOut(ctx); err != nil {
		return nil, storeErr(err, "Session")
	}
	return &dto.OKResponse{OK: true}, nil
}

// Session returns the active session, null when signed out.
func (h *AuthHandler) Session(ctx context.Context, req *dto.EmptyRequest) (*dto.SessionResponse, error) {
	return sessionResponse(h.svc.Auth.GetSession()), nil
}

// ResetPassword starts a password reset. The response never reveals
// whether the address is registered.
func (h *AuthHandler) ResetPassword(ctx context.Context, req *dto.ResetPasswordRequest) (*dto.OKResponse, error) {
	if err := h.svc.Auth.ResetPasswordForEmail(ctx, req.Email); err != nil {
		return nil, storeErr(err, "User")
	}
	return &dto.OKResponse{OK: true}, nil
}

func sessionResponse(s *tabledoc.Session) *dto.SessionResponse {
	if s == nil {
		return &dto.SessionResponse{}
	}
	return &dto.SessionResponse{Session: &dto.Session{
		AccessToken: s.AccessToken,
		User: dto.SessionUser{
			ID:       s.User.ID,
			Email:    s.User.Email,
			Metadata: s.User.Metadata,
		},
	}}
}

package handlers

import (
	"context"

	"github.com/chuna-hq/chuna/internal/portal"
	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// OnboardingHandler handles the client intake questionnaire.
type OnboardingHandler struct {
	svc *Services
}

// NewOnboardingHandler creates a new onboarding handler.
func NewOnboardingHandler(svc *Services) *OnboardingHandler {
	return &OnboardingHandler{svc: svc}
}

// Get returns the latest intake record for the caller's workspace, null
// before the first save.
func (h *OnboardingHandler) Get(ctx context.Context, caller *Caller, req *dto.EmptyRequest) (*dto.OnboardingResponse, error) {
	if caller.TenantID() == "" {
		return &dto.OnboardingResponse{}, nil
	}
	// Stored order is insertion order, and creation timestamps only have
	// second resolution, so the last row is the latest submission.
	rows, err := h.svc.Backend.From("onboarding").Select().
		Eq("tenant_id", caller.TenantID()).
		Run(ctx)
	if err != nil {
		return nil, storeErr(err, "Onboarding")
	}
	if len(rows) == 0 {
		return &dto.OnboardingResponse{}, nil
	}
	o := portal.OnboardingFromRow(rows[len(rows)-1])
	return &dto.OnboardingResponse{Onboarding: &o}, nil
}

// Save records a new intake submission and marks the caller's profile
// as onboarded. Each save appends a record; Get serves the latest one.
func (h *OnboardingHandler) Save(ctx context.Context, caller *Caller, req *dto.SaveOnboardingRequest) (*dto.OnboardingResponse, error) {
	if caller.TenantID() == "" {
		return nil, errNoWorkspace()
	}
	o := portal.Onboarding{
		TenantID:    caller.TenantID(),
		ContactName: req.ContactName,
		Phone:       req.Phone,
		WhatsApp:    req.WhatsApp,
		Website:     req.Website,
		Goals:       req.Goals,
		Metrics:     req.Metrics,
		Systems:     req.Systems,
		Completed:   req.Completed,
	}
	row, err := h.svc.Backend.From("onboarding").Insert(o.ToRow()).RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "Onboarding")
	}
	if _, err := h.svc.Backend.From("profiles").Update(tabledoc.Row{
		"onboarding_complete": true,
	}).Eq(tabledoc.AttrID, caller.UserID).Run(ctx); err != nil {
		return nil, storeErr(err, "Profile")
	}
	saved := portal.OnboardingFromRow(row)
	return &dto.OnboardingResponse{Onboarding: &saved}, nil
}

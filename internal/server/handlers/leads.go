package handlers

import (
	"context"

	"github.com/chuna-hq/chuna/internal/portal"
	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// LeadHandler handles the portal's lead pipeline.
type LeadHandler struct {
	svc *Services
}

// NewLeadHandler creates a new lead handler.
func NewLeadHandler(svc *Services) *LeadHandler {
	return &LeadHandler{svc: svc}
}

// List returns the caller's leads, newest first. An account without a
// workspace has no leads.
func (h *LeadHandler) List(ctx context.Context, caller *Caller, req *dto.EmptyRequest) (*dto.LeadsResponse, error) {
	out := &dto.LeadsResponse{Leads: []portal.Lead{}}
	if caller.TenantID() == "" {
		return out, nil
	}
	rows, err := h.svc.Backend.From("leads").Select().
		Eq("tenant_id", caller.TenantID()).
		Order(tabledoc.AttrCreatedAt, false).
		Run(ctx)
	if err != nil {
		return nil, storeErr(err, "Leads")
	}
	for _, r := range rows {
		out.Leads = append(out.Leads, portal.LeadFromRow(r))
	}
	return out, nil
}

// Create records a lead in the caller's workspace.
func (h *LeadHandler) Create(ctx context.Context, caller *Caller, req *dto.CreateLeadRequest) (*dto.LeadResponse, error) {
	if caller.TenantID() == "" {
		return nil, errNoWorkspace()
	}
	lead := portal.Lead{
		TenantID:      caller.TenantID(),
		Source:        req.Source,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Status:        portal.LeadStatusNew,
		Data:          req.Data,
	}
	row, err := h.svc.Backend.From("leads").Insert(lead.ToRow()).RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "Lead")
	}
	return &dto.LeadResponse{Lead: portal.LeadFromRow(row)}, nil
}

// UpdateStatus moves a lead through its pipeline. Only the owning
// workspace (or an admin) may touch it.
func (h *LeadHandler) UpdateStatus(ctx context.Context, caller *Caller, req *dto.UpdateLeadStatusRequest) (*dto.LeadResponse, error) {
	lead, err := h.svc.Backend.From("leads").Select().Eq(tabledoc.AttrID, req.ID).RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "Lead")
	}
	if !caller.IsAdmin() && lead.String("tenant_id") != caller.TenantID() {
		return nil, dto.Forbidden("Lead belongs to another workspace")
	}
	if _, err := h.svc.Backend.From("leads").Update(tabledoc.Row{
		"status": req.Status,
	}).Eq(tabledoc.AttrID, req.ID).Run(ctx); err != nil {
		return nil, storeErr(err, "Lead")
	}
	lead["status"] = req.Status
	return &dto.LeadResponse{Lead: portal.LeadFromRow(lead)}, nil
}

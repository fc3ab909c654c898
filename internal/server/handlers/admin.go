package handlers

import (
	"context"

	"github.com/chuna-hq/chuna/internal/portal"
	"github.com/chuna-hq/chuna/internal/schema"
	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// AdminHandler serves the agency console: every workspace, every
// profile, and cross-workspace request triage.
type AdminHandler struct {
	svc *Services
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(svc *Services) *AdminHandler {
	return &AdminHandler{svc: svc}
}

// Tenants lists all workspaces, newest first.
func (h *AdminHandler) Tenants(ctx context.Context, caller *Caller, req *dto.EmptyRequest) (*dto.TenantsResponse, error) {
	rows, err := h.svc.Backend.From("tenants").Select().
		Order(tabledoc.AttrCreatedAt, false).
		Run(ctx)
	if err != nil {
		return nil, storeErr(err, "Tenants")
	}
	out := &dto.TenantsResponse{Tenants: []portal.Tenant{}}
	for _, r := range rows {
		out.Tenants = append(out.Tenants, portal.TenantFromRow(r))
	}
	return out, nil
}

// Profiles lists all profiles.
func (h *AdminHandler) Profiles(ctx context.Context, caller *Caller, req *dto.EmptyRequest) (*dto.ProfilesResponse, error) {
	rows, err := h.svc.Backend.From("profiles").Select().Run(ctx)
	if err != nil {
		return nil, storeErr(err, "Profiles")
	}
	out := &dto.ProfilesResponse{Profiles: []portal.Profile{}}
	for _, r := range rows {
		out.Profiles = append(out.Profiles, portal.ProfileFromRow(r))
	}
	return out, nil
}

// TenantDetail aggregates one workspace with its members and activity.
func (h *AdminHandler) TenantDetail(ctx context.Context, caller *Caller, req *dto.TenantDetailRequest) (*dto.TenantDetailResponse, error) {
	tenant, err := h.svc.Backend.From("tenants").Select().
		Eq(tabledoc.AttrID, req.ID).
		RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "Tenant")
	}
	out := &dto.TenantDetailResponse{
		Tenant:   portal.TenantFromRow(tenant),
		Profiles: []portal.Profile{},
		Leads:    []portal.Lead{},
		Requests: []portal.Request{},
		Feedback: []portal.Feedback{},
		Invoices: []portal.Invoice{},
	}

	byTenant := func(table string) ([]tabledoc.Row, error) {
		return h.svc.Backend.From(table).Select().
			Eq("tenant_id", req.ID).
			Order(tabledoc.AttrCreatedAt, false).
			Run(ctx)
	}

	rows, err := byTenant("profiles")
	if err != nil {
		return nil, storeErr(err, "Profiles")
	}
	for _, r := range rows {
		out.Profiles = append(out.Profiles, portal.ProfileFromRow(r))
	}
	if rows, err = byTenant("leads"); err != nil {
		return nil, storeErr(err, "Leads")
	}
	for _, r := range rows {
		out.Leads = append(out.Leads, portal.LeadFromRow(r))
	}
	if rows, err = byTenant("requests"); err != nil {
		return nil, storeErr(err, "Requests")
	}
	for _, r := range rows {
		out.Requests = append(out.Requests, portal.RequestFromRow(r))
	}
	if rows, err = byTenant("feedback"); err != nil {
		return nil, storeErr(err, "Feedback")
	}
	for _, r := range rows {
		out.Feedback = append(out.Feedback, portal.FeedbackFromRow(r))
	}
	if rows, err = byTenant("invoices"); err != nil {
		return nil, storeErr(err, "Invoices")
	}
	for _, r := range rows {
		out.Invoices = append(out.Invoices, portal.InvoiceFromRow(r))
	}
	return out, nil
}

// UpdateRequestStatus moves any workspace's work request through its
// lifecycle.
func (h *AdminHandler) UpdateRequestStatus(ctx context.Context, caller *Caller, req *dto.UpdateWorkStatusRequest) (*dto.WorkRequestResponse, error) {
	row, err := h.svc.Backend.From("requests").Select().
		Eq(tabledoc.AttrID, req.ID).
		RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "Request")
	}
	if _, err := h.svc.Backend.From("requests").Update(tabledoc.Row{
		"status": req.Status,
	}).Eq(tabledoc.AttrID, req.ID).Run(ctx); err != nil {
		return nil, storeErr(err, "Request")
	}
	row["status"] = req.Status
	return &dto.WorkRequestResponse{Request: portal.RequestFromRow(row)}, nil
}

// Schema exports the declared row shape of every portal table.
func (h *AdminHandler) Schema(ctx context.Context, caller *Caller, req *dto.EmptyRequest) (*dto.SchemaResponse, error) {
	all, err := schema.All()
	if err != nil {
		return nil, dto.InternalWithError("Failed to reflect schemas", err)
	}
	return &dto.SchemaResponse{Tables: all}, nil
}

package handlers

import (
	"context"

	"github.com/chuna-hq/chuna/internal/portal"
	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// TenantHandler serves the caller's workspace.
type TenantHandler struct {
	svc *Services
}

// NewTenantHandler creates a new tenant handler.
func NewTenantHandler(svc *Services) *TenantHandler {
	return &TenantHandler{svc: svc}
}

// Get returns the caller's workspace.
func (h *TenantHandler) Get(ctx context.Context, caller *Caller, req *dto.EmptyRequest) (*dto.TenantResponse, error) {
	if caller.TenantID() == "" {
		return nil, dto.RowNotFound("Tenant")
	}
	row, err := h.svc.Backend.From("tenants").Select().
		Eq(tabledoc.AttrID, caller.TenantID()).
		RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "Tenant")
	}
	return &dto.TenantResponse{Tenant: portal.TenantFromRow(row)}, nil
}

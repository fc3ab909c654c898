package handlers

import (
	"context"

	"github.com/chuna-hq/chuna/internal/portal"
	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// InvoiceHandler handles the portal's billing view.
type InvoiceHandler struct {
	svc *Services
}

// NewInvoiceHandler creates a new invoice handler.
func NewInvoiceHandler(svc *Services) *InvoiceHandler {
	return &InvoiceHandler{svc: svc}
}

// List returns the caller's invoices, newest first. Invoices are issued
// by the agency, so the portal only ever reads them.
func (h *InvoiceHandler) List(ctx context.Context, caller *Caller, req *dto.EmptyRequest) (*dto.InvoicesResponse, error) {
	out := &dto.InvoicesResponse{Invoices: []portal.Invoice{}}
	if caller.TenantID() == "" {
		return out, nil
	}
	rows, err := h.svc.Backend.From("invoices").Select().
		Eq("tenant_id", caller.TenantID()).
		Order(tabledoc.AttrCreatedAt, false).
		Run(ctx)
	if err != nil {
		return nil, storeErr(err, "Invoices")
	}
	for _, r := range rows {
		out.Invoices = append(out.Invoices, portal.InvoiceFromRow(r))
	}
	return out, nil
}

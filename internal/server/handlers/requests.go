package handlers

import (
	"context"

	"github.com/chuna-hq/chuna/internal/portal"
	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// RequestHandler handles client work requests.
type RequestHandler struct {
	svc *Services
}

// NewRequestHandler creates a new work request handler.
func NewRequestHandler(svc *Services) *RequestHandler {
	return &RequestHandler{svc: svc}
}

// List returns the caller's work requests, newest first.
func (h *RequestHandler) List(ctx context.Context, caller *Caller, req *dto.EmptyRequest) (*dto.WorkRequestsResponse, error) {
	out := &dto.WorkRequestsResponse{Requests: []portal.Request{}}
	if caller.TenantID() == "" {
		return out, nil
	}
	rows, err := h.svc.Backend.From("requests").Select().
		Eq("tenant_id", caller.TenantID()).
		Order(tabledoc.AttrCreatedAt, false).
		Run(ctx)
	if err != nil {
		return nil, storeErr(err, "Requests")
	}
	for _, r := range rows {
		out.Requests = append(out.Requests, portal.RequestFromRow(r))
	}
	return out, nil
}

// Create files a work request for the caller's workspace. New requests
// start pending.
func (h *RequestHandler) Create(ctx context.Context, caller *Caller, req *dto.CreateWorkRequest) (*dto.WorkRequestResponse, error) {
	if caller.TenantID() == "" {
		return nil, errNoWorkspace()
	}
	row, err := h.svc.Backend.From("requests").Insert(tabledoc.Row{
		"tenant_id":   caller.TenantID(),
		"type":        req.Type,
		"priority":    req.Priority,
		"description": req.Description,
		"status":      portal.RequestStatusPending,
	}).RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "Request")
	}
	return &dto.WorkRequestResponse{Request: portal.RequestFromRow(row)}, nil
}

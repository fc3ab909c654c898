package handlers

import (
	"context"

	"github.com/chuna-hq/chuna/internal/portal"
	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// FeedbackHandler handles client satisfaction entries.
type FeedbackHandler struct {
	svc *Services
}

// NewFeedbackHandler creates a new feedback handler.
func NewFeedbackHandler(svc *Services) *FeedbackHandler {
	return &FeedbackHandler{svc: svc}
}

// List returns the caller's feedback entries, newest first.
func (h *FeedbackHandler) List(ctx context.Context, caller *Caller, req *dto.EmptyRequest) (*dto.FeedbackResponse, error) {
	out := &dto.FeedbackResponse{Feedback: []portal.Feedback{}}
	if caller.TenantID() == "" {
		return out, nil
	}
	rows, err := h.svc.Backend.From("feedback").Select().
		Eq("tenant_id", caller.TenantID()).
		Order(tabledoc.AttrCreatedAt, false).
		Run(ctx)
	if err != nil {
		return nil, storeErr(err, "Feedback")
	}
	for _, r := range rows {
		out.Feedback = append(out.Feedback, portal.FeedbackFromRow(r))
	}
	return out, nil
}

// Create records a feedback entry for the caller's workspace.
func (h *FeedbackHandler) Create(ctx context.Context, caller *Caller, req *dto.CreateFeedbackRequest) (*dto.FeedbackEntryResponse, error) {
	if caller.TenantID() == "" {
		return nil, errNoWorkspace()
	}
	row, err := h.svc.Backend.From("feedback").Insert(tabledoc.Row{
		"tenant_id": caller.TenantID(),
		"message":   req.Message,
		"rating":    req.Rating,
	}).RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "Feedback")
	}
	return &dto.FeedbackEntryResponse{Entry: portal.FeedbackFromRow(row)}, nil
}

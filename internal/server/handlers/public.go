package handlers

import (
	"context"

	"github.com/chuna-hq/chuna/internal/portal"
	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/server/reqctx"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// PublicHandler serves the unauthenticated surface: lead capture from
// connected integrations and promo copy for the marketing site.
type PublicHandler struct {
	svc *Services
}

// NewPublicHandler creates a new public handler.
func NewPublicHandler(svc *Services) *PublicHandler {
	return &PublicHandler{svc: svc}
}

// CaptureLead records a lead sent by an external integration holding a
// valid key. An unknown or revoked key gets the same 404 so a leaked
// revoked key cannot be distinguished from a fake one.
func (h *PublicHandler) CaptureLead(ctx context.Context, req *dto.PublicLeadRequest) (*dto.LeadResponse, error) {
	key, err := h.findKey(ctx, req.APIKey)
	if err != nil {
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = key.String("name")
	}
	data := req.Data
	if cc := reqctx.CountryCode(ctx); cc != "" {
		if data == nil {
			data = map[string]any{}
		}
		data["country"] = cc
	}

	lead := portal.Lead{
		TenantID:      key.String("tenant_id"),
		Source:        source,
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Status:        portal.LeadStatusNew,
		Data:          data,
	}
	row, err := h.svc.Backend.From("leads").Insert(lead.ToRow()).RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "Lead")
	}
	return &dto.LeadResponse{Lead: portal.LeadFromRow(row)}, nil
}

// Promo generates a promotional blurb for one marketing site service.
// Generation problems degrade to fixed copy, never to an error.
func (h *PublicHandler) Promo(ctx context.Context, req *dto.PromoRequest) (*dto.PromoResponse, error) {
	text := h.svc.Writer.ServiceExplanation(ctx, req.ServiceName, req.ServiceDetails)
	return &dto.PromoResponse{Text: text}, nil
}

// findKey resolves an active integration key by its secret value.
func (h *PublicHandler) findKey(ctx context.Context, value string) (tabledoc.Row, error) {
	key, err := h.svc.Backend.From("api_keys").Select().
		Eq("key_value", value).
		RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "API key")
	}
	if key.Bool("revoked") {
		return nil, dto.RowNotFound("API key")
	}
	return key, nil
}

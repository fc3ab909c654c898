package handlers

import (
	"context"
	"crypto/rand"
	"fmt"

	"github.com/chuna-hq/chuna/internal/portal"
	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

const keyPrefix = "chuna_"

const keyAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"

const keyLength = 26

// APIKeyHandler handles integration keys for public lead capture.
type APIKeyHandler struct {
	svc *Services
}

// NewAPIKeyHandler creates a new API key handler.
func NewAPIKeyHandler(svc *Services) *APIKeyHandler {
	return &APIKeyHandler{svc: svc}
}

// List returns the caller's active integration keys, newest first.
func (h *APIKeyHandler) List(ctx context.Context, caller *Caller, req *dto.EmptyRequest) (*dto.APIKeysResponse, error) {
	out := &dto.APIKeysResponse{Keys: []portal.APIKey{}}
	if caller.TenantID() == "" {
		return out, nil
	}
	rows, err := h.svc.Backend.From("api_keys").Select().
		Eq("tenant_id", caller.TenantID()).
		Order(tabledoc.AttrCreatedAt, false).
		Run(ctx)
	if err != nil {
		return nil, storeErr(err, "API keys")
	}
	for _, r := range rows {
		if r.Bool("revoked") {
			continue
		}
		out.Keys = append(out.Keys, portal.APIKeyFromRow(r))
	}
	return out, nil
}

// Create mints an integration key for the caller's workspace. The
// secret value is generated server side and returned once in full.
func (h *APIKeyHandler) Create(ctx context.Context, caller *Caller, req *dto.CreateAPIKeyRequest) (*dto.APIKeyResponse, error) {
	if caller.TenantID() == "" {
		return nil, errNoWorkspace()
	}
	value, err := newKeyValue()
	if err != nil {
		return nil, dto.InternalWithError("Failed to generate key", err)
	}
	row, err := h.svc.Backend.From("api_keys").Insert(tabledoc.Row{
		"tenant_id": caller.TenantID(),
		"name":      req.Name,
		"key_value": value,
		"type":      req.Type,
	}).RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "API key")
	}
	return &dto.APIKeyResponse{Key: portal.APIKeyFromRow(row)}, nil
}

// Delete revokes an integration key. The row is kept and flagged so
// capture attribution for past leads stays intact.
func (h *APIKeyHandler) Delete(ctx context.Context, caller *Caller, req *dto.DeleteAPIKeyRequest) (*dto.OKResponse, error) {
	key, err := h.svc.Backend.From("api_keys").Select().Eq(tabledoc.AttrID, req.ID).RunSingle(ctx)
	if err != nil {
		return nil, storeErr(err, "API key")
	}
	if !caller.IsAdmin() && key.String("tenant_id") != caller.TenantID() {
		return nil, dto.Forbidden("API key belongs to another workspace")
	}
	if _, err := h.svc.Backend.From("api_keys").Update(tabledoc.Row{
		"revoked": true,
	}).Eq(tabledoc.AttrID, req.ID).Run(ctx); err != nil {
		return nil, storeErr(err, "API key")
	}
	return &dto.OKResponse{OK: true}, nil
}

// newKeyValue generates a fresh key secret.
func newKeyValue() (string, error) {
	buf := make([]byte, keyLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = keyAlphabet[int(b)%len(keyAlphabet)]
	}
	return keyPrefix + string(buf), nil
}

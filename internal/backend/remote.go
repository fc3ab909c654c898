package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// Remote executes query requests against another server's query
// endpoint. It satisfies tabledoc.Executor so a query built locally
// runs remotely unchanged.
type Remote struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

// NewRemote creates a remote executor for the given base URL and key.
func NewRemote(baseURL, apiKey string) *Remote {
	return &Remote{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
	}
}

type queryResponse struct {
	Rows  []tabledoc.Row `json:"rows"`
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// ExecQuery implements tabledoc.Executor over HTTP. Data-layer errors
// come back with their original code so errors.Is against
// tabledoc.ErrRowNotFound keeps working across the wire.
func (r *Remote) ExecQuery(ctx context.Context, req tabledoc.Request) ([]tabledoc.Row, error) {
	body, err := json.Marshal(&req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/api/v1/query", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("query request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	var out queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("failed to decode query response (status %d): %w", resp.StatusCode, err)
	}
	if out.Error != nil {
		if out.Error.Code == tabledoc.CodeRowNotFound {
			return nil, tabledoc.ErrRowNotFound
		}
		return nil, &tabledoc.Error{Code: out.Error.Code, Message: out.Error.Message}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("query failed with status %d", resp.StatusCode)
	}
	return out.Rows, nil
}

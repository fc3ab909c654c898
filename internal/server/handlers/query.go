package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// QueryHandler executes raw data layer requests on behalf of another
// instance running in delegating mode. The response shape mirrors what
// the delegating side's executor expects: the rows on success, the
// data layer error code on a failure.
type QueryHandler struct {
	svc *Services
}

// NewQueryHandler creates a new query handler.
func NewQueryHandler(svc *Services) *QueryHandler {
	return &QueryHandler{svc: svc}
}

// Exec runs one query against the embedded store.
func (h *QueryHandler) Exec(ctx context.Context, req *dto.ExecQueryRequest) (*dto.QueryResponse, error) {
	rows, err := h.svc.Store.ExecQuery(ctx, req.Request)
	if err != nil {
		return nil, queryErr(err)
	}
	return &dto.QueryResponse{Rows: rows}, nil
}

// queryErr puts a data layer failure on the wire with its original code
// so the delegating side's executor reconstructs the same error.
func queryErr(err error) error {
	var terr *tabledoc.Error
	if errors.As(err, &terr) {
		status := http.StatusBadRequest
		if errors.Is(err, tabledoc.ErrRowNotFound) {
			status = http.StatusNotFound
		}
		return dto.NewAPIError(status, dto.ErrorCode(terr.Code), terr.Message)
	}
	return dto.InternalWithError("Query execution failed", err)
}

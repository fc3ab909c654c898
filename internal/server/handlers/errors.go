package handlers

import (
	"errors"

	"github.com/chuna-hq/chuna/internal/server/dto"
	"github.com/chuna-hq/chuna/internal/tabledoc"
)

// storeErr translates data layer errors into API errors. A single-row
// miss keeps its data layer code on the way out.
func storeErr(err error, resource string) error {
	if errors.Is(err, tabledoc.ErrRowNotFound) {
		return dto.RowNotFound(resource)
	}
	var terr *tabledoc.Error
	if errors.As(err, &terr) {
		return dto.BadRequest(terr.Message)
	}
	return dto.InternalWithError("Storage operation failed", err)
}

// errNoWorkspace rejects portal writes from accounts that have not been
// attached to a workspace yet.
func errNoWorkspace() error {
	return dto.BadRequest("No workspace is attached to this account yet")
}

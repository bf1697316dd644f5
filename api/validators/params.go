package validators

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	pkgerrors "github.com/shopmesh/shopmesh-backend/pkg/errors"
)

// ParseUUIDParam reads a chi URL parameter and requires it to be a uuid.
func ParseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	raw := chi.URLParam(r, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid %s", key)).WithDetails(map[string]any{"field": key})
	}
	return id, nil
}

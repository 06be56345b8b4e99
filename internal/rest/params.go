package rest

import (
	"net/http"
	"strconv"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/gorilla/mux"
)

// PathId reads a positive integer path variable.
func PathId(r *http.Request, name string) (int, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, apperrors.Validation("invalid %s %q", name, raw)
	}
	return id, nil
}

package rest

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/buildledger/buildledger/internal/apperrors"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Decode reads a JSON body into dst and runs its `validate` tags.
func Decode(r *http.Request, dst any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return apperrors.Validation("malformed request body: %v", err)
	}
	if err := validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			msgs := make([]string, 0, len(fieldErrs))
			for _, fe := range fieldErrs {
				msgs = append(msgs, fe.Namespace()+" failed "+fe.Tag())
			}
			return apperrors.Validation("%s", strings.Join(msgs, "; "))
		}
		return apperrors.Validation("%v", err)
	}
	return nil
}

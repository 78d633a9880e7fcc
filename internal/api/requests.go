package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"lockbox/internal/vault"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// decodeRequest reads a JSON body into v and checks its validate tags.
// Failures wrap vault.ErrValidation so writeError answers 400.
func decodeRequest(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body", vault.ErrValidation)
	}
	if err := validate.Struct(v); err != nil {
		if errs, ok := err.(validator.ValidationErrors); ok && len(errs) > 0 {
			return fmt.Errorf("%w: field '%s' failed on '%s'", vault.ErrValidation, errs[0].Field(), errs[0].Tag())
		}
		return fmt.Errorf("%w: %v", vault.ErrValidation, err)
	}
	return nil
}

func lockSecret(r *http.Request) string {
	return r.Header.Get(LockSecretHeader)
}

func optionalQuery(r *http.Request, key string) *string {
	v := r.URL.Query().Get(key)
	if v == "" {
		return nil
	}
	return &v
}

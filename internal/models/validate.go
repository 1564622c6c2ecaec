package models

import "github.com/go-playground/validator/v10"

var validate = validator.New()

// Validate checks a decoded document against its schema tags. The store
// adapter returns untyped maps; this is the validation boundary that rejects
// malformed documents before they reach business logic.
func Validate(v any) error {
	return validate.Struct(v)
}

package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ValidateStore validates a Store entry from the store directory.
//
// Validation rules:
//   - ID must not be empty
//   - ProductFeedURL must be an absolute URL
//
// Name is informational and may be empty.
func ValidateStore(store *Store) error {
	if store == nil {
		return fmt.Errorf("%w: store is nil", ErrInvalidStore)
	}
	if err := validate.Struct(store); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidStore, describe(err))
	}
	return nil
}

// ValidateProduct validates a Product before it is composed and persisted.
// Only identity is required; every other field is optional in the feed.
// A product that failed to decode is always invalid.
func ValidateProduct(product *Product) error {
	if product == nil {
		return fmt.Errorf("%w: product is nil", ErrInvalidProduct)
	}
	if product.DecodeErr != nil {
		return fmt.Errorf("%w: decode: %w", ErrInvalidProduct, product.DecodeErr)
	}
	if strings.TrimSpace(string(product.ID)) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidProduct, ErrEmptyProductID)
	}
	return nil
}

// describe flattens validator field errors into "field: rule" pairs.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fe.Field()+": "+fe.Tag())
	}
	return strings.Join(parts, ", ")
}

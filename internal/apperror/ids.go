package apperror

import (
	"fmt"

	"github.com/google/uuid"
)

// RequireID fails with a validation error unless value is a well-formed identifier.
func RequireID(field, value string) error {
	if value == "" {
		return Validation(fmt.Sprintf("%s is required", field))
	}
	if _, err := uuid.Parse(value); err != nil {
		return Validation(fmt.Sprintf("invalid %s", field))
	}
	return nil
}

package usecase

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/xavierca1/ligue-leads/internal/entity"
)

const minPasswordLength = 8

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func ValidateRegisterAgentInput(input RegisterAgentInput) []ValidationError {
	var errors []ValidationError

	if strings.TrimSpace(input.Name) == "" {
		errors = append(errors, ValidationError{"name", "is required"})
	} else if len(input.Name) > 200 {
		errors = append(errors, ValidationError{"name", "must not exceed 200 characters"})
	}

	if strings.TrimSpace(input.Phone) == "" {
		errors = append(errors, ValidationError{"phone", "is required"})
	} else if !isValidPhoneNumber(input.Phone) {
		errors = append(errors, ValidationError{"phone", "must be a valid phone number"})
	}

	if strings.TrimSpace(input.Email) != "" {
		if _, err := mail.ParseAddress(input.Email); err != nil {
			errors = append(errors, ValidationError{"email", "is invalid"})
		} else if strings.HasSuffix(strings.ToLower(input.Email), "@"+entity.PlaceholderEmailDomain) {
			errors = append(errors, ValidationError{"email", "uses a reserved domain"})
		}
	}

	if len(input.Password) < minPasswordLength {
		errors = append(errors, ValidationError{"password", fmt.Sprintf("must have at least %d characters", minPasswordLength)})
	}

	return errors
}

// 10 to 15 digits, the E.164 range once a country code is added.
func isValidPhoneNumber(phone string) bool {
	n := len(entity.DigitsOnly(phone))
	return n >= 10 && n <= 15
}

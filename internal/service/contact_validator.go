package service

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"duemate/internal/domain"
)

var contactRules = map[domain.Channel]string{
	domain.ChannelEmail: "required,email,max=200",
	domain.ChannelPhone: "required,min=10,max=13",
}

// ContactValidator valida la sintaxis de un contacto según su canal.
type ContactValidator struct {
	validate *validator.Validate
}

func NewContactValidator(v *validator.Validate) *ContactValidator {
	if v == nil {
		v = validator.New()
	}
	return &ContactValidator{validate: v}
}

func (v *ContactValidator) Validate(contact domain.Contact) error {
	rule, ok := contactRules[contact.Channel]
	if !ok {
		return fmt.Errorf("%w: unsupported channel %q", ErrInvalidContact, contact.Channel)
	}
	if err := v.validate.Var(contact.Value, rule); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidContact, describeContactError(contact.Channel, err))
	}
	return nil
}

func describeContactError(channel domain.Channel, err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok || len(verrs) == 0 {
		return err.Error()
	}
	field := "email"
	if channel == domain.ChannelPhone {
		field = "phone_number"
	}
	switch verrs[0].Tag() {
	case "required":
		return field + " is required"
	case "email":
		return "email is not a valid address"
	case "min", "max":
		if channel == domain.ChannelPhone {
			return "phone_number must have between 10 and 13 characters"
		}
		return "email must have at most 200 characters"
	default:
		return field + " is invalid"
	}
}

// isValidOTPCode exige exactamente seis dígitos ASCII.
func isValidOTPCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}

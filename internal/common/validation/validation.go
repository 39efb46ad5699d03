package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"monad-deathmatch-backend/internal/common/errors"
)

const (
	MaxSocialUsernameLength = 15
	MaxProfileURLLength     = 2048
)

// Twitter handles: letters, digits, underscores, up to 15 characters
var socialUsernameRegex = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Struct validates struct tags and converts the first failure into an AppError.
func Struct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		fe := verrs[0]
		return errors.NewValidationError(fe.Field(), describe(fe))
	}
	return errors.Wrap(err, errors.ErrCodeValidation, "Validation failed")
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "eth_addr":
		return "must be a 0x-prefixed 20 byte hex address"
	case "url":
		return "must be a valid URL"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed on '%s'", fe.Tag())
	}
}

// IsAddress reports whether s is a well formed EVM address.
func IsAddress(s string) bool {
	return validate.Var(s, "required,eth_addr") == nil
}

// NormalizeAddress validates s and returns its lower-cased form, the key
// every store and join in the system uses.
func NormalizeAddress(s string) (string, error) {
	s = strings.TrimSpace(s)
	if !IsAddress(s) {
		return "", errors.NewValidationError("address", "must be a 0x-prefixed 20 byte hex address")
	}
	return strings.ToLower(s), nil
}

// ValidateSocialUsername проверяет имя пользователя соцсети
func ValidateSocialUsername(username string) error {
	username = strings.TrimPrefix(strings.TrimSpace(username), "@")
	if username == "" {
		return fmt.Errorf("username cannot be empty")
	}
	if len(username) > MaxSocialUsernameLength {
		return fmt.Errorf("username cannot exceed %d characters", MaxSocialUsernameLength)
	}
	if !socialUsernameRegex.MatchString(username) {
		return fmt.Errorf("username must contain only letters, numbers, and underscores")
	}
	return nil
}

// ParseAmount parses a user supplied native-unit amount.
func ParseAmount(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Zero, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("amount %q is not a number", raw)
	}
	if d.Exponent() < -18 {
		return decimal.Zero, fmt.Errorf("amount %q has more than 18 decimals", raw)
	}
	return d, nil
}

// CheckBetAmount enforces the inclusive [min, max] window and returns the
// user-facing message on violation.
func CheckBetAmount(amount, min, max decimal.Decimal, symbol string) error {
	if amount.LessThan(min) {
		return fmt.Errorf("Minimum bet is %s %s", min.String(), symbol)
	}
	if amount.GreaterThan(max) {
		return fmt.Errorf("Maximum bet is %s %s", max.String(), symbol)
	}
	return nil
}

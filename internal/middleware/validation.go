package middleware

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/maimweb/backend/internal/apperr"
	"github.com/maimweb/backend/internal/auth"
)

// Validation limits.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 64
	MinPasswordLength = 8
	MaxEmailLength    = 254
	MaxNameLength     = 255
	MaxDescription    = 2000
	MaxPermissions    = 32
	MaxIdentifier     = 128
)

// Validation errors. All are InvalidInput.
var (
	ErrUsernameLength     = fmt.Errorf("%w: username must be %d-%d characters", apperr.ErrInvalidInput, MinUsernameLength, MaxUsernameLength)
	ErrUsernameInvalid    = fmt.Errorf("%w: username may contain only letters, digits, '.', '_' and '-'", apperr.ErrInvalidInput)
	ErrUsernameReserved   = fmt.Errorf("%w: username is reserved", apperr.ErrInvalidInput)
	ErrEmailInvalid       = fmt.Errorf("%w: email address is invalid", apperr.ErrInvalidInput)
	ErrPasswordTooShort   = fmt.Errorf("%w: password must be at least %d characters", apperr.ErrInvalidInput, MinPasswordLength)
	ErrPasswordTooLong    = fmt.Errorf("%w: password must be at most %d bytes", apperr.ErrInvalidInput, auth.MaxPasswordBytes)
	ErrNameRequired       = fmt.Errorf("%w: name is required", apperr.ErrInvalidInput)
	ErrNameTooLong        = fmt.Errorf("%w: name exceeds %d characters", apperr.ErrInvalidInput, MaxNameLength)
	ErrDescriptionTooLong = fmt.Errorf("%w: description exceeds %d characters", apperr.ErrInvalidInput, MaxDescription)
	ErrPermissionInvalid  = fmt.Errorf("%w: invalid permission", apperr.ErrInvalidInput)
	ErrTooManyPermissions = fmt.Errorf("%w: at most %d permissions allowed", apperr.ErrInvalidInput, MaxPermissions)
	ErrIdentifierInvalid  = fmt.Errorf("%w: invalid identifier", apperr.ErrInvalidInput)
)

// ReservedUsernames cannot be registered. They collide with system routes
// or impersonate operators.
var ReservedUsernames = map[string]bool{
	"admin":         true,
	"administrator": true,
	"root":          true,
	"system":        true,
	"support":       true,
	"api":           true,
	"auth":          true,
	"me":            true,
	"healthz":       true,
	"readyz":        true,
	"metrics":       true,
	"maimweb":       true,
}

var (
	usernamePattern   = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
	permissionPattern = regexp.MustCompile(`^[a-z][a-z0-9_:.-]{0,63}$`)
)

// ValidateUsername checks length, character set and reserved names.
func ValidateUsername(username string) error {
	if len(username) < MinUsernameLength || len(username) > MaxUsernameLength {
		return ErrUsernameLength
	}
	if !usernamePattern.MatchString(username) {
		return ErrUsernameInvalid
	}
	if ReservedUsernames[strings.ToLower(username)] {
		return ErrUsernameReserved
	}
	return nil
}

// ValidateEmail accepts an empty address (email is optional) or a single
// bare address without a display name.
func ValidateEmail(email string) error {
	if email == "" {
		return nil
	}
	if len(email) > MaxEmailLength {
		return ErrEmailInvalid
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || addr.Name != "" {
		return ErrEmailInvalid
	}
	return nil
}

// ValidatePassword enforces a minimum length in characters and the bcrypt
// input limit in bytes.
func ValidatePassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return ErrPasswordTooShort
	}
	if len(password) > auth.MaxPasswordBytes {
		return ErrPasswordTooLong
	}
	return nil
}

// ValidateName checks a required display name for tenants, agents and keys.
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return ErrNameRequired
	}
	if utf8.RuneCountInString(trimmed) > MaxNameLength {
		return ErrNameTooLong
	}
	for _, r := range trimmed {
		if unicode.IsControl(r) {
			return fmt.Errorf("%w: name contains control characters", apperr.ErrInvalidInput)
		}
	}
	return nil
}

// ValidateDescription checks an optional free-text description.
func ValidateDescription(description string) error {
	if utf8.RuneCountInString(description) > MaxDescription {
		return ErrDescriptionTooLong
	}
	return nil
}

// ValidatePermissions checks API key permission names.
func ValidatePermissions(permissions []string) error {
	if len(permissions) > MaxPermissions {
		return ErrTooManyPermissions
	}
	for _, p := range permissions {
		if !permissionPattern.MatchString(p) {
			return fmt.Errorf("%w: %q", ErrPermissionInvalid, p)
		}
	}
	return nil
}

// ValidateIdentifier checks an opaque resource ID taken from a path or
// query parameter before it is forwarded upstream.
func ValidateIdentifier(id string) error {
	if id == "" || len(id) > MaxIdentifier {
		return ErrIdentifierInvalid
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c <= 0x20 || c >= 0x7f || c == '/' || c == '?' || c == '#' {
			return ErrIdentifierInvalid
		}
	}
	return nil
}

package utils

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

// ValidateEmail validates an email address
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}

	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("invalid email format")
	}

	return nil
}

// ValidatePassword validates a password
func ValidatePassword(password string) error {
	if password == "" {
		return fmt.Errorf("password is required")
	}

	if utf8.RuneCountInString(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters long")
	}

	return nil
}

// ValidateRequired validates that a string is not empty
func ValidateRequired(value, fieldName string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

var validName = regexp.MustCompile(`^[\p{L}\p{M}0-9\s.'\-]+$`)

// ValidateName validates a person's display name
func ValidateName(name, fieldName string) error {
	if err := ValidateRequired(name, fieldName); err != nil {
		return err
	}

	if utf8.RuneCountInString(name) > 100 {
		return fmt.Errorf("%s must be less than 100 characters", fieldName)
	}

	if !validName.MatchString(name) {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}

	return nil
}

var validCode = regexp.MustCompile(`^[A-Za-z0-9]{4,12}$`)

// ValidateCode validates a verification or reset code
func ValidateCode(code string) error {
	if err := ValidateRequired(code, "code"); err != nil {
		return err
	}

	if !validCode.MatchString(code) {
		return fmt.Errorf("code must be 4-12 letters or digits")
	}

	return nil
}

// ValidateURL validates a server base URL
func ValidateURL(raw string) error {
	if err := ValidateRequired(raw, "URL"); err != nil {
		return err
	}

	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid URL format")
	}

	return nil
}

// ValidateDuration validates a duration string such as "30s"
func ValidateDuration(value, fieldName string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("%s must be a duration like 30s", fieldName)
	}
	if d <= 0 {
		return fmt.Errorf("%s must be positive", fieldName)
	}
	return nil
}

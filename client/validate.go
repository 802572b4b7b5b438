package client

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// emailRegex is deliberately loose: it rejects obvious garbage and leaves
// real validation to the backend, which is the source of truth anyway.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// ValidateUserID checks that a user ID is present. IDs are issued by the
// auth provider and treated as opaque beyond that.
func ValidateUserID(userID string) error {
	if userID == "" {
		return fmt.Errorf("userId is required")
	}
	return nil
}

// ValidateSessionID checks that a session ID is a valid UUID, the format
// the backend issues for sessions.
func ValidateSessionID(sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("sessionId is required")
	}
	if _, err := uuid.Parse(sessionID); err != nil {
		return fmt.Errorf("sessionId must be a valid UUID")
	}
	return nil
}

// ValidateEmail checks basic email shape.
func ValidateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("email is required")
	}
	if !emailRegex.MatchString(email) {
		return fmt.Errorf("email is not valid")
	}
	return nil
}

// ValidatePatient checks the intake-form fields before any network call.
// All failures are reported in one message, joined field by field, the
// same shape the backend uses for its validation lists.
func ValidatePatient(name string, age int, gender string) error {
	var parts []string
	if strings.TrimSpace(name) == "" {
		parts = append(parts, "patient_name: required")
	}
	if age <= 0 || age >= 150 {
		parts = append(parts, "age: must be between 1 and 149")
	}
	if strings.TrimSpace(gender) == "" {
		parts = append(parts, "gender: required")
	}
	if len(parts) > 0 {
		return fmt.Errorf("%s", strings.Join(parts, ", "))
	}
	return nil
}

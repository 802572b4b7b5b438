package client

import (
	"strings"
	"testing"
)

func TestValidateSessionID(t *testing.T) {
	if err := ValidateSessionID("7b4a4f4e-9a4f-4d2e-8c5b-6a4f2e1d3c2b"); err != nil {
		t.Fatalf("valid UUID rejected: %v", err)
	}
	if err := ValidateSessionID(""); err == nil {
		t.Fatalf("empty session id accepted")
	}
	if err := ValidateSessionID("abc-123"); err == nil {
		t.Fatalf("non-UUID session id accepted")
	}
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@b.co", "jane.doe+tag@example.org"} {
		if err := ValidateEmail(ok); err != nil {
			t.Errorf("%q rejected: %v", ok, err)
		}
	}
	for _, bad := range []string{"", "plain", "a@b", "a b@c.d", "@x.y"} {
		if err := ValidateEmail(bad); err == nil {
			t.Errorf("%q accepted", bad)
		}
	}
}

func TestValidatePatient(t *testing.T) {
	if err := ValidatePatient("Jane Doe", 40, "Female"); err != nil {
		t.Fatalf("valid patient rejected: %v", err)
	}

	err := ValidatePatient(" ", 0, "")
	if err == nil {
		t.Fatalf("invalid patient accepted")
	}
	// All failing fields are reported in one pass.
	for _, frag := range []string{"patient_name", "age", "gender"} {
		if !strings.Contains(err.Error(), frag) {
			t.Errorf("error %q missing %q", err.Error(), frag)
		}
	}

	if err := ValidatePatient("Jane Doe", 150, "Female"); err == nil {
		t.Fatalf("age 150 accepted")
	}
	if err := ValidatePatient("Jane Doe", 149, "Female"); err != nil {
		t.Fatalf("age 149 rejected: %v", err)
	}
}

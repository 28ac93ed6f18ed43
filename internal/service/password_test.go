package service_test

import (
	"testing"
	"unicode"

	"github.com/hartleydigital/portal-api/internal/service"
)

func TestValidatePasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		valid    bool
	}{
		{"Str0ngPass!", true},
		{"Aa1!aaaa", true},
		{"short1!", false},       // too short
		{"alllowercase1!", false}, // no upper
		{"ALLUPPERCASE1!", false}, // no lower
		{"NoDigitsHere!", false},  // no digit
		{"NoSymbols123A", false},  // no symbol
		{"", false},
	}
	for _, tc := range cases {
		err := service.ValidatePasswordStrength(tc.password)
		if tc.valid && err != nil {
			t.Errorf("%q: expected valid, got %v", tc.password, err)
		}
		if !tc.valid && err == nil {
			t.Errorf("%q: expected rejection", tc.password)
		}
	}
}

func TestGenerateTempPassword(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 20; i++ {
		pw := service.GenerateTempPassword()
		if len(pw) != 12 {
			t.Fatalf("expected 12 characters, got %d (%q)", len(pw), pw)
		}
		// Generated passwords must always satisfy the policy.
		if err := service.ValidatePasswordStrength(pw); err != nil {
			t.Fatalf("generated password fails policy: %q (%v)", pw, err)
		}
		for _, r := range pw {
			if r == '0' || r == 'O' || r == '1' || r == 'l' {
				t.Errorf("ambiguous character %q in %q", r, pw)
			}
			if unicode.IsSpace(r) {
				t.Errorf("whitespace in generated password %q", pw)
			}
		}
		if seen[pw] {
			t.Errorf("duplicate generated password %q", pw)
		}
		seen[pw] = true
	}
}

func TestCheckLegacyPassword(t *testing.T) {
	hash, err := service.HashPassword("MySecret1!")
	if err != nil {
		t.Fatal(err)
	}
	if !service.CheckLegacyPassword(hash, "MySecret1!") {
		t.Error("expected matching password to verify")
	}
	if service.CheckLegacyPassword(hash, "WrongSecret1!") {
		t.Error("expected mismatching password to fail")
	}
	if service.CheckLegacyPassword("not-a-bcrypt-hash", "MySecret1!") {
		t.Error("expected malformed hash to fail")
	}
}

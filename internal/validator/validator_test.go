package validator

import "testing"

func TestValidateEmail(t *testing.T) {
	for _, email := range []string{"a@b.com", "seller.one@dealers.co.in"} {
		if err := ValidateEmail(email); err != nil {
			t.Errorf("ValidateEmail(%q) = %v", email, err)
		}
	}
	for _, email := range []string{"", "no-at-sign", "a@b", "a b@c.com"} {
		if err := ValidateEmail(email); err == nil {
			t.Errorf("ValidateEmail(%q) accepted", email)
		}
	}
}

func TestValidateUsername(t *testing.T) {
	for _, name := range []string{"seller_1", "abc", "A_30_char_name"} {
		if err := ValidateUsername(name); err != nil {
			t.Errorf("ValidateUsername(%q) = %v", name, err)
		}
	}
	for _, name := range []string{"ab", "has space", "dot.name", ""} {
		if err := ValidateUsername(name); err == nil {
			t.Errorf("ValidateUsername(%q) accepted", name)
		}
	}
}

func TestValidatePassword(t *testing.T) {
	if err := ValidatePassword("short"); err == nil {
		t.Errorf("short password accepted")
	}
	if err := ValidatePassword("long enough"); err != nil {
		t.Errorf("valid password rejected: %v", err)
	}
}

func TestValidateRegistrationNo(t *testing.T) {
	for _, plate := range []string{"MH-12-AB-1234", "MH12AB1234", "DL 3 C 4567", "KA-01-1234"} {
		if err := ValidateRegistrationNo(plate); err != nil {
			t.Errorf("ValidateRegistrationNo(%q) = %v", plate, err)
		}
	}
	for _, plate := range []string{"not-a-plate", "1234-MH-AB", "mh-12-ab-1234", ""} {
		if err := ValidateRegistrationNo(plate); err == nil {
			t.Errorf("ValidateRegistrationNo(%q) accepted", plate)
		}
	}
}

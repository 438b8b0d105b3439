package discord

import "testing"

func TestConfigValidate(t *testing.T) {
	if err := (&Config{Token: "abc"}).Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := (&Config{}).Validate(); err == nil {
		t.Error("Validate() = nil for missing token")
	}
}

package ssrf

import "testing"

func TestIsBlockedHostname(t *testing.T) {
	cases := map[string]bool{
		"localhost":        true,
		"LOCALHOST":        true,
		"foo.internal":     true,
		"example.com":      false,
		"api.example.com":  false,
	}
	for host, want := range cases {
		if got := IsBlockedHostname(host); got != want {
			t.Errorf("IsBlockedHostname(%q) = %v, want %v", host, got, want)
		}
	}
}

func TestValidatePublicHostnameRejectsPrivateIPLiterals(t *testing.T) {
	cases := []string{"127.0.0.1", "10.0.0.5", "192.168.1.1", "169.254.169.254"}
	for _, host := range cases {
		if err := ValidatePublicHostname(host); err == nil {
			t.Errorf("ValidatePublicHostname(%q): expected rejection", host)
		}
	}
}

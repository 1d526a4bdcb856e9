package internal

import (
	"testing"
)

func TestNewOTPLengthAndCharset(t *testing.T) {
	for _, digits := range []int{6, 8, 10} {
		otp, err := NewOTP(digits)
		if err != nil {
			t.Fatalf("NewOTP(%d) failed: %v", digits, err)
		}
		if len(otp) != digits {
			t.Fatalf("expected %d digits, got %q", digits, otp)
		}
		for _, c := range otp {
			if c < '0' || c > '9' {
				t.Fatalf("non-numeric character in %q", otp)
			}
		}
	}
}

func TestNewOTPRejectsBadLengths(t *testing.T) {
	for _, digits := range []int{0, 5, 11, -1} {
		if _, err := NewOTP(digits); err == nil {
			t.Fatalf("expected NewOTP(%d) rejected", digits)
		}
	}
}

func TestNewTicketIsOpaqueAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		ticket, err := NewTicket()
		if err != nil {
			t.Fatalf("NewTicket failed: %v", err)
		}
		if len(ticket) != 43 { // 32 bytes, base64url, no padding
			t.Fatalf("unexpected ticket length %d", len(ticket))
		}
		if seen[ticket] {
			t.Fatalf("duplicate ticket after %d draws", i)
		}
		seen[ticket] = true
	}
}

func TestHashSecretIsDeterministic(t *testing.T) {
	a := HashSecret("123456")
	b := HashSecret("123456")
	c := HashSecret("123457")

	if a != b {
		t.Fatal("same input must hash identically")
	}
	if a == c {
		t.Fatal("different inputs must not collide")
	}
}

func TestNormalizeRecipient(t *testing.T) {
	cases := map[string]string{
		"Ada@Example.COM":    "ada@example.com",
		"  ada@example.com ": "ada@example.com",
		"ada@example.com":    "ada@example.com",
		"   ":                "",
	}
	for in, want := range cases {
		if got := NormalizeRecipient(in); got != want {
			t.Fatalf("NormalizeRecipient(%q) = %q, want %q", in, got, want)
		}
	}
}

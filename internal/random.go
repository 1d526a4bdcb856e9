package internal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const ticketRawSize = 32

// NewOTP returns a cryptographically random numeric code of the given
// length. Each digit is drawn independently so the distribution is
// uniform over the full code space.
func NewOTP(digits int) (string, error) {
	if digits < 6 || digits > 10 {
		return "", errors.New("invalid otp digits")
	}

	var b strings.Builder
	b.Grow(digits)

	max := big.NewInt(10)
	for i := 0; i < digits; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		b.WriteByte(byte('0' + n.Int64()))
	}

	otp := b.String()
	if len(otp) != digits {
		return "", fmt.Errorf("invalid otp generation length")
	}
	return otp, nil
}

// NewTicket returns a high-entropy opaque credential string
// (256 bits, base64url without padding).
func NewTicket() (string, error) {
	var raw [ticketRawSize]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// HashSecret hashes a candidate code or ticket for storage and
// comparison. Plaintext secrets are never written to the store.
func HashSecret(secret string) [32]byte {
	return sha256.Sum256([]byte(secret))
}

// NormalizeRecipient canonicalizes a recipient identity so that keying
// is case and whitespace insensitive (Foo@Bar.com == foo@bar.com).
func NormalizeRecipient(recipientID string) string {
	return strings.ToLower(strings.TrimSpace(recipientID))
}

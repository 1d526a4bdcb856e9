package beautyauth

import "context"

// Purpose binds a verification code to the flow that issued it. The set
// is closed on purpose: a code issued for one flow can never validate
// under another, because the purpose is part of the storage key.
type Purpose uint8

const (
	PurposeRegister Purpose = iota
	PurposePasswordReset
)

func (p Purpose) String() string {
	switch p {
	case PurposeRegister:
		return "register"
	case PurposePasswordReset:
		return "password_reset"
	default:
		return "unknown"
	}
}

func (p Purpose) valid() bool {
	return p == PurposeRegister || p == PurposePasswordReset
}

// TokenPair is the result of an initial issuance or a rotation.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// UserClaims is the resolved profile embedded into access tokens.
type UserClaims struct {
	UserID string
	Email  string
	Name   string
	Role   string
}

// UserProvider resolves a proven user id into profile claims. It is the
// engine's only dependency on the application's persistence layer and
// is consulted only after a credential has already been validated.
type UserProvider interface {
	GetUserByID(ctx context.Context, userID string) (UserClaims, error)
}

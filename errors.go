package beautyauth

import "errors"

var (
	// ErrEngineNotReady is returned when an Engine method is called on a
	// partially constructed engine. Always build through [Builder.Build].
	ErrEngineNotReady = errors.New("engine not ready")
	// ErrRefreshInvalid is returned for a refresh token that is
	// malformed, carries a bad signature, is past expiry, or has no
	// store record.
	ErrRefreshInvalid = errors.New("refresh token invalid or expired")
	// ErrRefreshReuse is returned when a superseded or revoked refresh
	// token is presented. The whole family has been revoked as a side
	// effect. Map it to the same external status as ErrRefreshInvalid;
	// the audit trail keeps the distinction.
	ErrRefreshReuse = errors.New("refresh token reused or revoked")
	// ErrTokenInvalid is returned for an access token that fails
	// verification.
	ErrTokenInvalid = errors.New("invalid token")
	// ErrCodeInvalid is returned when a verification code exists but the
	// candidate does not match.
	ErrCodeInvalid = errors.New("verification code invalid")
	// ErrCodeNotFound is returned when no code exists for the pair.
	// Expired and never-issued are deliberately indistinguishable.
	ErrCodeNotFound = errors.New("verification code expired or not found")
	// ErrTicketNotFound is returned when a reset ticket is absent,
	// expired, or already consumed.
	ErrTicketNotFound = errors.New("reset ticket expired or not found")
	// ErrPurposeInvalid is returned for a purpose outside the closed set.
	ErrPurposeInvalid = errors.New("invalid verification purpose")
	// ErrRecipientInvalid is returned for an empty recipient identity.
	ErrRecipientInvalid = errors.New("invalid recipient identity")
	// ErrUserNotFound is returned when the identity resolver cannot
	// produce claims for a user id.
	ErrUserNotFound = errors.New("user not found")
	// ErrStoreUnavailable wraps backing-store outages. Fail closed:
	// never map it to a success path.
	ErrStoreUnavailable = errors.New("credential store unavailable")
)

package beautyauth

import (
	"context"
	"errors"
	"strings"

	"github.com/Henrriky/beautyauth/internal/stores"
	"github.com/Henrriky/beautyauth/jwt"
	"github.com/google/uuid"
)

func identityFor(user UserClaims) jwt.Identity {
	return jwt.Identity{
		UserID: user.UserID,
		Email:  user.Email,
		Name:   user.Name,
		Role:   user.Role,
	}
}

// IssueInitialTokens starts a fresh refresh-token family for a user the
// caller has already authenticated through some side channel (password
// check, OAuth). Returns the initial access/refresh pair.
func (e *Engine) IssueInitialTokens(ctx context.Context, userID string) (TokenPair, error) {
	if e == nil || e.refresh == nil || e.jwtManager == nil || e.userProvider == nil {
		return TokenPair{}, ErrEngineNotReady
	}
	if strings.TrimSpace(userID) == "" {
		return TokenPair{}, ErrUserNotFound
	}

	user, err := e.userProvider.GetUserByID(ctx, userID)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssue, false, userID, "", "", ErrUserNotFound, nil)
		return TokenPair{}, ErrUserNotFound
	}

	familyID := uuid.NewString()
	jti := uuid.NewString()

	if err := e.refresh.CreateFamily(ctx, familyID, jti, userID, e.config.JWT.RefreshTTL); err != nil {
		mapped := e.storeErr(err)
		e.metricInc(MetricIssueFailure)
		e.emitAudit(ctx, auditEventTokenIssue, false, userID, "", familyID, mapped, nil)
		return TokenPair{}, mapped
	}

	refreshToken, err := e.jwtManager.CreateRefresh(jti, familyID, userID)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		return TokenPair{}, err
	}
	accessToken, err := e.jwtManager.CreateAccess(identityFor(user))
	if err != nil {
		e.metricInc(MetricIssueFailure)
		return TokenPair{}, err
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventTokenIssue, true, userID, "", familyID, nil, nil)

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Rotate exchanges a valid refresh token for a fresh pair, superseding
// the presented token. Presenting an already-superseded token is
// treated as replay: the entire family is revoked and the caller gets
// ErrRefreshReuse. Map ErrRefreshReuse and ErrRefreshInvalid to the
// same external response; an attacker must not be able to distinguish
// "replay detected" from "just expired".
func (e *Engine) Rotate(ctx context.Context, refreshToken string) (TokenPair, error) {
	if e == nil || e.refresh == nil || e.jwtManager == nil || e.userProvider == nil {
		return TokenPair{}, ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefresh(refreshToken)
	if err != nil {
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventTokenRotate, false, "", "", "", ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"reason": "token_rejected"}
		})
		return TokenPair{}, ErrRefreshInvalid
	}

	// Resolve the identity before touching the store: a resolver outage
	// after a successful CAS would strand a consumed token.
	user, err := e.userProvider.GetUserByID(ctx, claims.UID)
	if err != nil {
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventTokenRotate, false, claims.UID, "", claims.FID, ErrUserNotFound, nil)
		return TokenPair{}, ErrUserNotFound
	}

	newJTI := uuid.NewString()
	record, err := e.refresh.Rotate(ctx, claims.FID, claims.ID, newJTI, e.config.JWT.RefreshTTL)
	switch {
	case errors.Is(err, stores.ErrReuseDetected):
		e.metricInc(MetricReuseDetected)
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventTokenReuseDetected, false, claims.UID, "", claims.FID, ErrRefreshReuse, func() map[string]string {
			return map[string]string{"jti": claims.ID, "action": "family_revoked"}
		})
		return TokenPair{}, ErrRefreshReuse
	case errors.Is(err, stores.ErrFamilyRevoked):
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventTokenRotate, false, claims.UID, "", claims.FID, ErrRefreshReuse, func() map[string]string {
			return map[string]string{"jti": claims.ID, "reason": "family_revoked"}
		})
		return TokenPair{}, ErrRefreshReuse
	case errors.Is(err, stores.ErrNotFound):
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventTokenRotate, false, claims.UID, "", claims.FID, ErrRefreshInvalid, func() map[string]string {
			return map[string]string{"jti": claims.ID, "reason": "record_missing"}
		})
		return TokenPair{}, ErrRefreshInvalid
	case err != nil:
		mapped := e.storeErr(err)
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventStoreUnavailable, false, claims.UID, "", claims.FID, mapped, nil)
		return TokenPair{}, mapped
	}

	nextRefresh, err := e.jwtManager.CreateRefresh(newJTI, claims.FID, record.UserID)
	if err != nil {
		e.metricInc(MetricRotateFailure)
		return TokenPair{}, err
	}
	accessToken, err := e.jwtManager.CreateAccess(identityFor(user))
	if err != nil {
		e.metricInc(MetricRotateFailure)
		return TokenPair{}, err
	}

	e.metricInc(MetricRotateSuccess)
	e.emitAudit(ctx, auditEventTokenRotate, true, record.UserID, "", claims.FID, nil, nil)

	return TokenPair{AccessToken: accessToken, RefreshToken: nextRefresh}, nil
}

// Revoke marks the token's whole family revoked. The signature must
// verify but expiry is tolerated: a just-expired token must still be
// able to log out. Idempotent: revoking an unknown or already-revoked
// family succeeds without effect.
func (e *Engine) Revoke(ctx context.Context, refreshToken string) error {
	if e == nil || e.refresh == nil || e.jwtManager == nil {
		return ErrEngineNotReady
	}

	claims, err := e.jwtManager.ParseRefreshAllowExpired(refreshToken)
	if err != nil {
		e.emitAudit(ctx, auditEventTokenRevoke, false, "", "", "", ErrRefreshInvalid, nil)
		return ErrRefreshInvalid
	}

	if err := e.refresh.RevokeFamily(ctx, claims.FID); err != nil {
		mapped := e.storeErr(err)
		e.emitAudit(ctx, auditEventTokenRevoke, false, claims.UID, "", claims.FID, mapped, nil)
		return mapped
	}

	e.metricInc(MetricRevoke)
	e.emitAudit(ctx, auditEventTokenRevoke, true, claims.UID, "", claims.FID, nil, nil)
	return nil
}

// ValidateAccess verifies an access token and returns its claims. Pure
// signature and expiry check, no store round-trip: access tokens are
// intentionally never revocable mid-life.
func (e *Engine) ValidateAccess(tokenStr string) (UserClaims, error) {
	if e == nil || e.jwtManager == nil {
		return UserClaims{}, ErrEngineNotReady
	}
	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		return UserClaims{}, ErrTokenInvalid
	}
	return UserClaims{
		UserID: claims.UID,
		Email:  claims.Email,
		Name:   claims.Name,
		Role:   claims.Role,
	}, nil
}

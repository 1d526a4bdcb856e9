package beautyauth

import (
	"context"
	"errors"
	"time"

	"github.com/Henrriky/beautyauth/internal"
	"github.com/Henrriky/beautyauth/internal/stores"
)

// IssueVerificationCode generates a one-time numeric code bound to the
// purpose and recipient and returns the plaintext for out-of-band
// delivery; the engine never sends email itself. Only the code's hash
// is stored, together with the caller's opaque payload (for example a
// pre-hashed password), which is handed back on successful
// verification. Re-issuing overwrites: only the newest code is valid.
func (e *Engine) IssueVerificationCode(ctx context.Context, purpose Purpose, recipientID string, payload []byte) (string, error) {
	if e == nil || e.verification == nil {
		return "", ErrEngineNotReady
	}
	if !purpose.valid() {
		return "", ErrPurposeInvalid
	}
	recipient := internal.NormalizeRecipient(recipientID)
	if recipient == "" {
		return "", ErrRecipientInvalid
	}

	code, err := internal.NewOTP(e.config.Verification.CodeDigits)
	if err != nil {
		return "", err
	}

	record := &stores.VerificationRecord{
		SecretHash: internal.HashSecret(code),
		Payload:    payload,
		ExpiresAt:  time.Now().Add(e.config.Verification.CodeTTL).Unix(),
	}
	if err := e.verification.Save(ctx, purpose.String(), recipient, record, e.config.Verification.CodeTTL); err != nil {
		mapped := e.storeErr(err)
		e.emitAudit(ctx, auditEventCodeIssue, false, "", recipient, "", mapped, nil)
		return "", mapped
	}

	e.metricInc(MetricCodeIssue)
	e.emitAudit(ctx, auditEventCodeIssue, true, "", recipient, "", nil, func() map[string]string {
		return map[string]string{"purpose": purpose.String()}
	})

	return code, nil
}

// VerifyCode checks a candidate code and, on match, consumes the record
// and returns the payload stored at issuance. A second call for the
// same code fails with ErrCodeNotFound even within the same instant. A
// mismatch costs one attempt; exhausting the ceiling destroys the code.
func (e *Engine) VerifyCode(ctx context.Context, purpose Purpose, recipientID, candidate string) ([]byte, error) {
	if e == nil || e.verification == nil {
		return nil, ErrEngineNotReady
	}
	if !purpose.valid() {
		return nil, ErrPurposeInvalid
	}
	recipient := internal.NormalizeRecipient(recipientID)
	if recipient == "" {
		return nil, ErrRecipientInvalid
	}

	record, err := e.verification.Consume(ctx, purpose.String(), recipient, internal.HashSecret(candidate), e.config.Verification.MaxAttempts)
	switch {
	case errors.Is(err, stores.ErrAttemptsExceeded):
		e.metricInc(MetricCodeAttemptsExceeded)
		e.metricInc(MetricCodeVerifyFailure)
		e.emitAudit(ctx, auditEventCodeAttemptsExceeded, false, "", recipient, "", ErrCodeInvalid, func() map[string]string {
			return map[string]string{"purpose": purpose.String()}
		})
		return nil, ErrCodeInvalid
	case errors.Is(err, stores.ErrMismatch):
		e.metricInc(MetricCodeVerifyFailure)
		e.emitAudit(ctx, auditEventCodeVerify, false, "", recipient, "", ErrCodeInvalid, func() map[string]string {
			return map[string]string{"purpose": purpose.String()}
		})
		return nil, ErrCodeInvalid
	case errors.Is(err, stores.ErrNotFound):
		e.metricInc(MetricCodeVerifyFailure)
		e.emitAudit(ctx, auditEventCodeVerify, false, "", recipient, "", ErrCodeNotFound, func() map[string]string {
			return map[string]string{"purpose": purpose.String()}
		})
		return nil, ErrCodeNotFound
	case err != nil:
		mapped := e.storeErr(err)
		e.emitAudit(ctx, auditEventStoreUnavailable, false, "", recipient, "", mapped, nil)
		return nil, mapped
	}

	e.metricInc(MetricCodeVerifySuccess)
	e.emitAudit(ctx, auditEventCodeVerify, true, "", recipient, "", nil, func() map[string]string {
		return map[string]string{"purpose": purpose.String()}
	})

	return record.Payload, nil
}

package beautyauth

import (
	"context"
	"time"
)

const (
	auditEventTokenIssue           = "token_issue"
	auditEventTokenRotate          = "token_rotate"
	auditEventTokenReuseDetected   = "token_reuse_detected"
	auditEventTokenRevoke          = "token_revoke"
	auditEventCodeIssue            = "code_issue"
	auditEventCodeVerify           = "code_verify"
	auditEventCodeAttemptsExceeded = "code_attempts_exceeded"
	auditEventTicketIssue          = "ticket_issue"
	auditEventTicketConsume        = "ticket_consume"
	auditEventStoreUnavailable     = "store_unavailable"
)

// emitAudit queues one event. The metadata closure is only invoked when
// auditing is enabled, so callers can build maps lazily.
func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID, recipient, familyID string,
	err error,
	metadata func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: time.Now(),
		EventType: eventType,
		UserID:    userID,
		Recipient: recipient,
		FamilyID:  familyID,
		Success:   success,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}

package beautyauth

import (
	"context"
	"errors"
	"time"

	"github.com/Henrriky/beautyauth/internal"
	"github.com/Henrriky/beautyauth/internal/stores"
)

// IssueResetTicket mints a one-time opaque ticket proving the recipient
// recently passed a verification step. The ticket is the only artifact
// the caller needs to hold between "code verified" and "new password
// submitted"; it is single-use and expires on its own TTL.
func (e *Engine) IssueResetTicket(ctx context.Context, recipientID string) (string, error) {
	if e == nil || e.tickets == nil {
		return "", ErrEngineNotReady
	}
	recipient := internal.NormalizeRecipient(recipientID)
	if recipient == "" {
		return "", ErrRecipientInvalid
	}

	ticket, err := internal.NewTicket()
	if err != nil {
		return "", err
	}

	record := &stores.TicketRecord{
		RecipientID: recipient,
		ExpiresAt:   time.Now().Add(e.config.ResetTicket.TicketTTL).Unix(),
	}
	if err := e.tickets.Save(ctx, ticket, record, e.config.ResetTicket.TicketTTL); err != nil {
		mapped := e.storeErr(err)
		e.emitAudit(ctx, auditEventTicketIssue, false, "", recipient, "", mapped, nil)
		return "", mapped
	}

	e.metricInc(MetricTicketIssue)
	e.emitAudit(ctx, auditEventTicketIssue, true, "", recipient, "", nil, nil)

	return ticket, nil
}

// ConfirmPasswordReset verifies a password-reset code and, on success,
// exchanges it for a reset ticket in one step. Sugar over VerifyCode
// plus IssueResetTicket; the code is consumed even if minting the
// ticket subsequently fails, which is the safe direction.
func (e *Engine) ConfirmPasswordReset(ctx context.Context, recipientID, code string) (string, error) {
	if e == nil || e.verification == nil || e.tickets == nil {
		return "", ErrEngineNotReady
	}
	if _, err := e.VerifyCode(ctx, PurposePasswordReset, recipientID, code); err != nil {
		return "", err
	}
	return e.IssueResetTicket(ctx, recipientID)
}

// ConsumeResetTicket redeems a ticket exactly once and returns the
// recipient it was issued to. A second redemption, a forged value, and
// an expired ticket are all ErrTicketNotFound; there is nothing useful
// to distinguish for the caller and nothing safe to leak to an
// attacker.
func (e *Engine) ConsumeResetTicket(ctx context.Context, ticket string) (string, error) {
	if e == nil || e.tickets == nil {
		return "", ErrEngineNotReady
	}
	if ticket == "" {
		return "", ErrTicketNotFound
	}

	record, err := e.tickets.Consume(ctx, ticket)
	switch {
	case errors.Is(err, stores.ErrNotFound):
		e.metricInc(MetricTicketConsumeFailure)
		e.emitAudit(ctx, auditEventTicketConsume, false, "", "", "", ErrTicketNotFound, nil)
		return "", ErrTicketNotFound
	case err != nil:
		mapped := e.storeErr(err)
		e.metricInc(MetricTicketConsumeFailure)
		e.emitAudit(ctx, auditEventTicketConsume, false, "", "", "", mapped, nil)
		return "", mapped
	}

	e.metricInc(MetricTicketConsume)
	e.emitAudit(ctx, auditEventTicketConsume, true, "", record.RecipientID, "", nil, nil)

	return record.RecipientID, nil
}

package beautyauth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPasswordResetFlow(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	code, err := f.engine.IssueVerificationCode(ctx, PurposePasswordReset, "ada@example.com", nil)
	if err != nil {
		t.Fatalf("IssueVerificationCode failed: %v", err)
	}

	ticket, err := f.engine.ConfirmPasswordReset(ctx, "ada@example.com", code)
	if err != nil {
		t.Fatalf("ConfirmPasswordReset failed: %v", err)
	}
	if ticket == "" {
		t.Fatal("expected non-empty ticket")
	}

	// The code is spent; a second confirmation attempt fails.
	if _, err := f.engine.ConfirmPasswordReset(ctx, "ada@example.com", code); !errors.Is(err, ErrCodeNotFound) {
		t.Fatalf("expected ErrCodeNotFound on reused code, got %v", err)
	}

	recipient, err := f.engine.ConsumeResetTicket(ctx, ticket)
	if err != nil {
		t.Fatalf("ConsumeResetTicket failed: %v", err)
	}
	if recipient != "ada@example.com" {
		t.Fatalf("unexpected recipient %q", recipient)
	}

	// Single redemption.
	if _, err := f.engine.ConsumeResetTicket(ctx, ticket); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound on second redemption, got %v", err)
	}
}

func TestConfirmWithWrongCodeIssuesNoTicket(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	code, err := f.engine.IssueVerificationCode(ctx, PurposePasswordReset, "ada@example.com", nil)
	if err != nil {
		t.Fatalf("IssueVerificationCode failed: %v", err)
	}

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	if _, err := f.engine.ConfirmPasswordReset(ctx, "ada@example.com", wrong); !errors.Is(err, ErrCodeInvalid) {
		t.Fatalf("expected ErrCodeInvalid, got %v", err)
	}

	// The real code still works after a failed guess.
	if _, err := f.engine.ConfirmPasswordReset(ctx, "ada@example.com", code); err != nil {
		t.Fatalf("expected correct code accepted, got %v", err)
	}
}

func TestConsumeUnknownTicket(t *testing.T) {
	f := newTestEngine(t)

	if _, err := f.engine.ConsumeResetTicket(context.Background(), "forged"); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
	if _, err := f.engine.ConsumeResetTicket(context.Background(), ""); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound for empty ticket, got %v", err)
	}
}

func TestTicketExpiry(t *testing.T) {
	f := newTestEngine(t)
	ctx := context.Background()

	ticket, err := f.engine.IssueResetTicket(ctx, "ada@example.com")
	if err != nil {
		t.Fatalf("IssueResetTicket failed: %v", err)
	}
	f.mr.FastForward(16 * time.Minute) // past the 15 minute fixture TTL

	if _, err := f.engine.ConsumeResetTicket(ctx, ticket); !errors.Is(err, ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound after expiry, got %v", err)
	}
}

func TestIssueTicketValidatesRecipient(t *testing.T) {
	f := newTestEngine(t)

	if _, err := f.engine.IssueResetTicket(context.Background(), "  "); !errors.Is(err, ErrRecipientInvalid) {
		t.Fatalf("expected ErrRecipientInvalid, got %v", err)
	}
}

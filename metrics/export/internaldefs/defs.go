package internaldefs

import (
	beautyauth "github.com/Henrriky/beautyauth"
)

// CounterDef pairs an engine counter with its stable exported name.
type CounterDef struct {
	ID   beautyauth.MetricID
	Name string
	Help string
}

// CounterDefs is the single source of truth for exported counter names.
// Both exporters iterate this slice so that Prometheus and OTel output
// can never drift apart.
var CounterDefs = []CounterDef{
	{ID: beautyauth.MetricIssueSuccess, Name: "beautyauth_token_issue_success_total", Help: "Successful initial token issuances."},
	{ID: beautyauth.MetricIssueFailure, Name: "beautyauth_token_issue_failure_total", Help: "Failed initial token issuances."},
	{ID: beautyauth.MetricRotateSuccess, Name: "beautyauth_token_rotate_success_total", Help: "Successful refresh token rotations."},
	{ID: beautyauth.MetricRotateFailure, Name: "beautyauth_token_rotate_failure_total", Help: "Failed refresh token rotations."},
	{ID: beautyauth.MetricReuseDetected, Name: "beautyauth_token_reuse_detected_total", Help: "Refresh token replays that triggered family revocation."},
	{ID: beautyauth.MetricRevoke, Name: "beautyauth_token_revoke_total", Help: "Explicit family revocations."},
	{ID: beautyauth.MetricCodeIssue, Name: "beautyauth_code_issue_total", Help: "Issued verification codes."},
	{ID: beautyauth.MetricCodeVerifySuccess, Name: "beautyauth_code_verify_success_total", Help: "Successful code verifications."},
	{ID: beautyauth.MetricCodeVerifyFailure, Name: "beautyauth_code_verify_failure_total", Help: "Failed code verifications."},
	{ID: beautyauth.MetricCodeAttemptsExceeded, Name: "beautyauth_code_attempts_exceeded_total", Help: "Codes destroyed for exhausting the attempt ceiling."},
	{ID: beautyauth.MetricTicketIssue, Name: "beautyauth_ticket_issue_total", Help: "Issued password-reset tickets."},
	{ID: beautyauth.MetricTicketConsume, Name: "beautyauth_ticket_consume_total", Help: "Successfully redeemed password-reset tickets."},
	{ID: beautyauth.MetricTicketConsumeFailure, Name: "beautyauth_ticket_consume_failure_total", Help: "Failed ticket redemptions."},
	{ID: beautyauth.MetricStoreUnavailable, Name: "beautyauth_store_unavailable_total", Help: "Operations failed closed due to store outage."},
}

// AuditDroppedName is the exported name for the audit backpressure
// counter, which lives on the dispatcher rather than in the snapshot.
const AuditDroppedName = "beautyauth_audit_dropped_total"

// AuditDroppedHelp documents AuditDroppedName.
const AuditDroppedHelp = "Dropped audit events due to dispatcher backpressure."

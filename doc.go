// Package beautyauth provides an embeddable credential-lifecycle engine:
// JWT access tokens, rotating refresh tokens with family-based replay
// detection, one-time verification codes, and single-use password-reset
// tickets, all backed by a shared ephemeral key-value store.
//
// Engine methods are safe to call from multiple goroutines after
// initialization through [Builder.Build].
//
// # Architecture boundaries
//
// beautyauth is the public surface. It exposes [Engine], [Builder],
// [Config], sentinel errors, and value types (TokenPair, UserClaims,
// MetricsSnapshot). Record encoding, store keying, and the atomic
// consume/rotate machinery live under internal/ and are never exported.
//
// # What this package must NOT do
//
//   - Persist anything durably. Every record it writes carries a TTL and
//     the store is allowed to lose it at expiry.
//   - Send email or SMS. Code and ticket issuance return the secret to
//     the caller; delivery is the host application's job.
//   - Store plaintext secrets. Verification codes are kept only as
//     SHA-256 digests; refresh tokens are kept only as jti references.
//   - Expose Redis clients or encoding details in its public API.
package beautyauth

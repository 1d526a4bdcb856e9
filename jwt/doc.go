// Package jwt wraps token signing and verification for the credential
// engine: short-lived self-contained access tokens and long-lived
// refresh tokens that embed their store identifiers (jti, family).
//
// The package is stateless. Refresh-token revocation and reuse
// detection live in the store layer; this package only guarantees
// authenticity and expiry of the signed envelope.
package jwt

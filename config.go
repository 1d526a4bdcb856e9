package beautyauth

import (
	"errors"
	"time"
)

// Config is the full engine configuration. Zero values are filled from
// defaultConfig by [Builder.Build]; signing material has no default and
// must be supplied.
type Config struct {
	JWT          JWTConfig
	Verification VerificationConfig
	ResetTicket  ResetTicketConfig
	Audit        AuditConfig
	Metrics      MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures both token kinds. AccessTTL is deliberately
// short: access tokens are never revocable mid-life, revocation only
// happens by not rotating the corresponding refresh token.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Audience      string
	Leeway        time.Duration
}

/*
====================================
VERIFICATION CODE CONFIG
====================================
*/

// VerificationConfig bounds the one-time code flow. MaxAttempts caps
// brute-force guessing per issued code; reaching it destroys the code.
type VerificationConfig struct {
	CodeTTL     time.Duration
	CodeDigits  int
	MaxAttempts int
}

/*
====================================
RESET TICKET CONFIG
====================================
*/

// ResetTicketConfig bounds the post-verification reset window.
type ResetTicketConfig struct {
	TicketTTL time.Duration
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the async security-event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig controls the in-process counters.
type MetricsConfig struct {
	Enabled bool
}

func defaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: "ed25519",
			Issuer:        "beautyauth",
			Leeway:        30 * time.Second,
		},
		Verification: VerificationConfig{
			CodeTTL:     10 * time.Minute,
			CodeDigits:  6,
			MaxAttempts: 5,
		},
		ResetTicket: ResetTicketConfig{
			TicketTTL: 15 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func validateConfig(cfg Config) error {
	if cfg.JWT.AccessTTL <= 0 || cfg.JWT.RefreshTTL <= 0 {
		return errors.New("invalid jwt ttl configuration")
	}
	if cfg.JWT.AccessTTL >= cfg.JWT.RefreshTTL {
		return errors.New("access ttl must be shorter than refresh ttl")
	}
	switch cfg.JWT.SigningMethod {
	case "ed25519", "hs256":
	default:
		return errors.New("unsupported signing method")
	}
	if cfg.Verification.CodeTTL <= 0 {
		return errors.New("invalid verification code ttl")
	}
	if cfg.Verification.CodeDigits < 6 || cfg.Verification.CodeDigits > 10 {
		return errors.New("invalid verification code digits")
	}
	if cfg.Verification.MaxAttempts <= 0 {
		return errors.New("invalid verification max attempts")
	}
	if cfg.ResetTicket.TicketTTL <= 0 {
		return errors.New("invalid reset ticket ttl")
	}
	if cfg.Audit.Enabled && cfg.Audit.BufferSize <= 0 {
		return errors.New("invalid audit buffer size")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.PrivateKey = append([]byte(nil), cfg.JWT.PrivateKey...)
	out.JWT.PublicKey = append([]byte(nil), cfg.JWT.PublicKey...)
	return out
}

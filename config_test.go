package beautyauth

import (
	"testing"
	"time"
)

func validTestConfig(t *testing.T) Config {
	t.Helper()
	pub, priv := testKeys(t)
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub
	return cfg
}

func TestValidateConfigAcceptsDefaults(t *testing.T) {
	if err := validateConfig(validTestConfig(t)); err != nil {
		t.Fatalf("default config rejected: %v", err)
	}
}

func TestValidateConfigRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{"zero access ttl", func(cfg *Config) { cfg.JWT.AccessTTL = 0 }},
		{"access outlives refresh", func(cfg *Config) { cfg.JWT.AccessTTL = cfg.JWT.RefreshTTL * 2 }},
		{"bad signing method", func(cfg *Config) { cfg.JWT.SigningMethod = "rsa" }},
		{"zero code ttl", func(cfg *Config) { cfg.Verification.CodeTTL = 0 }},
		{"too few digits", func(cfg *Config) { cfg.Verification.CodeDigits = 4 }},
		{"too many digits", func(cfg *Config) { cfg.Verification.CodeDigits = 12 }},
		{"zero attempts", func(cfg *Config) { cfg.Verification.MaxAttempts = 0 }},
		{"zero ticket ttl", func(cfg *Config) { cfg.ResetTicket.TicketTTL = 0 }},
		{"audit enabled without buffer", func(cfg *Config) { cfg.Audit.Enabled = true; cfg.Audit.BufferSize = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validTestConfig(t)
			tc.mutate(&cfg)
			if err := validateConfig(cfg); err == nil {
				t.Fatal("expected config rejected")
			}
		})
	}
}

func TestCloneConfigCopiesKeys(t *testing.T) {
	cfg := validTestConfig(t)
	clone := cloneConfig(cfg)

	clone.JWT.PrivateKey[0] ^= 0xFF
	if cfg.JWT.PrivateKey[0] == clone.JWT.PrivateKey[0] {
		t.Fatal("clone shares private key storage with original")
	}
}

func TestBuilderRequiresUserProvider(t *testing.T) {
	pub, priv := testKeys(t)
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub

	_, err := New().WithConfig(cfg).WithMemoryStore().Build()
	if err == nil {
		t.Fatal("expected build without user provider to fail")
	}
}

func TestBuilderRequiresBackend(t *testing.T) {
	pub, priv := testKeys(t)
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub

	_, err := New().WithConfig(cfg).WithUserProvider(defaultTestUsers).Build()
	if err == nil {
		t.Fatal("expected build without store or redis to fail")
	}
}

func TestBuilderRefusesSecondBuild(t *testing.T) {
	pub, priv := testKeys(t)
	cfg := defaultConfig()
	cfg.JWT.PrivateKey = priv
	cfg.JWT.PublicKey = pub

	b := New().WithConfig(cfg).WithMemoryStore().WithUserProvider(defaultTestUsers)
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("first Build failed: %v", err)
	}
	defer engine.Close()

	if _, err := b.Build(); err == nil {
		t.Fatal("expected second Build to fail")
	}
}

func TestBuildFillsDefaults(t *testing.T) {
	pub, priv := testKeys(t)

	// Only signing material supplied; everything else backfilled.
	engine, err := New().
		WithConfig(Config{JWT: JWTConfig{PrivateKey: priv, PublicKey: pub}}).
		WithMemoryStore().
		WithUserProvider(defaultTestUsers).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	defer engine.Close()

	if engine.config.Verification.CodeDigits != 6 {
		t.Fatalf("expected default code digits, got %d", engine.config.Verification.CodeDigits)
	}
	if engine.config.JWT.AccessTTL != 15*time.Minute {
		t.Fatalf("expected default access ttl, got %v", engine.config.JWT.AccessTTL)
	}
}

package beautyauth

import (
	"errors"

	"github.com/Henrriky/beautyauth/internal/kv"
	"github.com/Henrriky/beautyauth/internal/stores"
	"github.com/Henrriky/beautyauth/jwt"
	"github.com/redis/go-redis/v9"
)

// Builder assembles an [Engine]. Configure it during initialization,
// call Build once, then discard it; a Builder is not safe for
// concurrent use and refuses to build twice.
type Builder struct {
	config Config
	redis  *redis.Client
	store  kv.Store

	userProvider UserProvider
	auditSink    AuditSink

	built bool
}

// New returns a Builder preloaded with defaults.
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the whole configuration. Zero-valued sections are
// filled back in from defaults at Build time.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis selects a Redis-backed ephemeral store. The client's
// lifecycle stays with the caller.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithMemoryStore selects an in-process ephemeral store, bypassing
// Redis. Single-use guarantees then hold within one process only; use
// it for tests and single-instance embedding. Takes precedence over
// WithRedis.
func (b *Builder) WithMemoryStore() *Builder {
	b.store = kv.NewMemory()
	return b
}

// WithUserProvider sets the identity resolver consulted on token issue
// and rotation. Required.
func (b *Builder) WithUserProvider(up UserProvider) *Builder {
	b.userProvider = up
	return b
}

// WithAuditSink sets the destination for security events and enables
// auditing.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	b.config.Audit.Enabled = true
	return b
}

// WithMetricsEnabled toggles the in-process counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// Build validates the configuration, wires the component stores onto
// the shared ephemeral store, and returns a ready Engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	fillConfigDefaults(&cfg)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	if b.userProvider == nil {
		return nil, errors.New("user provider required")
	}

	store := b.store
	if store == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or store required")
		}
		store = kv.NewRedis(b.redis)
	}

	jm, err := jwt.NewManager(jwt.Config{
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
		SigningMethod: jwt.SigningMethod(cfg.JWT.SigningMethod),
		PrivateKey:    append([]byte(nil), cfg.JWT.PrivateKey...),
		PublicKey:     append([]byte(nil), cfg.JWT.PublicKey...),
		Issuer:        cfg.JWT.Issuer,
		Audience:      cfg.JWT.Audience,
		Leeway:        cfg.JWT.Leeway,
	})
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:       cfg,
		store:        store,
		verification: stores.NewVerificationStore(store),
		tickets:      stores.NewTicketStore(store),
		refresh:      stores.NewRefreshStore(store),
		jwtManager:   jm,
		userProvider: b.userProvider,
		audit:        newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:      NewMetrics(cfg.Metrics),
	}

	b.built = true

	return engine, nil
}

// fillConfigDefaults backfills zero-valued fields so that partial
// configs from callers or config files stay usable.
func fillConfigDefaults(cfg *Config) {
	def := defaultConfig()

	if cfg.JWT.AccessTTL == 0 {
		cfg.JWT.AccessTTL = def.JWT.AccessTTL
	}
	if cfg.JWT.RefreshTTL == 0 {
		cfg.JWT.RefreshTTL = def.JWT.RefreshTTL
	}
	if cfg.JWT.SigningMethod == "" {
		cfg.JWT.SigningMethod = def.JWT.SigningMethod
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = def.JWT.Issuer
	}
	if cfg.JWT.Leeway == 0 {
		cfg.JWT.Leeway = def.JWT.Leeway
	}
	if cfg.Verification.CodeTTL == 0 {
		cfg.Verification.CodeTTL = def.Verification.CodeTTL
	}
	if cfg.Verification.CodeDigits == 0 {
		cfg.Verification.CodeDigits = def.Verification.CodeDigits
	}
	if cfg.Verification.MaxAttempts == 0 {
		cfg.Verification.MaxAttempts = def.Verification.MaxAttempts
	}
	if cfg.ResetTicket.TicketTTL == 0 {
		cfg.ResetTicket.TicketTTL = def.ResetTicket.TicketTTL
	}
	if cfg.Audit.BufferSize == 0 {
		cfg.Audit.BufferSize = def.Audit.BufferSize
	}
	if cfg.Metrics == (MetricsConfig{}) {
		cfg.Metrics = def.Metrics
	}
}

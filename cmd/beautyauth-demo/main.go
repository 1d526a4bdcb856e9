// Command beautyauth-demo walks the full credential lifecycle against a
// real or embedded Redis: registration code verify, token issue, refresh
// rotation, replay detection, and the password-reset flow. Useful as a
// smoke test and as wiring documentation.
package main

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	beautyauth "github.com/Henrriky/beautyauth"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

type demoConfig struct {
	RedisAddr string `mapstructure:"redis_addr"`
	LogFormat string `mapstructure:"log_format"`

	AccessTTL   time.Duration `mapstructure:"access_ttl"`
	RefreshTTL  time.Duration `mapstructure:"refresh_ttl"`
	CodeTTL     time.Duration `mapstructure:"code_ttl"`
	CodeDigits  int           `mapstructure:"code_digits"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	TicketTTL   time.Duration `mapstructure:"ticket_ttl"`
}

func loadConfig(path string) (demoConfig, error) {
	v := viper.New()
	v.SetDefault("log_format", "console")
	v.SetDefault("access_ttl", 15*time.Minute)
	v.SetDefault("refresh_ttl", 30*24*time.Hour)
	v.SetDefault("code_ttl", 10*time.Minute)
	v.SetDefault("code_digits", 6)
	v.SetDefault("max_attempts", 5)
	v.SetDefault("ticket_ttl", 15*time.Minute)

	v.SetEnvPrefix("BEAUTYAUTH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return demoConfig{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg demoConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return demoConfig{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func newLogger(format string) (*zap.Logger, error) {
	if format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

type staticUsers map[string]beautyauth.UserClaims

func (s staticUsers) GetUserByID(_ context.Context, userID string) (beautyauth.UserClaims, error) {
	user, ok := s[userID]
	if !ok {
		return beautyauth.UserClaims{}, errors.New("user not found")
	}
	return user, nil
}

func main() {
	configPath := flag.String("config", "", "path to YAML config; env vars (BEAUTYAUTH_*) override")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	logger, err := newLogger(cfg.LogFormat)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	addr := cfg.RedisAddr
	var cleanup func()
	if addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			logger.Fatal("start embedded redis", zap.Error(err))
		}
		addr = mr.Addr()
		cleanup = mr.Close
		logger.Info("using embedded redis", zap.String("addr", addr))
	} else {
		cleanup = func() {}
		logger.Info("using redis", zap.String("addr", addr))
	}
	defer cleanup()

	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		logger.Fatal("generate signing key", zap.Error(err))
	}

	engine, err := beautyauth.New().
		WithConfig(beautyauth.Config{
			JWT: beautyauth.JWTConfig{
				AccessTTL:  cfg.AccessTTL,
				RefreshTTL: cfg.RefreshTTL,
				PrivateKey: priv,
				PublicKey:  pub,
			},
			Verification: beautyauth.VerificationConfig{
				CodeTTL:     cfg.CodeTTL,
				CodeDigits:  cfg.CodeDigits,
				MaxAttempts: cfg.MaxAttempts,
			},
			ResetTicket: beautyauth.ResetTicketConfig{
				TicketTTL: cfg.TicketTTL,
			},
		}).
		WithRedis(client).
		WithUserProvider(staticUsers{
			"u-1": {UserID: "u-1", Email: "ada@example.com", Name: "Ada", Role: "admin"},
		}).
		WithAuditSink(beautyauth.NewZapSink(logger)).
		Build()
	if err != nil {
		logger.Fatal("build engine", zap.Error(err))
	}
	defer engine.Close()

	ctx := context.Background()

	// Registration: issue a code, verify it, recover the payload.
	code, err := engine.IssueVerificationCode(ctx, beautyauth.PurposeRegister, "ada@example.com", []byte("pw-hash"))
	if err != nil {
		logger.Fatal("issue verification code", zap.Error(err))
	}
	payload, err := engine.VerifyCode(ctx, beautyauth.PurposeRegister, "ada@example.com", code)
	if err != nil {
		logger.Fatal("verify code", zap.Error(err))
	}
	logger.Info("registration code verified", zap.ByteString("payload", payload))

	// Token lifecycle: issue, validate, rotate, then replay the old token.
	pair, err := engine.IssueInitialTokens(ctx, "u-1")
	if err != nil {
		logger.Fatal("issue tokens", zap.Error(err))
	}
	claims, err := engine.ValidateAccess(pair.AccessToken)
	if err != nil {
		logger.Fatal("validate access", zap.Error(err))
	}
	logger.Info("access token valid", zap.String("user", claims.UserID), zap.String("role", claims.Role))

	next, err := engine.Rotate(ctx, pair.RefreshToken)
	if err != nil {
		logger.Fatal("rotate", zap.Error(err))
	}
	logger.Info("rotation succeeded")

	if _, err := engine.Rotate(ctx, pair.RefreshToken); errors.Is(err, beautyauth.ErrRefreshReuse) {
		logger.Info("replay detected, family revoked")
	} else {
		logger.Fatal("replay not detected", zap.Error(err))
	}
	if _, err := engine.Rotate(ctx, next.RefreshToken); !errors.Is(err, beautyauth.ErrRefreshReuse) {
		logger.Fatal("revoked family still rotates", zap.Error(err))
	}
	logger.Info("descendant token rejected after replay")

	// Password reset: code, ticket, single redemption.
	resetCode, err := engine.IssueVerificationCode(ctx, beautyauth.PurposePasswordReset, "ada@example.com", nil)
	if err != nil {
		logger.Fatal("issue reset code", zap.Error(err))
	}
	ticket, err := engine.ConfirmPasswordReset(ctx, "ada@example.com", resetCode)
	if err != nil {
		logger.Fatal("confirm reset", zap.Error(err))
	}
	recipient, err := engine.ConsumeResetTicket(ctx, ticket)
	if err != nil {
		logger.Fatal("consume ticket", zap.Error(err))
	}
	if _, err := engine.ConsumeResetTicket(ctx, ticket); !errors.Is(err, beautyauth.ErrTicketNotFound) {
		logger.Fatal("ticket redeemed twice", zap.Error(err))
	}
	logger.Info("reset ticket consumed once", zap.String("recipient", recipient))

	snapshot := engine.MetricsSnapshot()
	logger.Info("done",
		zap.Uint64("rotations", snapshot.Counters[beautyauth.MetricRotateSuccess]),
		zap.Uint64("reuse_detected", snapshot.Counters[beautyauth.MetricReuseDetected]),
		zap.Uint64("audit_dropped", engine.AuditDropped()),
	)
}

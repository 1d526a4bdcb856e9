package beautyauth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type staticUserProvider map[string]UserClaims

func (p staticUserProvider) GetUserByID(_ context.Context, userID string) (UserClaims, error) {
	user, ok := p[userID]
	if !ok {
		return UserClaims{}, errors.New("no such user")
	}
	return user, nil
}

var defaultTestUsers = staticUserProvider{
	"u-1": {UserID: "u-1", Email: "ada@example.com", Name: "Ada", Role: "admin"},
	"u-2": {UserID: "u-2", Email: "bob@example.com", Name: "Bob", Role: "user"},
}

type engineFixture struct {
	engine *Engine
	mr     *miniredis.Miniredis
	sink   *ChannelSink
}

func testKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return pub, priv
}

func newTestEngine(t *testing.T) *engineFixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	pub, priv := testKeys(t)
	sink := NewChannelSink(64)

	engine, err := New().
		WithConfig(Config{
			JWT: JWTConfig{
				AccessTTL:  time.Minute,
				RefreshTTL: time.Hour,
				PrivateKey: priv,
				PublicKey:  pub,
			},
			Verification: VerificationConfig{
				CodeTTL:     10 * time.Minute,
				CodeDigits:  6,
				MaxAttempts: 3,
			},
			ResetTicket: ResetTicketConfig{
				TicketTTL: 15 * time.Minute,
			},
		}).
		WithRedis(client).
		WithUserProvider(defaultTestUsers).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &engineFixture{engine: engine, mr: mr, sink: sink}
}

// waitAuditEvent blocks until the dispatcher delivers an event of the
// given type or the deadline passes.
func (f *engineFixture) waitAuditEvent(t *testing.T, eventType string) AuditEvent {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case event := <-f.sink.Events():
			if event.EventType == eventType {
				return event
			}
		case <-deadline:
			t.Fatalf("timed out waiting for audit event %q", eventType)
		}
	}
}

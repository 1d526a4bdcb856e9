package stores

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Henrriky/beautyauth/internal/kv"
)

const refreshTestTTL = time.Hour

func newRefreshFixture(t *testing.T) (*RefreshStore, kv.Store) {
	t.Helper()
	store, _ := newTestStore(t)
	rs := NewRefreshStore(store)
	if err := rs.CreateFamily(context.Background(), "fam-1", "jti-1", "u-1", refreshTestTTL); err != nil {
		t.Fatalf("CreateFamily failed: %v", err)
	}
	return rs, store
}

func TestRotateChain(t *testing.T) {
	rs, _ := newRefreshFixture(t)
	ctx := context.Background()

	next, err := rs.Rotate(ctx, "fam-1", "jti-1", "jti-2", refreshTestTTL)
	if err != nil {
		t.Fatalf("first rotate failed: %v", err)
	}
	if next.UserID != "u-1" || next.FamilyID != "fam-1" || next.Status != StatusActive {
		t.Fatalf("unexpected next record: %+v", next)
	}

	if _, err := rs.Rotate(ctx, "fam-1", "jti-2", "jti-3", refreshTestTTL); err != nil {
		t.Fatalf("second rotate failed: %v", err)
	}
}

func TestReplayBurnsWholeFamily(t *testing.T) {
	rs, _ := newRefreshFixture(t)
	ctx := context.Background()

	if _, err := rs.Rotate(ctx, "fam-1", "jti-1", "jti-2", refreshTestTTL); err != nil {
		t.Fatalf("rotate failed: %v", err)
	}

	// Replaying the superseded token must revoke everything.
	if _, err := rs.Rotate(ctx, "fam-1", "jti-1", "jti-x", refreshTestTTL); !errors.Is(err, ErrReuseDetected) {
		t.Fatalf("expected ErrReuseDetected, got %v", err)
	}

	revoked, err := rs.FamilyRevoked(ctx, "fam-1")
	if err != nil {
		t.Fatalf("FamilyRevoked failed: %v", err)
	}
	if !revoked {
		t.Fatal("family must be revoked after replay")
	}

	// The legitimate descendant is collateral damage, as intended.
	if _, err := rs.Rotate(ctx, "fam-1", "jti-2", "jti-3", refreshTestTTL); !errors.Is(err, ErrFamilyRevoked) {
		t.Fatalf("expected ErrFamilyRevoked for descendant, got %v", err)
	}
}

func TestRotateUnknownTokenOrFamily(t *testing.T) {
	rs, _ := newRefreshFixture(t)
	ctx := context.Background()

	if _, err := rs.Rotate(ctx, "fam-1", "jti-unknown", "jti-2", refreshTestTTL); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown jti, got %v", err)
	}
	if _, err := rs.Rotate(ctx, "fam-unknown", "jti-1", "jti-2", refreshTestTTL); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown family, got %v", err)
	}

	// An unknown token never burns the family.
	revoked, err := rs.FamilyRevoked(ctx, "fam-1")
	if err != nil {
		t.Fatalf("FamilyRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("unknown token must not revoke the family")
	}
}

func TestRotateRejectsCrossFamilyToken(t *testing.T) {
	rs, _ := newRefreshFixture(t)
	ctx := context.Background()

	if err := rs.CreateFamily(ctx, "fam-2", "jti-b", "u-2", refreshTestTTL); err != nil {
		t.Fatalf("CreateFamily failed: %v", err)
	}

	if _, err := rs.Rotate(ctx, "fam-2", "jti-1", "jti-x", refreshTestTTL); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-family jti, got %v", err)
	}
}

func TestExpiredTokenDoesNotBurnFamily(t *testing.T) {
	store, _ := newTestStore(t)
	rs := NewRefreshStore(store)
	ctx := context.Background()

	famEncoded, err := encodeFamilyRecord(&FamilyRecord{
		UserID:    "u-1",
		ExpiresAt: time.Now().Add(time.Hour).Unix(),
	})
	if err != nil {
		t.Fatalf("encode family: %v", err)
	}
	if err := store.Put(ctx, "family:fam-1", famEncoded, time.Hour); err != nil {
		t.Fatalf("Put family failed: %v", err)
	}

	// Record expiry elapsed even though the store entry still exists.
	tokEncoded, err := encodeTokenRecord(&TokenRecord{
		FamilyID:  "fam-1",
		UserID:    "u-1",
		Status:    StatusActive,
		ExpiresAt: time.Now().Add(-time.Minute).Unix(),
	})
	if err != nil {
		t.Fatalf("encode token: %v", err)
	}
	if err := store.Put(ctx, "refresh:jti-1", tokEncoded, time.Hour); err != nil {
		t.Fatalf("Put token failed: %v", err)
	}

	if _, err := rs.Rotate(ctx, "fam-1", "jti-1", "jti-2", refreshTestTTL); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for expired token, got %v", err)
	}

	revoked, err := rs.FamilyRevoked(ctx, "fam-1")
	if err != nil {
		t.Fatalf("FamilyRevoked failed: %v", err)
	}
	if revoked {
		t.Fatal("expired token must not revoke the family")
	}
}

func TestRevokeFamilyIdempotent(t *testing.T) {
	rs, _ := newRefreshFixture(t)
	ctx := context.Background()

	if err := rs.RevokeFamily(ctx, "fam-1"); err != nil {
		t.Fatalf("RevokeFamily failed: %v", err)
	}
	if err := rs.RevokeFamily(ctx, "fam-1"); err != nil {
		t.Fatalf("second RevokeFamily failed: %v", err)
	}
	if err := rs.RevokeFamily(ctx, "fam-unknown"); err != nil {
		t.Fatalf("RevokeFamily on unknown family failed: %v", err)
	}

	if _, err := rs.Rotate(ctx, "fam-1", "jti-1", "jti-2", refreshTestTTL); !errors.Is(err, ErrFamilyRevoked) {
		t.Fatalf("expected ErrFamilyRevoked after revoke, got %v", err)
	}
}

func TestConcurrentRotateAtMostOneWinner(t *testing.T) {
	rs, _ := newRefreshFixture(t)
	ctx := context.Background()
	const workers = 8

	var wg sync.WaitGroup
	results := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := rs.Rotate(ctx, "fam-1", "jti-1", fmt.Sprintf("jti-next-%d", n), refreshTestTTL)
			results <- err
		}(i)
	}
	wg.Wait()
	close(results)

	wins := 0
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errors.Is(err, ErrReuseDetected), errors.Is(err, ErrFamilyRevoked), errors.Is(err, ErrNotFound):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins > 1 {
		t.Fatalf("expected at most one winner, got %d", wins)
	}

	// With more than one caller there was at least one loser, and losers
	// burn the family.
	revoked, err := rs.FamilyRevoked(ctx, "fam-1")
	if err != nil {
		t.Fatalf("FamilyRevoked failed: %v", err)
	}
	if !revoked {
		t.Fatal("family must be revoked after a rotation race")
	}
}

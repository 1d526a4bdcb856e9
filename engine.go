package beautyauth

import (
	"errors"
	"fmt"

	"github.com/Henrriky/beautyauth/internal/kv"
	"github.com/Henrriky/beautyauth/internal/stores"
	"github.com/Henrriky/beautyauth/jwt"
)

// Engine is the credential-lifecycle engine: refresh-token rotation
// with reuse detection, one-time verification codes, and one-time
// password-reset tickets, all backed by a shared ephemeral store.
//
// Engines are built through [Builder.Build] and are safe for concurrent
// use. The engine keeps no state of its own outside the store, so any
// number of instances may share one store backend.
type Engine struct {
	config       Config
	store        kv.Store
	verification *stores.VerificationStore
	tickets      *stores.TicketStore
	refresh      *stores.RefreshStore
	jwtManager   *jwt.Manager
	userProvider UserProvider
	audit        *auditDispatcher
	metrics      *Metrics
}

// Close drains the audit dispatcher. The engine itself holds no other
// resources; the store's client belongs to the caller.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// backpressure since construction.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine counters.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters: map[MetricID]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// storeErr maps backend outages onto ErrStoreUnavailable so that no
// caller can confuse "cannot verify" with a definitive answer.
func (e *Engine) storeErr(err error) error {
	if errors.Is(err, kv.ErrUnavailable) {
		e.metricInc(MetricStoreUnavailable)
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return err
}

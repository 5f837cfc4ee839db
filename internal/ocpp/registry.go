package ocpp

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/ports"
)

// ErrNotConnected means no session is registered for the charge point in
// this process, and the DB does not claim it is online elsewhere either.
var ErrNotConnected = errors.New("ocpp: charge point not connected")

// ErrOnlineElsewhere means the DB row says is_online=true but this
// process's registry has no live session — a distinct outcome from
// ErrNotConnected (spec.md §4.3/§4.7).
var ErrOnlineElsewhere = errors.New("ocpp: charge point online but not reachable from this process")

// Registry is the process-local connection registry (C5): the single
// source of truth for "is this charge point reachable from this process?".
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session

	chargePoints ports.ChargePointRepository
	log          *zap.Logger
}

func NewRegistry(chargePoints ports.ChargePointRepository, log *zap.Logger) *Registry {
	return &Registry{
		sessions:     make(map[string]*Session),
		chargePoints: chargePoints,
		log:          log,
	}
}

// Register replaces any prior entry for cpID (reconnect semantics) and
// writes through to the persistent store: is_online=true, last_seen=now,
// and status="Available" when no prior row exists (spec.md §4.3).
func (r *Registry) Register(ctx context.Context, cpID string, session *Session) {
	r.mu.Lock()
	if old, ok := r.sessions[cpID]; ok && old != session {
		_ = old.Close()
	}
	r.sessions[cpID] = session
	r.mu.Unlock()

	now := Now()
	existing, err := r.chargePoints.Get(ctx, cpID)
	if err != nil {
		r.log.Error("registry: failed to look up charge point on register", zap.String("charge_point_id", cpID), zap.Error(err))
	}
	if existing == nil {
		if err := r.chargePoints.Upsert(ctx, &domain.ChargePoint{
			ID:         cpID,
			Status:     domain.ChargePointStatusAvailable,
			IsOnline:   true,
			LastSeen:   now,
			BootStatus: domain.BootStatusPending,
		}); err != nil {
			r.log.Error("registry: failed to create charge point row", zap.String("charge_point_id", cpID), zap.Error(err))
		}
		return
	}
	if err := r.chargePoints.SetOnline(ctx, cpID, true, now); err != nil {
		r.log.Error("registry: failed to mark online", zap.String("charge_point_id", cpID), zap.Error(err))
	}
}

// Unregister removes the in-memory entry, but only if it still matches
// session: a reconnect's Register(second) can close the old connection
// (above) before the old ReadLoop's deferred Unregister(first) runs, and
// that stale call must not tear down the slot second now occupies, nor
// race second's own SetOnline(true) with a false write. Unregister writes
// is_online=false exactly when the slot was genuinely this session's (and
// is cleared) or was already absent (the defensive case); it is a no-op
// when superseded by a different live session.
func (r *Registry) Unregister(ctx context.Context, cpID string, session *Session) {
	r.mu.Lock()
	current, ok := r.sessions[cpID]
	superseded := ok && current != session
	if ok && !superseded {
		delete(r.sessions, cpID)
	}
	r.mu.Unlock()

	if superseded {
		return
	}

	if err := r.chargePoints.SetOnline(ctx, cpID, false, Now()); err != nil {
		r.log.Error("registry: failed to mark offline", zap.String("charge_point_id", cpID), zap.Error(err))
	}
}

// Lookup returns the live session for cpID, or distinguishes "not connected"
// from "online but not reachable from this process" by consulting the DB.
func (r *Registry) Lookup(ctx context.Context, cpID string) (*Session, error) {
	r.mu.RLock()
	session, ok := r.sessions[cpID]
	r.mu.RUnlock()
	if ok {
		return session, nil
	}

	cp, err := r.chargePoints.Get(ctx, cpID)
	if err != nil {
		return nil, err
	}
	if cp != nil && cp.IsOnline {
		return nil, ErrOnlineElsewhere
	}
	return nil, ErrNotConnected
}

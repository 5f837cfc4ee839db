package ocpp

import (
	"context"
	"testing"
	"time"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/mocks"
)

func TestRegistry_LookupNotConnected(t *testing.T) {
	repo := &mocks.MockChargePointRepository{
		GetFunc: func(ctx context.Context, id string) (*domain.ChargePoint, error) {
			return nil, nil
		},
	}
	registry := NewRegistry(repo, newTestLogger())

	_, err := registry.Lookup(context.Background(), "CP-1")
	if err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestRegistry_LookupOnlineElsewhere(t *testing.T) {
	repo := &mocks.MockChargePointRepository{
		GetFunc: func(ctx context.Context, id string) (*domain.ChargePoint, error) {
			return &domain.ChargePoint{ID: id, IsOnline: true}, nil
		},
	}
	registry := NewRegistry(repo, newTestLogger())

	_, err := registry.Lookup(context.Background(), "CP-1")
	if err != ErrOnlineElsewhere {
		t.Errorf("expected ErrOnlineElsewhere, got %v", err)
	}
}

func TestRegistry_RegisterThenLookupSucceeds(t *testing.T) {
	client, server := newSessionPair(t, time.Second)
	_ = client

	var upserted *domain.ChargePoint
	repo := &mocks.MockChargePointRepository{
		GetFunc: func(ctx context.Context, id string) (*domain.ChargePoint, error) {
			return nil, nil
		},
		UpsertFunc: func(ctx context.Context, cp *domain.ChargePoint) error {
			upserted = cp
			return nil
		},
	}
	registry := NewRegistry(repo, newTestLogger())

	registry.Register(context.Background(), "CP-1", server)

	found, err := registry.Lookup(context.Background(), "CP-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if found != server {
		t.Error("expected Lookup to return the registered session")
	}
	if upserted == nil || !upserted.IsOnline {
		t.Error("expected a new ChargePoint row to be upserted as online")
	}
}

func TestRegistry_RegisterReplacesPriorSessionOnReconnect(t *testing.T) {
	_, first := newSessionPair(t, time.Second)
	_, second := newSessionPair(t, time.Second)

	repo := &mocks.MockChargePointRepository{
		GetFunc: func(ctx context.Context, id string) (*domain.ChargePoint, error) {
			return &domain.ChargePoint{ID: id}, nil
		},
	}
	registry := NewRegistry(repo, newTestLogger())

	registry.Register(context.Background(), "CP-1", first)
	registry.Register(context.Background(), "CP-1", second)

	found, err := registry.Lookup(context.Background(), "CP-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if found != second {
		t.Error("expected Lookup to return the most recently registered session")
	}
}

func TestRegistry_UnregisterOnlyRemovesMatchingSession(t *testing.T) {
	_, first := newSessionPair(t, time.Second)
	_, second := newSessionPair(t, time.Second)

	setOnlineCalled := false
	repo := &mocks.MockChargePointRepository{
		GetFunc: func(ctx context.Context, id string) (*domain.ChargePoint, error) {
			return &domain.ChargePoint{ID: id}, nil
		},
		SetOnlineFunc: func(ctx context.Context, id string, isOnline bool, now time.Time) error {
			setOnlineCalled = true
			return nil
		},
	}
	registry := NewRegistry(repo, newTestLogger())
	registry.Register(context.Background(), "CP-1", second)
	setOnlineCalled = false // ignore Register's own SetOnline(true)

	// Unregistering the superseded (first) session must not tear down the
	// live (second) one, nor race second's own SetOnline(true) with a
	// stale false write.
	registry.Unregister(context.Background(), "CP-1", first)

	found, err := registry.Lookup(context.Background(), "CP-1")
	if err != nil {
		t.Fatalf("expected the live session to remain registered, got error %v", err)
	}
	if found != second {
		t.Error("expected the live (second) session to remain registered")
	}
	if setOnlineCalled {
		t.Error("expected a superseded unregister to skip the SetOnline write entirely")
	}
}

func TestRegistry_UnregisterMatchingSessionMarksOffline(t *testing.T) {
	_, only := newSessionPair(t, time.Second)

	var online *bool
	repo := &mocks.MockChargePointRepository{
		GetFunc: func(ctx context.Context, id string) (*domain.ChargePoint, error) {
			return &domain.ChargePoint{ID: id, IsOnline: true}, nil
		},
		SetOnlineFunc: func(ctx context.Context, id string, isOnline bool, now time.Time) error {
			online = &isOnline
			return nil
		},
	}
	registry := NewRegistry(repo, newTestLogger())
	registry.Register(context.Background(), "CP-1", only)

	registry.Unregister(context.Background(), "CP-1", only)

	if _, err := registry.Lookup(context.Background(), "CP-1"); err != ErrOnlineElsewhere {
		t.Errorf("expected ErrOnlineElsewhere once the entry is cleared (DB still says online), got %v", err)
	}
	if online == nil || *online {
		t.Error("expected a genuine (non-superseded) unregister to mark the charge point offline")
	}
}

func TestRegistry_UnregisterAbsentEntryStillMarksOffline(t *testing.T) {
	_, stale := newSessionPair(t, time.Second)

	var online *bool
	repo := &mocks.MockChargePointRepository{
		SetOnlineFunc: func(ctx context.Context, id string, isOnline bool, now time.Time) error {
			online = &isOnline
			return nil
		},
	}
	registry := NewRegistry(repo, newTestLogger())

	// No Register ever happened for this charge point in this process; the
	// defensive case still writes the DB row offline.
	registry.Unregister(context.Background(), "CP-1", stale)

	if online == nil || *online {
		t.Error("expected the absent-entry case to still mark the charge point offline")
	}
}

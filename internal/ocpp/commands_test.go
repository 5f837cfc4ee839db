package ocpp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/infrastructure/circuitbreaker"
	"github.com/seu-repo/sigec-ve/internal/mocks"
)

func newTestCommandService(t *testing.T) (*CommandService, *mocks.MockChargePointRepository, *mocks.MockSessionRepository, *mocks.MockIdTagRepository) {
	cpRepo := &mocks.MockChargePointRepository{}
	sessionRepo := &mocks.MockSessionRepository{}
	tagRepo := &mocks.MockIdTagRepository{}
	tags := NewTagResolver(tagRepo, mocks.NewMockCache(), time.Minute, newTestLogger())
	breakers := circuitbreaker.NewManager(newTestLogger())

	registry := NewRegistry(cpRepo, newTestLogger())
	cmd := NewCommandService(registry, cpRepo, sessionRepo, tags, breakers, circuitbreaker.DefaultSettings(), newTestLogger())
	return cmd, cpRepo, sessionRepo, tagRepo
}

// registerServerSide wires up a real session pair and registers the server
// side under cpID in the registry that cmd's CommandService shares, so
// SendCall round-trips over an actual socket. The server side's ReadLoop is
// started here so CallResults reach SendCall; the client (charge-point) side
// is returned for the test to answer Calls on, and onCall, if non-nil, is
// run as its ReadLoop.
func registerServerSide(t *testing.T, cmd *CommandService, cpRepo *mocks.MockChargePointRepository, cpID string, onCall func(frame *Frame)) *Session {
	t.Helper()
	client, server := newSessionPair(t, time.Second)
	cpRepo.GetFunc = func(ctx context.Context, id string) (*domain.ChargePoint, error) {
		return &domain.ChargePoint{ID: id, IsOnline: true}, nil
	}
	cmd.registry.Register(context.Background(), cpID, server)
	go server.ReadLoop(func(frame *Frame) {})
	if onCall != nil {
		go client.ReadLoop(onCall)
	}
	return client
}

func TestRemoteStartTransaction_RejectedTagNeverTouchesSocket(t *testing.T) {
	cmd, _, _, tagRepo := newTestCommandService(t)
	tagRepo.GetFunc = func(ctx context.Context, tag string) (*domain.IdTag, error) {
		return &domain.IdTag{ID: 1, Tag: tag, Status: domain.IdTagStatusBlocked}, nil
	}

	result := cmd.RemoteStartTransaction(context.Background(), "CP-1", "TAG-1", nil, nil)
	if result.Success {
		t.Error("expected a rejected tag to fail without touching the registry")
	}
	if result.Status != "Rejected" {
		t.Errorf("expected Rejected, got %s", result.Status)
	}
}

func TestRemoteStartTransaction_OfflineChargePointIsRejected(t *testing.T) {
	cmd, cpRepo, _, tagRepo := newTestCommandService(t)
	tagRepo.GetFunc = func(ctx context.Context, tag string) (*domain.IdTag, error) {
		return &domain.IdTag{ID: 1, Tag: tag, Status: domain.IdTagStatusAccepted}, nil
	}
	cpRepo.GetFunc = func(ctx context.Context, id string) (*domain.ChargePoint, error) { return nil, nil }

	result := cmd.RemoteStartTransaction(context.Background(), "CP-1", "TAG-1", nil, nil)
	if result.Success {
		t.Error("expected an offline charge point to be rejected")
	}
	if result.Error == "" {
		t.Error("expected an error message explaining the rejection")
	}
}

func TestRemoteStartTransaction_AcceptedRoundTrip(t *testing.T) {
	cmd, cpRepo, _, tagRepo := newTestCommandService(t)
	tagRepo.GetFunc = func(ctx context.Context, tag string) (*domain.IdTag, error) {
		return &domain.IdTag{ID: 1, Tag: tag, Status: domain.IdTagStatusAccepted}, nil
	}

	cp := registerServerSide(t, cmd, cpRepo, "CP-1", nil)
	go cp.ReadLoop(func(frame *Frame) {
		if frame.Type != MessageTypeCall || frame.Action != "RemoteStartTransaction" {
			return
		}
		_ = cp.RespondResult(frame.UniqueID, remoteStartTransactionResp{Status: "Accepted"})
	})

	connectorID := 1
	result := cmd.RemoteStartTransaction(context.Background(), "CP-1", "TAG-1", &connectorID, nil)
	if !result.Success {
		t.Fatalf("expected success, got error: %s", result.Error)
	}
}

func TestRemoteStopTransaction_UnknownTransactionIsRejected(t *testing.T) {
	cmd, _, sessionRepo, _ := newTestCommandService(t)
	sessionRepo.GetByTransactionIDFunc = func(ctx context.Context, txID int) (*domain.Session, error) {
		return nil, nil
	}

	result := cmd.RemoteStopTransaction(context.Background(), "CP-1", 42)
	if result.Success {
		t.Error("expected an unknown transaction id to be rejected")
	}
}

func TestRemoteStopTransaction_WrongChargePointIsRejected(t *testing.T) {
	cmd, _, sessionRepo, _ := newTestCommandService(t)
	sessionRepo.GetByTransactionIDFunc = func(ctx context.Context, txID int) (*domain.Session, error) {
		return &domain.Session{TransactionID: txID, ChargePointID: "CP-OTHER", Status: domain.SessionStatusActive}, nil
	}

	result := cmd.RemoteStopTransaction(context.Background(), "CP-1", 42)
	if result.Success {
		t.Error("expected a transaction id belonging to a different charge point to be rejected")
	}
}

func TestChangeAvailability_InvalidTypeIsRejectedWithoutLookup(t *testing.T) {
	cmd, cpRepo, _, _ := newTestCommandService(t)
	looked := false
	cpRepo.GetFunc = func(ctx context.Context, id string) (*domain.ChargePoint, error) {
		looked = true
		return &domain.ChargePoint{ID: id, IsOnline: true}, nil
	}

	result := cmd.ChangeAvailability(context.Background(), "CP-1", 0, "Bogus")
	if result.Status != "Rejected" {
		t.Errorf("expected Rejected, got %s", result.Status)
	}
	if looked {
		t.Error("expected invalid type to short-circuit before any charge point lookup")
	}
}

func TestChangeAvailability_InvalidConnectorIDIsRejected(t *testing.T) {
	cmd, _, _, _ := newTestCommandService(t)
	result := cmd.ChangeAvailability(context.Background(), "CP-1", 7, "Operative")
	if result.Status != "Rejected" {
		t.Errorf("expected Rejected, got %s", result.Status)
	}
}

func TestChangeAvailability_OfflineChargePointIsRejected(t *testing.T) {
	cmd, cpRepo, _, _ := newTestCommandService(t)
	cpRepo.GetFunc = func(ctx context.Context, id string) (*domain.ChargePoint, error) {
		return &domain.ChargePoint{ID: id, IsOnline: false}, nil
	}

	result := cmd.ChangeAvailability(context.Background(), "CP-1", 0, "Operative")
	if result.Status != "Rejected" {
		t.Errorf("expected Rejected, got %s", result.Status)
	}
}

func TestCommandFailureOutcome_DistinguishesCircuitOpenFromTimeout(t *testing.T) {
	if got := commandFailureOutcome(circuitbreaker.ErrCircuitOpen); got != "circuit_open" {
		t.Errorf("expected circuit_open, got %s", got)
	}
	if got := commandFailureOutcome(ErrTimeout); got != "timeout" {
		t.Errorf("expected timeout, got %s", got)
	}
	if got := commandFailureOutcome(json.ErrUnexpectedEOF); got != "send_error" {
		t.Errorf("expected send_error, got %s", got)
	}
}

package ocpp

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/seu-repo/sigec-ve/internal/domain"
	"github.com/seu-repo/sigec-ve/internal/mocks"
	"github.com/seu-repo/sigec-ve/internal/ports"
)

// This file exercises the six end-to-end scenarios against literal values.
// Scenario 1 is driven through a real session pair and the actual
// dispatcher/handler wiring, and scenario 4 sends its Call over a real
// session pair; the others call the tag resolver, the handler methods, the
// command service or the registry directly.

func mustJSON(v interface{}) json.RawMessage {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}

// newScenarioClient wires h's seven actions onto a dispatcher fronting the
// server side of a real session pair, starts the client side's ReadLoop so
// replies reach SendCall, and returns the client side for tests to drive
// with SendCall.
func newScenarioClient(t *testing.T, h *Handlers) *Session {
	t.Helper()
	client, server := newSessionPair(t, 2*time.Second)
	d := NewDispatcher(zap.NewNop())
	h.Register(d)
	go server.ReadLoop(func(frame *Frame) {
		d.Dispatch(context.Background(), server.ChargePointID, server, frame)
	})
	go client.ReadLoop(func(frame *Frame) {})
	return client
}

func TestScenario1_BootAndHeartbeat(t *testing.T) {
	h, cpRepo, _, _, _, _, _ := newTestHandlers()
	var upserted *domain.ChargePoint
	cpRepo.UpsertFunc = func(ctx context.Context, cp *domain.ChargePoint) error {
		upserted = cp
		return nil
	}

	client := newScenarioClient(t, h)

	raw, err := client.SendCall(context.Background(), "BootNotification", bootNotificationReq{
		ChargePointVendor: "V",
		ChargePointModel:  "M",
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	var resp bootNotificationResp
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if resp.Status != "Accepted" {
		t.Errorf("expected Accepted, got %s", resp.Status)
	}
	if resp.Interval != 300 {
		t.Errorf("expected interval 300, got %d", resp.Interval)
	}
	if upserted == nil || !upserted.IsOnline || upserted.BootStatus != domain.BootStatusAccepted {
		t.Error("expected the charge point row to be online with boot_status Accepted")
	}

	raw, err = client.SendCall(context.Background(), "Heartbeat", struct{}{})
	if err != nil {
		t.Fatalf("expected no error on Heartbeat, got %v", err)
	}
	var hb heartbeatResp
	if err := json.Unmarshal(raw, &hb); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}
	if hb.CurrentTime == "" {
		t.Error("expected a non-empty CurrentTime")
	}
}

func TestScenario2_AuthorizeMatrix(t *testing.T) {
	past := time.Now().Add(-24 * time.Hour)
	h, _, _, _, _, tagRepo, _ := newTestHandlers()
	tags := map[string]*domain.IdTag{
		"VALID001":   {ID: 1, Tag: "VALID001", Status: domain.IdTagStatusAccepted},
		"BLOCKED001": {ID: 2, Tag: "BLOCKED001", Status: domain.IdTagStatusBlocked},
		"EXPIRED001": {ID: 3, Tag: "EXPIRED001", Status: domain.IdTagStatusAccepted, ExpiryDate: &past},
	}
	tagRepo.GetFunc = func(ctx context.Context, tag string) (*domain.IdTag, error) {
		return tags[tag], nil
	}

	cases := []struct {
		tag      string
		expected domain.IdTagStatus
	}{
		{"VALID001", domain.IdTagStatusAccepted},
		{"BLOCKED001", domain.IdTagStatusBlocked},
		{"EXPIRED001", domain.IdTagStatusExpired},
		{"UNKNOWN", domain.IdTagStatusInvalid},
	}
	for _, c := range cases {
		resolved := h.tags.Resolve(context.Background(), c.tag)
		if resolved.Status != c.expected {
			t.Errorf("Authorize(%s): expected %s, got %s", c.tag, c.expected, resolved.Status)
		}
	}
}

func TestScenario3_FullTransactionWithLiteralEnergyConsumed(t *testing.T) {
	h, _, sessionRepo, _, _, tagRepo, _ := newTestHandlers()
	tagRepo.GetFunc = func(ctx context.Context, tag string) (*domain.IdTag, error) {
		return &domain.IdTag{ID: 1, Tag: tag, Status: domain.IdTagStatusAccepted}, nil
	}
	var stored domain.Session
	sessionRepo.CreateSessionFunc = func(ctx context.Context, s *domain.Session) error {
		s.ID = 1
		stored = *s
		return nil
	}

	startResult, callErr := h.StartTransaction(context.Background(), "CP001", nil, mustJSON(startTransactionReq{
		ConnectorID: 1,
		IdTag:       "VALID001",
		MeterStart:  1000,
		Timestamp:   "2024-01-01T10:00:00Z",
	}))
	if callErr != nil {
		t.Fatalf("expected no CallError, got %v", callErr)
	}
	startResp := startResult.(startTransactionResp)
	if startResp.IdTagInfo.Status != domain.IdTagStatusAccepted {
		t.Fatalf("expected Accepted, got %s", startResp.IdTagInfo.Status)
	}
	txID := startResp.TransactionID

	sessionRepo.GetByTransactionIDFunc = func(ctx context.Context, id int) (*domain.Session, error) {
		if id == txID {
			return &stored, nil
		}
		return nil, nil
	}
	var capturedFields ports.SessionStopFields
	sessionRepo.UpdateStopFunc = func(ctx context.Context, id int, fields ports.SessionStopFields) error {
		capturedFields = fields
		return nil
	}

	stopResult, callErr := h.StopTransaction(context.Background(), "CP001", nil, mustJSON(stopTransactionReq{
		TransactionID: txID,
		Timestamp:     "2024-01-01T11:00:00Z",
		MeterStop:     16000,
		Reason:        "Local",
	}))
	if callErr != nil {
		t.Fatalf("expected no CallError, got %v", callErr)
	}
	_ = stopResult.(stopTransactionResp)

	if capturedFields.Status != domain.SessionStatusCompleted {
		t.Errorf("expected status Completed, got %s", capturedFields.Status)
	}
	if capturedFields.EnergyConsumed == nil || *capturedFields.EnergyConsumed != 15.0 {
		t.Errorf("expected energy_consumed 15.0, got %v", capturedFields.EnergyConsumed)
	}
}

func TestScenario4_RemoteStartHappyPath(t *testing.T) {
	cmd, cpRepo, _, tagRepo := newTestCommandService(t)
	tagRepo.GetFunc = func(ctx context.Context, tag string) (*domain.IdTag, error) {
		return &domain.IdTag{ID: 1, Tag: tag, Status: domain.IdTagStatusAccepted}, nil
	}
	cp := registerServerSide(t, cmd, cpRepo, "CP001", nil)
	go cp.ReadLoop(func(frame *Frame) {
		if frame.Type == MessageTypeCall && frame.Action == "RemoteStartTransaction" {
			_ = cp.RespondResult(frame.UniqueID, remoteStartTransactionResp{Status: "Accepted"})
		}
	})

	connectorID := 1
	deadline := time.After(30 * time.Second)
	resultCh := make(chan RemoteStartResult, 1)
	go func() {
		resultCh <- cmd.RemoteStartTransaction(context.Background(), "CP001", "VALID001", &connectorID, nil)
	}()

	select {
	case result := <-resultCh:
		if !result.Success || result.Status != "Accepted" {
			t.Errorf("expected success/Accepted, got %+v", result)
		}
	case <-deadline:
		t.Fatal("expected a result within 30s")
	}
}

func TestScenario5_RemoteStopCrossChargePoint(t *testing.T) {
	cmd, _, sessionRepo, _ := newTestCommandService(t)
	sessionRepo.GetByTransactionIDFunc = func(ctx context.Context, txID int) (*domain.Session, error) {
		if txID == 123 {
			return &domain.Session{TransactionID: 123, ChargePointID: "CP001", Status: domain.SessionStatusActive}, nil
		}
		return nil, nil
	}

	result := cmd.RemoteStopTransaction(context.Background(), "CP002", 123)
	if result.Success {
		t.Error("expected success=false")
	}
	if result.Status != "Rejected" {
		t.Errorf("expected Rejected, got %s", result.Status)
	}
}

func TestScenario6_ReconnectWithinFiveSeconds(t *testing.T) {
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

	_, first := newSessionPair(t, time.Second)
	registry.Register(context.Background(), "CP001", first)

	// Models the acceptor's actual ordering: Register(second) closes first
	// under the lock, and only afterward does first's ReadLoop exit and its
	// deferred Unregister(first) fire — a stale call racing second's own
	// SetOnline(true), not a call the test sequences safely ahead of time.
	_, second := newSessionPair(t, time.Second)
	registry.Register(context.Background(), "CP001", second)
	registry.Unregister(context.Background(), "CP001", first)

	found, err := registry.Lookup(context.Background(), "CP001")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if found != second {
		t.Error("expected exactly one entry, held by the second (reconnected) session")
	}
	if online == nil || !*online {
		t.Error("expected the DB row to still show is_online=true after the stale unregister")
	}
}

package ocpp

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
)

// ActionHandler handles one inbound Action. It receives the originating
// charge point's id, the raw (still-undecoded) payload, and a handle back
// to the same session so a handler can invoke the outbound Call path when
// needed (spec.md §4.2's enhanced-flow allowance, §9).
type ActionHandler interface {
	Handle(ctx context.Context, cpID string, session *Session, payload json.RawMessage) (interface{}, *CallError)
}

// ActionHandlerFunc adapts a plain function to ActionHandler.
type ActionHandlerFunc func(ctx context.Context, cpID string, session *Session, payload json.RawMessage) (interface{}, *CallError)

func (f ActionHandlerFunc) Handle(ctx context.Context, cpID string, session *Session, payload json.RawMessage) (interface{}, *CallError) {
	return f(ctx, cpID, session, payload)
}

// Dispatcher is the static Action-name → handler table (C4).
type Dispatcher struct {
	handlers map[string]ActionHandler
	log      *zap.Logger
}

func NewDispatcher(log *zap.Logger) *Dispatcher {
	return &Dispatcher{handlers: make(map[string]ActionHandler), log: log}
}

// Register binds an Action name to its handler. Intended to be called once
// at startup before any connection is accepted.
func (d *Dispatcher) Register(action string, handler ActionHandler) {
	d.handlers[action] = handler
}

// Dispatch routes a decoded Call frame to its handler and writes the
// resulting CallResult or CallError back onto the session. Unregistered
// Action names produce a NotImplemented CallError (spec.md §4.1).
func (d *Dispatcher) Dispatch(ctx context.Context, cpID string, session *Session, frame *Frame) {
	handler, ok := d.handlers[frame.Action]
	if !ok {
		d.log.Warn("unimplemented action", zap.String("charge_point_id", cpID), zap.String("action", frame.Action))
		_ = session.RespondError(frame.UniqueID, NewCallError(ErrorNotImplemented, "action not implemented: "+frame.Action))
		return
	}

	result, callErr := handler.Handle(ctx, cpID, session, frame.Payload)
	if callErr != nil {
		if err := session.RespondError(frame.UniqueID, callErr); err != nil {
			d.log.Error("failed to write CallError", zap.Error(err))
		}
		return
	}
	if err := session.RespondResult(frame.UniqueID, result); err != nil {
		d.log.Error("failed to write CallResult", zap.Error(err))
	}
}

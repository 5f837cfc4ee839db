package ocpp

import (
	"encoding/json"
	"fmt"
)

// OCPP 1.6-J message type codes (spec.md §4.1).
const (
	MessageTypeCall       = 2
	MessageTypeCallResult = 3
	MessageTypeCallError  = 4
)

// Standard OCPP 1.6 CallError codes used by this implementation.
const (
	ErrorNotImplemented               = "NotImplemented"
	ErrorNotSupported                 = "NotSupported"
	ErrorInternalError                = "InternalError"
	ErrorProtocolError                = "ProtocolError"
	ErrorSecurityError                = "SecurityError"
	ErrorFormationViolation           = "FormationViolation"
	ErrorPropertyConstraintViolation  = "PropertyConstraintViolation"
	ErrorOccurenceConstraintViolation = "OccurenceConstraintViolation"
	ErrorTypeConstraintViolation      = "TypeConstraintViolation"
	ErrorGenericError                 = "GenericError"
)

// CallError is a typed protocol/domain error a handler can return; C4 turns
// it into a CallError wire frame. Handlers return only *CallError, never a
// plain error.
type CallError struct {
	Code        string
	Description string
	Details     interface{}
}

func (e *CallError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// NewCallError builds a CallError with empty structured details.
func NewCallError(code, description string) *CallError {
	return &CallError{Code: code, Description: description, Details: map[string]string{}}
}

// Frame is the decoded, still-generic shape of an inbound message: enough
// to tell a Call from a CallResult/CallError before the payload is parsed
// against an action-specific type.
type Frame struct {
	Type        int
	UniqueID    string
	Action      string          // only set for Call
	Payload     json.RawMessage // Call payload, or CallResult payload
	ErrorCode   string          // only set for CallError
	ErrorDesc   string          // only set for CallError
	ErrorDetail json.RawMessage // only set for CallError
}

// DecodeFrame parses a raw wire frame into its generic shape. It does not
// interpret the payload past the message-type envelope.
func DecodeFrame(raw []byte) (*Frame, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(raw, &parts); err != nil {
		return nil, NewCallError(ErrorFormationViolation, "not a JSON array")
	}
	if len(parts) < 3 {
		return nil, NewCallError(ErrorFormationViolation, "frame too short")
	}

	var msgType int
	if err := json.Unmarshal(parts[0], &msgType); err != nil {
		return nil, NewCallError(ErrorFormationViolation, "invalid message type")
	}

	var uniqueID string
	if err := json.Unmarshal(parts[1], &uniqueID); err != nil {
		return nil, NewCallError(ErrorFormationViolation, "invalid unique id")
	}

	f := &Frame{Type: msgType, UniqueID: uniqueID}

	switch msgType {
	case MessageTypeCall:
		if len(parts) < 4 {
			return nil, NewCallError(ErrorFormationViolation, "call frame too short")
		}
		var action string
		if err := json.Unmarshal(parts[2], &action); err != nil {
			return nil, NewCallError(ErrorFormationViolation, "invalid action")
		}
		f.Action = action
		f.Payload = parts[3]
	case MessageTypeCallResult:
		f.Payload = parts[2]
	case MessageTypeCallError:
		if len(parts) < 4 {
			return nil, NewCallError(ErrorFormationViolation, "call error frame too short")
		}
		var code, desc string
		_ = json.Unmarshal(parts[2], &code)
		_ = json.Unmarshal(parts[3], &desc)
		f.ErrorCode = code
		f.ErrorDesc = desc
		if len(parts) >= 5 {
			f.ErrorDetail = parts[4]
		}
	default:
		return nil, NewCallError(ErrorProtocolError, fmt.Sprintf("unknown message type %d", msgType))
	}

	return f, nil
}

// EncodeCall serializes an outbound request: [2, uniqueId, action, payload].
func EncodeCall(uniqueID, action string, payload interface{}) ([]byte, error) {
	return json.Marshal([]interface{}{MessageTypeCall, uniqueID, action, payload})
}

// EncodeCallResult serializes a success response: [3, uniqueId, payload].
func EncodeCallResult(uniqueID string, payload interface{}) ([]byte, error) {
	return json.Marshal([]interface{}{MessageTypeCallResult, uniqueID, payload})
}

// EncodeCallErrorFrame serializes an error response:
// [4, uniqueId, errorCode, errorDescription, errorDetails].
func EncodeCallErrorFrame(uniqueID string, callErr *CallError) ([]byte, error) {
	details := callErr.Details
	if details == nil {
		details = map[string]string{}
	}
	return json.Marshal([]interface{}{MessageTypeCallError, uniqueID, callErr.Code, callErr.Description, details})
}

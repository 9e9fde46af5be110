package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a failed call.
type Kind int

const (
	KindConnection Kind = iota + 1 // retries exhausted
	KindBackend                    // backend answered with an error field
	KindParse                      // reply did not have the expected shape
)

func (k Kind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindBackend:
		return "backend"
	case KindParse:
		return "parse"
	default:
		return "unknown"
	}
}

// Error is the typed failure of a decoded call.
type Error struct {
	Kind    Kind
	Action  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s error: %s: %v", e.Action, e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %s", e.Action, e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the Kind of err, or 0 when err is not a gateway error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}

func IsConnection(err error) bool { return KindOf(err) == KindConnection }
func IsBackend(err error) bool    { return KindOf(err) == KindBackend }
func IsParse(err error) bool      { return KindOf(err) == KindParse }

// envelope captures the conventional error fields of a reply.
type envelope struct {
	Error   json.RawMessage `json:"error"`
	Message string          `json:"message"`
	Success *bool           `json:"success"`
}

// CheckError reports the backend-level error carried by raw, if any.
func CheckError(action string, raw json.RawMessage) error {
	trimmed := strings.TrimSpace(string(raw))
	if !strings.HasPrefix(trimmed, "{") {
		return nil
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Kind: KindParse, Action: action, Message: "malformed reply", Err: err}
	}
	msg := errorText(env.Error)
	if msg == "" {
		return nil
	}
	if msg == ConnectionFailed {
		return &Error{Kind: KindConnection, Action: action, Message: env.Message}
	}
	return &Error{Kind: KindBackend, Action: action, Message: msg}
}

// CheckSuccess is CheckError plus the success:false convention of mutation actions.
func CheckSuccess(action string, raw json.RawMessage) error {
	if err := CheckError(action, raw); err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &Error{Kind: KindParse, Action: action, Message: "expected an object", Err: err}
	}
	if env.Success == nil {
		return &Error{Kind: KindParse, Action: action, Message: "missing success field"}
	}
	if !*env.Success {
		msg := env.Message
		if msg == "" {
			msg = "request rejected"
		}
		return &Error{Kind: KindBackend, Action: action, Message: msg}
	}
	return nil
}

// Decode validates raw and unmarshals it into T. check, when non-nil, validates the decoded value.
func Decode[T any](action string, raw json.RawMessage, check func(*T) error) (T, error) {
	var v T
	if err := CheckError(action, raw); err != nil {
		return v, err
	}
	if err := json.Unmarshal(raw, &v); err != nil {
		return v, &Error{Kind: KindParse, Action: action, Message: "unexpected reply shape", Err: err}
	}
	if check != nil {
		if err := check(&v); err != nil {
			return v, &Error{Kind: KindParse, Action: action, Message: "invalid reply", Err: err}
		}
	}
	return v, nil
}

// errorText renders an error field that may be a string, object or other JSON value.
func errorText(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" || string(raw) == "false" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var obj struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && obj.Message != "" {
		return obj.Message
	}
	return string(raw)
}

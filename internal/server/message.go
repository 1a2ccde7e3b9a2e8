package server

import (
	"encoding/json"
	"errors"

	cerrors "github.com/vango-dev/scopestore/internal/errors"
)

// ErrUnknownMessage is returned for a client message type the server does
// not handle.
var ErrUnknownMessage = errors.New("server: unknown message type")

// MessageType is the type field of every message.
type MessageType string

const (
	TypeSelect    MessageType = "select"
	TypeUnselect  MessageType = "unselect"
	TypeIncrement MessageType = "increment"
	TypeDecrement MessageType = "decrement"
	TypeSet       MessageType = "set"

	TypeHello MessageType = "hello"
	TypeValue MessageType = "value"
	TypeError MessageType = "error"
)

// View kinds accepted by select.
const (
	KindCounter = "counter"
	KindProduct = "product"
	KindInert   = "inert"
	KindExpr    = "expr"
)

// ClientMessage is a request from a client.
type ClientMessage struct {
	Type MessageType `json:"type"`
	View string      `json:"view,omitempty"`

	// Kind selects the view type. When empty it is expr if Expr is set and
	// counter otherwise.
	Kind   string `json:"kind,omitempty"`
	Key    string `json:"key,omitempty"`
	Value  int    `json:"value,omitempty"`
	Expr   string `json:"expr,omitempty"`
	Engine string `json:"engine,omitempty"`
}

func (m ClientMessage) kind() string {
	switch {
	case m.Kind != "":
		return m.Kind
	case m.Expr != "":
		return KindExpr
	default:
		return KindCounter
	}
}

// ServerMessage is pushed to a client.
type ServerMessage struct {
	Type    MessageType     `json:"type"`
	Session string          `json:"session,omitempty"`
	View    string          `json:"view,omitempty"`
	Value   any             `json:"value,omitempty"`
	Count   int             `json:"count,omitempty"`
	Error   json.RawMessage `json:"error,omitempty"`
}

func errorMessage(view string, err *cerrors.Error) ServerMessage {
	return ServerMessage{
		Type:  TypeError,
		View:  view,
		Error: json.RawMessage(err.FormatJSON()),
	}
}

package server

import (
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/scopestore/internal/counters"
	cerrors "github.com/vango-dev/scopestore/internal/errors"
	"github.com/vango-dev/scopestore/pkg/scope"
	"github.com/vango-dev/scopestore/pkg/selectexpr"
	"github.com/vango-dev/scopestore/pkg/store"
)

const (
	writeTimeout = 10 * time.Second
	sendBuffer   = 64
)

// Session is one WebSocket connection and the counters scope it owns.
type Session struct {
	id       string
	conn     *websocket.Conn
	counters *store.Store[counters.State]
	region   *scope.Scope
	board    *counters.Board
	logger   *slog.Logger

	send      chan ServerMessage
	done      chan struct{}
	closed    atomic.Bool
	closeOnce sync.Once
}

func newSession(conn *websocket.Conn, s *store.Store[counters.State], initial store.Builder[counters.State], logger *slog.Logger) (*Session, error) {
	region, err := s.Scope(nil, initial)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	sess := &Session{
		id:       id,
		conn:     conn,
		counters: s,
		region:   region,
		logger:   logger.With("session", id),
		send:     make(chan ServerMessage, sendBuffer),
		done:     make(chan struct{}),
	}
	sess.board = counters.NewBoard(s, region, sess.pushRender)
	return sess, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// IsClosed reports whether the session is closed.
func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

// ReadLoop reads client messages until the connection fails or the session
// is closed. It closes the session on return.
func (s *Session) ReadLoop() {
	defer s.Close()

	for {
		var msg ClientMessage
		if err := s.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				s.logger.Error("read error", "error", err)
			}
			return
		}
		s.handle(msg)
	}
}

// WriteLoop writes queued messages until the session is closed.
func (s *Session) WriteLoop() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Warn("write error", "error", err)
				s.Close()
				return
			}
		}
	}
}

func (s *Session) handle(msg ClientMessage) {
	var err error
	switch msg.Type {
	case TypeSelect:
		err = s.selectView(msg)
	case TypeUnselect:
		err = s.board.Remove(msg.View)
	case TypeIncrement, TypeDecrement, TypeSet:
		err = s.apply(msg)
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	if err != nil {
		s.logger.Debug("request failed", "type", msg.Type, "view", msg.View, "error", err)
		s.push(errorMessage(msg.View, cerrors.FromError(err)))
	}
}

func (s *Session) selectView(msg ClientMessage) error {
	if msg.View == "" {
		return cerrors.Newf(cerrors.CategoryCLI, "select needs a view name").
			WithExample(`{"type":"select","view":"x","key":"x"}`)
	}
	switch kind := msg.kind(); kind {
	case KindCounter:
		k, err := counters.ParseKey(msg.Key)
		if err != nil {
			return err
		}
		_, err = s.board.AddCounter(msg.View, k)
		return err
	case KindProduct:
		_, err := s.board.AddProduct(msg.View)
		return err
	case KindInert:
		_, err := s.board.AddInert(msg.View)
		return err
	case KindExpr:
		engine, err := selectexpr.ParseEngine(msg.Engine)
		if err != nil {
			return err
		}
		p, err := selectexpr.Compile(engine, msg.Expr)
		if err != nil {
			return err
		}
		_, err = s.board.AddExpression(msg.View, p)
		return err
	default:
		return cerrors.Newf(cerrors.CategoryCLI, "unknown view kind %q", kind)
	}
}

func (s *Session) apply(msg ClientMessage) error {
	k, err := counters.ParseKey(msg.Key)
	if err != nil {
		return err
	}
	op := counters.Op{Key: k, Value: msg.Value}
	switch msg.Type {
	case TypeIncrement:
		op.Action = counters.ActionIncrement
	case TypeDecrement:
		op.Action = counters.ActionDecrement
	case TypeSet:
		op.Action = counters.ActionSet
	}

	state, err := s.counters.GetState(s.region)
	if err != nil {
		return err
	}
	return op.Apply(state)
}

func (s *Session) pushRender(r counters.Render) {
	if r.Err != "" {
		s.push(errorMessage(r.View, cerrors.New("X001").WithDetail(r.Err)))
		return
	}
	s.push(ServerMessage{
		Type:  TypeValue,
		View:  r.View,
		Value: r.Value,
		Count: r.Count,
	})
}

func (s *Session) push(msg ServerMessage) {
	select {
	case s.send <- msg:
	case <-s.done:
	}
}

// Close disposes the session scope and closes the connection. It is safe to
// call more than once.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.done)
		s.region.Dispose()

		s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		s.conn.Close()
		s.logger.Info("session closed")
	})
}

package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tabletop/internal/engine"
	"github.com/DoyleJ11/tabletop/internal/room"
	"github.com/DoyleJ11/tabletop/pkg/types"
)

// Session follows one connection from the lobby into a room and back. It is
// driven by a single reader goroutine and is not safe for concurrent use.
type Session struct {
	hub  *Hub
	conn room.Conn
	room *room.Room
	log  *zap.Logger
}

// NewSession registers c in the lobby.
func (h *Hub) NewSession(c room.Conn) *Session {
	h.Enter(c)
	return &Session{
		hub:  h,
		conn: c,
		log:  h.log.With(zap.String("conn", c.ID())),
	}
}

// Room is the room the connection is in, or nil while it is in the lobby.
func (s *Session) Room() *room.Room { return s.room }

// Handle processes one raw client message. The returned error is only for
// failures of the session itself; rejected actions are reported to the
// client and return nil.
func (s *Session) Handle(ctx context.Context, raw string) error {
	in, err := types.ParseInbound(raw)
	if err != nil {
		s.reject("", fmt.Errorf("%w: %v", engine.ErrMalformed, err))
		return nil
	}

	if s.room == nil {
		if in.Action != types.ActionJoin {
			s.reject(in.Action, engine.ErrNotJoined)
			return nil
		}
		return s.join(ctx, in.Payload)
	}

	if in.Action == types.ActionJoin {
		s.reject(in.Action, engine.ErrAlreadyJoined)
		return nil
	}

	rep, err := s.room.Dispatch(ctx, s.conn.ID(), in.Action, in.Payload)
	switch {
	case errors.Is(err, room.ErrClosed):
		s.toLobby()
		s.reject(in.Action, engine.ErrNotJoined)
		return nil
	case err != nil:
		return err
	case rep.Left:
		s.toLobby()
	}
	return nil
}

func (s *Session) join(ctx context.Context, payload json.RawMessage) error {
	var req types.Join
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &req); err != nil {
			s.reject(types.ActionJoin, fmt.Errorf("%w: %v", engine.ErrMalformed, err))
			return nil
		}
	}

	// A room can empty out between lookup and join; the second attempt gets
	// a fresh room.
	for attempt := 0; attempt < 2; attempt++ {
		ensured, err := s.hub.EnsureRoom(ctx, req.GameType, req.RoomID)
		if err != nil {
			if errors.Is(err, ErrShutdown) || ctx.Err() != nil {
				return err
			}
			s.reject(types.ActionJoin, err)
			return nil
		}

		rep, err := ensured.Room.Join(ctx, room.Join{
			Conn:     s.conn,
			PlayerID: req.PlayerID,
			Name:     req.Name,
			Spectate: req.Spectate,
		})
		if errors.Is(err, room.ErrClosed) {
			req.RoomID = ""
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return err
			}
			s.reject(types.ActionJoin, err)
			return nil
		}

		s.room = ensured.Room
		s.hub.Exit(s.conn.ID())
		s.log.Debug("session joined",
			zap.String("room", ensured.Room.Code()),
			zap.String("player", rep.PlayerID))
		return nil
	}
	s.reject(types.ActionJoin, room.ErrClosed)
	return nil
}

func (s *Session) toLobby() {
	s.room = nil
	s.hub.Enter(s.conn)
}

func (s *Session) reject(action string, err error) {
	rej := engine.Reject(action, err)
	s.log.Debug("session rejected", zap.String("action", action), zap.Error(err))
	frame, encErr := types.Encode(types.PrefixError, types.Error{
		Code:    rej.Code(),
		Message: rej.Message(),
		Action:  action,
	})
	if encErr != nil {
		return
	}
	s.conn.Send(frame)
}

// Close takes the connection out of wherever it is.
func (s *Session) Close() {
	if s.room != nil {
		s.room.Leave(s.conn.ID())
		s.room = nil
	}
	s.hub.Exit(s.conn.ID())
}

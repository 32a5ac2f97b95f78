package room

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tabletop/internal/engine"
	"github.com/DoyleJ11/tabletop/internal/journal"
	"github.com/DoyleJ11/tabletop/internal/snapshot"
	"github.com/DoyleJ11/tabletop/pkg/types"
)

var ErrClosed = errors.New("room closed")

const DefaultMaxChainDepth = 32

// DefaultIdleGrace is how long a room may sit without ever being joined.
const DefaultIdleGrace = time.Minute

// Conn is one client connection as the room sees it. Send must not block;
// it reports false when the client cannot keep up.
type Conn interface {
	ID() string
	Send(msg string) bool
	Close()
}

type Msg interface{ isRoomMsg() }

type Join struct {
	Conn     Conn
	PlayerID string // re-attach to an existing player
	Name     string
	Spectate bool
	Reply    chan JoinReply
}

func (Join) isRoomMsg() {}

type JoinReply struct {
	PlayerID string
	Err      error
}

type FromClient struct {
	ConnID  string
	Action  string
	Payload json.RawMessage
	Reply   chan DispatchReply
}

func (FromClient) isRoomMsg() {}

// DispatchReply is sent once the whole chain has run. Left means the
// connection is no longer in the room.
type DispatchReply struct {
	Left bool
}

type Leave struct{ ConnID string }

func (Leave) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type View struct {
	Code     string
	GameType string
	Status   engine.Status
	Round    int
	Current  string
	Players  []string
	Conns    int
}

type Options struct {
	MaxChainDepth int
	Disconnect    DisconnectPolicy
	Journal       journal.Journal
	Logger        *zap.Logger
	// IdleGrace bounds how long a room lives before its first join.
	IdleGrace time.Duration
	// OnEmpty runs on the room goroutine after the room evicted itself.
	OnEmpty func(code string)
}

// Room owns one game. All of its state is confined to the loop goroutine, so
// dispatches to the same room never interleave.
type Room struct {
	code    string
	module  engine.Module
	actions map[string]engine.Action
	game    *engine.GameState
	tracker *snapshot.Tracker

	inbox    chan Msg
	conns    map[string]Conn   // every connection in the room, spectators too
	seats    map[string]string // conn id -> player id
	owners   map[string]string // player id -> conn id
	slow     map[string]bool
	occupied bool

	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func New(parent context.Context, code string, m engine.Module, opts Options) *Room {
	ctx, cancel := context.WithCancel(parent)
	if opts.MaxChainDepth <= 0 {
		opts.MaxChainDepth = DefaultMaxChainDepth
	}
	if opts.Disconnect == nil {
		opts.Disconnect = Wait
	}
	if opts.IdleGrace <= 0 {
		opts.IdleGrace = DefaultIdleGrace
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	log := opts.Logger.With(zap.String("room", code), zap.String("game", m.Name()))

	r := &Room{
		code:    code,
		module:  m,
		actions: engine.ActionTable(m),
		game:    m.NewGame(),
		tracker: snapshot.NewTracker(log),
		inbox:   make(chan Msg, 64),
		conns:   make(map[string]Conn),
		seats:   make(map[string]string),
		owners:  make(map[string]string),
		slow:    make(map[string]bool),
		opts:    opts,
		log:     log,
		ctx:     ctx,
		cancel:  cancel,
	}
	r.tracker.Diff(r.game)

	go r.loop()
	return r
}

func (r *Room) Code() string     { return r.code }
func (r *Room) GameType() string { return r.module.Name() }

func (r *Room) Closed() bool { return r.ctx.Err() != nil }

func (r *Room) loop() {
	idle := time.NewTimer(r.opts.IdleGrace)
	defer idle.Stop()

	for {
		select {
		case <-r.ctx.Done():
			r.shutdown()
			return

		case <-idle.C:
			if len(r.conns) == 0 {
				r.evict("room never joined, evicting")
				return
			}

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- r.join(msg)

			case FromClient:
				msg.Reply <- r.fromClient(msg)

			case Leave:
				r.leave(msg.ConnID)

			case GetState:
				msg.Reply <- r.view()

			case Shutdown:
				r.shutdown()
				return
			}

			r.reap()
			if r.occupied && len(r.conns) == 0 {
				r.evict("room empty, evicting")
				return
			}
		}
	}
}

func (r *Room) evict(reason string) {
	r.log.Info(reason)
	r.cancel()
	if r.opts.OnEmpty != nil {
		r.opts.OnEmpty(r.code)
	}
}

func (r *Room) shutdown() {
	for id, c := range r.conns {
		c.Close()
		delete(r.conns, id)
	}
	r.cancel()
}

func (r *Room) join(msg Join) JoinReply {
	r.occupied = true
	c := msg.Conn
	if _, ok := r.conns[c.ID()]; ok {
		return JoinReply{Err: engine.ErrAlreadyJoined}
	}

	var p *engine.Player
	switch {
	case msg.Spectate:
	case msg.PlayerID != "":
		p = r.game.Player(msg.PlayerID)
		if p == nil {
			return JoinReply{Err: fmt.Errorf("%w: %s", engine.ErrUnknownPlayer, msg.PlayerID)}
		}
		if old, ok := r.owners[p.ID]; ok {
			delete(r.seats, old)
		}
	default:
		if r.game.Full() {
			return JoinReply{Err: engine.ErrRoomFull}
		}
		p = r.module.InitPlayer(r.game, msg.Name)
		// Connections already here learn about the newcomer; the newcomer
		// gets the full picture below.
		r.flush()
	}

	r.conns[c.ID()] = c
	reply := JoinReply{}
	if p != nil {
		r.seats[c.ID()] = p.ID
		r.owners[p.ID] = c.ID()
		reply.PlayerID = p.ID
	}
	r.log.Info("joined",
		zap.String("conn", c.ID()),
		zap.String("player", reply.PlayerID),
		zap.Int("players", len(r.game.Players)))

	if frame, err := types.Encode(types.PrefixJoined, types.Joined{
		RoomID:   r.code,
		PlayerID: reply.PlayerID,
		GameType: r.module.Name(),
	}); err == nil {
		r.send(c, frame)
	}
	r.sendFull(c, p)

	if p != nil && msg.PlayerID == "" && r.game.Status == engine.StatusWaiting && r.game.Full() {
		r.run(c, engine.ChainRequest{Action: engine.ActionStart, Target: p})
	}
	return reply
}

func (r *Room) fromClient(msg FromClient) DispatchReply {
	c, ok := r.conns[msg.ConnID]
	if !ok {
		return DispatchReply{Left: true}
	}
	actor := r.game.Player(r.seats[c.ID()])

	switch msg.Action {
	case engine.ActionQuit:
		r.leave(c.ID())
		return DispatchReply{Left: true}
	case engine.ActionInspect:
		r.sendFull(c, actor)
		return DispatchReply{}
	}

	r.dispatch(c, actor, msg.Action, msg.Payload)
	return DispatchReply{}
}

// leave takes a connection out of the room and applies the disconnect policy
// to the player it was seated as.
func (r *Room) leave(connID string) {
	if _, ok := r.conns[connID]; !ok {
		return
	}
	delete(r.conns, connID)
	delete(r.slow, connID)

	pid, seated := r.seats[connID]
	delete(r.seats, connID)
	if !seated {
		return
	}
	if r.owners[pid] == connID {
		delete(r.owners, pid)
	}
	r.log.Info("left", zap.String("conn", connID), zap.String("player", pid))

	p := r.game.Player(pid)
	if p == nil {
		return
	}
	res := r.opts.Disconnect.OnDisconnect(r.game, p)
	if next := engine.Follow(r.game, p, res); next != nil {
		r.run(nil, *next)
	}
}

// reap drops connections that could not keep up, as if they had left.
func (r *Room) reap() {
	for len(r.slow) > 0 {
		for id := range r.slow {
			delete(r.slow, id)
			if c, ok := r.conns[id]; ok {
				r.log.Warn("dropping slow client", zap.String("conn", id))
				c.Close()
				r.leave(id)
			}
		}
	}
}

func (r *Room) send(c Conn, frame string) {
	if r.slow[c.ID()] {
		return
	}
	if !c.Send(frame) {
		r.slow[c.ID()] = true
	}
}

func (r *Room) sendFull(c Conn, viewer *engine.Player) {
	for _, u := range snapshot.Full(r.game, viewer) {
		if frame, err := types.Encode(types.PrefixUpdate, u); err == nil {
			r.send(c, frame)
		}
	}
}

func (r *Room) view() View {
	v := View{
		Code:     r.code,
		GameType: r.module.Name(),
		Status:   r.game.Status,
		Round:    r.game.Round,
		Conns:    len(r.conns),
	}
	if cur := r.game.Current(); cur != nil {
		v.Current = cur.ID
	}
	for _, p := range r.game.Players {
		v.Players = append(v.Players, p.ID)
	}
	return v
}

// request delivers msg and waits for its reply. A reply that was sent before
// the room closed still wins over ErrClosed.
func request[T any](ctx context.Context, r *Room, msg Msg, reply chan T) (T, error) {
	var zero T
	select {
	case r.inbox <- msg:
	case <-r.ctx.Done():
		return zero, ErrClosed
	case <-ctx.Done():
		return zero, ctx.Err()
	}

	select {
	case v := <-reply:
		return v, nil
	case <-r.ctx.Done():
		select {
		case v := <-reply:
			return v, nil
		default:
			return zero, ErrClosed
		}
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (r *Room) Join(ctx context.Context, msg Join) (JoinReply, error) {
	msg.Reply = make(chan JoinReply, 1)
	rep, err := request(ctx, r, msg, msg.Reply)
	if err != nil {
		return JoinReply{}, err
	}
	return rep, rep.Err
}

func (r *Room) Dispatch(ctx context.Context, connID, action string, payload json.RawMessage) (DispatchReply, error) {
	reply := make(chan DispatchReply, 1)
	return request(ctx, r, FromClient{ConnID: connID, Action: action, Payload: payload, Reply: reply}, reply)
}

func (r *Room) Leave(connID string) {
	select {
	case r.inbox <- Leave{ConnID: connID}:
	case <-r.ctx.Done():
	}
}

func (r *Room) View(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	return request(ctx, r, GetState{Reply: reply}, reply)
}

// Close stops the room and closes every connection still in it.
func (r *Room) Close() { r.cancel() }

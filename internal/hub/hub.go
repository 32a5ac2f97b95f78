package hub

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tabletop/internal/engine"
	"github.com/DoyleJ11/tabletop/internal/journal"
	"github.com/DoyleJ11/tabletop/internal/room"
	"github.com/DoyleJ11/tabletop/pkg/types"
)

var ErrShutdown = errors.New("hub shut down")

const journalTimeout = 5 * time.Second

type HubMsg interface{ isHubMsg() }

// Enter puts a connection in the lobby.
type Enter struct {
	Conn room.Conn
}

// Exit takes a connection out of the lobby.
type Exit struct {
	ConnID string
}

// EnsureRoom returns the open room for Code, or creates a room with a fresh
// code when Code is empty or unknown.
type EnsureRoom struct {
	GameType string
	Code     string
	Reply    chan EnsureReply
}

type EnsureReply struct {
	Room    *room.Room
	Created bool
	Err     error
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

type RemoveRoom struct {
	Code string
}

type ListRooms struct {
	Reply chan []*room.Room
}

type ShutdownHub struct{}

func (Enter) isHubMsg()       {}
func (Exit) isHubMsg()        {}
func (EnsureRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ListRooms) isHubMsg()   {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	Catalog     *engine.Catalog
	DefaultGame string
	// Room is the template for every room the hub creates. Journal, Logger
	// and OnEmpty are filled in by the hub.
	Room    room.Options
	Journal journal.Journal
	Logger  *zap.Logger
}

// Hub owns the lobby and the room registry.
type Hub struct {
	inbox chan HubMsg
	rooms map[string]*room.Room
	lobby map[string]room.Conn
	opts  Options
	log   *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if opts.Catalog == nil {
		opts.Catalog = engine.NewCatalog()
	}
	if opts.Journal == nil {
		opts.Journal = journal.Nop{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		lobby:  make(map[string]room.Conn),
		opts:   opts,
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

// Done is closed once the hub has stopped and closed its rooms.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Enter:
				h.lobby[msg.Conn.ID()] = msg.Conn
				if frame, err := types.Encode(types.PrefixRooms, h.openCodes()); err == nil {
					h.sendLobby(msg.Conn, frame)
				}

			case Exit:
				delete(h.lobby, msg.ConnID)

			case EnsureRoom:
				msg.Reply <- h.ensure(msg)

			case GetRoom:
				msg.Reply <- h.open(msg.Code) // May be nil

			case RemoveRoom:
				if _, ok := h.rooms[msg.Code]; !ok {
					break
				}
				delete(h.rooms, msg.Code)
				h.log.Info("room closed", zap.String("room", msg.Code))
				h.broadcast(types.Frame(types.PrefixClosedRoom, msg.Code))

			case ListRooms:
				out := make([]*room.Room, 0, len(h.rooms))
				for _, code := range h.openCodes() {
					out = append(out, h.rooms[code])
				}
				msg.Reply <- out

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) shutdown() {
	for code, rm := range h.rooms {
		rm.Close()
		delete(h.rooms, code)
	}
	for id, c := range h.lobby {
		c.Close()
		delete(h.lobby, id)
	}
	h.cancel()
}

// open returns the room for code unless it is missing or already evicted.
func (h *Hub) open(code string) *room.Room {
	rm := h.rooms[code]
	if rm == nil || rm.Closed() {
		return nil
	}
	return rm
}

func (h *Hub) openCodes() []string {
	codes := make([]string, 0, len(h.rooms))
	for code, rm := range h.rooms {
		if !rm.Closed() {
			codes = append(codes, code)
		}
	}
	slices.Sort(codes)
	return codes
}

func (h *Hub) ensure(msg EnsureRoom) EnsureReply {
	gameType := msg.GameType
	if gameType == "" {
		gameType = h.opts.DefaultGame
	}
	m, err := h.opts.Catalog.Lookup(gameType)
	if err != nil {
		return EnsureReply{Err: err}
	}

	if rm := h.open(msg.Code); rm != nil {
		// An explicit game type must name the game the room already plays.
		if msg.GameType != "" && msg.GameType != rm.GameType() {
			return EnsureReply{Err: fmt.Errorf("%w: %s plays %s", engine.ErrGameMismatch, msg.Code, rm.GameType())}
		}
		return EnsureReply{Room: rm}
	}

	var code string
	for {
		c, err := GenerateCode()
		if err != nil {
			return EnsureReply{Err: fmt.Errorf("generate room code: %w", err)}
		}
		if _, taken := h.rooms[c]; !taken {
			code = c
			break
		}
		h.log.Debug("collision on code, regenerating", zap.String("room", c))
	}

	opts := h.opts.Room
	opts.Journal = h.opts.Journal
	opts.Logger = h.log
	opts.OnEmpty = h.Remove
	rm := room.New(h.ctx, code, m, opts)
	h.rooms[code] = rm

	h.log.Info("room created", zap.String("room", code), zap.String("game", gameType))
	h.broadcast(types.Frame(types.PrefixNewRoom, code))

	j, log := h.opts.Journal, h.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := j.RoomOpened(ctx, code, gameType); err != nil {
			log.Warn("journal room", zap.String("room", code), zap.Error(err))
		}
	}()
	return EnsureReply{Room: rm, Created: true}
}

// broadcast sends frame to every lobby connection.
func (h *Hub) broadcast(frame string) {
	for _, c := range h.lobby {
		h.sendLobby(c, frame)
	}
}

func (h *Hub) sendLobby(c room.Conn, frame string) {
	if c.Send(frame) {
		return
	}
	h.log.Warn("dropping slow lobby client", zap.String("conn", c.ID()))
	delete(h.lobby, c.ID())
	c.Close()
}

func (h *Hub) post(msg HubMsg) {
	select {
	case h.inbox <- msg:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Enter(c room.Conn) { h.post(Enter{Conn: c}) }

func (h *Hub) Exit(connID string) { h.post(Exit{ConnID: connID}) }

func (h *Hub) Remove(code string) { h.post(RemoveRoom{Code: code}) }

// Shutdown closes every room and lobby connection.
func (h *Hub) Shutdown() { h.post(ShutdownHub{}) }

func call[T any](ctx context.Context, h *Hub, msg HubMsg, reply chan T) (T, error) {
	var zero T
	select {
	case h.inbox <- msg:
	case <-h.ctx.Done():
		return zero, ErrShutdown
	case <-ctx.Done():
		return zero, ctx.Err()
	}
	select {
	case v := <-reply:
		return v, nil
	case <-h.ctx.Done():
		return zero, ErrShutdown
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

func (h *Hub) EnsureRoom(ctx context.Context, gameType, code string) (EnsureReply, error) {
	reply := make(chan EnsureReply, 1)
	rep, err := call(ctx, h, EnsureRoom{GameType: gameType, Code: code, Reply: reply}, reply)
	if err != nil {
		return EnsureReply{}, err
	}
	return rep, rep.Err
}

func (h *Hub) GetRoom(ctx context.Context, code string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	return call(ctx, h, GetRoom{Code: code, Reply: reply}, reply)
}

func (h *Hub) Rooms(ctx context.Context) ([]*room.Room, error) {
	reply := make(chan []*room.Room, 1)
	return call(ctx, h, ListRooms{Reply: reply}, reply)
}

package room

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/tabletop/internal/engine"
	"github.com/DoyleJ11/tabletop/internal/journal"
	"github.com/DoyleJ11/tabletop/pkg/types"
)

const journalTimeout = 5 * time.Second

// dispatch validates a client action and runs it with its whole chain.
func (r *Room) dispatch(c Conn, actor *engine.Player, name string, payload json.RawMessage) {
	a, ok := r.actions[name]
	if !ok || a.Internal() {
		r.reject(c, name, fmt.Errorf("%w: %q", engine.ErrUnknownAction, name))
		return
	}
	if actor == nil {
		r.reject(c, name, engine.ErrSpectator)
		return
	}
	if r.game.Status != engine.StatusActive && name != engine.ActionStart {
		r.reject(c, name, engine.ErrNotStarted)
		return
	}
	args, err := a.Bind(payload)
	if err != nil {
		r.reject(c, name, err)
		return
	}

	r.run(c, engine.ChainRequest{Action: name, Target: actor, Args: args})
}

// run executes req and every step chained after it. Each step gets its own
// broadcast, so clients see a chain's progress in order. c may be nil when
// nobody is waiting on the outcome.
func (r *Room) run(c Conn, req engine.ChainRequest) {
	origin := req.Action
	for depth := 0; ; depth++ {
		if depth >= r.opts.MaxChainDepth {
			r.log.Error("chain depth exceeded",
				zap.String("action", origin),
				zap.String("step", req.Action),
				zap.Int("depth", depth))
			r.reject(c, origin, engine.ErrChainDepth)
			return
		}

		a, ok := r.actions[req.Action]
		if !ok {
			r.reject(c, origin, fmt.Errorf("%w: %q", engine.ErrUnknownAction, req.Action))
			return
		}

		res, err := r.invoke(a, req)
		r.flush()
		if err != nil {
			r.reject(c, origin, err)
			return
		}
		r.log.Debug("step done", zap.String("action", origin), zap.String("step", req.Action), zap.Int("depth", depth))

		if req.Action == engine.StepEndRound {
			r.recordRound()
		}

		next := engine.Follow(r.game, req.Target, res)
		if next == nil {
			return
		}
		req = *next
	}
}

func (r *Room) invoke(a engine.Action, req engine.ChainRequest) (res engine.Result, err error) {
	defer func() {
		if v := recover(); v != nil {
			r.log.Error("handler panicked",
				zap.String("step", req.Action),
				zap.Any("panic", v),
				zap.Stack("stack"))
			err = fmt.Errorf("%w: %v", engine.ErrHandlerPanic, v)
		}
	}()
	return a.Handler.Invoke(r.game, req.Target, req.Args)
}

// flush broadcasts whatever changed since the last flush.
func (r *Room) flush() {
	changes := r.tracker.Diff(r.game)
	if changes.Empty() {
		return
	}

	for _, u := range changes.Room {
		frame, err := types.Encode(types.PrefixUpdate, u)
		if err != nil {
			r.log.Warn("encode update", zap.String("key", u.Key), zap.Error(err))
			continue
		}
		for _, c := range r.conns {
			r.send(c, frame)
		}
	}

	for pid, updates := range changes.Private {
		c, ok := r.conns[r.owners[pid]]
		if !ok {
			continue
		}
		for _, u := range updates {
			frame, err := types.Encode(types.PrefixUpdate, u)
			if err != nil {
				r.log.Warn("encode update", zap.String("key", u.Key), zap.Error(err))
				continue
			}
			r.send(c, frame)
		}
	}
}

// reject tells only c that its action failed. Nothing is broadcast.
func (r *Room) reject(c Conn, action string, err error) {
	rej := engine.Reject(action, err)
	r.log.Info("rejected", zap.String("action", action), zap.String("code", rej.Code()), zap.Error(err))
	if c == nil {
		return
	}
	frame, encErr := types.Encode(types.PrefixError, types.Error{
		Code:    rej.Code(),
		Message: rej.Message(),
		Action:  action,
	})
	if encErr != nil {
		return
	}
	r.send(c, frame)
}

type playerRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// recordRound journals the round that just settled. Serialization happens
// here so the write goroutine never touches live state.
func (r *Room) recordRound() {
	records := make([]playerRecord, 0, len(r.game.Players))
	for _, p := range r.game.Players {
		fields := make(map[string]any, len(p.Public))
		for _, name := range p.Public {
			fields[name] = p.Field(name)
		}
		records = append(records, playerRecord{ID: p.ID, Fields: fields})
	}
	raw, err := json.Marshal(records)
	if err != nil {
		r.log.Warn("encode round record", zap.Error(err))
		return
	}

	entry := journal.RoundEntry{
		RoomCode: r.code,
		GameType: r.module.Name(),
		Round:    r.game.Round - 1,
		Players:  raw,
	}
	j, log := r.opts.Journal, r.log
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), journalTimeout)
		defer cancel()
		if err := j.RoundSettled(ctx, entry); err != nil {
			log.Warn("journal round", zap.Int("round", entry.Round), zap.Error(err))
		}
	}()
}

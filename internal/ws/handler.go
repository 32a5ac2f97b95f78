package ws

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/DoyleJ11/tabletop/internal/hub"
)

type Options struct {
	OutboxSize   int
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// OriginPatterns loosens the same-origin check, e.g. "localhost:*" in dev.
	OriginPatterns []string
}

func (o Options) withDefaults() Options {
	if o.OutboxSize <= 0 {
		o.OutboxSize = 64
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.IdleTimeout <= 0 {
		o.IdleTimeout = 5 * time.Minute
	}
	return o
}

// Conn is one websocket client. Send never blocks: frames go through a
// bounded outbox drained by a writer goroutine.
type Conn struct {
	id  string
	ws  *websocket.Conn
	out chan string

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

func newConn(id string, ws *websocket.Conn, outbox int) *Conn {
	return &Conn{
		id:   id,
		ws:   ws,
		out:  make(chan string, outbox),
		done: make(chan struct{}),
	}
}

func (c *Conn) ID() string { return c.id }

func (c *Conn) Send(msg string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.out <- msg:
		return true
	default:
		return false
	}
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.done)
	}
}

func (c *Conn) writeLoop(ctx context.Context, timeout time.Duration, log *zap.Logger) {
	for {
		select {
		case <-ctx.Done():
			return

		case <-c.done:
			_ = c.ws.Close(websocket.StatusNormalClosure, "closed")
			return

		case msg := <-c.out:
			wctx, cancel := context.WithTimeout(ctx, timeout)
			err := c.ws.Write(wctx, websocket.MessageText, []byte(msg))
			cancel()
			if err != nil {
				log.Debug("write failed", zap.Error(err))
				c.Close()
				_ = c.ws.Close(websocket.StatusGoingAway, "write failed")
				return
			}
		}
	}
}

func Handler(h *hub.Hub, opts Options, log *zap.Logger) http.HandlerFunc {
	opts = opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	return func(w http.ResponseWriter, r *http.Request) {
		wsConn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			log.Debug("accept failed", zap.Error(err))
			return
		}
		defer wsConn.CloseNow()

		c := newConn(uuid.NewString(), wsConn, opts.OutboxSize)
		clog := log.With(zap.String("conn", c.ID()))
		clog.Info("connected", zap.String("remote", r.RemoteAddr))

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.writeLoop(ctx, opts.WriteTimeout, clog)
		}()

		s := h.NewSession(c)
		defer func() {
			s.Close()
			c.Close()
			wg.Wait()
			clog.Info("disconnected")
		}()

		// Reader loop
		for {
			rctx, rcancel := context.WithTimeout(ctx, opts.IdleTimeout)
			typ, data, err := wsConn.Read(rctx)
			rcancel()
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					clog.Debug("read ended", zap.Error(err))
				}
				return
			}
			if typ != websocket.MessageText {
				continue
			}
			if err := s.Handle(ctx, string(data)); err != nil {
				clog.Warn("session ended", zap.Error(err))
				return
			}
		}
	}
}

package signal

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Discuss/internal/app/orch"
	"github.com/dkeye/Discuss/internal/core"
	"github.com/dkeye/Discuss/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Settings tune every connection the controller accepts.
type Settings struct {
	ReadLimit    int64
	PingPeriod   time.Duration
	WriteTimeout time.Duration
	SendBuffer   int
	RateLimit    rate.Limit
	RateBurst    int
}

func DefaultSettings() Settings {
	return Settings{
		ReadLimit:    65536,
		PingPeriod:   54 * time.Second,
		WriteTimeout: 5 * time.Second,
		SendBuffer:   32,
		RateLimit:    50,
		RateBurst:    100,
	}
}

func (s Settings) pongWait() time.Duration { return s.PingPeriod * 10 / 9 }

type SignalWSController struct {
	Orch     *orch.Orchestrator
	Settings Settings
}

func NewSignalWSController(o *orch.Orchestrator, s Settings) *SignalWSController {
	return &SignalWSController{Orch: o, Settings: s}
}

// WsSignalConn is the per-socket push channel. Sends never block: a full
// buffer is reported as core.ErrBackpressure.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func newWsSignalConn(ws *websocket.Conn, buffer int) *WsSignalConn {
	return &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, buffer),
	}
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// HandleSignal upgrades the request and binds the connection's handlers once,
// for its whole lifetime, independent of room membership.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	id := domain.NewConnID()
	client := c.GetString("client_token")
	logger := log.With().Str("module", "signal").Str("conn", string(id)).Str("client", client).Logger()

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Error().Err(err).Msg("ws upgrade")
		return
	}
	logger.Info().Msg("new WS connection")

	conn := newWsSignalConn(ws, ctl.Settings.SendBuffer)
	ctx, cancel := context.WithCancel(ctx)
	if err := ctl.Orch.Connect(id, conn); err != nil {
		logger.Error().Err(err).Msg("register connection")
		cancel()
		conn.Close()
		return
	}

	limiter := newMessageLimiter(ctl.Settings.RateLimit, ctl.Settings.RateBurst)
	go ctl.writePump(ctx, id, conn)
	go ctl.readPump(ctx, cancel, id, conn, limiter)
}

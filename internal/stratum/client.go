package stratum

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"net"
	"strconv"

	"github.com/dynamocoin/go-dynminer/internal/shares"
	"github.com/dynamocoin/go-dynminer/internal/work"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	methodNotify        = "mining.notify"
	methodSetDifficulty = "mining.set_difficulty"
	methodAuthorize     = "mining.authorize"
	methodSubmit        = "mining.submit"

	// authID tags the authorize request so its response can be told apart
	// from submit responses.
	authID = "auth"
)

// Config carries the pool endpoint and credentials.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
}

// Client keeps a long-lived session to the pool: it authenticates, dispatches
// jobs and difficulty updates into the shared work slot, and submits found
// shares. On any session error it reconnects, with connection attempts spaced
// at least one second apart; workers keep mining the last known job across
// reconnects.
type Client struct {
	cfg     Config
	shared  *work.Shared
	queue   *shares.Queue
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewClient creates a stratum client bound to the shared work slot and share
// queue.
func NewClient(cfg Config, shared *work.Shared, queue *shares.Queue, logger *zap.Logger) *Client {
	return &Client{
		cfg:    cfg,
		shared: shared,
		queue:  queue,
		// Fixed 1 s pacing between connection attempts.
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		logger:  logger,
	}
}

// Run drives the outer reconnect loop until the context is canceled.
func (c *Client) Run(ctx context.Context) {
	addr := net.JoinHostPort(c.cfg.Host, strconv.Itoa(c.cfg.Port))
	for ctx.Err() == nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return
		}

		var dialer net.Dialer
		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err != nil {
			c.logger.Warn("pool connection failed", zap.String("addr", addr), zap.Error(err))
			continue
		}

		c.logger.Info("connected to pool", zap.String("addr", addr))
		c.session(ctx, conn)
	}
}

// session authenticates, spawns the submitter and reads messages until the
// connection dies. Both halves are torn down together: a reader error stops
// the submitter via done, a submitter write error surfaces as a reader error
// once the pool closes the socket.
func (c *Client) session(ctx context.Context, conn net.Conn) {
	codec := NewCodec(conn)
	defer codec.Close()

	done := make(chan struct{})
	defer close(done)

	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	auth := &Request{
		Params: []interface{}{c.cfg.User, c.cfg.Password},
		ID:     authID,
		Method: methodAuthorize,
	}
	if err := codec.Send(auth); err != nil {
		c.logger.Warn("authorize write failed", zap.Error(err))
		return
	}

	go c.submitLoop(ctx, codec, done)

	for {
		msg, err := codec.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Warn("pool connection lost", zap.Error(err))
			}
			return
		}
		c.dispatch(msg)
	}
}

// dispatch routes one incoming message. Malformed messages are logged and
// dropped; they never tear down the session.
func (c *Client) dispatch(msg *Message) {
	if msg.ID == nil {
		c.dispatchMethod(msg)
		return
	}

	id, _ := msg.ID.(string)
	if id == authID {
		var ok bool
		json.Unmarshal(msg.Result, &ok)
		if !ok {
			c.logger.Warn("authentication failed", zap.String("user", c.cfg.User))
		}
		return
	}

	// Anything else is a mining.submit response.
	var accepted bool
	json.Unmarshal(msg.Result, &accepted)
	if accepted {
		c.queue.Stats.AcceptedShareCount.Add(1)
		return
	}
	c.queue.Stats.RejectedShareCount.Add(1)
	code, reason := parseSubmitError(msg.Error)
	c.logger.Debug("share rejected",
		zap.String("rpc_id", id),
		zap.Int("code", code),
		zap.String("reason", reason),
	)
}

func (c *Client) dispatchMethod(msg *Message) {
	switch msg.Method {
	case methodNotify:
		var params []interface{}
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			c.logger.Warn("malformed mining.notify", zap.Error(err))
			return
		}
		notify, err := work.ParseNotify(params)
		if err != nil {
			c.logger.Warn("malformed mining.notify", zap.Error(err))
			return
		}
		if err := c.shared.SetJob(notify, c.logger); err != nil {
			c.logger.Warn("rejected job", zap.String("job_id", notify.JobID), zap.Error(err))
			return
		}
		c.logger.Info("new job",
			zap.String("job_id", notify.JobID),
			zap.Uint32("generation", c.shared.Num()),
		)
	case methodSetDifficulty:
		var params []float64
		if err := json.Unmarshal(msg.Params, &params); err != nil || len(params) < 1 {
			c.logger.Warn("malformed mining.set_difficulty", zap.Error(err))
			return
		}
		c.shared.SetDifficulty(params[0])
		c.queue.Stats.LatestDiff.Store(uint32(params[0]))
		c.logger.Info("difficulty updated", zap.Float64("difficulty", params[0]))
	default:
		c.logger.Warn("unknown stratum method", zap.String("method", msg.Method))
	}
}

// submitLoop is the single consumer of the share queue. One notify wake may
// cover several queued shares, so it drains until empty. Stale shares are
// dropped here, at the last moment before the wire.
func (c *Client) submitLoop(ctx context.Context, codec *Codec, done <-chan struct{}) {
	rpcID := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-done:
			return
		case <-c.queue.Notify():
		}

		for {
			s, ok := c.queue.Pop()
			if !ok {
				break
			}
			if s.JobNum != c.shared.Num() {
				c.logger.Debug("dropping stale share",
					zap.Uint32("share_generation", s.JobNum),
					zap.Uint32("current_generation", c.shared.Num()),
				)
				continue
			}

			req := &Request{
				Params: []interface{}{c.cfg.User, s.JobID, "", s.HexNtime, hex.EncodeToString(s.Nonce[:])},
				ID:     strconv.Itoa(rpcID),
				Method: methodSubmit,
			}
			rpcID++

			if err := codec.Send(req); err != nil {
				c.logger.Warn("share write failed, closing session", zap.Error(err))
				return
			}
			c.logger.Info("share submitted",
				zap.String("job_id", s.JobID),
				zap.String("nonce", hex.EncodeToString(s.Nonce[:])),
			)
		}
	}
}

func parseSubmitError(raw json.RawMessage) (int, string) {
	var fields []json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || len(fields) < 2 {
		return 0, ""
	}
	var code int
	var reason string
	json.Unmarshal(fields[0], &code)
	json.Unmarshal(fields[1], &reason)
	return code, reason
}

package rcon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"
)

// Metrics is the optional reporting capability a Connection and its
// Manager use to publish counters. A nil Metrics is replaced by noopMetrics
// at construction so call sites never need a nil check.
type Metrics interface {
	ConnectionOpened()
	ConnectionClosed()
	AuthFailure()
	FrameRejected()
	CommandExecuted()
}

type noopMetrics struct{}

func (noopMetrics) ConnectionOpened() {}
func (noopMetrics) ConnectionClosed() {}
func (noopMetrics) AuthFailure()      {}
func (noopMetrics) FrameRejected()    {}
func (noopMetrics) CommandExecuted()  {}

// ConnectionConfig carries the parameters a Connection needs that are
// shared across every connection a Manager owns.
type ConnectionConfig struct {
	MaxFrameSize int
	ReadTimeout  time.Duration
	Credential   Record
	Executor     Executor
	Metrics      Metrics
}

// Connection is one accepted TCP socket and its RCON session state. The
// owning Manager is the only caller of Run; all other callers interact
// through Close and the read-only accessors.
type Connection struct {
	id     uint64
	conn   net.Conn
	remote string
	cfg    ConnectionConfig
	logger *slog.Logger

	// recvBuf accumulates bytes read from the socket until they form one
	// or more complete frames. Owned exclusively by the goroutine running
	// Run; no other goroutine touches it.
	recvBuf []byte

	// writeMu is the connection's single-permit write semaphore: every
	// send acquires it before touching the socket so two responses can
	// never interleave on the wire.
	writeMu sync.Mutex

	state State

	lastActivity atomic.Int64 // nanoseconds since startedAt (monotonic)

	closeOnce   sync.Once
	closed      atomic.Bool
	closeReason string

	commandsExecuted atomic.Int64
	startedAt        time.Time

	runCtx context.Context
}

// NewConnection wraps an accepted socket. id must be unique within the
// process lifetime; the caller is responsible for allocating it and
// registering the Connection with a Manager.
func NewConnection(id uint64, conn net.Conn, cfg ConnectionConfig, logger *slog.Logger) *Connection {
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}

	c := &Connection{
		id:     id,
		conn:   conn,
		remote: conn.RemoteAddr().String(),
		cfg:    cfg,
		state:  Unauthenticated,
		startedAt: time.Now(),
	}
	c.logger = logger.With(
		slog.Uint64("connection_id", id),
		slog.String("remote_addr", c.remote),
	)
	c.touch()

	return c
}

// ID returns the connection's process-unique identity.
func (c *Connection) ID() uint64 { return c.id }

// RemoteAddr returns the string form of the peer's address.
func (c *Connection) RemoteAddr() string { return c.remote }

// IsClosed reports whether Close has already run.
func (c *Connection) IsClosed() bool { return c.closed.Load() }

// LastActivity returns the monotonic time of the connection's most recent
// read, used by the idle reaper.
func (c *Connection) LastActivity() time.Time {
	return c.startedAt.Add(time.Duration(c.lastActivity.Load()))
}

// CommandsExecuted returns the number of ExecCommand packets this
// connection has successfully dispatched to the executor, for the
// application.session.end log event.
func (c *Connection) CommandsExecuted() int64 { return c.commandsExecuted.Load() }

func (c *Connection) touch() {
	c.lastActivity.Store(int64(time.Since(c.startedAt)))
}

// Run drives the connection's read loop until the socket closes, a
// protocol violation occurs, or ctx is cancelled. It never returns an error
// the caller must act on: every exit path has already logged and closed
// the connection.
func (c *Connection) Run(ctx context.Context) {
	defer c.Close("read task exited")
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("connection read task panicked", slog.Any("panic", r))
		}
	}()

	c.runCtx = ctx
	c.logger.Info("transport.connect")

	go func() {
		<-ctx.Done()
		c.Close("server shutdown")
	}()

	scratch := make([]byte, c.cfg.MaxFrameSize)
	maxBuf := 2 * c.cfg.MaxFrameSize

	for {
		if c.cfg.ReadTimeout > 0 {
			if err := c.conn.SetReadDeadline(time.Now().Add(c.cfg.ReadTimeout)); err != nil {
				c.logger.Warn("transport.disconnect", slog.String("reason", "set read deadline failed"))
				return
			}
		}

		n, err := c.conn.Read(scratch)
		if n > 0 {
			c.touch()
			c.recvBuf = append(c.recvBuf, scratch[:n]...)

			if len(c.recvBuf) > maxBuf {
				c.logger.Warn("protocol.packet.invalid", slog.String("violation", "receive buffer overflow"))
				return
			}

			if !c.drainFrames() {
				return
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				// Socket read timeout: treated the same as idle-reaper
				// expiry, the primary mechanism described in §4.4.
				c.logger.Debug("transport.disconnect", slog.String("reason", "read timeout"))
				return
			}
			return
		}
	}
}

// drainFrames repeatedly decodes complete frames from the front of recvBuf
// and dispatches each to handleFrame, stopping on Need (wait for more
// bytes). It returns false if an Invalid frame or a handled action closed
// the connection, signaling the caller to stop reading.
func (c *Connection) drainFrames() bool {
	for {
		outcome, pkt, consumed, err := TryDecodeOne(c.recvBuf, c.cfg.MaxFrameSize)
		switch outcome {
		case Need:
			return true
		case Invalid:
			c.cfg.Metrics.FrameRejected()
			c.logger.Warn("protocol.packet.invalid", slog.String("violation", errString(err)))
			c.Close("invalid frame")
			return false
		case Frame:
			c.recvBuf = c.recvBuf[consumed:]
			if !c.handleFrame(pkt) {
				return false
			}
		}
	}
}

func errString(err error) string {
	if err == nil {
		return "unknown"
	}
	return err.Error()
}

// handleFrame classifies pkt, runs it through the state machine, and
// performs the resulting actions. It returns false if the connection was
// closed as a result.
func (c *Connection) handleFrame(pkt Packet) bool {
	class := ClassifyIncoming(pkt.Type)

	authOK := false
	if c.state == Unauthenticated && class == ClassAuth {
		authOK = Verify(string(pkt.Body), c.cfg.Credential)
	}

	result := ApplyEvent(c.state, class, authOK)
	c.state = result.NewState

	for _, action := range result.Actions {
		if !c.performAction(action, pkt) {
			return false
		}
	}

	return true
}

// performAction executes one FSM action. It returns false if the
// connection is now closed.
func (c *Connection) performAction(action Action, pkt Packet) bool {
	switch action {
	case ActionAuthOK:
		c.logger.Info("protocol.auth", slog.String("result", "success"))
		if err := c.send(Packet{RequestID: pkt.RequestID, Type: TypeAuthResponse, Body: []byte("1")}); err != nil {
			c.Close("write failed")
			return false
		}
		return true

	case ActionAuthFail:
		c.cfg.Metrics.AuthFailure()
		c.logger.Warn("protocol.auth", slog.String("result", "failure"))
		_ = c.send(Packet{RequestID: pkt.RequestID, Type: TypeAuthResponse, Body: []byte("-1")})
		return true

	case ActionExec:
		c.executeCommand(pkt)
		return true

	case ActionIgnore:
		return true

	case ActionClose:
		c.Close("protocol violation")
		return false

	default:
		return true
	}
}

// executeCommand runs an authenticated ExecCommand packet's body through
// the configured Executor and replies with exactly one ResponseValue.
func (c *Connection) executeCommand(pkt Packet) {
	ctx := c.runCtx
	if ctx == nil {
		ctx = context.Background()
	}
	out, err := c.cfg.Executor.Execute(ctx, string(pkt.Body))
	if err != nil {
		c.logger.Warn("command.execute",
			slog.String("command_name", CommandName(string(pkt.Body))),
			slog.String("result", "error"),
		)
		_ = c.send(Packet{RequestID: pkt.RequestID, Type: TypeResponseValue, Body: []byte("error: command execution failed")})
		return
	}

	c.commandsExecuted.Add(1)
	c.cfg.Metrics.CommandExecuted()
	c.logger.Info("command.execute",
		slog.String("command_name", CommandName(string(pkt.Body))),
		slog.String("result", "ok"),
	)
	if err := c.send(Packet{RequestID: pkt.RequestID, Type: TypeResponseValue, Body: []byte(out)}); errors.Is(err, ErrFrameTooLarge) {
		_ = c.send(Packet{RequestID: pkt.RequestID, Type: TypeResponseValue, Body: []byte("error: response too large")})
	}
}

// send encodes pkt and writes it to the socket under the write semaphore.
func (c *Connection) send(pkt Packet) error {
	encoded, err := Encode(pkt, c.cfg.MaxFrameSize)
	if err != nil {
		// TooLarge: an internal error, not a wire-format problem. The
		// manager must not ship a partial frame.
		c.logger.Warn("application.internal_error", slog.String("error", err.Error()))
		return fmt.Errorf("encode response: %w", err)
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if _, err := c.conn.Write(encoded); err != nil {
		return fmt.Errorf("write response: %w", err)
	}
	return nil
}

// Close closes the connection exactly once; subsequent calls are no-ops.
// reason is logged in the connection's transport.disconnect event.
func (c *Connection) Close(reason string) {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		c.closeReason = reason
		c.state = Closed
		_ = c.conn.Close()
		c.cfg.Metrics.ConnectionClosed()
		c.logger.Info("transport.disconnect",
			slog.String("reason", reason),
			slog.Int64("session_duration_ms", time.Since(c.startedAt).Milliseconds()),
		)
		c.logger.Info("application.session.end", slog.Int64("commands_executed", c.commandsExecuted.Load()))
	})
}

package xrpl

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// maxReplyBytes bounds reply size. Ledger replies with full transaction
// lists run to a few MB on busy ledgers.
const maxReplyBytes = 8 << 20

// wireConn is the minimal connection surface Send needs. The production
// implementation wraps a websocket connection; tests substitute a fake.
type wireConn interface {
	Write(ctx context.Context, data []byte) error
	Read(ctx context.Context) ([]byte, error)
	Close() error
}

type dialFunc func(ctx context.Context, url string) (wireConn, error)

// Client issues single-shot commands against a rippled websocket endpoint.
// Every call opens a fresh connection, sends exactly one command, waits for
// the first reply, and tears the connection down on all exit paths.
type Client struct {
	handshakeTimeout time.Duration
	requestTimeout   time.Duration
	fallbackPorts    []int
	log              *logrus.Entry
	dial             dialFunc
	nextID           atomic.Int64
}

// NewClient creates a client with the given timeout budgets and fallback
// port list. The handshake budget is spent inside the request budget.
func NewClient(handshakeTimeout, requestTimeout time.Duration, fallbackPorts []int, log *logrus.Entry) *Client {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 5 * time.Second
	}
	if requestTimeout <= 0 {
		requestTimeout = 10 * time.Second
	}
	if fallbackPorts == nil {
		fallbackPorts = DefaultFallbackPorts
	}
	return &Client{
		handshakeTimeout: handshakeTimeout,
		requestTimeout:   requestTimeout,
		fallbackPorts:    fallbackPorts,
		log:              log,
		dial:             dialWebsocket,
	}
}

// Send issues one command against host:port and returns the first reply.
// The full round trip is bounded by the request timeout; the connection
// becoming ready is additionally bounded by the handshake timeout.
func (c *Client) Send(ctx context.Context, host string, port int, cmd Command) (*Reply, error) {
	start := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	hctx, hcancel := context.WithTimeout(ctx, c.handshakeTimeout)
	conn, err := c.dial(hctx, fmt.Sprintf("ws://%s:%d", host, port))
	hcancel()
	if err != nil {
		reason := FailTransport
		if errors.Is(hctx.Err(), context.DeadlineExceeded) {
			reason = FailHandshakeTimeout
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				reason = FailRoundTripTimeout
			}
		}
		return nil, &Error{Host: host, Port: port, Reason: reason, Cause: err}
	}
	defer conn.Close()

	payload, err := json.Marshal(cmd.encode(c.nextID.Add(1)))
	if err != nil {
		return nil, &Error{Host: host, Port: port, Reason: FailUnknown, Cause: err}
	}

	if err := conn.Write(ctx, payload); err != nil {
		return nil, c.classify(ctx, host, port, err)
	}

	raw, err := conn.Read(ctx)
	if err != nil {
		return nil, c.classify(ctx, host, port, err)
	}

	reply, err := parseReply(raw)
	if err != nil {
		var xe *Error
		if errors.As(err, &xe) {
			xe.Host = host
			xe.Port = port
		}
		return nil, err
	}

	reply.Latency = time.Since(start)
	return reply, nil
}

// SendWithFallback tries the preferred port first, then each well-known
// fallback port, short-circuiting on the first success. A timeout or error
// on a port is terminal for that port; there are no per-port retries.
// Returns the last observed error when every candidate fails.
func (c *Client) SendWithFallback(ctx context.Context, host string, preferredPort int, cmd Command) (*Reply, error) {
	ports := CandidatePorts(preferredPort, c.fallbackPorts)
	if len(ports) == 0 {
		return nil, &Error{Host: host, Reason: FailTransport, Cause: errors.New("no candidate ports")}
	}

	var last error
	for _, port := range ports {
		reply, err := c.Send(ctx, host, port, cmd)
		if err == nil {
			return reply, nil
		}
		last = err
		if c.log != nil {
			c.log.WithFields(logrus.Fields{"host": host, "port": port}).WithError(err).Debug("port attempt failed")
		}
		if ctx.Err() != nil {
			// Caller gave up; don't burn through remaining ports.
			break
		}
	}
	return nil, &AllPortsExhaustedError{Host: host, Ports: ports, Last: last}
}

// classify maps a mid-request failure to the error taxonomy.
func (c *Client) classify(ctx context.Context, host string, port int, err error) error {
	reason := FailTransport
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		reason = FailRoundTripTimeout
	}
	return &Error{Host: host, Port: port, Reason: reason, Cause: err}
}

// wsConn adapts a websocket connection to wireConn.
type wsConn struct {
	conn *websocket.Conn
}

func (w *wsConn) Write(ctx context.Context, data []byte) error {
	return w.conn.Write(ctx, websocket.MessageText, data)
}

func (w *wsConn) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.conn.Read(ctx)
	return data, err
}

func (w *wsConn) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "")
}

func dialWebsocket(ctx context.Context, url string) (wireConn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	conn.SetReadLimit(maxReplyBytes)
	return &wsConn{conn: conn}, nil
}

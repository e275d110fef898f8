// Package ingest contains the real-time event pipeline: the feed client
// that subscribes to the Brandmeister last-heard stream and the normalizer
// that turns raw feed messages into persisted call records.
package ingest

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// MessageHandler receives one raw feed message at a time, in arrival order.
type MessageHandler func(ctx context.Context, message []byte)

// FeedClient maintains one logical subscription to the upstream last-heard
// feed over a persistent WebSocket connection. Transport errors are never
// fatal: the client redials forever with a fixed delay between attempts.
// The upstream recovers quickly in practice, so there is no backoff growth.
type FeedClient struct {
	url              string
	handshakeTimeout time.Duration
	reconnectDelay   time.Duration

	handler MessageHandler
	logger  *log.Logger

	connMu sync.Mutex
	conn   *websocket.Conn
}

// NewFeedClient creates a feed client. It does not connect; call Start.
func NewFeedClient(url string, handshakeTimeout, reconnectDelay time.Duration, handler MessageHandler, logger *log.Logger) *FeedClient {
	if handshakeTimeout <= 0 {
		handshakeTimeout = 10 * time.Second
	}
	if reconnectDelay <= 0 {
		reconnectDelay = 5 * time.Second
	}
	if logger == nil {
		logger = log.Default()
	}

	return &FeedClient{
		url:              url,
		handshakeTimeout: handshakeTimeout,
		reconnectDelay:   reconnectDelay,
		handler:          handler,
		logger:           logger,
	}
}

// Start launches the subscription loop in a background goroutine and
// returns a stop function.
func (c *FeedClient) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go c.run(ctx)

	return func() {
		cancel()
		c.closeConn()
	}
}

// run dials, reads until the connection breaks, then redials. It exits
// only when the context is cancelled.
func (c *FeedClient) run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := c.dial(ctx)
		if err != nil {
			c.logger.Printf("feed: connect to %s failed: %v", c.url, err)
			feedReconnectsTotal.Inc()
			if !c.sleep(ctx) {
				return
			}
			continue
		}

		c.setConn(conn)
		c.logger.Printf("feed: connected to %s", c.url)

		c.readLoop(ctx, conn)

		c.closeConn()
		if ctx.Err() != nil {
			return
		}
		c.logger.Printf("feed: connection lost, reconnecting in %s", c.reconnectDelay)
		feedReconnectsTotal.Inc()
		if !c.sleep(ctx) {
			return
		}
	}
}

func (c *FeedClient) dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: c.handshakeTimeout,
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.handshakeTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(dialCtx, c.url, nil)
	if resp != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// readLoop delivers messages to the handler one at a time, in the order
// the upstream sends them. No buffering, batching or reordering.
func (c *FeedClient) readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				c.logger.Printf("feed: read error: %v", err)
			}
			return
		}

		c.handler(ctx, message)
	}
}

// sleep waits the fixed reconnect delay; returns false when cancelled.
func (c *FeedClient) sleep(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(c.reconnectDelay):
		return true
	}
}

func (c *FeedClient) setConn(conn *websocket.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	c.conn = conn
}

func (c *FeedClient) closeConn() {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
}

// IsConnected reports whether a connection is currently established.
func (c *FeedClient) IsConnected() bool {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	return c.conn != nil
}

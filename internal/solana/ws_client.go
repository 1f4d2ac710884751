package solana

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// WSConfig configures the WebSocket confirmation client.
type WSConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// DefaultWSConfig returns default WebSocket configuration.
func DefaultWSConfig() WSConfig {
	return WSConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
	}
}

// WSClient awaits transaction confirmations over a Solana WebSocket
// endpoint using signatureSubscribe. A subscription fires exactly once
// when the signature reaches the requested commitment, so each wait opens
// one subscription and tears it down when done.
type WSClient struct {
	endpoint string
	config   WSConfig

	conn      *websocket.Conn
	writeMu   sync.Mutex
	closed    atomic.Bool
	requestID atomic.Uint64

	// waiters maps request ID to the channel delivered the subscription
	// outcome; subIDs maps live subscription ID back to request ID.
	mu      sync.Mutex
	waiters map[uint64]chan error
	subIDs  map[int64]uint64

	done chan struct{}
	wg   sync.WaitGroup
}

// NewWSClient connects to the endpoint and starts the read loop.
func NewWSClient(ctx context.Context, endpoint string, config *WSConfig) (*WSClient, error) {
	cfg := DefaultWSConfig()
	if config != nil {
		cfg = *config
	}

	dialer := websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("websocket dial: %w", err)
	}

	c := &WSClient{
		endpoint: endpoint,
		config:   cfg,
		conn:     conn,
		waiters:  make(map[uint64]chan error),
		subIDs:   make(map[int64]uint64),
		done:     make(chan struct{}),
	}

	c.wg.Add(1)
	go c.readLoop()

	return c, nil
}

// wsRequest is a JSON-RPC 2.0 request frame.
type wsRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      uint64        `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

// wsMessage covers both subscribe responses and notifications.
type wsMessage struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
	Method string          `json:"method"`
	Params *wsNotifyParams `json:"params"`
}

type wsNotifyParams struct {
	Subscription int64           `json:"subscription"`
	Result       json.RawMessage `json:"result"`
}

type signatureResult struct {
	Value struct {
		Err interface{} `json:"err"`
	} `json:"value"`
}

// AwaitConfirmation blocks until the signature is confirmed, the context is
// cancelled, or the connection closes. Cancellation abandons the local wait
// only; the transaction itself cannot be recalled.
func (c *WSClient) AwaitConfirmation(ctx context.Context, signature string) error {
	if c.closed.Load() {
		return fmt.Errorf("client closed")
	}

	reqID := c.requestID.Add(1)
	ch := make(chan error, 1)

	c.mu.Lock()
	c.waiters[reqID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.waiters, reqID)
		for subID, id := range c.subIDs {
			if id == reqID {
				delete(c.subIDs, subID)
			}
		}
		c.mu.Unlock()
	}()

	req := wsRequest{
		JSONRPC: "2.0",
		ID:      reqID,
		Method:  "signatureSubscribe",
		Params: []interface{}{
			signature,
			map[string]string{"commitment": "confirmed"},
		},
	}
	if err := c.write(req); err != nil {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-c.done:
		return fmt.Errorf("connection closed")
	case err := <-ch:
		return err
	}
}

func (c *WSClient) write(v interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	if err := c.conn.WriteJSON(v); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}
	return nil
}

func (c *WSClient) readLoop() {
	defer c.wg.Done()
	defer close(c.done)

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		c.handleMessage(message)
	}
}

func (c *WSClient) handleMessage(message []byte) {
	var msg wsMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		return
	}

	switch {
	case msg.Method == "signatureNotification" && msg.Params != nil:
		var res signatureResult
		if err := json.Unmarshal(msg.Params.Result, &res); err != nil {
			return
		}

		c.mu.Lock()
		reqID, ok := c.subIDs[msg.Params.Subscription]
		ch := c.waiters[reqID]
		c.mu.Unlock()
		if !ok || ch == nil {
			return
		}

		if res.Value.Err != nil {
			ch <- fmt.Errorf("transaction failed: %v", res.Value.Err)
		} else {
			ch <- nil
		}

	case msg.ID != 0:
		// Subscribe response: map subscription id to the waiting request.
		if msg.Error != nil {
			c.mu.Lock()
			ch := c.waiters[msg.ID]
			c.mu.Unlock()
			if ch != nil {
				ch <- msg.Error
			}
			return
		}

		var subID int64
		if err := json.Unmarshal(msg.Result, &subID); err != nil {
			return
		}
		c.mu.Lock()
		if _, waiting := c.waiters[msg.ID]; waiting {
			c.subIDs[subID] = msg.ID
		}
		c.mu.Unlock()
	}
}

// Close shuts down the connection and unblocks all waiters.
func (c *WSClient) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := c.conn.Close()
	c.wg.Wait()
	return err
}

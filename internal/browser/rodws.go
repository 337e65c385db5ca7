package browser

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// rodConn carries rod's CDP traffic over a gorilla connection the driver
// owns, so it can be released without closing the browser.
type rodConn struct {
	conn *websocket.Conn
	mu   sync.Mutex // one writer at a time
}

func dialRod(ctx context.Context, wsURL string) (*rodConn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", wsURL, err)
	}
	return &rodConn{conn: conn}, nil
}

// Send implements cdp.WebSocketable.
func (c *rodConn) Send(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

// Read implements cdp.WebSocketable.
func (c *rodConn) Read() ([]byte, error) {
	_, data, err := c.conn.ReadMessage()
	return data, err
}

func (c *rodConn) Close() error {
	return c.conn.Close()
}

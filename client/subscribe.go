package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"

	gorillaws "github.com/gorilla/websocket"
	"github.com/wricardo/adventure-games/transport/websocket"
)

// wsURL turns the API base URL into the websocket endpoint for a session
func (c *Client) wsURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", fmt.Errorf("parse base URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = "/ws"
	q := u.Query()
	q.Set("session", c.sessionID)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Subscribe streams the session's websocket frames. The first frame is a
// snapshot. The channel closes when ctx ends or the connection drops.
func (c *Client) Subscribe(ctx context.Context) (<-chan websocket.Message, error) {
	if c.sessionID == "" {
		return nil, ErrNoSession
	}
	target, err := c.wsURL()
	if err != nil {
		return nil, err
	}

	conn, _, err := gorillaws.DefaultDialer.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	out := make(chan websocket.Message, 16)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer conn.Close()
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if ctx.Err() == nil {
					log.Printf("WebSocket read error for %s: %v", c.sessionID, err)
				}
				return
			}
			var msg websocket.Message
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Printf("WebSocket JSON parse error: %v", err)
				continue
			}
			select {
			case out <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

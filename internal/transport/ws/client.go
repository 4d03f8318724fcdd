package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"tickcore.ai/internal/protocol"
)

// Client is the controller end of the host bridge.
type Client struct {
	conn    *websocket.Conn
	welcome protocol.WelcomeMsg
}

// Dial connects to a host and completes the HELLO/WELCOME exchange.
func Dial(ctx context.Context, url, player string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	c := &Client{conn: conn}
	hello := protocol.HelloMsg{
		Type:            protocol.TypeHello,
		ProtocolVersion: protocol.Version,
		Player:          player,
	}
	if err := conn.WriteJSON(hello); err != nil {
		conn.Close()
		return nil, fmt.Errorf("send HELLO: %w", err)
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("read WELCOME: %w", err)
	}
	if err := json.Unmarshal(msg, &c.welcome); err != nil || c.welcome.Type != protocol.TypeWelcome {
		conn.Close()
		return nil, fmt.Errorf("expected WELCOME, got %.64s", msg)
	}
	return c, nil
}

func (c *Client) Welcome() protocol.WelcomeMsg { return c.welcome }

// Next blocks until the host sends the next TICK or ctx is done.
func (c *Client) Next(ctx context.Context) (protocol.TickMsg, error) {
	var tm protocol.TickMsg
	stop := context.AfterFunc(ctx, func() { _ = c.conn.SetReadDeadline(time.Now()) })
	defer stop()
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return tm, ctx.Err()
			}
			return tm, err
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil || base.Type != protocol.TypeTick {
			continue
		}
		if base.ProtocolVersion != protocol.Version {
			return tm, fmt.Errorf("tick: protocol_version %q, want %q", base.ProtocolVersion, protocol.Version)
		}
		if err := json.Unmarshal(msg, &tm); err != nil {
			return tm, fmt.Errorf("decode tick: %w", err)
		}
		return tm, nil
	}
}

// Send submits the commands issued during tick.
func (c *Client) Send(tick uint64, cmds []protocol.Command) error {
	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return c.conn.WriteJSON(protocol.CommandsMsg{
		Type:            protocol.TypeCommands,
		ProtocolVersion: protocol.Version,
		Tick:            tick,
		Commands:        cmds,
	})
}

func (c *Client) Close() error {
	_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return c.conn.Close()
}

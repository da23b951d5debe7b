package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

// SendOnce dials endpoint, writes one command and closes cleanly. It does
// not retry: the caller is a CLI that reports the failure.
func SendOnce(ctx context.Context, dial DialFunc, endpoint string, v any) error {
	if dial == nil {
		dial = WebsocketDialer(5 * time.Second)
	}
	conn, err := dial(ctx, endpoint)
	if err != nil {
		return err
	}
	defer conn.Close()

	if err := conn.WriteJSON(v); err != nil {
		return fmt.Errorf("write command: %w", err)
	}
	if ws, ok := conn.(*websocket.Conn); ok {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
	return nil
}

package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/gorilla/websocket"
)

// StreamMessage is one event from the alert stream.
type StreamMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Subscribe connects to the alert websocket stream and delivers each
// message to handle until the context is canceled or the connection
// drops.
func Subscribe(ctx context.Context, wsURL string, handle func(StreamMessage)) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to alert stream: %w", err)
	}

	go func() {
		<-ctx.Done()

		if err := conn.Close(); err != nil {
			log.Printf("Failed to close alert stream: %v", err)
		}
	}()

	for {
		var msg StreamMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("alert stream read failed: %w", err)
		}

		handle(msg)
	}
}

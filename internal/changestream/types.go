package changestream

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
)

// Config holds change stream configuration.
type Config struct {
	URL               string
	APIKey            string
	Channel           string
	PingInterval      time.Duration
	PingTimeout       time.Duration
	WriteTimeout      time.Duration
	BufferSize        int
	ReconnectBaseWait time.Duration
	ReconnectMaxWait  time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Channel:           "catalog_changes",
		PingInterval:      30 * time.Second,
		PingTimeout:       90 * time.Second,
		WriteTimeout:      5 * time.Second,
		BufferSize:        1000,
		ReconnectBaseWait: time.Second,
		ReconnectMaxWait:  time.Minute,
	}
}

// SubscribeCommand asks the server to stream a channel.
type SubscribeCommand struct {
	ID      string `json:"id"`
	Cmd     string `json:"cmd"`
	Channel string `json:"channel"`
}

// changeEvent is one catalog mutation message.
type changeEvent struct {
	Type    string  `json:"type"`
	ItemID  *int64  `json:"item_id"`
	ItemIDs []int64 `json:"item_ids"`
}

// parseEvent extracts changed item ids. Messages without ids return nil.
func parseEvent(data []byte) ([]int64, error) {
	var ev changeEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("decode change event: %w", err)
	}

	ids := ev.ItemIDs
	if ev.ItemID != nil {
		ids = append([]int64{*ev.ItemID}, ids...)
	}
	for _, id := range ids {
		if id <= 0 {
			return nil, fmt.Errorf("invalid item id %d", id)
		}
	}
	return ids, nil
}

package voice

import (
	"context"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
	zlog "github.com/rs/zerolog/log"
)

// Config holds virtual voice output configuration.
type Config struct {
	DefaultSpan time.Duration // Play time for tracks of unknown duration
	Tick        time.Duration // Timer resolution
}

// Connector hands out one ClockSink per session and reuses it on reconnect.
type Connector struct {
	mu     sync.Mutex
	sinks  map[snowflake.ID]*ClockSink
	config Config
}

// NewConnector creates a connector.
func NewConnector(config Config) *Connector {
	if config.DefaultSpan <= 0 {
		config.DefaultSpan = 240 * time.Second
	}
	if config.Tick <= 0 {
		config.Tick = 100 * time.Millisecond
	}
	return &Connector{
		sinks:  make(map[snowflake.ID]*ClockSink),
		config: config,
	}
}

// Connect returns the connected sink for a session.
func (c *Connector) Connect(ctx context.Context, sessionID snowflake.ID) (*ClockSink, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sink, ok := c.sinks[sessionID]
	if !ok {
		sink = &ClockSink{
			sessionID:   sessionID,
			defaultSpan: c.config.DefaultSpan,
			tick:        c.config.Tick,
		}
		c.sinks[sessionID] = sink
	}
	sink.mu.Lock()
	sink.connected = true
	sink.mu.Unlock()

	zlog.Debug().Msgf("voice: connected: session=%s", sessionID)
	return sink, nil
}

// Active returns the number of sessions with a connected sink.
func (c *Connector) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.sinks {
		if s.IsConnected() {
			n++
		}
	}
	return n
}

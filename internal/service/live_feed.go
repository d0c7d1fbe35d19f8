package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/observability"
)

const (
	liveFeedBufferSize = 16
	liveFeedKeepalive  = 30 * time.Second
)

// FeedConn is the subset of a websocket connection the live feed needs.
type FeedConn interface {
	ReadMessage() (int, []byte, error)
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// EventSink receives appointment events published on this node.
type EventSink interface {
	Deliver(event AppointmentEvent)
}

// LiveFeed streams appointment events to connected websocket clients.
// Students only see events about their own appointments; staff see all of them.
type LiveFeed interface {
	EventSink
	ServeConnection(conn FeedConn, principal auth.Principal)
	Start(ctx context.Context)
	Connections() int
}

type liveFeed struct {
	redis        *redis.Client
	redisChannel string
	logger       zerolog.Logger

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
}

type feedClient struct {
	conn      FeedConn
	principal auth.Principal
	send      chan AppointmentEvent
	closed    chan struct{}
	once      sync.Once
	feed      *liveFeed
}

// NewLiveFeed builds the feed. With a Redis client the feed follows the shared
// event channel so clients on every node see every transition.
func NewLiveFeed(redisClient *redis.Client, channelBase string, logger zerolog.Logger) LiveFeed {
	channelBase = strings.TrimSpace(channelBase)
	if channelBase == "" {
		channelBase = "counseling"
	}

	return &liveFeed{
		redis:        redisClient,
		redisChannel: channelBase + ":appointments",
		logger:       logger.With().Str("component", "live_feed").Logger(),
		clients:      make(map[*feedClient]struct{}),
	}
}

func (f *liveFeed) Start(ctx context.Context) {
	if f.redis == nil {
		return
	}
	go f.consumeRedis(ctx)
}

func (f *liveFeed) ServeConnection(conn FeedConn, principal auth.Principal) {
	client := &feedClient{
		conn:      conn,
		principal: principal,
		send:      make(chan AppointmentEvent, liveFeedBufferSize),
		closed:    make(chan struct{}),
		feed:      f,
	}

	f.register(client)
	go client.writer()
	client.reader()
}

func (f *liveFeed) Connections() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *liveFeed) Deliver(event AppointmentEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	for client := range f.clients {
		if !client.allowed(event) {
			continue
		}
		select {
		case client.send <- event:
		default:
			f.logger.Warn().
				Uint("user_id", client.principal.ID).
				Str("event", event.Type).
				Msg("dropping appointment event for slow client")
		}
	}
}

func (f *liveFeed) register(client *feedClient) {
	f.mu.Lock()
	f.clients[client] = struct{}{}
	count := len(f.clients)
	f.mu.Unlock()

	observability.LiveFeedConnections().Set(float64(count))
	f.logger.Debug().Uint("user_id", client.principal.ID).Str("role", client.principal.Role).Msg("live feed client connected")
}

func (f *liveFeed) unregister(client *feedClient) {
	f.mu.Lock()
	delete(f.clients, client)
	count := len(f.clients)
	f.mu.Unlock()

	observability.LiveFeedConnections().Set(float64(count))
	f.logger.Debug().Uint("user_id", client.principal.ID).Msg("live feed client disconnected")
}

func (f *liveFeed) consumeRedis(ctx context.Context) {
	pubsub := f.redis.Subscribe(ctx, f.redisChannel)
	defer func() {
		_ = pubsub.Close()
	}()

	for {
		msg, err := pubsub.ReceiveMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, redis.ErrClosed) {
				return
			}
			f.logger.Error().Err(err).Msg("live feed redis subscription closed")
			return
		}

		var event AppointmentEvent
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			f.logger.Warn().Err(err).Msg("invalid appointment event")
			continue
		}
		f.Deliver(event)
	}
}

func (c *feedClient) allowed(event AppointmentEvent) bool {
	if c.principal.IsStaff() {
		return true
	}
	return c.principal.IsStudent() && event.StudentID == c.principal.ID
}

// reader drains inbound frames so close and pong frames are processed.
func (c *feedClient) reader() {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *feedClient) writer() {
	defer c.close()
	ticker := time.NewTicker(liveFeedKeepalive)
	defer ticker.Stop()

	for {
		select {
		case event := <-c.send:
			if err := c.conn.WriteJSON(event); err != nil {
				c.feed.logger.Debug().Err(err).Msg("live feed write loop terminated")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *feedClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.feed.unregister(c)
		_ = c.conn.Close()
	})
}

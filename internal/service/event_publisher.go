package service

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/counseling-api/internal/dto"
	"github.com/noah-isme/counseling-api/internal/observability"
)

// AppointmentEvent is the payload fanned out after a committed transition.
type AppointmentEvent struct {
	Source        string    `json:"source"`
	Type          string    `json:"type"`
	AppointmentID uint      `json:"appointment_id"`
	StudentID     uint      `json:"student_id"`
	Status        string    `json:"status"`
	Version       int       `json:"version"`
	ActorID       uint      `json:"actor_id"`
	ActorRole     string    `json:"actor_role"`
	SentAt        time.Time `json:"sent_at"`
}

// EventPublisher broadcasts appointment lifecycle events.
type EventPublisher interface {
	Publish(ctx context.Context, transition string, appointment dto.AppointmentResponse, actorID uint, actorRole string)
}

type eventPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	sinks        []EventSink
	now          func() time.Time
	logger       zerolog.Logger
}

// NewEventPublisher publishes to Redis pub/sub and NATS. Either broker may be nil.
// Local sinks receive events directly only when Redis is absent; otherwise they
// are expected to follow the Redis channel.
func NewEventPublisher(redisClient *redis.Client, natsConn *nats.Conn, channelBase string, logger zerolog.Logger, sinks ...EventSink) EventPublisher {
	channelBase = strings.TrimSpace(channelBase)
	if channelBase == "" {
		channelBase = "counseling"
	}

	return &eventPublisher{
		redis:        redisClient,
		redisChannel: channelBase + ":appointments",
		nats:         natsConn,
		natsSubject:  strings.ReplaceAll(channelBase, ":", ".") + ".appointments",
		nodeID:       uuid.NewString(),
		sinks:        sinks,
		now:          time.Now,
		logger:       logger.With().Str("component", "event_publisher").Logger(),
	}
}

// Publish never fails the caller. Broker errors are logged and counted.
func (p *eventPublisher) Publish(ctx context.Context, transition string, appointment dto.AppointmentResponse, actorID uint, actorRole string) {
	if p.redis == nil && p.nats == nil && len(p.sinks) == 0 {
		return
	}

	event := AppointmentEvent{
		Source:        p.nodeID,
		Type:          "appointment." + transition,
		AppointmentID: appointment.ID,
		StudentID:     appointment.Student.ID,
		Status:        appointment.Status,
		Version:       appointment.Version,
		ActorID:       actorID,
		ActorRole:     actorRole,
		SentAt:        p.now().UTC(),
	}

	if p.redis == nil {
		for _, sink := range p.sinks {
			sink.Deliver(event)
		}
	}
	if p.redis == nil && p.nats == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Warn().Err(err).Msg("failed to encode appointment event")
		return
	}

	if p.redis != nil {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			observability.EventsPublished().WithLabelValues("redis", "error").Inc()
			p.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish appointment event to redis")
		} else {
			observability.EventsPublished().WithLabelValues("redis", "ok").Inc()
		}
	}

	if p.nats != nil {
		subject := p.natsSubject + "." + transition
		if err := p.nats.Publish(subject, payload); err != nil {
			observability.EventsPublished().WithLabelValues("nats", "error").Inc()
			p.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to publish appointment event to nats")
		} else {
			observability.EventsPublished().WithLabelValues("nats", "ok").Inc()
		}
	}
}

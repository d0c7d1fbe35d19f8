package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/counseling-api/internal/auth"
	"github.com/noah-isme/counseling-api/internal/dto"
)

func TestEventPublisherBroadcastsOnRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub := client.Subscribe(ctx, "school:appointments")
	t.Cleanup(func() { _ = sub.Close() })
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	publisher := NewEventPublisher(client, nil, "school", testLogger())
	publisher.Publish(ctx, transitionConfirm, dto.AppointmentResponse{
		ID:      42,
		Student: dto.AppointmentStudentSummary{ID: 7},
		Status:  "Confirmed",
		Version: 2,
	}, 3, auth.KindAdmin)

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)

	var event AppointmentEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	require.Equal(t, "appointment.confirmed", event.Type)
	require.Equal(t, uint(42), event.AppointmentID)
	require.Equal(t, uint(7), event.StudentID)
	require.Equal(t, "Confirmed", event.Status)
	require.Equal(t, 2, event.Version)
	require.Equal(t, uint(3), event.ActorID)
	require.Equal(t, auth.KindAdmin, event.ActorRole)
	require.NotEmpty(t, event.Source)
}

func TestEventPublisherSwallowsBrokerFailures(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	mr.Close()

	publisher := NewEventPublisher(client, nil, "", testLogger())
	require.NotPanics(t, func() {
		publisher.Publish(context.Background(), transitionCancel, dto.AppointmentResponse{ID: 1}, 1, auth.KindStudent)
	})
	require.Equal(t, "counseling:appointments", publisher.(*eventPublisher).redisChannel)
}

func TestEventPublisherWithoutBrokersIsNoop(t *testing.T) {
	publisher := NewEventPublisher(nil, nil, "counseling", testLogger())
	publisher.Publish(context.Background(), transitionStart, dto.AppointmentResponse{ID: 1}, 1, auth.KindAdmin)
}

type recordingSink struct {
	events []AppointmentEvent
}

func (s *recordingSink) Deliver(event AppointmentEvent) {
	s.events = append(s.events, event)
}

func TestEventPublisherDeliversLocallyWithoutRedis(t *testing.T) {
	sink := &recordingSink{}
	publisher := NewEventPublisher(nil, nil, "counseling", testLogger(), sink)
	publisher.Publish(context.Background(), transitionComplete, dto.AppointmentResponse{
		ID:      5,
		Student: dto.AppointmentStudentSummary{ID: 9},
		Status:  "Completed",
		Version: 4,
	}, 1, auth.KindAdmin)

	require.Len(t, sink.events, 1)
	require.Equal(t, "appointment.completed", sink.events[0].Type)
	require.Equal(t, uint(9), sink.events[0].StudentID)
}

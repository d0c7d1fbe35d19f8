package mailer

import (
	"bytes"
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestLogMailerMasksRecipient(t *testing.T) {
	var buf bytes.Buffer
	transport := NewLog(zerolog.New(&buf))

	err := transport.Send(context.Background(), Message{
		To:      "priya.sharma@example.com",
		Subject: "Appointment Confirmed",
		Text:    "See you tomorrow",
	})
	require.NoError(t, err)
	require.Contains(t, buf.String(), "p***@example.com")
	require.NotContains(t, buf.String(), "priya.sharma")
	require.NotContains(t, buf.String(), "See you tomorrow")
}

func TestLogMailerRejectsMissingRecipient(t *testing.T) {
	transport := NewLog(zerolog.Nop())
	require.Error(t, transport.Send(context.Background(), Message{Subject: "x"}))
}

func TestLogMailerHonoursCancelledContext(t *testing.T) {
	transport := NewLog(zerolog.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.ErrorIs(t, transport.Send(ctx, Message{To: "a@b.com"}), context.Canceled)
}

func TestNewSMTPValidatesConfig(t *testing.T) {
	_, err := NewSMTP(Config{}, zerolog.Nop())
	require.Error(t, err)

	_, err = NewSMTP(Config{Host: "smtp.example.com", Port: 587}, zerolog.Nop())
	require.Error(t, err)

	transport, err := NewSMTP(Config{Host: "smtp.example.com", Port: 587, From: "noreply@example.com", Username: "user", Password: "secret"}, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, "smtp", transport.Name())
}

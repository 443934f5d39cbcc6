package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/session-booking/internal/reminders"
	"github.com/wolfman30/session-booking/pkg/logging"
)

type stubSweeper struct {
	at     time.Time
	result reminders.Result
	err    error
}

func (s *stubSweeper) Sweep(ctx context.Context, now time.Time) (reminders.Result, error) {
	s.at = now
	return s.result, s.err
}

func newHandler(s *stubSweeper, now time.Time) *handler {
	return &handler{sweeper: s, now: func() time.Time { return now }, logger: logging.New("error")}
}

func TestHandleUsesEventTime(t *testing.T) {
	scheduled := time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)
	sweeper := &stubSweeper{result: reminders.Result{Scanned: 3, Sent24h: 1}}

	result, err := newHandler(sweeper, scheduled.Add(time.Minute)).handle(context.Background(), events.CloudWatchEvent{ID: "evt-1", Time: scheduled})
	require.NoError(t, err)
	assert.Equal(t, scheduled, sweeper.at)
	assert.Equal(t, 1, result.Sent())
}

func TestHandleFallsBackToClock(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 30, 0, 0, time.UTC)
	sweeper := &stubSweeper{}

	_, err := newHandler(sweeper, now).handle(context.Background(), events.CloudWatchEvent{})
	require.NoError(t, err)
	assert.Equal(t, now, sweeper.at)
}

func TestHandleMessagingDisabledIsNotAnError(t *testing.T) {
	sweeper := &stubSweeper{err: reminders.ErrMessagingDisabled}
	_, err := newHandler(sweeper, time.Now()).handle(context.Background(), events.CloudWatchEvent{})
	assert.NoError(t, err)
}

func TestHandlePropagatesFailures(t *testing.T) {
	boom := errors.New("settings unavailable")
	sweeper := &stubSweeper{err: boom}
	_, err := newHandler(sweeper, time.Now()).handle(context.Background(), events.CloudWatchEvent{})
	assert.ErrorIs(t, err, boom)
}

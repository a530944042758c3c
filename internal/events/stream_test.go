package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/models"
)

func TestStreamPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(mr.Addr(), "", 0)
	defer client.Close()

	p := NewStreamPublisher(client, "", 0)
	p.now = func() time.Time { return time.Unix(1700000000, 0) }
	require.NoError(t, p.Ping(context.Background()))

	ev := ReadingEvent{
		WorkspaceID: "ws-1",
		JobID:       "job-1",
		Reading:     models.Reading{ID: "r-1", SessionID: "s-1", Reading: models.ReadingValue{Value: 120}},
	}
	require.NoError(t, p.Publish(context.Background(), TypeReading, ev))

	entries, err := client.XRange(context.Background(), DefaultStream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, TypeReading, entries[0].Values["type"])
	assert.Equal(t, "1700000000", entries[0].Values["timestamp"])

	var got ReadingEvent
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["data"].(string)), &got))
	assert.Equal(t, "r-1", got.Reading.ID)
	assert.Equal(t, 120.0, got.Reading.Reading.Value)
}

func TestStreamPublisher_Down(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedisClient(mr.Addr(), "", 0)
	defer client.Close()
	mr.Close()

	p := NewStreamPublisher(client, "custom", 0)
	err := p.Publish(context.Background(), TypeReading, ReadingEvent{})
	assert.ErrorContains(t, err, "custom")
}

type failing struct{}

func (failing) Publish(context.Context, string, any) error { return errors.New("boom") }

func TestLogged_SwallowsErrors(t *testing.T) {
	l := Logged{Publisher: failing{}, Logger: zap.NewNop()}
	assert.NoError(t, l.Publish(context.Background(), TypeReading, nil))
	assert.NoError(t, Nop{}.Publish(context.Background(), TypeReading, nil))
}

package mqttble

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/measure/device"
)

// memBroker delivers messages synchronously to exact-topic subscribers
type memBroker struct {
	mu        sync.Mutex
	handlers  map[string]MessageHandler
	published []string
}

func newMemBroker() *memBroker {
	return &memBroker{handlers: make(map[string]MessageHandler)}
}

func (b *memBroker) Publish(topic string, payload []byte) error {
	b.mu.Lock()
	h := b.handlers[topic]
	b.published = append(b.published, topic)
	b.mu.Unlock()
	if h != nil {
		h(topic, payload)
	}
	return nil
}

func (b *memBroker) Subscribe(topic string, handler MessageHandler) error {
	b.mu.Lock()
	b.handlers[topic] = handler
	b.mu.Unlock()
	return nil
}

func (b *memBroker) Unsubscribe(topics ...string) error {
	b.mu.Lock()
	for _, t := range topics {
		delete(b.handlers, t)
	}
	b.mu.Unlock()
	return nil
}

func (b *memBroker) subscribed(topic string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.handlers[topic]
	return ok
}

func (b *memBroker) publishJSON(t *testing.T, topic string, v any) {
	body, err := json.Marshal(v)
	require.NoError(t, err)
	require.NoError(t, b.Publish(topic, body))
}

// gateway plays the phone app holding a DISTO
func gateway(t *testing.T, b *memBroker, scanError string) {
	leica := device.Protocols[0]
	b.Subscribe("measure/ble/scan/request", func(_ string, payload []byte) {
		var req scanRequest
		require.NoError(t, json.Unmarshal(payload, &req))
		reply := scanReply{DeviceID: "disto-9", Name: "DISTO X3", Error: scanError}
		b.publishJSON(t, "measure/ble/scan/reply/"+req.RequestID, reply)
	})
	b.Subscribe("measure/ble/disto-9/connect", func(string, []byte) {
		b.publishJSON(t, "measure/ble/disto-9/connected", connectReply{
			OK:   true,
			Name: "DISTO X3",
			Services: []device.Service{{
				UUID:            leica.ServiceUUID(),
				Characteristics: []string{leica.NotifyCharacteristic(), leica.CommandCharacteristic()},
			}},
		})
	})
	b.Subscribe("measure/ble/disto-9/write", func(_ string, payload []byte) {
		var w writeRequest
		require.NoError(t, json.Unmarshal(payload, &w))
		if string(w.Data) == "g" {
			b.Publish("measure/ble/disto-9/notify/"+leica.NotifyCharacteristic(), device.LeicaFrame(2))
		}
	})
}

func TestRequestDevice(t *testing.T) {
	b := newMemBroker()
	gateway(t, b, "")
	tr := NewTransport(b, "", time.Second, zap.NewNop())

	d, err := tr.RequestDevice(context.Background(), device.DefaultFilter())
	require.NoError(t, err)
	assert.Equal(t, device.Descriptor{ID: "disto-9", Name: "DISTO X3"}, d)

	for _, topic := range b.published {
		if strings.HasPrefix(topic, "measure/ble/scan/reply/") {
			assert.False(t, b.subscribed(topic), "reply topic released")
		}
	}
}

func TestRequestDevice_GatewayErrors(t *testing.T) {
	cases := map[string]error{
		"unavailable": device.ErrBluetoothUnavailable,
		"cancelled":   device.ErrNoDeviceSelected,
	}
	for code, want := range cases {
		t.Run(code, func(t *testing.T) {
			b := newMemBroker()
			gateway(t, b, code)
			tr := NewTransport(b, "", time.Second, zap.NewNop())

			_, err := tr.RequestDevice(context.Background(), device.DefaultFilter())
			assert.ErrorIs(t, err, want)
		})
	}
}

func TestRequestDevice_NoGateway(t *testing.T) {
	tr := NewTransport(newMemBroker(), "", 20*time.Millisecond, zap.NewNop())
	_, err := tr.RequestDevice(context.Background(), device.DefaultFilter())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLinkOverGateway(t *testing.T) {
	b := newMemBroker()
	gateway(t, b, "")
	link := device.NewLink(NewTransport(b, "", time.Second, zap.NewNop()), time.Second, zap.NewNop())

	_, err := link.Scan(context.Background())
	require.NoError(t, err)
	status, err := link.Connect(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Leica", status.Brand)
	assert.Equal(t, "DISTO X3", status.Name)

	m, err := link.Measure(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 6.5617, m.Distance, 1e-3)

	require.NoError(t, link.Disconnect())
	assert.False(t, b.subscribed("measure/ble/disto-9/state"))
	assert.Contains(t, b.published, "measure/ble/disto-9/disconnect")
}

func TestGatewayReportsDrop(t *testing.T) {
	b := newMemBroker()
	gateway(t, b, "")
	link := device.NewLink(NewTransport(b, "", time.Second, zap.NewNop()), time.Second, zap.NewNop())
	_, err := link.Connect(context.Background(), "disto-9")
	require.NoError(t, err)

	b.publishJSON(t, "measure/ble/disto-9/state", stateMessage{Connected: false})
	require.Eventually(t, func() bool { return !link.Connected() }, time.Second, time.Millisecond)

	_, err = link.Measure(context.Background())
	assert.ErrorIs(t, err, device.ErrDeviceNotConnected)
}

package mqttble

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/measure/device"
)

// DefaultPrefix is the topic root shared with the gateway app
const DefaultPrefix = "measure/ble"

// Gateway error codes carried in replies
const (
	codeUnavailable = "unavailable"
	codeCancelled   = "cancelled"
)

type scanRequest struct {
	RequestID    string   `json:"requestId"`
	NamePrefixes []string `json:"namePrefixes"`
	ServiceUUIDs []string `json:"serviceUuids"`
}

type scanReply struct {
	DeviceID string `json:"deviceId"`
	Name     string `json:"name"`
	Error    string `json:"error,omitempty"`
}

type connectRequest struct {
	RequestID string `json:"requestId"`
}

type connectReply struct {
	OK       bool             `json:"ok"`
	Name     string           `json:"name,omitempty"`
	Services []device.Service `json:"services"`
	Error    string           `json:"error,omitempty"`
}

type writeRequest struct {
	Characteristic string `json:"characteristic"`
	Data           []byte `json:"data"`
}

type stateMessage struct {
	Connected bool `json:"connected"`
}

// Transport implements device.Transport against a gateway on the broker
type Transport struct {
	broker  Broker
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// NewTransport creates a transport. timeout bounds gateway round trips when
// the caller's context has no deadline.
func NewTransport(broker Broker, prefix string, timeout time.Duration, logger *zap.Logger) *Transport {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Transport{broker: broker, prefix: prefix, timeout: timeout, logger: logger}
}

func (t *Transport) topic(parts ...string) string {
	s := t.prefix
	for _, p := range parts {
		s += "/" + p
	}
	return s
}

// roundTrip subscribes to replyTopic, publishes the request and waits for the
// first reply
func (t *Transport) roundTrip(ctx context.Context, replyTopic, requestTopic string, request any) ([]byte, error) {
	if _, ok := ctx.Deadline(); !ok && t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	replies := make(chan []byte, 1)
	if err := t.broker.Subscribe(replyTopic, func(_ string, payload []byte) {
		select {
		case replies <- payload:
		default:
		}
	}); err != nil {
		return nil, err
	}
	defer func() {
		if err := t.broker.Unsubscribe(replyTopic); err != nil {
			t.logger.Warn("Failed to unsubscribe reply topic", zap.String("topic", replyTopic), zap.Error(err))
		}
	}()

	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to encode gateway request: %w", err)
	}
	if err := t.broker.Publish(requestTopic, body); err != nil {
		return nil, err
	}

	select {
	case payload := <-replies:
		return payload, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("gateway did not answer on %s: %w", replyTopic, ctx.Err())
	}
}

// RequestDevice implements device.Transport
func (t *Transport) RequestDevice(ctx context.Context, filter device.Filter) (device.Descriptor, error) {
	req := scanRequest{
		RequestID:    uuid.NewString(),
		NamePrefixes: filter.NamePrefixes,
		ServiceUUIDs: filter.ServiceUUIDs,
	}

	payload, err := t.roundTrip(ctx, t.topic("scan", "reply", req.RequestID), t.topic("scan", "request"), req)
	if err != nil {
		return device.Descriptor{}, err
	}

	var reply scanReply
	if err := json.Unmarshal(payload, &reply); err != nil {
		return device.Descriptor{}, fmt.Errorf("failed to decode scan reply: %w", err)
	}
	switch reply.Error {
	case "":
	case codeUnavailable:
		return device.Descriptor{}, device.ErrBluetoothUnavailable
	case codeCancelled:
		return device.Descriptor{}, device.ErrNoDeviceSelected
	default:
		return device.Descriptor{}, fmt.Errorf("gateway scan failed: %s", reply.Error)
	}
	if reply.DeviceID == "" {
		return device.Descriptor{}, device.ErrNoDeviceSelected
	}
	return device.Descriptor{ID: reply.DeviceID, Name: reply.Name}, nil
}

// Connect implements device.Transport
func (t *Transport) Connect(ctx context.Context, deviceID string) (device.GATT, error) {
	g := &gatt{
		t:    t,
		desc: device.Descriptor{ID: deviceID},
		subs: make(map[string]map[int]func([]byte)),
		done: make(chan struct{}),
	}

	// state is watched before connecting so an immediate drop is not missed
	stateTopic := t.topic(deviceID, "state")
	if err := t.broker.Subscribe(stateTopic, g.onState); err != nil {
		return nil, err
	}

	payload, err := t.roundTrip(ctx, t.topic(deviceID, "connected"), t.topic(deviceID, "connect"), connectRequest{RequestID: uuid.NewString()})
	if err == nil {
		var reply connectReply
		if err = json.Unmarshal(payload, &reply); err != nil {
			err = fmt.Errorf("failed to decode connect reply: %w", err)
		} else if !reply.OK {
			err = fmt.Errorf("gateway refused connection: %s", reply.Error)
		} else {
			g.services = reply.Services
			g.desc.Name = reply.Name
		}
	}
	if err != nil {
		t.broker.Unsubscribe(stateTopic)
		return nil, err
	}

	t.logger.Debug("Gateway connection open", zap.String("device_id", deviceID), zap.Int("services", len(g.services)))
	return g, nil
}

// gatt is one gateway-relayed connection
type gatt struct {
	t        *Transport
	desc     device.Descriptor
	services []device.Service

	mu      sync.Mutex
	subs    map[string]map[int]func([]byte)
	nextSub int
	done    chan struct{}
	closed  bool
}

func (g *gatt) Device() device.Descriptor { return g.desc }

func (g *gatt) Services(ctx context.Context) ([]device.Service, error) {
	return g.services, nil
}

func (g *gatt) Write(ctx context.Context, characteristic string, data []byte) error {
	g.mu.Lock()
	closed := g.closed
	g.mu.Unlock()
	if closed {
		return device.ErrDeviceNotConnected
	}

	body, err := json.Marshal(writeRequest{Characteristic: characteristic, Data: data})
	if err != nil {
		return fmt.Errorf("failed to encode write: %w", err)
	}
	return g.t.broker.Publish(g.t.topic(g.desc.ID, "write"), body)
}

func (g *gatt) Subscribe(characteristic string, fn func([]byte)) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.closed {
		return nil, device.ErrDeviceNotConnected
	}

	if g.subs[characteristic] == nil {
		topic := g.t.topic(g.desc.ID, "notify", characteristic)
		if err := g.t.broker.Subscribe(topic, func(_ string, payload []byte) {
			g.notify(characteristic, payload)
		}); err != nil {
			return nil, err
		}
		g.subs[characteristic] = make(map[int]func([]byte))
	}

	id := g.nextSub
	g.nextSub++
	g.subs[characteristic][id] = fn

	return func() {
		g.mu.Lock()
		defer g.mu.Unlock()
		delete(g.subs[characteristic], id)
	}, nil
}

func (g *gatt) notify(characteristic string, payload []byte) {
	g.mu.Lock()
	fns := make([]func([]byte), 0, len(g.subs[characteristic]))
	for _, fn := range g.subs[characteristic] {
		fns = append(fns, fn)
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(payload)
	}
}

func (g *gatt) onState(_ string, payload []byte) {
	var state stateMessage
	if err := json.Unmarshal(payload, &state); err != nil {
		g.t.logger.Debug("Ignoring malformed state message", zap.Error(err))
		return
	}
	if !state.Connected {
		// paho handlers must not block on broker tokens
		go g.shutdown()
	}
}

func (g *gatt) Done() <-chan struct{} { return g.done }

// Close asks the gateway to disconnect. Closing twice is a no-op.
func (g *gatt) Close() error {
	if !g.shutdown() {
		return nil
	}
	return g.t.broker.Publish(g.t.topic(g.desc.ID, "disconnect"), []byte("{}"))
}

// shutdown releases broker subscriptions and reports whether this call did it
func (g *gatt) shutdown() bool {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return false
	}
	g.closed = true
	topics := []string{g.t.topic(g.desc.ID, "state")}
	for characteristic := range g.subs {
		topics = append(topics, g.t.topic(g.desc.ID, "notify", characteristic))
	}
	g.subs = make(map[string]map[int]func([]byte))
	close(g.done)
	g.mu.Unlock()

	if err := g.t.broker.Unsubscribe(topics...); err != nil {
		g.t.logger.Warn("Failed to release gateway topics", zap.String("device_id", g.desc.ID), zap.Error(err))
	}
	return true
}

// Package devicetest provides an in-memory BLE transport for tests.
package devicetest

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/floorpro/measure-backend-go/internal/measure/device"
)

// Transport is a fake host BLE stack exposing a single device
type Transport struct {
	Descriptor device.Descriptor
	Services   []device.Service
	ScanErr    error
	ConnectErr error

	mu   sync.Mutex
	gatt *GATT
}

// NewLeica returns a transport whose only device speaks the DISTO protocol
func NewLeica(id string) *Transport {
	p := device.Protocols[0]
	return &Transport{
		Descriptor: device.Descriptor{ID: id, Name: "DISTO D2"},
		Services: []device.Service{{
			UUID:            p.ServiceUUID(),
			Characteristics: []string{p.NotifyCharacteristic(), p.CommandCharacteristic()},
		}},
	}
}

// RequestDevice implements device.Transport
func (t *Transport) RequestDevice(ctx context.Context, filter device.Filter) (device.Descriptor, error) {
	if t.ScanErr != nil {
		return device.Descriptor{}, t.ScanErr
	}
	return t.Descriptor, nil
}

// Connect implements device.Transport
func (t *Transport) Connect(ctx context.Context, deviceID string) (device.GATT, error) {
	if t.ConnectErr != nil {
		return nil, t.ConnectErr
	}
	if deviceID != t.Descriptor.ID {
		return nil, errors.New("device not in range")
	}

	g := &GATT{
		desc:     t.Descriptor,
		services: t.Services,
		subs:     make(map[string]map[int]func([]byte)),
		done:     make(chan struct{}),
	}
	t.mu.Lock()
	t.gatt = g
	t.mu.Unlock()
	return g, nil
}

// GATT returns the most recent connection
func (t *Transport) GATT() *GATT {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.gatt
}

// GATT is a fake connection. Frames are pushed with Emit.
type GATT struct {
	desc     device.Descriptor
	services []device.Service

	mu        sync.Mutex
	subs      map[string]map[int]func([]byte)
	nextSub   int
	writes    [][]byte
	trigger   []byte
	onTrigger func() []byte
	done      chan struct{}
	closed    bool
}

// Device implements device.GATT
func (g *GATT) Device() device.Descriptor { return g.desc }

// Services implements device.GATT
func (g *GATT) Services(ctx context.Context) ([]device.Service, error) {
	return g.services, nil
}

// RespondTo makes writes equal to trigger answer with the frame fn returns.
// A nil frame means the device stays silent.
func (g *GATT) RespondTo(trigger []byte, fn func() []byte) {
	g.mu.Lock()
	g.trigger = append([]byte(nil), trigger...)
	g.onTrigger = fn
	g.mu.Unlock()
}

// Write implements device.GATT
func (g *GATT) Write(ctx context.Context, characteristic string, data []byte) error {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return errors.New("not connected")
	}
	g.writes = append(g.writes, append([]byte(nil), data...))
	var respond func() []byte
	if bytes.Equal(data, g.trigger) {
		respond = g.onTrigger
	}
	g.mu.Unlock()

	if respond != nil {
		if frame := respond(); frame != nil {
			go g.EmitAll(frame)
		}
	}
	return nil
}

// Writes returns every payload written so far
func (g *GATT) Writes() [][]byte {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([][]byte(nil), g.writes...)
}

// Subscribe implements device.GATT
func (g *GATT) Subscribe(characteristic string, fn func([]byte)) (func(), error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.subs[characteristic] == nil {
		g.subs[characteristic] = make(map[int]func([]byte))
	}
	id := g.nextSub
	g.nextSub++
	g.subs[characteristic][id] = fn

	return func() {
		g.mu.Lock()
		delete(g.subs[characteristic], id)
		g.mu.Unlock()
	}, nil
}

// EmitAll sends a notification on every subscribed characteristic
func (g *GATT) EmitAll(frame []byte) {
	g.mu.Lock()
	var fns []func([]byte)
	for _, subs := range g.subs {
		for _, fn := range subs {
			fns = append(fns, fn)
		}
	}
	g.mu.Unlock()

	for _, fn := range fns {
		fn(frame)
	}
}

// Subscribers counts active notification handlers
func (g *GATT) Subscribers() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, subs := range g.subs {
		n += len(subs)
	}
	return n
}

// Drop simulates the device going out of range
func (g *GATT) Drop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		g.closed = true
		close(g.done)
	}
}

// Done implements device.GATT
func (g *GATT) Done() <-chan struct{} { return g.done }

// Close implements device.GATT
func (g *GATT) Close() error {
	g.Drop()
	return nil
}

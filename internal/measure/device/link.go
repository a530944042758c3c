package device

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/floorpro/measure-backend-go/internal/models"
)

// Measurement is one distance reported by the device, in the link's unit
type Measurement struct {
	Distance       float64   `json:"distance"`
	Unit           Unit      `json:"unit"`
	TiltX          *float64  `json:"tiltX,omitempty"`
	SignalStrength *int      `json:"signalStrength,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

// Status is the observable state of a link
type Status struct {
	Connected    bool                `json:"connected"`
	DeviceID     string              `json:"deviceId,omitempty"`
	Name         string              `json:"name,omitempty"`
	Brand        string              `json:"brand,omitempty"`
	Unit         Unit                `json:"unit"`
	Continuous   bool                `json:"continuous"`
	Capabilities models.Capabilities `json:"capabilities"`
}

// subscription guards a continuous callback so that once stop returns the
// callback can no longer run. Callbacks must not stop their own subscription.
type subscription struct {
	mu      sync.Mutex
	cb      func(Measurement)
	stopped bool
}

func (s *subscription) deliver(m Measurement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.stopped {
		s.cb(m)
	}
}

func (s *subscription) stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
}

// Link manages one connection to a laser device. Reconnection after a drop
// is never automatic; callers watch Status and call Connect again.
type Link struct {
	transport Transport
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time

	mu          sync.Mutex
	scanned     Descriptor
	gatt        GATT
	proto       Protocol
	unsubscribe func()
	closed      chan struct{}
	unit        Unit
	continuous  *subscription
	waiters     []chan Measurement
}

// NewLink creates a link. timeout bounds Measure when the caller's context has
// no deadline of its own.
func NewLink(transport Transport, timeout time.Duration, logger *zap.Logger) *Link {
	return &Link{
		transport: transport,
		logger:    logger,
		timeout:   timeout,
		now:       time.Now,
		unit:      DefaultUnit,
	}
}

// Scan asks the host to discover a supported laser. The operator picks at
// most one device.
func (l *Link) Scan(ctx context.Context) (Descriptor, error) {
	d, err := l.transport.RequestDevice(ctx, DefaultFilter())
	if err != nil {
		return Descriptor{}, err
	}

	l.mu.Lock()
	l.scanned = d
	l.mu.Unlock()

	l.logger.Info("Laser device selected", zap.String("device_id", d.ID), zap.String("name", d.Name))
	return d, nil
}

// Connect opens a GATT session. An empty deviceID reuses the last scanned
// device. Failures wrap ErrConnectionFailed and are not retried.
func (l *Link) Connect(ctx context.Context, deviceID string) (Status, error) {
	l.mu.Lock()
	if deviceID == "" {
		deviceID = l.scanned.ID
	}
	l.mu.Unlock()
	if deviceID == "" {
		return Status{}, ErrNoDeviceSelected
	}

	if err := l.Disconnect(); err != nil {
		return Status{}, err
	}

	gatt, err := l.transport.Connect(ctx, deviceID)
	if err != nil {
		return Status{}, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	proto, err := l.resolve(ctx, gatt)
	if err != nil {
		gatt.Close()
		return Status{}, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	unsubscribe, err := gatt.Subscribe(proto.NotifyCharacteristic(), l.onFrame)
	if err != nil {
		gatt.Close()
		return Status{}, fmt.Errorf("%w: subscribe: %v", ErrConnectionFailed, err)
	}

	if init := proto.InitCommand(); init != nil {
		if err := gatt.Write(ctx, proto.CommandCharacteristic(), init); err != nil {
			unsubscribe()
			gatt.Close()
			return Status{}, fmt.Errorf("%w: init: %v", ErrConnectionFailed, err)
		}
	}

	l.mu.Lock()
	l.gatt = gatt
	l.proto = proto
	l.unsubscribe = unsubscribe
	l.closed = make(chan struct{})
	closed := l.closed
	unit := l.unit
	l.mu.Unlock()

	if cmd := proto.UnitCommand(unit); cmd != nil {
		if err := gatt.Write(ctx, proto.CommandCharacteristic(), cmd); err != nil {
			l.logger.Warn("Failed to set device unit", zap.String("unit", string(unit)), zap.Error(err))
		}
	}

	go l.watch(gatt, closed)

	l.logger.Info("Laser connected",
		zap.String("device_id", gatt.Device().ID),
		zap.String("brand", proto.Brand()),
	)
	return l.Status(), nil
}

func (l *Link) resolve(ctx context.Context, gatt GATT) (Protocol, error) {
	services, err := gatt.Services(ctx)
	if err != nil {
		return nil, fmt.Errorf("service discovery: %v", err)
	}
	proto, ok := ProtocolFor(services)
	if !ok {
		return nil, ErrUnsupportedDevice
	}
	return proto, nil
}

// watch marks the link disconnected when the device drops on its own
func (l *Link) watch(gatt GATT, closed chan struct{}) {
	select {
	case <-gatt.Done():
	case <-closed:
		return
	}

	l.mu.Lock()
	if l.gatt != gatt {
		l.mu.Unlock()
		return
	}
	l.logger.Warn("Laser connection dropped", zap.String("device_id", gatt.Device().ID))
	l.teardownLocked()
	l.mu.Unlock()
}

// Disconnect closes the GATT session. Calling it when already disconnected is a no-op.
func (l *Link) Disconnect() error {
	l.mu.Lock()
	gatt := l.gatt
	if gatt == nil {
		l.mu.Unlock()
		return nil
	}
	l.teardownLocked()
	l.mu.Unlock()

	if err := gatt.Close(); err != nil {
		l.logger.Warn("Error closing laser connection", zap.Error(err))
	}
	l.logger.Info("Laser disconnected", zap.String("device_id", gatt.Device().ID))
	return nil
}

func (l *Link) teardownLocked() {
	if l.continuous != nil {
		l.continuous.stop()
		l.continuous = nil
	}
	if l.unsubscribe != nil {
		l.unsubscribe()
		l.unsubscribe = nil
	}
	if l.closed != nil {
		close(l.closed)
		l.closed = nil
	}
	l.gatt = nil
	l.proto = nil
	l.waiters = nil
}

// Connected reports whether a GATT session is open
func (l *Link) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.gatt != nil
}

// Status returns a snapshot of the link state
func (l *Link) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Status{Unit: l.unit, Continuous: l.continuous != nil}
	if l.gatt != nil {
		d := l.gatt.Device()
		s.Connected = true
		s.DeviceID = d.ID
		s.Name = d.Name
		s.Brand = l.proto.Brand()
		s.Capabilities = l.proto.Capabilities()
	}
	return s
}

// SetUnit configures the unit measurements are reported in and, when the
// device supports it, its display unit.
func (l *Link) SetUnit(ctx context.Context, unit Unit) error {
	if _, err := ParseUnit(string(unit)); err != nil {
		return err
	}

	l.mu.Lock()
	l.unit = unit
	gatt, proto := l.gatt, l.proto
	l.mu.Unlock()

	if gatt == nil {
		return nil
	}
	if cmd := proto.UnitCommand(unit); cmd != nil {
		if err := gatt.Write(ctx, proto.CommandCharacteristic(), cmd); err != nil {
			return fmt.Errorf("failed to set device unit: %w", err)
		}
	}
	return nil
}

// Measure triggers a single shot and waits for the result. It returns early
// when ctx is cancelled or the link is torn down.
func (l *Link) Measure(ctx context.Context) (Measurement, error) {
	l.mu.Lock()
	gatt, proto, closed := l.gatt, l.proto, l.closed
	if gatt == nil {
		l.mu.Unlock()
		return Measurement{}, ErrDeviceNotConnected
	}
	ch := make(chan Measurement, 1)
	l.waiters = append(l.waiters, ch)
	l.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok && l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if err := gatt.Write(ctx, proto.CommandCharacteristic(), proto.TriggerCommand()); err != nil {
		l.dropWaiter(ch)
		return Measurement{}, fmt.Errorf("failed to trigger measurement: %w", err)
	}

	select {
	case m := <-ch:
		return m, nil
	case <-closed:
		return Measurement{}, ErrDeviceNotConnected
	case <-ctx.Done():
		l.dropWaiter(ch)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return Measurement{}, ErrMeasureTimeout
		}
		return Measurement{}, ctx.Err()
	}
}

func (l *Link) dropWaiter(ch chan Measurement) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, w := range l.waiters {
		if w == ch {
			l.waiters = append(l.waiters[:i], l.waiters[i+1:]...)
			return
		}
	}
}

// Stream is one continuous subscription. Stopping it never affects a
// stream started later by someone else.
type Stream struct {
	link *Link
	sub  *subscription
}

// Stop ends this stream. When it returns the callback will not run again.
// Stopping twice is a no-op.
func (st *Stream) Stop() {
	l := st.link
	l.mu.Lock()
	owned := l.continuous == st.sub
	if owned {
		l.continuous = nil
	}
	l.mu.Unlock()

	st.sub.stop()
	if owned {
		l.logger.Debug("Continuous measurement stopped")
	}
}

// Active reports whether the stream still delivers. A disconnect ends it.
func (st *Stream) Active() bool {
	st.link.mu.Lock()
	defer st.link.mu.Unlock()
	return st.link.continuous == st.sub
}

// Stream starts an owned continuous subscription delivering every
// measurement to cb. Only one stream may run per link; a second start fails
// with ErrContinuousActive.
func (l *Link) Stream(cb func(Measurement)) (*Stream, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.gatt == nil {
		return nil, ErrDeviceNotConnected
	}
	if l.continuous != nil {
		return nil, ErrContinuousActive
	}
	l.continuous = &subscription{cb: cb}
	l.logger.Debug("Continuous measurement started")
	return &Stream{link: l, sub: l.continuous}, nil
}

// StartContinuous streams every measurement to cb until StopContinuous.
func (l *Link) StartContinuous(cb func(Measurement)) error {
	_, err := l.Stream(cb)
	return err
}

// StopContinuous ends whichever stream is running. When it returns the
// callback will not run again. Stopping an idle link is a no-op.
func (l *Link) StopContinuous() {
	l.mu.Lock()
	sub := l.continuous
	l.continuous = nil
	l.mu.Unlock()

	if sub != nil {
		sub.stop()
		l.logger.Debug("Continuous measurement stopped")
	}
}

// onFrame receives raw notifications. Pending single shots take precedence
// over the continuous stream so one frame is never delivered twice.
func (l *Link) onFrame(raw []byte) {
	l.mu.Lock()
	proto := l.proto
	unit := l.unit
	l.mu.Unlock()
	if proto == nil {
		return
	}

	frame, ok := proto.Decode(raw)
	if !ok {
		l.logger.Debug("Ignoring unrecognized frame", zap.Int("size", len(raw)))
		return
	}
	distance, err := FromMeters(frame.Meters, unit)
	if err != nil {
		return
	}
	m := Measurement{
		Distance:       distance,
		Unit:           unit,
		TiltX:          frame.TiltX,
		SignalStrength: frame.Signal,
		Timestamp:      l.now(),
	}

	l.mu.Lock()
	waiters := l.waiters
	l.waiters = nil
	sub := l.continuous
	l.mu.Unlock()

	if len(waiters) > 0 {
		for _, w := range waiters {
			w <- m
		}
		return
	}
	if sub != nil {
		sub.deliver(m)
	}
}

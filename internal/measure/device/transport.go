// Package device talks to Bluetooth LE laser rangefinders. The host BLE stack
// is reached through a Transport; vendor framing is hidden behind Protocol so
// callers only ever see Measurement values.
package device

import (
	"context"
	"errors"
)

var (
	ErrBluetoothUnavailable = errors.New("bluetooth is not available on this host")
	ErrNoDeviceSelected     = errors.New("no device was selected")
	ErrConnectionFailed     = errors.New("could not connect to the laser, check that it is on and paired, then try again")
	ErrDeviceNotConnected   = errors.New("laser is not connected, reconnect it and try again")
	ErrContinuousActive     = errors.New("continuous measurement is already running")
	ErrMeasureTimeout       = errors.New("laser did not respond, press the measure button or retry")
	ErrUnsupportedDevice    = errors.New("device does not expose a supported laser service")
	ErrUnsupportedUnit      = errors.New("unsupported unit")
)

// Filter narrows device discovery
type Filter struct {
	NamePrefixes []string `json:"namePrefixes"`
	ServiceUUIDs []string `json:"serviceUuids"`
}

// Descriptor identifies a discovered device
type Descriptor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Service is a discovered GATT service and its characteristic uuids
type Service struct {
	UUID            string   `json:"uuid"`
	Characteristics []string `json:"characteristics"`
}

// Transport is the host BLE primitive: request a device, then connect to it.
// RequestDevice returns ErrBluetoothUnavailable or ErrNoDeviceSelected when
// the host has no radio or the operator cancels the picker.
type Transport interface {
	RequestDevice(ctx context.Context, filter Filter) (Descriptor, error)
	Connect(ctx context.Context, deviceID string) (GATT, error)
}

// GATT is an open connection to one device
type GATT interface {
	Device() Descriptor
	Services(ctx context.Context) ([]Service, error)
	Write(ctx context.Context, characteristic string, data []byte) error
	// Subscribe registers fn for notifications; the returned func unsubscribes
	Subscribe(characteristic string, fn func([]byte)) (func(), error)
	// Done is closed when the connection drops or is closed
	Done() <-chan struct{}
	Close() error
}

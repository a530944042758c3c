package models

import "time"

// BLEInfo identifies a device on the Bluetooth LE side
type BLEInfo struct {
	DeviceID            string   `json:"deviceId"`
	ServiceUUIDs        []string `json:"serviceUuids"`
	CharacteristicUUIDs []string `json:"characteristicUuids"`
}

// Capabilities advertised by a laser device
type Capabilities struct {
	SingleShot   bool `json:"singleShot"`
	Continuous   bool `json:"continuous"`
	TiltAngle    bool `json:"tiltAngle"`
	AreaOnDevice bool `json:"areaOnDevice"`
}

// Device is a laser rangefinder paired to a workspace
type Device struct {
	ID           string       `json:"id"`
	WorkspaceID  string       `json:"workspaceId"`
	Name         string       `json:"name"`
	Brand        string       `json:"brand"`
	Model        string       `json:"model"`
	Protocol     string       `json:"protocol"` // always "ble"
	BLE          BLEInfo      `json:"ble"`
	Capabilities Capabilities `json:"capabilities"`
	Status       string       `json:"status"` // active, disabled
	LastSeenAt   *time.Time   `json:"lastSeenAt,omitempty"`
	CreatedAt    time.Time    `json:"createdAt"`
}

// Device status values
const (
	DeviceActive   = "active"
	DeviceDisabled = "disabled"
)

// ProtocolBLE is the only supported device protocol
const ProtocolBLE = "ble"

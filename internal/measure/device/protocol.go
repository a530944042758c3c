package device

import (
	"encoding/binary"
	"math"
	"strings"

	"github.com/floorpro/measure-backend-go/internal/models"
)

// Frame is one decoded vendor notification
type Frame struct {
	Meters float64
	TiltX  *float64
	Signal *int
}

// Protocol hides one vendor's GATT layout and framing
type Protocol interface {
	Brand() string
	ServiceUUID() string
	NotifyCharacteristic() string
	CommandCharacteristic() string
	// InitCommand is written once after connecting; nil means none
	InitCommand() []byte
	TriggerCommand() []byte
	// UnitCommand returns nil when the device keeps its own display unit
	UnitCommand(unit Unit) []byte
	Decode(frame []byte) (Frame, bool)
	Capabilities() models.Capabilities
}

// Protocols lists every supported vendor
var Protocols = []Protocol{leica{}, bosch{}}

// DefaultFilter matches every supported vendor by name and service
func DefaultFilter() Filter {
	f := Filter{NamePrefixes: []string{"DISTO", "GLM", "PLR", "Bosch"}}
	for _, p := range Protocols {
		f.ServiceUUIDs = append(f.ServiceUUIDs, p.ServiceUUID())
	}
	return f
}

// ProtocolFor picks the protocol whose service the device exposes
func ProtocolFor(services []Service) (Protocol, bool) {
	for _, p := range Protocols {
		for _, s := range services {
			if strings.EqualFold(s.UUID, p.ServiceUUID()) {
				return p, true
			}
		}
	}
	return nil, false
}

// leica covers DISTO devices: distance notifications are a little-endian
// float32 in meters, optionally followed by a float32 tilt in degrees.
type leica struct{}

func (leica) Brand() string                 { return "Leica" }
func (leica) ServiceUUID() string           { return "3ab10100-f831-4395-b29d-570977d5bf94" }
func (leica) NotifyCharacteristic() string  { return "3ab10101-f831-4395-b29d-570977d5bf94" }
func (leica) CommandCharacteristic() string { return "3ab10109-f831-4395-b29d-570977d5bf94" }
func (leica) InitCommand() []byte           { return nil }
func (leica) TriggerCommand() []byte        { return []byte("g") }

func (leica) UnitCommand(unit Unit) []byte {
	codes := map[Unit]string{Meters: "u0", Feet: "u6", Inches: "u8", Millimeters: "u2", Centimeters: "u1"}
	if c, ok := codes[unit]; ok {
		return []byte(c)
	}
	return nil
}

func (leica) Decode(frame []byte) (Frame, bool) {
	if len(frame) < 4 {
		return Frame{}, false
	}
	f := Frame{Meters: float64(math.Float32frombits(binary.LittleEndian.Uint32(frame[0:4])))}
	if len(frame) >= 8 {
		tilt := float64(math.Float32frombits(binary.LittleEndian.Uint32(frame[4:8])))
		f.TiltX = &tilt
	}
	return f, !math.IsNaN(f.Meters) && f.Meters >= 0
}

func (leica) Capabilities() models.Capabilities {
	return models.Capabilities{SingleShot: true, Continuous: true, TiltAngle: true}
}

// bosch covers GLM/PLR devices speaking the MT protocol: frames start with
// C0 55 10, the distance is a little-endian float32 in meters at offset 7.
type bosch struct{}

func (bosch) Brand() string                 { return "Bosch" }
func (bosch) ServiceUUID() string           { return "02a6c0d0-0451-4000-b000-fb3210111989" }
func (bosch) NotifyCharacteristic() string  { return "02a6c0d1-0451-4000-b000-fb3210111989" }
func (bosch) CommandCharacteristic() string { return "02a6c0d1-0451-4000-b000-fb3210111989" }
func (bosch) InitCommand() []byte           { return []byte{0xC0, 0x55, 0x02, 0x01, 0x00, 0x1A} }
func (bosch) TriggerCommand() []byte        { return []byte{0xC0, 0x40, 0x00, 0xEE} }
func (bosch) UnitCommand(Unit) []byte       { return nil }

func (bosch) Decode(frame []byte) (Frame, bool) {
	if len(frame) < 11 || frame[0] != 0xC0 || frame[1] != 0x55 || frame[2] != 0x10 {
		return Frame{}, false
	}
	m := float64(math.Float32frombits(binary.LittleEndian.Uint32(frame[7:11])))
	if math.IsNaN(m) || m < 0 {
		return Frame{}, false
	}
	return Frame{Meters: m}, true
}

func (bosch) Capabilities() models.Capabilities {
	return models.Capabilities{SingleShot: true, Continuous: true}
}

// LeicaFrame encodes a DISTO distance notification
func LeicaFrame(meters float64) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, math.Float32bits(float32(meters)))
	return b
}

// BoschFrame encodes a GLM distance notification
func BoschFrame(meters float64) []byte {
	b := []byte{0xC0, 0x55, 0x10, 0x06, 0x00, 0x00, 0x00, 0, 0, 0, 0, 0x00}
	binary.LittleEndian.PutUint32(b[7:11], math.Float32bits(float32(meters)))
	return b
}

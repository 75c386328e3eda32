package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrPortOutOfRange means the requested index is not a port of the device.
var ErrPortOutOfRange = errors.New("port out of range")

// PortState is the single-character status code of one port.
type PortState string

const (
	PortIdle  PortState = "0"
	PortInUse PortState = "1"
	PortFault PortState = "3"
)

// Label returns a human readable status.
func (p PortState) Label() string {
	switch p {
	case PortIdle:
		return "idle"
	case PortInUse:
		return "in use"
	case PortFault:
		return "fault"
	default:
		return "unknown"
	}
}

// OptionalNumber is a numeric field the server may omit, send as null, as ""
// or as a number in either JSON or string form.
type OptionalNumber struct {
	value string
	set   bool
}

// NewOptionalNumber returns a present value.
func NewOptionalNumber(v json.Number) OptionalNumber {
	return OptionalNumber{value: v.String(), set: true}
}

// Get returns the number text and whether it was present.
func (o OptionalNumber) Get() (string, bool) {
	return o.value, o.set
}

// Or returns the number text, or fallback when absent.
func (o OptionalNumber) Or(fallback int64) string {
	if o.set {
		return o.value
	}
	return fmt.Sprint(fallback)
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*o = OptionalNumber{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) || bytes.Equal(data, []byte(`""`)) {
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("optional number %s: %w", data, err)
	}
	*o = NewOptionalNumber(n)
	return nil
}

// DeviceInfo is the obj of /wxn/getDeviceInfo.
type DeviceInfo struct {
	DevDescript   string         `json:"devdescript"`
	WorkTime      string         `json:"workTime"`
	PortStatus    string         `json:"portstatur"`
	DevTypeID     OptionalNumber `json:"devtypeid"`
	SafeCharge    OptionalNumber `json:"safeCharge"`
	Efee          OptionalNumber `json:"efee"`
	ECharge       OptionalNumber `json:"eCharge"`
	ServiceCharge OptionalNumber `json:"serviceCharge"`
}

// Ports splits the status string into per-port states.
func (d *DeviceInfo) Ports() []PortState {
	ports := make([]PortState, 0, len(d.PortStatus))
	for i := 0; i < len(d.PortStatus); i++ {
		ports = append(ports, PortState(d.PortStatus[i:i+1]))
	}
	return ports
}

// PortAt returns the state of port i.
func (d *DeviceInfo) PortAt(i int) (PortState, error) {
	if i < 0 || i >= len(d.PortStatus) {
		return "", fmt.Errorf("%w: index %d, device has %d ports", ErrPortOutOfRange, i, len(d.PortStatus))
	}
	return PortState(d.PortStatus[i : i+1]), nil
}

// Chargeable reports whether port i exists and is idle.
func (d *DeviceInfo) Chargeable(i int) bool {
	state, err := d.PortAt(i)
	return err == nil && state == PortIdle
}

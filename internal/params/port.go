package params

import "fmt"

// PortType selects the variant payload of an AudioPortParm.
type PortType uint8

const (
	PortTypeUSBDevice PortType = 1
	PortTypeUSBHost   PortType = 2
	PortTypeEthernet  PortType = 3
	PortTypeAnalogue  PortType = 4
)

func (t PortType) String() string {
	switch t {
	case PortTypeUSBDevice:
		return "usb-device"
	case PortTypeUSBHost:
		return "usb-host"
	case PortTypeEthernet:
		return "ethernet"
	case PortTypeAnalogue:
		return "analogue"
	default:
		return fmt.Sprintf("PortType(%d)", uint8(t))
	}
}

// PortDetails is the port-type specific part of an AudioPortParm. Exactly one
// implementation is populated per port and it never refers to other ports.
type PortDetails interface {
	PortType() PortType
	appendTo(e *encoder) error
}

// USB device port flags.
const (
	USBDeviceConnected uint8 = 1 << 0
	USBDeviceIOSHost   uint8 = 1 << 1
)

// USBDeviceDetails describes a port that enumerates to a computer as a USB device.
type USBDeviceDetails struct {
	HostType uint8
	Flags    uint8
}

func (USBDeviceDetails) PortType() PortType { return PortTypeUSBDevice }

// Connected reports whether a host is attached.
func (u USBDeviceDetails) Connected() bool { return u.Flags&USBDeviceConnected != 0 }

func (u USBDeviceDetails) appendTo(e *encoder) error {
	e.u8(u.HostType)
	e.u8(u.Flags)
	return nil
}

// USBHostDetails describes a USB host jack and the device plugged into it.
type USBHostDetails struct {
	VendorID   uint16
	ProductID  uint16
	DeviceName string
}

func (USBHostDetails) PortType() PortType { return PortTypeUSBHost }

func (u USBHostDetails) appendTo(e *encoder) error {
	e.u16(u.VendorID)
	e.u16(u.ProductID)
	return e.str(u.DeviceName, "usb host device name")
}

// EthernetDetails describes a network audio port.
type EthernetDetails struct {
	MaxSessions    uint8
	ActiveSessions uint8
	Address        [4]byte
}

func (EthernetDetails) PortType() PortType { return PortTypeEthernet }

func (n EthernetDetails) appendTo(e *encoder) error {
	e.u8(n.MaxSessions)
	e.u8(n.ActiveSessions)
	e.raw(n.Address[:])
	return nil
}

// Analogue port flags.
const (
	AnaloguePhantomCapable uint8 = 1 << 0
	AnalogueLevelSwitch    uint8 = 1 << 1
)

// AnalogueDetails describes the analogue jacks of a port.
type AnalogueDetails struct {
	JackCount uint8
	Flags     uint8
}

func (AnalogueDetails) PortType() PortType { return PortTypeAnalogue }

func (a AnalogueDetails) appendTo(e *encoder) error {
	e.u8(a.JackCount)
	e.u8(a.Flags)
	return nil
}

func parseDetails(t PortType, d *decoder) (PortDetails, error) {
	switch t {
	case PortTypeUSBDevice:
		return USBDeviceDetails{
			HostType: d.u8("usb device host type"),
			Flags:    d.u8("usb device flags"),
		}, nil
	case PortTypeUSBHost:
		return USBHostDetails{
			VendorID:   d.u16("usb host vendor id"),
			ProductID:  d.u16("usb host product id"),
			DeviceName: d.str("usb host device name"),
		}, nil
	case PortTypeEthernet:
		n := EthernetDetails{
			MaxSessions:    d.u8("ethernet max sessions"),
			ActiveSessions: d.u8("ethernet active sessions"),
		}
		copy(n.Address[:], d.bytes(4, "ethernet address"))
		return n, nil
	case PortTypeAnalogue:
		return AnalogueDetails{
			JackCount: d.u8("analogue jack count"),
			Flags:     d.u8("analogue flags"),
		}, nil
	default:
		return nil, fmt.Errorf("%w: port type %d", ErrUnknownVariant, uint8(t))
	}
}

// ChannelRange is a read-only min/max with a read-write current value.
type ChannelRange struct {
	Min     uint8
	Max     uint8
	Current uint8
}

func (c ChannelRange) set(n uint8, what string) (ChannelRange, error) {
	if n < c.Min || n > c.Max {
		return c, fmt.Errorf("%w: %s %d not in [%d,%d]", ErrOutOfRange, what, n, c.Min, c.Max)
	}
	c.Current = n
	return c, nil
}

// AudioPortParm describes one physical audio port.
type AudioPortParm struct {
	PortID  uint16
	Number  uint8 // position among ports of the same type, 1-based
	Inputs  ChannelRange
	Outputs ChannelRange
	NameMax uint8
	Name    string
	Details PortDetails
}

func (*AudioPortParm) Family() Family { return FamilyAudioPort }

func (p *AudioPortParm) Key() Key { return Key{Family: FamilyAudioPort, PortID: p.PortID} }

// Type returns the port type selected by Details.
func (p *AudioPortParm) Type() PortType {
	if p.Details == nil {
		return 0
	}
	return p.Details.PortType()
}

// SetName renames the port within the device's name limit.
func (p *AudioPortParm) SetName(name string) error {
	if len(name) > int(p.NameMax) {
		return fmt.Errorf("%w: name is %d bytes, limit %d", ErrOutOfRange, len(name), p.NameMax)
	}
	p.Name = name
	return nil
}

// SetInputChannels sets the active input channel count.
func (p *AudioPortParm) SetInputChannels(n uint8) (err error) {
	p.Inputs, err = p.Inputs.set(n, "input channels")
	return err
}

// SetOutputChannels sets the active output channel count.
func (p *AudioPortParm) SetOutputChannels(n uint8) (err error) {
	p.Outputs, err = p.Outputs.set(n, "output channels")
	return err
}

func (p *AudioPortParm) MarshalBinary() ([]byte, error) {
	if p.Details == nil {
		return nil, fmt.Errorf("%w: port %d has no details", ErrUnknownVariant, p.PortID)
	}
	e := newEncoder()
	e.u16(p.PortID)
	e.u8(uint8(p.Details.PortType()))
	e.u8(p.Number)
	for _, r := range []ChannelRange{p.Inputs, p.Outputs} {
		e.u8(r.Min)
		e.u8(r.Max)
		e.u8(r.Current)
	}
	e.u8(p.NameMax)
	if err := e.str(p.Name, "port name"); err != nil {
		return nil, err
	}

	var v encoder
	if err := p.Details.appendTo(&v); err != nil {
		return nil, err
	}
	if err := e.count(len(v.buf), "port details"); err != nil {
		return nil, err
	}
	e.raw(v.buf)
	return e.buf, nil
}

func (p *AudioPortParm) UnmarshalBinary(data []byte) error {
	d := newDecoder(data)
	d.version("audio port")
	var r AudioPortParm
	r.PortID = d.u16("port id")
	t := PortType(d.u8("port type"))
	r.Number = d.u8("port number")
	r.Inputs = ChannelRange{Min: d.u8("input min"), Max: d.u8("input max"), Current: d.u8("input current")}
	r.Outputs = ChannelRange{Min: d.u8("output min"), Max: d.u8("output max"), Current: d.u8("output current")}
	r.NameMax = d.u8("name max length")
	r.Name = d.str("port name")

	n := int(d.u8("details length"))
	vd := d.sub(n, "port details")
	if vd.err == nil {
		details, err := parseDetails(t, vd)
		if err != nil {
			return err
		}
		if err := vd.finish("port details"); err != nil {
			return err
		}
		r.Details = details
	}
	if err := d.finish("audio port"); err != nil {
		return err
	}
	*p = r
	return nil
}

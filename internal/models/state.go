// Package models defines the JSON views and request bodies of the HTTP API,
// and the host-side preferences persisted between runs.
package models

import "github.com/micro-nova/audioconfig-go/internal/params"

// Preferences is host-side state the device does not store.
type Preferences struct {
	// Collapsed lists the routing sections shown collapsed.
	Collapsed []SectionPref `json:"collapsed"`
}

// SectionPref names a routing section by port rather than by section
// number, so it survives the mixer subsystem appearing or disappearing.
type SectionPref struct {
	Port  int  `json:"port"`
	Mixer bool `json:"mixer,omitempty"`
}

// DeepCopy returns a copy that shares no slices with p.
func (p Preferences) DeepCopy() Preferences {
	return Preferences{Collapsed: append([]SectionPref{}, p.Collapsed...)}
}

// Range is a device-bounded value.
type Range struct {
	Min     int `json:"min"`
	Max     int `json:"max"`
	Current int `json:"current"`
}

// ConfigBlock is one selectable sample format.
type ConfigBlock struct {
	Number     int `json:"number"`
	BitDepth   int `json:"bit_depth"`   // bits
	SampleRate int `json:"sample_rate"` // Hz
}

// Global is the device-wide audio configuration.
type Global struct {
	DeviceID     uint32        `json:"device_id"`
	NumPorts     int           `json:"num_ports"`
	HasMixer     bool          `json:"has_mixer"`
	ActiveConfig int           `json:"active_config"`
	Configs      []ConfigBlock `json:"configs"`
	Frames       Range         `json:"frames"`
	SyncFactor   Range         `json:"sync_factor"`
}

// Port describes one audio port.
type Port struct {
	ID      int            `json:"id"`
	Type    string         `json:"type"`
	Number  int            `json:"number"`
	Name    string         `json:"name"`
	NameMax int            `json:"name_max"`
	Inputs  Range          `json:"inputs"`
	Outputs Range          `json:"outputs"`
	Details map[string]any `json:"details,omitempty"`
	Mixer   *MixerPort     `json:"mixer,omitempty"`
}

// MixerPort sizes the mixer paired with a port.
type MixerPort struct {
	Inputs  int `json:"inputs"`
	Outputs int `json:"outputs"`
}

// Control is the state of one channel's controls. Available and Editable
// are "|"-separated control names.
type Control struct {
	Available   string  `json:"available"`
	Editable    string  `json:"editable"`
	Mute        bool    `json:"mute"`
	Solo        bool    `json:"solo"`
	Invert      bool    `json:"invert"`
	StereoLink  bool    `json:"stereo_link"`
	VolumeDB    float64 `json:"volume_db"`
	VolumeMinDB float64 `json:"volume_min_db"`
	VolumeMaxDB float64 `json:"volume_max_db"`
	Pan         int     `json:"pan"`
	PanMax      int     `json:"pan_max"`
}

// Endpoint is a section/channel pair in the routing matrix. Zero means none.
type Endpoint struct {
	Section int `json:"section"`
	Channel int `json:"channel"`
}

// Patch is one source → destination link.
type Patch struct {
	Out Endpoint `json:"out"`
	In  Endpoint `json:"in"`
}

// Section is one row/column group of the routing matrix.
type Section struct {
	ID        int    `json:"id"`
	Port      int    `json:"port"`
	Mixer     bool   `json:"mixer"`
	Name      string `json:"name"`
	Inputs    int    `json:"inputs"`
	Outputs   int    `json:"outputs"`
	Collapsed bool   `json:"collapsed"`
}

// Routing is the whole patch matrix as displayed.
type Routing struct {
	Sections     []Section `json:"sections"`
	Patches      []Patch   `json:"patches"`
	MixerPatches []Patch   `json:"mixer_patches"`
}

// Update is a parameter change pushed to subscribers.
type Update struct {
	Kind   string `json:"kind"`
	Family string `json:"family,omitempty"`
	Port   int    `json:"port,omitempty"`
	Sub    int    `json:"sub,omitempty"`
}

// NewUpdate builds the subscriber view of a registry change. key is ignored
// when it names no record family.
func NewUpdate(kind string, key params.Key) Update {
	u := Update{Kind: kind}
	if key.Family.Valid() {
		u.Family = key.Family.String()
		u.Port = int(key.PortID)
		u.Sub = int(key.Sub)
	}
	return u
}

// Info describes the running service.
type Info struct {
	Version   string `json:"version"`
	Transport string `json:"transport"`
	DeviceID  uint32 `json:"device_id"`
	Records   int    `json:"records"`
}

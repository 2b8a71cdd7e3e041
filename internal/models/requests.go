package models

// GlobalUpdate is the PATCH body for the global configuration.
type GlobalUpdate struct {
	ActiveConfig *int `json:"active_config,omitempty"`
	Frames       *int `json:"frames,omitempty"`
	SyncFactor   *int `json:"sync_factor,omitempty"`
}

// PortUpdate is the PATCH body for a port.
type PortUpdate struct {
	Name    *string `json:"name,omitempty"`
	Inputs  *int    `json:"inputs,omitempty"`
	Outputs *int    `json:"outputs,omitempty"`
}

// ControlUpdate is the PATCH body for a channel's controls.
type ControlUpdate struct {
	Mute       *bool    `json:"mute,omitempty"`
	Solo       *bool    `json:"solo,omitempty"`
	Invert     *bool    `json:"invert,omitempty"`
	StereoLink *bool    `json:"stereo_link,omitempty"`
	VolumeDB   *float64 `json:"volume_db,omitempty"`
	Pan        *int     `json:"pan,omitempty"`
}

// PatchRequest is the PUT body for changing a link. With Out set, Out is
// patched to In, replacing Remove if given. With Out zero and Remove set,
// the Remove → In link is deleted. With both zero, every source of In is
// cleared.
type PatchRequest struct {
	Out    Endpoint  `json:"out"`
	In     Endpoint  `json:"in"`
	Remove *Endpoint `json:"remove,omitempty"`
}

// CollapseRequest is the PUT body for a section's collapsed flag.
type CollapseRequest struct {
	Collapsed bool `json:"collapsed"`
}

// Patched answers a patch query.
type Patched struct {
	Out     Endpoint `json:"out"`
	In      Endpoint `json:"in"`
	Patched bool     `json:"patched"`
}

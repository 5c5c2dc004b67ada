package config

// GuiSettings is the process-wide console state that survives restarts.
// Pointer fields are optional; nil means "never set".
type GuiSettings struct {
	CasparPath           *string `json:"caspar_path,omitempty"`
	LastProfile          *string `json:"last_profile,omitempty"`
	LastHost             *string `json:"last_host,omitempty"`
	LastPort             *int    `json:"last_port,omitempty"`
	LastServerWasRunning bool    `json:"last_server_was_running"`
	WindowWidth          *int    `json:"window_width,omitempty"`
	WindowHeight         *int    `json:"window_height,omitempty"`
}

// SettingsPatch names the fields to overwrite. Nil fields are left alone.
type SettingsPatch struct {
	CasparPath           *string
	LastProfile          *string
	LastHost             *string
	LastPort             *int
	LastServerWasRunning *bool
	WindowWidth          *int
	WindowHeight         *int
}

// Merge returns a copy of s with the non-nil fields of p applied.
func (s GuiSettings) Merge(p SettingsPatch) GuiSettings {
	out := s.Clone()
	if p.CasparPath != nil {
		out.CasparPath = String(*p.CasparPath)
	}
	if p.LastProfile != nil {
		out.LastProfile = String(*p.LastProfile)
	}
	if p.LastHost != nil {
		out.LastHost = String(*p.LastHost)
	}
	if p.LastPort != nil {
		out.LastPort = Int(*p.LastPort)
	}
	if p.LastServerWasRunning != nil {
		out.LastServerWasRunning = *p.LastServerWasRunning
	}
	if p.WindowWidth != nil {
		out.WindowWidth = Int(*p.WindowWidth)
	}
	if p.WindowHeight != nil {
		out.WindowHeight = Int(*p.WindowHeight)
	}
	return out
}

// Clone copies every pointer so the result shares no memory with s.
func (s GuiSettings) Clone() GuiSettings {
	out := GuiSettings{LastServerWasRunning: s.LastServerWasRunning}
	if s.CasparPath != nil {
		out.CasparPath = String(*s.CasparPath)
	}
	if s.LastProfile != nil {
		out.LastProfile = String(*s.LastProfile)
	}
	if s.LastHost != nil {
		out.LastHost = String(*s.LastHost)
	}
	if s.LastPort != nil {
		out.LastPort = Int(*s.LastPort)
	}
	if s.WindowWidth != nil {
		out.WindowWidth = Int(*s.WindowWidth)
	}
	if s.WindowHeight != nil {
		out.WindowHeight = Int(*s.WindowHeight)
	}
	return out
}

// InstallPath returns the CasparCG install path, or "" when unset.
func (s GuiSettings) InstallPath() string {
	if s.CasparPath == nil {
		return ""
	}
	return *s.CasparPath
}

// LastEndpoint returns the last control-session endpoint if both halves are set.
func (s GuiSettings) LastEndpoint() (string, int, bool) {
	if s.LastHost == nil || s.LastPort == nil || *s.LastHost == "" || *s.LastPort <= 0 {
		return "", 0, false
	}
	return *s.LastHost, *s.LastPort, true
}

func String(v string) *string { return &v }

func Int(v int) *int { return &v }

func Bool(v bool) *bool { return &v }

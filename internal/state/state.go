package state

// SchemaVersion is written into every saved state file.
const SchemaVersion = 1

// SystemVersion marks a binary adopted from the system PATH.
const SystemVersion = "system"

// SelectedVoice records the last successfully provisioned voice.
type SelectedVoice struct {
	Key          string `json:"key"`
	Name         string `json:"name"`
	LanguageCode string `json:"languageCode"`
	Quality      string `json:"quality"`
	ModelPath    string `json:"modelPath"`
	ConfigPath   string `json:"configPath"`
}

// InstalledBinary records where the piper executable lives.
type InstalledBinary struct {
	Path     string `json:"path"`
	Version  string `json:"version"`
	Platform string `json:"platform"`
	Arch     string `json:"arch"`
}

// State is the persisted aggregate. It is passed by value; the With
// helpers return modified copies.
type State struct {
	Version       int              `json:"version"`
	SelectedVoice *SelectedVoice   `json:"selectedVoice,omitempty"`
	PiperBinary   *InstalledBinary `json:"piperBinary,omitempty"`
}

// Default is the state used when nothing has been provisioned yet.
func Default() State {
	return State{Version: SchemaVersion}
}

// WithBinary returns a copy of s recording b.
func (s State) WithBinary(b InstalledBinary) State {
	s.PiperBinary = &b
	return s
}

// WithVoice returns a copy of s recording v.
func (s State) WithVoice(v SelectedVoice) State {
	s.SelectedVoice = &v
	return s
}

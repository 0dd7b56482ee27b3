package types

// ServerConfig is the /config payload. It is a per-session singleton,
// replaced wholesale on every successful poll.
type ServerConfig struct {
	Plugins    map[string]PluginDescriptor `json:"plugins"`
	RootPath   string                      `json:"root_path"`
	Version    string                      `json:"version"`
	API        int                         `json:"API"`
	SampleRate float64                     `json:"sampleRate"`
	Language   string                      `json:"language"`
}

// PluginDescriptor describes one server-side plugin. Unknown fields are dropped.
type PluginDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Icon        string         `json:"icon,omitempty"`
	Actions     []PluginAction `json:"actions,omitempty"`
}

// PluginAction is an action button or option a plugin exposes.
type PluginAction struct {
	Label string `json:"label"`
	Key   string `json:"key"`
	Type  string `json:"type"`
	Value any    `json:"value,omitempty"`
}

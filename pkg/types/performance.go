package types

// PerformanceMetric is a point-in-time snapshot returned by /performance.
// Snapshots carry no key; the session appends them to a rolling history.
type PerformanceMetric struct {
	Time         float64           `json:"time"`
	FPS          float64           `json:"fps"`
	FrameTime    float64           `json:"frameTime"`
	Memory       float64           `json:"memory"`
	VsyncEnabled bool              `json:"vsyncEnabled"`
	Supported    SupportedFeatures `json:"supported"`
	Stats        Stats             `json:"stats"`
	SysInfo      SystemInfo        `json:"sysInfo"`
}

// SupportedFeatures lists graphics capabilities reported by the engine.
type SupportedFeatures struct {
	MultiCanvasFormats bool `json:"multicanvasformats"`
	ClampZero          bool `json:"clampzero"`
	Lighten            bool `json:"lighten"`
	FullNPOT           bool `json:"fullnpot"`
	PixelShaderHighP   bool `json:"pixelshaderhighp"`
	ShaderDerivatives  bool `json:"shaderderivatives"`
	GLSL3              bool `json:"glsl3"`
	Instancing         bool `json:"instancing"`
}

// Stats are renderer counters for the last frame.
type Stats struct {
	DrawCallsBatched float64 `json:"drawcallsbatched"`
	CanvasSwitches   float64 `json:"canvasswitches"`
	ShaderSwitches   float64 `json:"shaderswitches"`
	Canvases         float64 `json:"canvases"`
	Images           float64 `json:"images"`
	Fonts            float64 `json:"fonts"`
	TextureMemory    float64 `json:"texturememory"`
	DrawCalls        float64 `json:"drawcalls"`
}

// SystemInfo describes the host the game is running on.
type SystemInfo struct {
	Arch     string `json:"arch"`
	CPUCount int    `json:"cpuCount"`
	OS       string `json:"os"`
}

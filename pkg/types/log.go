package types

// LogType classifies a Feather log entry. Plugins may emit their own types,
// so values outside the constants below are valid.
type LogType string

const (
	LogOutput        LogType = "output"
	LogError         LogType = "error"
	LogFeatherStart  LogType = "feather:start"
	LogFeatherFinish LogType = "feather:finish"
)

// Log is one entry produced by the server on each logging call.
// The client never mutates a Log; it only decides which copy survives a merge.
type Log struct {
	ID    string  `json:"id"`
	Count int     `json:"count"`
	Time  float64 `json:"time"` // unix seconds
	Type  LogType `json:"type"`
	Str   string  `json:"str"`
	Trace string  `json:"trace"`

	// Screenshot is a base64 PNG captured alongside the entry, when enabled.
	Screenshot string `json:"screenshot,omitempty"`
}

// LogsEnvelope is the canonical /logs response body.
// Older servers returned a bare []Log; see feather.Client.Logs.
type LogsEnvelope struct {
	Data              []Log `json:"data"`
	ScreenshotEnabled bool  `json:"screenshotEnabled"`
}

// Observer is one observability key/value pair from /observers.
type Observer struct {
	Key   string `json:"key"`
	Value any    `json:"value"`
}

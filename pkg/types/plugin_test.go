package types

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestImageMetadata_DecodePNG(t *testing.T) {
	var m ImageMetadata
	raw := `{"type":"png","src":"iVBORw0KGgo=","width":320,"height":240}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if m.Type != ImagePNG || m.Src != "iVBORw0KGgo=" || m.Frames != nil {
		t.Errorf("got %+v", m)
	}
	if m.Width != 320 || m.Height != 240 {
		t.Errorf("size: got %dx%d", m.Width, m.Height)
	}
}

func TestImageMetadata_DecodeGIF(t *testing.T) {
	var m ImageMetadata
	raw := `{"type":"gif","src":["a","b","c"],"width":64,"height":64,"fps":12}`
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(m.Frames) != 3 || m.Src != "" {
		t.Errorf("got %+v", m)
	}
	if m.FPS != 12 {
		t.Errorf("fps: got %v, want 12", m.FPS)
	}
}

func TestImageMetadata_EncodeShapes(t *testing.T) {
	png, err := json.Marshal(ImageMetadata{Type: ImagePNG, Src: "abc"})
	if err != nil {
		t.Fatalf("marshal png: %v", err)
	}
	if !strings.Contains(string(png), `"src":"abc"`) {
		t.Errorf("png src should be a string: %s", png)
	}

	gif, err := json.Marshal(ImageMetadata{Type: ImageGIF})
	if err != nil {
		t.Fatalf("marshal gif: %v", err)
	}
	if !strings.Contains(string(gif), `"src":[]`) {
		t.Errorf("gif src should be an array even when empty: %s", gif)
	}
}

func TestImageMetadata_MissingSrc(t *testing.T) {
	var item PluginItem
	if err := json.Unmarshal([]byte(`{"type":"image","name":"x","metadata":{"type":"png"}}`), &item); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if item.Metadata.Src != "" || item.Metadata.Frames != nil {
		t.Errorf("got %+v", item.Metadata)
	}
}

func TestLogsEnvelope_Shape(t *testing.T) {
	b, err := json.Marshal(LogsEnvelope{Data: []Log{}, ScreenshotEnabled: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := string(b); got != `{"data":[],"screenshotEnabled":true}` {
		t.Errorf("got %s", got)
	}
}

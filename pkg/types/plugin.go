package types

import "encoding/json"

// Plugin content types.
const (
	ContentGallery = "gallery"

	ItemImage = "image"

	ImagePNG = "png"
	ImageGIF = "gif"
)

// PluginContent is the payload returned by GET /plugins/{key}.
// When Persist is set, items are accumulated across polls by name instead of
// being replaced.
type PluginContent struct {
	Data    []PluginItem `json:"data"`
	Type    string       `json:"type"`
	Loading bool         `json:"loading"`
	Persist bool         `json:"persist,omitempty"`
}

// PluginItem is one entry of a gallery plugin. Name is its identity.
type PluginItem struct {
	Type     string        `json:"type"`
	Name     string        `json:"name"`
	Metadata ImageMetadata `json:"metadata"`
}

// ImageMetadata is either a single PNG screenshot (Src) or a GIF made of
// frames (Frames + FPS). Type selects the variant.
type ImageMetadata struct {
	Type   string   `json:"type"`
	Src    string   `json:"-"`
	Frames []string `json:"-"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	FPS    float64  `json:"fps,omitempty"`
}

// imageMetadataWire is the on-the-wire shape: src is a string for png and an
// array of frames for gif.
type imageMetadataWire struct {
	Type   string          `json:"type"`
	Src    json.RawMessage `json:"src"`
	Width  int             `json:"width"`
	Height int             `json:"height"`
	FPS    float64         `json:"fps,omitempty"`
}

// MarshalJSON encodes Src or Frames under "src" depending on Type.
func (m ImageMetadata) MarshalJSON() ([]byte, error) {
	var src any = m.Src
	if m.Type == ImageGIF {
		src = m.Frames
		if m.Frames == nil {
			src = []string{}
		}
	}
	raw, err := json.Marshal(src)
	if err != nil {
		return nil, err
	}
	return json.Marshal(imageMetadataWire{
		Type:   m.Type,
		Src:    raw,
		Width:  m.Width,
		Height: m.Height,
		FPS:    m.FPS,
	})
}

// UnmarshalJSON accepts "src" as either a string or an array of strings.
func (m *ImageMetadata) UnmarshalJSON(b []byte) error {
	var w imageMetadataWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*m = ImageMetadata{Type: w.Type, Width: w.Width, Height: w.Height, FPS: w.FPS}
	if len(w.Src) == 0 || string(w.Src) == "null" {
		return nil
	}
	if w.Src[0] == '[' {
		return json.Unmarshal(w.Src, &m.Frames)
	}
	return json.Unmarshal(w.Src, &m.Src)
}

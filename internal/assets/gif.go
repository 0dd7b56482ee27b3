package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/draw"
)

var pngMagic = []byte("\x89PNG\r\n\x1a\n")

// decodeFrame accepts raw PNG bytes, base64 PNG, or a base64 data URL.
func decodeFrame(s string) (image.Image, error) {
	raw := []byte(s)
	if !bytes.HasPrefix(raw, pngMagic) {
		if strings.HasPrefix(s, "data:") {
			i := strings.Index(s, ";base64,")
			if i < 0 {
				return nil, fmt.Errorf("unsupported data url")
			}
			s = s[i+len(";base64,"):]
		}
		var err error
		raw, err = base64.StdEncoding.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("base64: %w", err)
		}
	}
	img, err := png.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("png: %w", err)
	}
	return img, nil
}

// compose scales every frame to the requested size and assembles them into
// an animation. Delays are in hundredths of a second.
func compose(ctx context.Context, req GifRequest) (*gif.GIF, error) {
	bounds := image.Rect(0, 0, req.Width, req.Height)
	delay := 100 / req.FPS
	if delay < 1 {
		delay = 1
	}

	anim := &gif.GIF{LoopCount: 0}
	for i, f := range req.Frames {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src, err := decodeFrame(f)
		if err != nil {
			return nil, fmt.Errorf("assets: frame %d: %w", i, err)
		}

		scaled := image.NewRGBA(bounds)
		draw.CatmullRom.Scale(scaled, bounds, src, src.Bounds(), draw.Over, nil)

		pal := image.NewPaletted(bounds, palette.Plan9)
		draw.FloydSteinberg.Draw(pal, bounds, scaled, image.Point{})

		anim.Image = append(anim.Image, pal)
		anim.Delay = append(anim.Delay, delay)
	}
	return anim, nil
}

// writeGIF encodes anim to path through a temp file so readers never see a
// partial file.
func writeGIF(path string, anim *gif.GIF) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".gif-*")
	if err != nil {
		return fmt.Errorf("assets: create temp: %w", err)
	}
	tmpName := tmp.Name()

	if err := gif.EncodeAll(tmp, anim); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("assets: encode gif: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("assets: close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("assets: rename: %w", err)
	}
	return nil
}

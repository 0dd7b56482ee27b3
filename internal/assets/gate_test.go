package assets

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"image"
	"image/color"
	"image/gif"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/kyonru/feather-companion/internal/cache"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func pngFrame(t *testing.T, c color.Color) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func testRequest(t *testing.T) GifRequest {
	t.Helper()
	red := base64.StdEncoding.EncodeToString(pngFrame(t, color.RGBA{R: 255, A: 255}))
	blue := base64.StdEncoding.EncodeToString(pngFrame(t, color.RGBA{B: 255, A: 255}))
	return GifRequest{
		Frames: []string{red, "data:image/png;base64," + blue},
		Width:  8,
		Height: 6,
		FPS:    5,
	}
}

func newTestGate(t *testing.T) (*Gate, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	g := NewGate(cache.NewMemoryStorage(0), t.TempDir(), cache.WithClock(clk.now))
	return g, clk
}

func TestIdentity(t *testing.T) {
	req := testRequest(t)
	if Identity(req) != Identity(req) {
		t.Error("identity should be stable")
	}

	other := req
	other.FPS = 10
	if Identity(req) == Identity(other) {
		t.Error("different fps should give a different identity")
	}

	named := req
	named.Name = "../sprites/walk cycle.gif"
	if got := Identity(named); got != named.Name {
		t.Errorf("named identity: got %q, want the name unchanged", got)
	}
}

func TestGif_NamesThatLookAlikeStayDistinct(t *testing.T) {
	g, _ := newTestGate(t)
	base := testRequest(t)

	pairs := [][2]string{{"run.1", "run.2"}, {"gif:a,b", "gif:a;b"}}
	for _, pair := range pairs {
		first, second := base, base
		first.Name, second.Name = pair[0], pair[1]
		second.FPS = base.FPS * 2

		a, err := g.Gif(context.Background(), first)
		if err != nil {
			t.Fatalf("Gif(%q): %v", pair[0], err)
		}
		b, err := g.Gif(context.Background(), second)
		if err != nil {
			t.Fatalf("Gif(%q): %v", pair[1], err)
		}
		if b.Cached {
			t.Errorf("%q was served the cached gif of %q", pair[1], pair[0])
		}
		if a.Path == b.Path || a.URL == b.URL {
			t.Errorf("%q and %q share a file: %s", pair[0], pair[1], a.Path)
		}
		if a.ID != pair[0] || b.ID != pair[1] {
			t.Errorf("ids: got %q, %q", a.ID, b.ID)
		}
	}
}

func TestGif_NameWithPathSeparatorsStaysInDir(t *testing.T) {
	g, _ := newTestGate(t)
	req := testRequest(t)
	req.Name = "../../escape"

	res, err := g.Gif(context.Background(), req)
	if err != nil {
		t.Fatalf("Gif: %v", err)
	}
	if filepath.Dir(res.Path) != g.Dir() {
		t.Errorf("path %q escaped %q", res.Path, g.Dir())
	}
	if want := Route + filepath.Base(res.Path); res.URL != want {
		t.Errorf("url: got %q, want %q", res.URL, want)
	}
}

func TestGif_GeneratesThenHits(t *testing.T) {
	g, _ := newTestGate(t)
	req := testRequest(t)

	first, err := g.Gif(context.Background(), req)
	if err != nil {
		t.Fatalf("Gif: %v", err)
	}
	if first.Cached {
		t.Error("first call should generate")
	}

	f, err := os.Open(first.Path)
	if err != nil {
		t.Fatalf("open gif: %v", err)
	}
	defer f.Close()
	anim, err := gif.DecodeAll(f)
	if err != nil {
		t.Fatalf("decode gif: %v", err)
	}
	if len(anim.Image) != 2 {
		t.Errorf("frames: got %d, want 2", len(anim.Image))
	}
	if anim.Delay[0] != 20 {
		t.Errorf("delay: got %d, want 20", anim.Delay[0])
	}
	if b := anim.Image[0].Bounds(); b.Dx() != 8 || b.Dy() != 6 {
		t.Errorf("size: got %dx%d, want 8x6", b.Dx(), b.Dy())
	}

	second, err := g.Gif(context.Background(), req)
	if err != nil {
		t.Fatalf("Gif: %v", err)
	}
	if !second.Cached || second.Path != first.Path {
		t.Errorf("second call: got %+v, want cached %s", second, first.Path)
	}
	if got := g.Generated(); got != 1 {
		t.Errorf("generated: got %d, want 1", got)
	}
}

func TestGif_RegeneratesMissingFile(t *testing.T) {
	g, _ := newTestGate(t)
	req := testRequest(t)

	first, err := g.Gif(context.Background(), req)
	if err != nil {
		t.Fatalf("Gif: %v", err)
	}
	if err := os.Remove(first.Path); err != nil {
		t.Fatalf("remove: %v", err)
	}

	again, err := g.Gif(context.Background(), req)
	if err != nil {
		t.Fatalf("Gif: %v", err)
	}
	if again.Cached {
		t.Error("missing file should force regeneration")
	}
	if _, err := os.Stat(again.Path); err != nil {
		t.Errorf("regenerated file: %v", err)
	}
	if got := g.Generated(); got != 2 {
		t.Errorf("generated: got %d, want 2", got)
	}
}

func TestGif_ExpiresAfterRetention(t *testing.T) {
	g, clk := newTestGate(t)
	req := testRequest(t)

	if _, err := g.Gif(context.Background(), req); err != nil {
		t.Fatalf("Gif: %v", err)
	}

	clk.advance(RetentionUnits * Unit)
	res, _ := g.Gif(context.Background(), req)
	if !res.Cached {
		t.Error("entry should still be valid exactly at expiry")
	}

	clk.advance(time.Millisecond)
	res, _ = g.Gif(context.Background(), req)
	if res.Cached {
		t.Error("entry should be regenerated after retention")
	}
}

func TestGif_ConcurrentRequestsShareGeneration(t *testing.T) {
	g, _ := newTestGate(t)
	req := testRequest(t)

	var wg sync.WaitGroup
	paths := make([]string, 8)
	for i := range paths {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := g.Gif(context.Background(), req)
			if err != nil {
				t.Errorf("Gif: %v", err)
				return
			}
			paths[i] = res.Path
		}(i)
	}
	wg.Wait()

	for _, p := range paths[1:] {
		if p != paths[0] {
			t.Errorf("paths differ: %q vs %q", p, paths[0])
		}
	}
	// Late arrivals may start a new flight after the first finished, but they
	// then hit the cache instead of generating.
	if got := g.Generated(); got != 1 {
		t.Errorf("generated: got %d, want 1", got)
	}
}

func TestGif_InvalidRequests(t *testing.T) {
	g, _ := newTestGate(t)

	if _, err := g.Gif(context.Background(), GifRequest{Width: 1, Height: 1}); !errors.Is(err, ErrNoFrames) {
		t.Errorf("no frames: got %v, want ErrNoFrames", err)
	}
	if _, err := g.Gif(context.Background(), GifRequest{Frames: []string{"x"}}); !errors.Is(err, ErrBadSize) {
		t.Errorf("no size: got %v, want ErrBadSize", err)
	}
	if _, err := g.Gif(context.Background(), GifRequest{Frames: []string{"%%%"}, Width: 2, Height: 2}); err == nil {
		t.Error("undecodable frame should fail the request")
	}
	if got := g.Generated(); got != 0 {
		t.Errorf("generated: got %d, want 0", got)
	}
}

func TestGif_CancelledContext(t *testing.T) {
	g, _ := newTestGate(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := g.Gif(ctx, testRequest(t)); !errors.Is(err, context.Canceled) {
		t.Errorf("got %v, want context.Canceled", err)
	}
}

func TestDecodeFrame_RawPNG(t *testing.T) {
	img, err := decodeFrame(string(pngFrame(t, color.White)))
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if img.Bounds().Dx() != 4 {
		t.Errorf("width: got %d, want 4", img.Bounds().Dx())
	}
}

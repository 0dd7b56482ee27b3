package assets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/kyonru/feather-companion/internal/cache"
)

const (
	// Bucket is the cache bucket holding generated asset paths.
	Bucket = "assets"
	// Unit is the TTL unit of the asset cache.
	Unit = 24 * time.Hour
	// RetentionUnits is how many Units a generated asset stays cached.
	RetentionUnits = 3
	// Route is the URL prefix generated files are served under.
	Route = "/assets/"

	defaultFPS = 10
)

var (
	ErrNoFrames = errors.New("assets: no frames")
	ErrBadSize  = errors.New("assets: width and height must be positive")
)

// namespace scopes name-based identities to this package.
var namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("feather-companion/assets"))

// GifRequest describes an animated GIF to generate.
type GifRequest struct {
	// Name overrides the derived identity when set.
	Name   string   `json:"name,omitempty"`
	Frames []string `json:"frames"`
	Width  int      `json:"width"`
	Height int      `json:"height"`
	FPS    int      `json:"fps"`
}

// Result is the outcome of a Gif call. URL is relative to the server the
// asset directory is mounted on (see Gate.URL).
type Result struct {
	ID     string `json:"id"`
	Path   string `json:"path"`
	URL    string `json:"url"`
	Cached bool   `json:"cached"`
}

// Identity returns the cache identity of req: the caller-supplied Name
// verbatim when set, otherwise a version 5 UUID over the fps, size and frames.
func Identity(req GifRequest) string {
	if req.Name != "" {
		return req.Name
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(req.FPS))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(req.Width))
	b.WriteByte('x')
	b.WriteString(strconv.Itoa(req.Height))
	for _, f := range req.Frames {
		b.WriteByte('|')
		b.WriteString(f)
	}
	return uuid.NewSHA1(namespace, []byte(b.String())).String()
}

// fileName maps an identity to a file name. Identities may hold any
// character, so the name is derived rather than the identity itself.
func fileName(id string) string {
	return uuid.NewSHA1(namespace, []byte(id)).String() + ".gif"
}

// Gate caches generated GIFs on disk.
//
// Gate is safe for concurrent use.
type Gate struct {
	dir       string
	cache     *cache.Cache
	group     singleflight.Group
	generated atomic.Int64
}

// NewGate returns a Gate writing into dir and remembering paths in store.
// opts are applied to the underlying cache after the asset defaults.
func NewGate(store cache.Storage, dir string, opts ...cache.Option) *Gate {
	opts = append([]cache.Option{cache.WithUnit(Unit)}, opts...)
	return &Gate{
		dir:   dir,
		cache: cache.New(store, Bucket, opts...),
	}
}

// Dir returns the output directory.
func (g *Gate) Dir() string { return g.dir }

// URL returns the URL path a generated file is served at.
func (g *Gate) URL(path string) string {
	return Route + filepath.Base(path)
}

// Generated returns how many GIFs the gate has composed.
func (g *Gate) Generated() int64 { return g.generated.Load() }

// Gif returns the path of a GIF matching req, generating it when no valid
// cached copy exists. Cache failures are logged and never fail the request.
func (g *Gate) Gif(ctx context.Context, req GifRequest) (Result, error) {
	if len(req.Frames) == 0 {
		return Result{}, ErrNoFrames
	}
	if req.Width <= 0 || req.Height <= 0 {
		return Result{}, ErrBadSize
	}
	if req.FPS <= 0 {
		req.FPS = defaultFPS
	}

	id := Identity(req)
	if path, ok := g.lookup(id); ok {
		return Result{ID: id, Path: path, URL: g.URL(path), Cached: true}, nil
	}

	v, err, _ := g.group.Do(id, func() (interface{}, error) {
		// Another caller may have finished while this one waited.
		if path, ok := g.lookup(id); ok {
			return Result{ID: id, Path: path, URL: g.URL(path), Cached: true}, nil
		}
		path, err := g.generate(ctx, id, req)
		if err != nil {
			return Result{}, err
		}
		if !g.cache.SetTTL(id, path, RetentionUnits) {
			slog.Warn("assets: could not cache generated gif", "id", id, "path", path)
		}
		return Result{ID: id, Path: path, URL: g.URL(path)}, nil
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// lookup returns the cached path for id if it still points at a usable file.
func (g *Gate) lookup(id string) (string, bool) {
	path, ok := cache.GetAs[string](g.cache, id)
	if !ok {
		return "", false
	}
	if !reachable(path) {
		slog.Info("assets: cached gif missing, regenerating", "id", id, "path", path)
		g.cache.Remove(id)
		return "", false
	}
	return path, true
}

func reachable(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular() && fi.Size() > 0
}

func (g *Gate) generate(ctx context.Context, id string, req GifRequest) (string, error) {
	anim, err := compose(ctx, req)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return "", fmt.Errorf("assets: create dir: %w", err)
	}

	path := filepath.Join(g.dir, fileName(id))
	if err := writeGIF(path, anim); err != nil {
		return "", err
	}
	g.generated.Add(1)
	slog.Info("assets: gif generated", "id", id, "frames", len(req.Frames), "path", path)
	return path, nil
}

package cache

import (
	"errors"
	"math"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a settable clock for expiry tests.
type fakeClock struct{ t time.Time }

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(t *testing.T, bucket string, opts ...Option) (*Cache, *MemoryStorage, *fakeClock) {
	t.Helper()
	clk := &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	st := NewMemoryStorage(0)
	opts = append([]Option{WithClock(clk.now)}, opts...)
	return New(st, bucket, opts...), st, clk
}

type payload struct {
	Name   string   `json:"name" msgpack:"name"`
	Frames []string `json:"frames" msgpack:"frames"`
	Size   int      `json:"size" msgpack:"size"`
}

func TestSetGet_RoundTrip(t *testing.T) {
	c, _, _ := newTestCache(t, "gif")
	want := payload{Name: "walk", Frames: []string{"a", "b"}, Size: 42}

	require.True(t, c.SetTTL("walk", want, 1))

	var got payload
	require.True(t, c.Get("walk", &got))
	assert.Equal(t, want, got)
}

func TestSetGet_RoundTripMsgpack(t *testing.T) {
	c, _, _ := newTestCache(t, "gif", WithCodec(MsgpackCodec{}))
	want := payload{Name: "jump", Frames: []string{"x"}, Size: 7}

	require.True(t, c.SetTTL("jump", want, 5))

	got, ok := GetAs[payload](c, "jump")
	require.True(t, ok)
	assert.Equal(t, want, got)
}

func TestGet_StorageLayout(t *testing.T) {
	c, st, clk := newTestCache(t, "gif")
	require.True(t, c.SetTTL("k", "v", 2))

	raw, ok, _ := st.GetItem("gif:k")
	require.True(t, ok)
	assert.Equal(t, `"v"`, raw)

	exp, ok, _ := st.GetItem("gif:k__expiry")
	require.True(t, ok)
	assert.Equal(t, strconv.FormatInt(clk.t.Add(2*time.Minute).UnixMilli(), 10), exp)
}

func TestGet_Expired_RemovesBothSlots(t *testing.T) {
	c, st, clk := newTestCache(t, "gif")
	require.True(t, c.SetTTL("k", "v", 1))

	clk.advance(time.Minute + time.Millisecond)

	var got string
	assert.False(t, c.Get("k", &got))

	_, ok, _ := st.GetItem("gif:k")
	assert.False(t, ok, "value slot should be evicted")
	_, ok, _ = st.GetItem("gif:k__expiry")
	assert.False(t, ok, "expiry slot should be evicted")
	assert.Equal(t, uint64(1), c.Stats().Expirations)
}

func TestGet_AtExactExpiry_StillValid(t *testing.T) {
	c, _, clk := newTestCache(t, "")
	require.True(t, c.SetTTL("k", "v", 1))

	clk.advance(time.Minute)

	var got string
	assert.True(t, c.Get("k", &got))
	assert.Equal(t, "v", got)
}

func TestGif_Scenario(t *testing.T) {
	c, _, clk := newTestCache(t, "")
	require.True(t, c.SetTTL("gif:a,b", "blob:123", 3))

	var got string
	require.True(t, c.Get("gif:a,b", &got))
	assert.Equal(t, "blob:123", got)

	clk.advance(3*time.Minute + time.Millisecond)
	got = ""
	assert.False(t, c.Get("gif:a,b", &got))
	assert.Empty(t, got)
}

func TestSet_NoTTL_NeverExpires(t *testing.T) {
	c, _, clk := newTestCache(t, "b")
	require.True(t, c.Set("k", 1))

	clk.advance(365 * 24 * time.Hour)

	got, ok := GetAs[int](c, "k")
	require.True(t, ok)
	assert.Equal(t, 1, got)
}

func TestSet_NoTTL_ClearsPreviousExpiry(t *testing.T) {
	c, st, clk := newTestCache(t, "b")
	require.True(t, c.SetTTL("k", 1, 1))
	require.True(t, c.Set("k", 2))

	_, ok, _ := st.GetItem("b:k__expiry")
	assert.False(t, ok)

	clk.advance(time.Hour)
	got, ok := GetAs[int](c, "k")
	require.True(t, ok)
	assert.Equal(t, 2, got)
}

func TestSetExpiryUnit(t *testing.T) {
	c, _, clk := newTestCache(t, "b")
	c.SetExpiryUnit(24 * time.Hour)
	require.True(t, c.SetTTL("k", "v", 3))

	clk.advance(72*time.Hour - time.Second)
	_, ok := GetAs[string](c, "k")
	assert.True(t, ok)

	clk.advance(2 * time.Second)
	_, ok = GetAs[string](c, "k")
	assert.False(t, ok)
}

func TestGet_Missing(t *testing.T) {
	c, _, _ := newTestCache(t, "b")
	var v string
	assert.False(t, c.Get("nope", &v))
	assert.Equal(t, uint64(1), c.Stats().Misses)
}

func TestGet_CorruptValue_IsMiss(t *testing.T) {
	c, st, _ := newTestCache(t, "b")
	require.NoError(t, st.SetItem("b:k", "{not json"))

	var v map[string]any
	assert.False(t, c.Get("k", &v))
}

func TestGet_CorruptExpiry_Ignored(t *testing.T) {
	c, st, _ := newTestCache(t, "b")
	require.True(t, c.Set("k", "v"))
	require.NoError(t, st.SetItem("b:k__expiry", "soon"))

	got, ok := GetAs[string](c, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestSet_EncodeFailure_ReturnsFalse(t *testing.T) {
	c, st, _ := newTestCache(t, "b")
	assert.False(t, c.Set("k", math.Inf(1)))
	assert.False(t, c.Set("ch", make(chan int)))

	n, _ := st.Len()
	assert.Zero(t, n)
	assert.Equal(t, uint64(2), c.Stats().WriteFailures)
}

func TestSet_QuotaExceeded_ReturnsFalse(t *testing.T) {
	clk := &fakeClock{t: time.Now()}
	st := NewMemoryStorage(16)
	c := New(st, "b", WithClock(clk.now))

	assert.True(t, c.Set("k", "ok"))
	assert.False(t, c.Set("big", "this value is far too large for the quota"))

	_, ok := GetAs[string](c, "big")
	assert.False(t, ok)
}

// failingStorage fails every operation.
type failingStorage struct{}

var errBroken = errors.New("broken")

func (failingStorage) Len() (int, error)                    { return 0, errBroken }
func (failingStorage) Key(int) (string, bool, error)        { return "", false, errBroken }
func (failingStorage) GetItem(string) (string, bool, error) { return "", false, errBroken }
func (failingStorage) SetItem(string, string) error         { return errBroken }
func (failingStorage) RemoveItem(string) error              { return errBroken }

func TestBrokenStorage_NeverPanics(t *testing.T) {
	c := New(failingStorage{}, "b")

	assert.False(t, c.Set("k", "v"))
	assert.False(t, c.SetTTL("k", "v", 1))
	var v string
	assert.False(t, c.Get("k", &v))
	c.Remove("k")
	assert.Zero(t, c.Flush())
}

func TestRemove_Idempotent(t *testing.T) {
	c, st, _ := newTestCache(t, "b")
	require.True(t, c.SetTTL("k", "v", 1))

	c.Remove("k")
	c.Remove("k")

	n, _ := st.Len()
	assert.Zero(t, n)
}

func TestBucketIsolation(t *testing.T) {
	c, st, _ := newTestCache(t, "a")
	require.True(t, c.Set("shared", "from-a"))
	require.True(t, c.SetTTL("other", "from-a", 1))

	c.SetBucket("b")
	var v string
	assert.False(t, c.Get("shared", &v))

	require.True(t, c.Set("shared", "from-b"))
	assert.Equal(t, 1, c.Flush())

	c.SetBucket("a")
	got, ok := GetAs[string](c, "shared")
	require.True(t, ok)
	assert.Equal(t, "from-a", got)

	n, _ := st.Len()
	assert.Equal(t, 3, n, "bucket a value, ttl value and marker survive")
}

func TestFlush_RemovesAllBucketKeys(t *testing.T) {
	c, st, _ := newTestCache(t, "gif")
	for _, k := range []string{"a", "b", "c", "d"} {
		require.True(t, c.SetTTL(k, k, 1))
	}
	c.ClearBucket()
	require.True(t, c.Set("keep", 1))
	require.True(t, c.Set("gifted", 1)) // shares a prefix without the colon

	c.SetBucket("gif")
	assert.Equal(t, 8, c.Flush())

	n, _ := st.Len()
	assert.Equal(t, 2, n)
}

func TestClearBucket_FlushRemovesEverything(t *testing.T) {
	c, st, _ := newTestCache(t, "x")
	require.True(t, c.Set("a", 1))
	c.SetBucket("y")
	require.True(t, c.Set("b", 1))

	c.ClearBucket()
	assert.Equal(t, 2, c.Flush())
	n, _ := st.Len()
	assert.Zero(t, n)
}

func TestCodecByName(t *testing.T) {
	assert.IsType(t, MsgpackCodec{}, CodecByName("msgpack"))
	assert.IsType(t, JSONCodec{}, CodecByName("json"))
	assert.IsType(t, JSONCodec{}, CodecByName(""))
}

// Package assets generates derived media from plugin content, currently
// animated GIFs assembled from PNG frames.
//
// A Gate fronts generation with a cache keyed by a stable identity of the
// request. A cached entry is only reused while the file it points at still
// exists; otherwise the GIF is generated again. Concurrent requests for the
// same identity share a single generation.
package assets

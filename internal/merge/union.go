// Package merge reconciles incrementally polled server records with the
// records a client already holds.
package merge

// UnionBy combines existing and incoming into one slice holding exactly one
// record per distinct key.
//
// Records are visited existing-first, then incoming, each in its original
// order. A key keeps the position where it was first seen; a later record with
// the same key replaces the value in place. Incoming therefore wins every tie,
// and keys unique to either side keep their relative order.
//
// UnionBy never mutates its arguments and always returns a non-nil slice.
func UnionBy[T any, K comparable](existing, incoming []T, keyOf func(T) K) []T {
	index := make(map[K]int, len(existing)+len(incoming))
	out := make([]T, 0, len(existing)+len(incoming))

	put := func(item T) {
		k := keyOf(item)
		if i, ok := index[k]; ok {
			out[i] = item
			return
		}
		index[k] = len(out)
		out = append(out, item)
	}

	for _, item := range existing {
		put(item)
	}
	for _, item := range incoming {
		put(item)
	}
	return out
}

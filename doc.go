// Package excache implements a generic, expiry-aware in-memory cache
// engine behind a named-cache manager/provider surface.
//
// Components:
//   - Cache[K, V]: sharded concurrent store with per-entry expiry
//     metadata, lazy expiry on every read and a background sweep.
//   - ExpiryPolicy: created/accessed/modified/touched/eternal strategies
//     that resolve a Duration per entry lifecycle event.
//   - Manager: name -> cache registry within a URI scope. Provider hands
//     out managers per scope and owns their lifecycle.
//   - BackedCache[V]: the same managed surface over an external byte
//     store (ristretto, bigcache, redis), values serialized by a
//     codec.Codec and framed with expiry metadata by internal/wire.
//
// The expiry boundary is inclusive: an entry whose deadline equals the
// observation time is already expired and visible to no reader. Expired
// entries are removed lazily on access and proactively by the sweep, so
// write-only keys do not accumulate.
package excache

// Package codec provides value (de)serialization for backed caches.
package codec

// Codec encodes/decodes values V to []byte for byte-store transport.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// Package msgpack implements the subset of MessagePack used by the Neovim
// RPC dialect.
//
// The package is organized around three pieces:
//
//   - Value: a closed variant describing one decoded wire object
//   - Decoder: an incremental decoder that accepts input in arbitrary
//     fragments and suspends mid-object when it runs out of bytes
//   - Encoder: a minimal-prefix encoder writing into any Sink, typically a
//     ring buffer owned by an RPC connection
//
// # Memory
//
// Values produced by the Decoder are allocated from an Arena owned by the
// decoder. All memory of one top-level object is released at once when the
// next object is requested:
//
//	dec := msgpack.NewDecoder()
//	dec.Feed(chunk)
//	for {
//	    v, ok := dec.Next()
//	    if !ok {
//	        break // chunk fully consumed, it may be reused
//	    }
//	    handle(v) // v is valid until the next call to Next
//	}
//
// Use Value.Decode to copy a value out of the arena into ordinary Go types.
package msgpack

// Package encoding provides centralized serialization for the bridge.
// ALL msgpack operations MUST go through this package so the ingest
// envelope and its producers agree on the wire format.
//
// Thread Safety: Marshal, Unmarshal, Compress and Decompress are safe for
// concurrent use.
package encoding

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Marshal encodes a value to msgpack format.
// Structs are encoded as maps keyed by their msgpack tags.
func Marshal(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)

	if err := enc.Encode(v); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// Unmarshal decodes msgpack data using loose interface decoding.
// When decoding into interface{}, strings are preserved as Go strings (not []byte).
func Unmarshal(data []byte, v interface{}) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.UseLooseInterfaceDecoding(true)

	return dec.Decode(v)
}

// RawMessage is a msgpack value whose decoding is deferred
type RawMessage = msgpack.RawMessage

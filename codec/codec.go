// Package codec serializes directory records for KV backends that
// store them as opaque bytes (redis). SQL and document backends map
// records to native columns and don't go through a codec.
package codec

import "github.com/xraph/coalesce/directory"

// Codec defines the serialization contract for directory records.
type Codec interface {
	// Encode serializes a record to bytes.
	Encode(rec *directory.Record) ([]byte, error)

	// Decode deserializes bytes into a record.
	Decode(data []byte) (*directory.Record, error)

	// Name returns the codec identifier (e.g., "json", "msgpack").
	Name() string
}

// CodecName constants for backend configuration.
const (
	CodecNameJSON    = "json"
	CodecNameMsgpack = "msgpack"
)

// GetCodec returns a codec by name. Defaults to JSON.
func GetCodec(name string) Codec {
	switch name {
	case CodecNameMsgpack:
		return &MsgpackCodec{}
	case CodecNameJSON, "":
		return &JSONCodec{}
	default:
		return &JSONCodec{}
	}
}

package codec

import (
	"encoding/json"

	"github.com/xraph/coalesce/directory"
)

// JSONCodec encodes/decodes directory records as JSON.
type JSONCodec struct{}

func (c *JSONCodec) Encode(rec *directory.Record) ([]byte, error) {
	return json.Marshal(rec)
}

func (c *JSONCodec) Decode(data []byte) (*directory.Record, error) {
	var r directory.Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *JSONCodec) Name() string { return CodecNameJSON }

package codec

import (
	"github.com/vmihailenco/msgpack/v5"

	"github.com/xraph/coalesce/directory"
)

// MsgpackCodec encodes/decodes directory records as MessagePack.
type MsgpackCodec struct{}

func (c *MsgpackCodec) Encode(rec *directory.Record) ([]byte, error) {
	return msgpack.Marshal(rec)
}

func (c *MsgpackCodec) Decode(data []byte) (*directory.Record, error) {
	var r directory.Record
	if err := msgpack.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

func (c *MsgpackCodec) Name() string { return CodecNameMsgpack }

package cache

import (
	"encoding/base64"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec turns values into the strings a Storage holds and back.
type Codec interface {
	Encode(v any) (string, error)
	Decode(s string, v any) error
}

// JSONCodec stores values as JSON text. It is the default.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (JSONCodec) Decode(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}

// MsgpackCodec stores values as base64-framed MessagePack, which is more
// compact than JSON for large structured values.
type MsgpackCodec struct{}

func (MsgpackCodec) Encode(v any) (string, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

func (MsgpackCodec) Decode(s string, v any) error {
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return err
	}
	return msgpack.Unmarshal(b, v)
}

// CodecByName returns the codec for "json" or "msgpack"; anything else
// yields JSONCodec.
func CodecByName(name string) Codec {
	if name == "msgpack" {
		return MsgpackCodec{}
	}
	return JSONCodec{}
}

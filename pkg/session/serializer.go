package session

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/vmihailenco/msgpack/v5"
)

// Serializer converts session data to the opaque payload kept by stores.
type Serializer interface {
	Marshal(data map[string]any) ([]byte, error)
	Unmarshal(payload []byte) (map[string]any, error)
}

// MsgpackSerializer encodes session data as MessagePack.
// Integers decode as int64 or uint64 and nested maps as map[string]any.
type MsgpackSerializer struct{}

func (MsgpackSerializer) Marshal(data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetSortMapKeys(true)
	if err := enc.Encode(data); err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}
	return buf.Bytes(), nil
}

func (MsgpackSerializer) Unmarshal(payload []byte) (map[string]any, error) {
	data := make(map[string]any)
	if len(payload) == 0 {
		return data, nil
	}

	dec := msgpack.NewDecoder(bytes.NewReader(payload))
	dec.UseLooseInterfaceDecoding(true)
	if err := dec.Decode(&data); err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}
	if data == nil {
		data = make(map[string]any)
	}
	return data, nil
}

// JSONSerializer encodes session data as JSON. Numbers decode as float64.
type JSONSerializer struct{}

func (JSONSerializer) Marshal(data map[string]any) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}
	return payload, nil
}

func (JSONSerializer) Unmarshal(payload []byte) (map[string]any, error) {
	data := make(map[string]any)
	if len(payload) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(payload, &data); err != nil {
		return nil, errors.Join(ErrSerialization, err)
	}
	if data == nil {
		data = make(map[string]any)
	}
	return data, nil
}

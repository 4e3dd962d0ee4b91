package api

import "encoding/json"

// Codec lets connect carry the plain Go request and response structs of this
// package as JSON. It replaces connect's protobuf-only "json" codec.
type Codec struct{}

func (Codec) Name() string { return "json" }

func (Codec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (Codec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

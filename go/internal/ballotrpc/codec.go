package ballotrpc

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// CodecName is registered under the name connect uses for application/json
const CodecName = "json"

// JSONCodec marshals plain Go messages with encoding/json so the services do not
// depend on generated protobuf types.
type JSONCodec struct{}

var _ connect.Codec = JSONCodec{}

func (JSONCodec) Name() string { return CodecName }

func (JSONCodec) Marshal(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

func (JSONCodec) Unmarshal(data []byte, msg any) error {
	return json.Unmarshal(data, msg)
}

// WithJSON returns the option that installs JSONCodec on a handler or client
func WithJSON() connect.Option {
	return connect.WithCodec(JSONCodec{})
}

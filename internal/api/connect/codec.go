package connect

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// jsonCodec marshals plain Go messages as JSON.
type jsonCodec struct{}

// Name returns the codec name used in content types.
func (jsonCodec) Name() string { return "json" }

// Marshal encodes a message.
func (jsonCodec) Marshal(msg any) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal message")
	}
	return b, nil
}

// Unmarshal decodes a message. An empty body leaves msg unchanged.
func (jsonCodec) Unmarshal(data []byte, msg any) error {
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, msg); err != nil {
		return errors.Wrap(err, "failed to unmarshal message")
	}
	return nil
}

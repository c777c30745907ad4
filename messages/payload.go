package messages

import (
	"fmt"

	json "github.com/goccy/go-json"
)

// Payload is the decoded body of an inbound message.
type Payload = map[string]any

// DecodePayload turns a transport payload into a structured record. Byte and string
// payloads hold UTF-8 JSON objects; maps are passed through untouched.
func DecodePayload(raw any) (Payload, error) {
	switch v := raw.(type) {
	case nil:
		return Payload{}, nil
	case map[string]any:
		return v, nil
	case []byte:
		return decodeJSON(v)
	case string:
		return decodeJSON([]byte(v))
	default:
		return nil, fmt.Errorf("unsupported payload type %T", raw)
	}
}

func decodeJSON(b []byte) (Payload, error) {
	if len(b) == 0 {
		return Payload{}, nil
	}
	var p Payload
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	if p == nil {
		// "null" decodes to a nil map
		p = Payload{}
	}
	return p, nil
}

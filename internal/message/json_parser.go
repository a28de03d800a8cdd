package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// ParseDynamicJSON parses a JSON object into a DynamicMessage. Numbers are kept
// as json.Number so integer fields stay integers.
// It returns ErrJSONUnmarshalFailed (wrapping the original error) if unmarshalling fails.
func ParseDynamicJSON(data []byte) (DynamicMessage, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var msg DynamicMessage
	if err := dec.Decode(&msg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrJSONUnmarshalFailed, err)
	}
	if msg == nil {
		return nil, fmt.Errorf("%w: message is null", ErrJSONUnmarshalFailed)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: %w", ErrJSONUnmarshalFailed, ErrTrailingData)
	}
	return msg, nil
}

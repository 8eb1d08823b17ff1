// Package wire converts multi-channel requests and responses to and from
// their JSON wire form.
package wire

import (
	"bytes"
	"encoding/json"
	"fmt"

	"msgkit/internal/model"
)

// Encode validates req and returns its compact wire JSON.
func Encode(req *model.Request) ([]byte, error) {
	m, err := req.ToMap()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// EncodeIndent is Encode with two-space indentation.
func EncodeIndent(req *model.Request) ([]byte, error) {
	raw, err := Encode(req)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("indent request: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeObject parses a JSON object keeping numbers as json.Number.
func DecodeObject(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, fmt.Errorf("decode JSON object: %w", err)
	}
	if obj == nil {
		return nil, fmt.Errorf("decode JSON object: document is null")
	}
	return obj, nil
}

// DecodeRequest parses wire JSON into a validated request.
func DecodeRequest(data []byte) (*model.Request, error) {
	obj, err := DecodeObject(data)
	if err != nil {
		return nil, err
	}
	return model.RequestFromMap(obj)
}

// DecodeResponse parses the platform's response envelope.
func DecodeResponse(data []byte) (*model.Response, error) {
	obj, err := DecodeObject(data)
	if err != nil {
		return nil, err
	}
	return model.ResponseFromMap(obj)
}

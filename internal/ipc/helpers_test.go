package ipc

import (
	"bytes"
	"encoding/json"
)

func jsonUnmarshal(data []byte, v any) error {
	return json.Unmarshal(bytes.TrimSpace(data), v)
}

package serializer

import (
	"bytes"
	"encoding/json"
)

// NewJSONSerializer creates a new serializer using json encoding
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

// jsonSerializerImpl implements the IRPCSerializer interface using json encoding
type jsonSerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg any) ([]byte, error) {
	return json.Marshal(msg)
}

// Deserialize ignores trailing NUL bytes, peers may pad the payload to a fixed buffer size
func (j jsonSerializerImpl) Deserialize(b []byte, msg any) error {
	return json.Unmarshal(bytes.TrimRight(b, "\x00"), msg)
}

func (j jsonSerializerImpl) GetName() string {
	return "json"
}

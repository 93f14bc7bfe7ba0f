package serializer

import (
	"encoding"
	"fmt"
)

// NewBinarySerializer creates a new serializer for fixed-layout binary payloads.
// Payloads define their own layout by implementing encoding.BinaryMarshaler and
// encoding.BinaryUnmarshaler.
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer by delegating to the payload
type binarySerializerImpl struct {
}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg any) ([]byte, error) {
	m, ok := msg.(encoding.BinaryMarshaler)
	if !ok {
		return nil, fmt.Errorf("%w: %T is not a binary marshaler", ErrUnsupportedType, msg)
	}
	return m.MarshalBinary()
}

func (b binarySerializerImpl) Deserialize(data []byte, msg any) error {
	m, ok := msg.(encoding.BinaryUnmarshaler)
	if !ok {
		return fmt.Errorf("%w: %T is not a binary unmarshaler", ErrUnsupportedType, msg)
	}
	return m.UnmarshalBinary(data)
}

func (b binarySerializerImpl) GetName() string {
	return "binary"
}

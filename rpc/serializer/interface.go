package serializer

import "errors"

// ErrUnsupportedType is returned when a value cannot be handled by a serializer
var ErrUnsupportedType = errors.New("unsupported type")

// IRPCSerializer is the interface for all payload serializers
type IRPCSerializer interface {
	// Serialize serializes a payload into a byte array
	// It returns the serialized byte array and an error if any
	Serialize(msg any) ([]byte, error)
	// Deserialize deserializes a byte array into a payload
	// It takes a byte array and a pointer to the payload as parameters
	// It returns an error if any
	Deserialize(b []byte, msg any) error
	// GetName returns the name of the encoding (e.g., "json", "binary")
	GetName() string
}

// Package serializer provides payload serialization for the services. It defines a
// common interface and two implementations.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Delegates to encoding.BinaryMarshaler/BinaryUnmarshaler, the
//     payload types in package common define their exact byte layout. Used by the
//     weather service.
//
//   - jsonSerializerImpl: JSON encoding, used by the horoscope and aggregator services.
//     Trailing NUL padding is ignored when decoding.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	  s := serializer.NewBinarySerializer()
//	  data, err := s.Serialize(common.Date{Year: 2024, Month: 3, Day: 1})
//	  // ... send data ...
//	  var info common.WeatherInfo
//	  err = s.Deserialize(receivedData, &info)
package serializer

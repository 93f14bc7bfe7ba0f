// Package rpc provides the network layer of climastro: a pooled TCP connection
// dispatcher for services and an outbound connector for their clients.
//
// The package is organized into several subpackages:
//
//   - common: Configuration structures, logging and the wire payloads of all services.
//
//   - transport: The listener/dispatcher (base.Server) and outbound connector
//     (base.Connector) with the TCP implementation of both in transport/tcp.
//
//   - serializer: JSON and fixed-layout binary serialization of the payloads.
//
//   - server: The echo, weather, horoscope and aggregator services.
//
//   - client: Typed clients for every service.
package rpc

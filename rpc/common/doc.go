// Package common provides the configuration, logging and wire payload types shared by
// the transport, server, client and cmd packages.
//
// Key Components:
//
//   - ServerConfig: bind address and port, accept backlog, worker limits, deadlines and
//     socket options of one service listener. Validate rejects privileged and out of
//     range ports.
//
//   - ClientConfig: remote endpoint, deadline and socket options of one outbound
//     connector.
//
//   - Date / WeatherInfo: the fixed-layout little-endian binary payloads of the weather
//     service (4 and 16 bytes).
//
//   - Query / AstroInfo / WeatherReply / AggregateReply / ErrorReply: the JSON payloads
//     of the horoscope and aggregator services.
//
//   - Logger: custom implementation of Dragonboat's logger.ILogger that gives every
//     package logger the same "LEVEL | pkg | message" format.
package common

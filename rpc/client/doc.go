// Package client implements typed clients for the services. Every client wraps a TCP
// base.Connector, so each request uses its own connection and clients are safe for
// concurrent use.
//
// Key Components:
//
//   - WeatherClient: binary protocol, 4 byte Date request and 16 byte WeatherInfo
//     response. Request returns a transport.Future for fan-out, Get waits.
//
//   - HoroscopeClient: JSON Query request, AstroInfo response. Error payloads of the
//     service are returned as ErrRemote.
//
//   - AggregateClient: JSON Query request, AggregateReply response.
//
//   - EchoClient: sends messages on one connection and ends the session with "salir".
//
// Usage:
//
//	c := client.NewWeatherClient(common.DefaultClientConfig("localhost", 24001))
//	info, err := c.Get(common.NewDate(time.Now()))
package client

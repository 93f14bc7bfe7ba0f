// Package server implements the services of climastro on top of the TCP transport.
//
// Every service implements IService and is served by NewServiceServer, which hands each
// accepted connection to the service on a pool worker and closes it afterward:
//
//   - EchoService: writes every chunk back until the peer sends "salir" or closes.
//
//   - WeatherService: reads a 4 byte binary Date and answers a 16 byte WeatherInfo.
//     Forecasts are cached per day for WeatherTTL. Invalid or out of range dates are
//     answered with the zero WeatherInfo.
//
//   - HoroscopeService: reads a JSON Query and answers an AstroInfo. Horoscopes are
//     cached per day and sign for HoroscopeTTL. Invalid queries are answered with
//     {"error":"invalid date and/or sign"}.
//
//   - AggregatorService: reads a JSON Query, asks the weather and horoscope services
//     concurrently and answers {"clima":...,"horoscopo":...}. Queries with an unknown
//     sign or a day outside the forecast range get the horoscope error reply without
//     asking any backend. A backend that fails or does not answer in time is reported
//     as null and its connection is closed.
//
// Usage Example:
//
//	gen := forecast.NewGenerator(forecast.DefaultMoods)
//	table, _ := server.NewWeatherTable()
//
//	s := server.NewServiceServer(
//	  common.DefaultServerConfig(24001),
//	  server.NewWeatherService(gen, table),
//	)
//
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	All services are safe for concurrent use. The caches are shared by all workers.
package server

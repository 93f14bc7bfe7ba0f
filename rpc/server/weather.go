package server

import (
	"fmt"
	"github.com/ValentinKolb/climastro/lib/cache"
	"github.com/ValentinKolb/climastro/lib/forecast"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/serializer"
	"io"
	"net"
	"time"
)

// WeatherTTL is how long a generated forecast is served
const WeatherTTL = time.Hour

// NewWeatherTable creates the cache of the weather service, one entry per day offset
func NewWeatherTable(opts ...cache.Option) (*cache.Table[forecast.Weather], error) {
	return cache.NewTable[forecast.Weather]("weather", forecast.Days, WeatherTTL, opts...)
}

// WeatherService answers a binary Date with the cached forecast of that day. Dates that
// are invalid or outside the forecast range get the zero WeatherInfo.
type WeatherService struct {
	generator  *forecast.Generator
	table      *cache.Table[forecast.Weather]
	serializer serializer.IRPCSerializer
	metrics    serviceMetrics
}

// NewWeatherService creates the weather service
func NewWeatherService(generator *forecast.Generator, table *cache.Table[forecast.Weather]) *WeatherService {
	return &WeatherService{
		generator:  generator,
		table:      table,
		serializer: serializer.NewBinarySerializer(),
		metrics:    newServiceMetrics("weather"),
	}
}

func (s *WeatherService) Name() string {
	return "weather"
}

func (s *WeatherService) Handle(conn net.Conn) error {
	buf := make([]byte, common.DateSize)
	if _, err := io.ReadFull(conn, buf); err != nil {
		return fmt.Errorf("failed to read date: %w", err)
	}
	s.metrics.requests.Inc()

	var date common.Date
	if err := s.serializer.Deserialize(buf, &date); err != nil {
		return err
	}

	info, err := s.Lookup(date)
	if err != nil {
		s.metrics.invalid.Inc()
		Logger.Debugf("Invalid weather request %s from %s: %v", date, conn.RemoteAddr(), err)
	}

	return writeResponse(conn, s.serializer, info)
}

// Lookup returns the forecast for date, or the zero WeatherInfo and the reason
func (s *WeatherService) Lookup(date common.Date) (common.WeatherInfo, error) {
	t, err := date.Time()
	if err != nil {
		return common.WeatherInfo{}, err
	}

	day, err := forecast.DayOffset(t, s.generator.Now())
	if err != nil {
		return common.WeatherInfo{}, err
	}

	entry, err := s.table.GetOrGenerate(day, s.generator.Weather)
	if err != nil {
		return common.WeatherInfo{}, err
	}

	return common.NewWeatherInfo(entry.Value), nil
}

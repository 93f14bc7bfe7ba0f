package server

import (
	"context"
	"github.com/ValentinKolb/climastro/lib/forecast"
	"github.com/ValentinKolb/climastro/rpc/client"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/serializer"
	"github.com/ValentinKolb/climastro/rpc/transport"
	"net"
	"time"
)

// DefaultBackendWait bounds how long the aggregator waits for a backend
const DefaultBackendWait = 10 * time.Second

// AggregatorService answers a JSON Query with the combined replies of the weather and
// horoscope services. Both backends are queried concurrently; a backend that fails or
// does not answer in time is reported as null and its connection is closed.
type AggregatorService struct {
	weather    *client.WeatherClient
	horoscope  *client.HoroscopeClient
	wait       time.Duration
	now        func() time.Time
	serializer serializer.IRPCSerializer
	metrics    serviceMetrics
}

// AggregatorOption configures an AggregatorService
type AggregatorOption func(*AggregatorService)

// WithAggregatorNow replaces time.Now as the reference for the valid day range
func WithAggregatorNow(now func() time.Time) AggregatorOption {
	return func(s *AggregatorService) {
		s.now = now
	}
}

// NewAggregatorService creates the aggregator. wait bounds the time spent waiting for
// the backends (<= 0 uses DefaultBackendWait).
func NewAggregatorService(weather *client.WeatherClient, horoscope *client.HoroscopeClient, wait time.Duration, opts ...AggregatorOption) *AggregatorService {
	if wait <= 0 {
		wait = DefaultBackendWait
	}
	s := &AggregatorService{
		weather:    weather,
		horoscope:  horoscope,
		wait:       wait,
		now:        time.Now,
		serializer: serializer.NewJSONSerializer(),
		metrics:    newServiceMetrics("aggregator"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *AggregatorService) Name() string {
	return "aggregator"
}

func (s *AggregatorService) Handle(conn net.Conn) error {
	req, err := readRequest(conn, common.MaxRequestSize)
	if err != nil {
		return err
	}
	s.metrics.requests.Inc()

	var query common.Query
	if err := s.serializer.Deserialize(req, &query); err != nil {
		s.metrics.invalid.Inc()
		Logger.Debugf("Invalid aggregator request from %s: %v", conn.RemoteAddr(), err)
		return writeResponse(conn, s.serializer, common.ErrorReply{Error: common.MsgInvalidQuery})
	}

	date, err := s.Validate(query)
	if err != nil {
		s.metrics.invalid.Inc()
		Logger.Debugf("Invalid aggregator request %+v from %s: %v", query, conn.RemoteAddr(), err)
		return writeResponse(conn, s.serializer, common.ErrorReply{Error: common.MsgInvalidQuery})
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.wait)
	defer cancel()

	return writeResponse(conn, s.serializer, s.Aggregate(ctx, date, query))
}

// Validate checks the date and sign of query before any backend is asked and returns the
// binary date for the weather backend
func (s *AggregatorService) Validate(query common.Query) (common.Date, error) {
	if _, err := forecast.ParseSign(query.Sign); err != nil {
		return common.Date{}, err
	}

	date, err := forecast.ParseDate(query.Date)
	if err != nil {
		return common.Date{}, err
	}

	if _, err := forecast.DayOffset(date, s.now()); err != nil {
		return common.Date{}, err
	}

	return common.NewDate(date), nil
}

// Aggregate queries both backends concurrently and waits for both until ctx is done.
// Failed parts are nil. Requests still pending when ctx is done are cancelled.
func (s *AggregatorService) Aggregate(ctx context.Context, date common.Date, query common.Query) common.AggregateReply {
	weatherFuture, weatherErr := s.weather.Request(ctx, date)
	if weatherErr != nil {
		Logger.Warningf("Weather backend %s unavailable: %v", s.weather.Endpoint(), weatherErr)
	}

	horoscopeFuture, horoscopeErr := s.horoscope.Request(ctx, query)
	if horoscopeErr != nil {
		Logger.Warningf("Horoscope backend %s unavailable: %v", s.horoscope.Endpoint(), horoscopeErr)
	}

	var reply common.AggregateReply

	if info, ok := await(ctx, weatherFuture, "weather"); ok && !info.IsZero() {
		w := common.NewWeatherReply(info)
		reply.Clima = &w
	}

	if info, ok := await(ctx, horoscopeFuture, "horoscope"); ok {
		reply.Horoscopo = &info
	}

	return reply
}

// await waits for a backend result, a nil future is a backend that could not be reached
func await[R any](ctx context.Context, future *transport.Future[R], backend string) (R, bool) {
	var zero R
	if future == nil {
		return zero, false
	}

	result, err := future.WaitContext(ctx)
	if err != nil {
		Logger.Warningf("No %s result: %v", backend, err)
		return zero, false
	}
	return result, true
}

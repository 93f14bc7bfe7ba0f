package server

import (
	"fmt"
	"github.com/ValentinKolb/climastro/lib/cache"
	"github.com/ValentinKolb/climastro/lib/forecast"
	"github.com/ValentinKolb/climastro/rpc/common"
	"github.com/ValentinKolb/climastro/rpc/serializer"
	"net"
	"time"
)

// HoroscopeTTL is how long a generated horoscope is served
const HoroscopeTTL = 24 * time.Hour

// NewHoroscopeGrid creates the cache of the horoscope service, one entry per day offset
// and sign
func NewHoroscopeGrid(opts ...cache.Option) (*cache.Grid[forecast.Horoscope], error) {
	return cache.NewGrid[forecast.Horoscope]("horoscope", forecast.Days, int(forecast.NumSigns), HoroscopeTTL, opts...)
}

// HoroscopeService answers a JSON Query with the cached horoscope of the sign for that day
type HoroscopeService struct {
	generator  *forecast.Generator
	grid       *cache.Grid[forecast.Horoscope]
	serializer serializer.IRPCSerializer
	metrics    serviceMetrics
}

// NewHoroscopeService creates the horoscope service
func NewHoroscopeService(generator *forecast.Generator, grid *cache.Grid[forecast.Horoscope]) *HoroscopeService {
	return &HoroscopeService{
		generator:  generator,
		grid:       grid,
		serializer: serializer.NewJSONSerializer(),
		metrics:    newServiceMetrics("horoscope"),
	}
}

func (s *HoroscopeService) Name() string {
	return "horoscope"
}

func (s *HoroscopeService) Handle(conn net.Conn) error {
	req, err := readRequest(conn, common.MaxRequestSize)
	if err != nil {
		return err
	}
	s.metrics.requests.Inc()

	var query common.Query
	if err := s.serializer.Deserialize(req, &query); err != nil {
		s.metrics.invalid.Inc()
		Logger.Debugf("Invalid horoscope request from %s: %v", conn.RemoteAddr(), err)
		return writeResponse(conn, s.serializer, common.ErrorReply{Error: common.MsgInvalidQuery})
	}

	info, err := s.Lookup(query)
	if err != nil {
		s.metrics.invalid.Inc()
		Logger.Debugf("Invalid horoscope request %+v from %s: %v", query, conn.RemoteAddr(), err)
		return writeResponse(conn, s.serializer, common.ErrorReply{Error: common.MsgInvalidQuery})
	}

	return writeResponse(conn, s.serializer, info)
}

// Lookup returns the horoscope for query
func (s *HoroscopeService) Lookup(query common.Query) (common.AstroInfo, error) {
	sign, err := forecast.ParseSign(query.Sign)
	if err != nil {
		return common.AstroInfo{}, err
	}

	date, err := forecast.ParseDate(query.Date)
	if err != nil {
		return common.AstroInfo{}, err
	}

	day, err := forecast.DayOffset(date, s.generator.Now())
	if err != nil {
		return common.AstroInfo{}, err
	}

	entry, err := s.grid.GetOrGenerate(day, int(sign), func(_, col int) forecast.Horoscope {
		return s.generator.Horoscope(forecast.Sign(col))
	})
	if err != nil {
		return common.AstroInfo{}, fmt.Errorf("horoscope cache: %w", err)
	}

	return common.NewAstroInfo(entry.Value), nil
}

package common

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"github.com/ValentinKolb/climastro/lib/forecast"
	"math"
	"time"
)

const (
	// DateSize is the wire size of a Date
	DateSize = 4
	// WeatherInfoSize is the wire size of a WeatherInfo
	WeatherInfoSize = 16

	// MaxRequestSize bounds the single read of a JSON request
	MaxRequestSize = 256
	// MaxResponseSize bounds the single read of a JSON response
	MaxResponseSize = 1024

	// MsgInvalidQuery is the error message for a horoscope query that cannot be answered
	MsgInvalidQuery = "invalid date and/or sign"
)

// ErrShortPayload is returned when a fixed-size payload has fewer bytes than its layout
var ErrShortPayload = errors.New("short payload")

// --------------------------------------------------------------------------
// Weather request (binary)
// --------------------------------------------------------------------------

// Date is the weather request. Layout (little endian):
//
//	0..1  year  uint16
//	2     month uint8
//	3     day   uint8
type Date struct {
	Year  uint16
	Month uint8
	Day   uint8
}

// NewDate returns the Date of t
func NewDate(t time.Time) Date {
	return Date{Year: uint16(t.Year()), Month: uint8(t.Month()), Day: uint8(t.Day())}
}

// Time converts the date to local midnight, invalid dates return an error
func (d Date) Time() (time.Time, error) {
	return forecast.CivilDate(int(d.Year), int(d.Month), int(d.Day))
}

func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
}

func (d Date) MarshalBinary() ([]byte, error) {
	buf := make([]byte, DateSize)
	binary.LittleEndian.PutUint16(buf[0:2], d.Year)
	buf[2] = d.Month
	buf[3] = d.Day
	return buf, nil
}

func (d *Date) UnmarshalBinary(b []byte) error {
	if len(b) < DateSize {
		return fmt.Errorf("%w: date needs %d bytes, got %d", ErrShortPayload, DateSize, len(b))
	}
	d.Year = binary.LittleEndian.Uint16(b[0:2])
	d.Month = b[2]
	d.Day = b[3]
	return nil
}

// --------------------------------------------------------------------------
// Weather response (binary)
// --------------------------------------------------------------------------

// WeatherInfo is the weather response. Layout (little endian):
//
//	0..10  date "YYYY-MM-DD\0"
//	11     cond uint8
//	12..15 temp float32
//
// The zero value (16 zero bytes) is the reply for an invalid request.
type WeatherInfo struct {
	Date [11]byte
	Cond uint8
	Temp float32
}

// NewWeatherInfo encodes a forecast
func NewWeatherInfo(w forecast.Weather) WeatherInfo {
	var info WeatherInfo
	copy(info.Date[:10], w.Date)
	info.Cond = uint8(w.Cond)
	info.Temp = w.Temp
	return info
}

// IsZero reports whether info is the invalid request reply
func (w WeatherInfo) IsZero() bool {
	return w == WeatherInfo{}
}

// DateString returns the date without the trailing NUL bytes
func (w WeatherInfo) DateString() string {
	if i := bytes.IndexByte(w.Date[:], 0); i >= 0 {
		return string(w.Date[:i])
	}
	return string(w.Date[:])
}

// Weather decodes the forecast
func (w WeatherInfo) Weather() forecast.Weather {
	return forecast.Weather{
		Date: w.DateString(),
		Cond: forecast.Condition(w.Cond),
		Temp: w.Temp,
	}
}

func (w WeatherInfo) MarshalBinary() ([]byte, error) {
	buf := make([]byte, WeatherInfoSize)
	copy(buf[0:11], w.Date[:])
	buf[11] = w.Cond
	binary.LittleEndian.PutUint32(buf[12:16], math.Float32bits(w.Temp))
	return buf, nil
}

func (w *WeatherInfo) UnmarshalBinary(b []byte) error {
	if len(b) < WeatherInfoSize {
		return fmt.Errorf("%w: weather info needs %d bytes, got %d", ErrShortPayload, WeatherInfoSize, len(b))
	}
	copy(w.Date[:], b[0:11])
	w.Cond = b[11]
	w.Temp = math.Float32frombits(binary.LittleEndian.Uint32(b[12:16]))
	return nil
}

// --------------------------------------------------------------------------
// JSON payloads
// --------------------------------------------------------------------------

// Query is the request of the horoscope and the aggregator service
type Query struct {
	Date string `json:"date"`
	Sign string `json:"sign"`
}

// AstroInfo is the horoscope response
type AstroInfo struct {
	Sign        uint8     `json:"sign"`
	SignS       string    `json:"sign_s"`
	SignCompat  uint8     `json:"sign_compat"`
	SignCompatS string    `json:"sign_compat_s"`
	DateRange   [2]string `json:"date_range"`
	Mood        string    `json:"mood"`
}

// NewAstroInfo encodes a horoscope
func NewAstroInfo(h forecast.Horoscope) AstroInfo {
	return AstroInfo{
		Sign:        uint8(h.Sign),
		SignS:       h.Sign.String(),
		SignCompat:  uint8(h.Compat),
		SignCompatS: h.Compat.String(),
		DateRange:   h.DateRange,
		Mood:        h.Mood,
	}
}

// WeatherReply is the JSON form of a WeatherInfo used by the aggregator
type WeatherReply struct {
	Date  string  `json:"date"`
	Cond  uint8   `json:"cond"`
	CondS string  `json:"cond_s"`
	Temp  float32 `json:"temp"`
}

// NewWeatherReply converts a binary weather response
func NewWeatherReply(info WeatherInfo) WeatherReply {
	w := info.Weather()
	return WeatherReply{
		Date:  w.Date,
		Cond:  uint8(w.Cond),
		CondS: w.Cond.String(),
		Temp:  w.Temp,
	}
}

// AggregateReply is the aggregator response, a failed backend is null
type AggregateReply struct {
	Clima     *WeatherReply `json:"clima"`
	Horoscopo *AstroInfo    `json:"horoscopo"`
}

// ErrorReply is returned for requests that cannot be parsed or answered
type ErrorReply struct {
	Error string `json:"error"`
}
